package message

import "testing"

func TestRetryCreatesNewId(t *testing.T) {
	msg := NewMessage(TypeAlert, Target{Type: TargetBroadcast})
	retried := msg.Retry()
	if retried.Id == msg.Id {
		t.Fatal("Expected retried message to carry a new id")
	}
	if retried.Metadata.RetryCount != 1 {
		t.Fatalf("Expected retry count 1, got %d", retried.Metadata.RetryCount)
	}
	if msg.Metadata.RetryCount != 0 {
		t.Fatal("Expected original message to stay unchanged")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *Message)
		wantErr bool
	}{
		{"valid broadcast", func(m *Message) {}, false},
		{"unknown type", func(m *Message) { m.Type = "BOGUS" }, true},
		{"user target without users", func(m *Message) {
			m.Target = Target{Type: TargetUser}
		}, true},
		{"user target with user", func(m *Message) {
			m.Target = Target{Type: TargetUser, UserIds: []string{"u1"}}
		}, false},
		{"org target without org", func(m *Message) {
			m.Target = Target{Type: TargetOrg}
		}, true},
		{"topic target with wildcard", func(m *Message) {
			m.Target = Target{Type: TargetTopic, ExplicitTopic: "/topic/a/*"}
		}, true},
		{"empty id", func(m *Message) { m.Id = "" }, true},
	}

	for _, test := range tests {
		msg := NewMessage(TypeNotification, Target{Type: TargetBroadcast})
		test.mutate(msg)
		err := Validate(msg)
		if test.wantErr && err == nil {
			t.Errorf("%s: expected error, got nil", test.name)
		}
		if !test.wantErr && err != nil {
			t.Errorf("%s: expected no error, got %v", test.name, err)
		}
	}
}

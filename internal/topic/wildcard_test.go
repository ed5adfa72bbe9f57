package topic

import "testing"

func TestMatchWildcard(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		expect  bool
	}{
		{"a/*/c", "a/b/c", true},
		{"a/*/c", "a/b/d/c", false},
		{"a/**", "a/b/c/d", true},
		{"a/**", "a", true},
		{"a/**", "b/c", false},
		{"a/b/c", "a/b/c", true},
		{"a/b/c", "a/b", false},
		{"a/b", "a/b/c", false},
		{"*/b", "a/b", true},
		{"*", "a/b", false},
		{"/queue/user/*", "/queue/user/u1", true},
		{"/topic/org/*/alerts/**", "/topic/org/o1/alerts/urgent", true},
		{"/topic/org/*/alerts/**", "/topic/org/o1/status", false},
		// "**" 不在末尾的模式非法，不匹配任何主题
		{"a/**/c", "a/x/y", false},
		{"a/**/c", "a/b/c", false},
		{"**/b", "a/b", false},
	}

	for _, test := range tests {
		result := MatchWildcard(test.pattern, test.topic)
		if result != test.expect {
			t.Errorf("MatchWildcard(%s, %s): expected %v, got %v", test.pattern, test.topic, test.expect, result)
		}
	}
}

func TestMatchWildcardCached(t *testing.T) {
	// 同一模式第二次走缓存，结果必须一致
	for i := 0; i < 2; i++ {
		if !MatchWildcard("x/*/z", "x/y/z") {
			t.Fatalf("Expected match on pass %d", i+1)
		}
	}
}

func TestHierarchy(t *testing.T) {
	chain := Hierarchy("/topic/org/o1", "terminal", "status")
	expected := []string{"/topic/org/o1", "/topic/org/o1/terminal", "/topic/org/o1/terminal/status"}
	if len(chain) != len(expected) {
		t.Fatalf("Expected %d entries, got %d", len(expected), len(chain))
	}
	for i := range expected {
		if chain[i] != expected[i] {
			t.Errorf("Entry %d: expected %s, got %s", i, expected[i], chain[i])
		}
	}
}

func TestQueueOwner(t *testing.T) {
	tests := []struct {
		topic  string
		expect string
	}{
		{"/queue/user/u1", "u1"},
		{"/queue/user/u1/notifications", "u1"},
		{"/topic/org/o1", ""},
	}
	for _, test := range tests {
		if owner := QueueOwner(test.topic); owner != test.expect {
			t.Errorf("QueueOwner(%s): expected %q, got %q", test.topic, test.expect, owner)
		}
	}
}

package dispatcher

import (
	"testing"

	"github.com/life-stream-dev/life-stream-go-message-hub/internal/connection"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/message"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/subscription"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/topic"
)

func newTestDispatcher() (Dispatcher, *connection.Registry, *subscription.Registry) {
	stats := topic.NewStatsCollector()
	conns := connection.NewRegistry()
	subs := subscription.NewRegistry(stats)
	return NewDispatcher(conns, subs), conns, subs
}

func TestSendToUserWithoutSession(t *testing.T) {
	disp, _, _ := newTestDispatcher()
	msg := message.NewMessage(message.TypeNotification, message.Target{Type: message.TargetBroadcast})

	if disp.SendToUser("ghost", "/queue/user/ghost", msg) {
		t.Error("Expected false when user has no live session")
	}
}

func TestSendToUserMultiDevice(t *testing.T) {
	disp, conns, _ := newTestDispatcher()
	conns.Register("s1", "u1", "o1", "web")
	conns.Register("s2", "u1", "o1", "mobile")

	msg := message.NewMessage(message.TypeNotification, message.Target{Type: message.TargetUser, UserIds: []string{"u1"}})
	if !disp.SendToUser("u1", "/queue/user/u1", msg) {
		t.Error("Expected delivery to succeed with live sessions")
	}
}

func TestSendToUserAllSessionsDisconnecting(t *testing.T) {
	disp, conns, _ := newTestDispatcher()
	conns.Register("s1", "u1", "o1", "web")
	conns.SetStatus("s1", connection.StatusDisconnecting)

	msg := message.NewMessage(message.TypeNotification, message.Target{Type: message.TargetUser, UserIds: []string{"u1"}})
	if disp.SendToUser("u1", "/queue/user/u1", msg) {
		t.Error("Expected false when every session is disconnecting and nothing was delivered")
	}
}

func TestSendToTopicFanOut(t *testing.T) {
	disp, conns, subs := newTestDispatcher()
	conns.Register("s1", "u1", "o1", "web")
	conns.Register("s2", "u2", "o1", "web")
	subs.Subscribe("u1", "/topic/org/o1/alerts", subscription.LifetimeSession, "s1")
	subs.Subscribe("u2", "/topic/org/o1/**", subscription.LifetimeSession, "s2")

	msg := message.NewMessage(message.TypeAlert, message.Target{Type: message.TargetOrg, OrgId: "o1"})
	if !disp.SendToTopic("/topic/org/o1/alerts", msg) {
		t.Error("Expected fan-out delivery to succeed")
	}

	if disp.SendToTopic("/topic/org/o2/alerts", msg) {
		t.Error("Expected false for topic without subscribers")
	}
}

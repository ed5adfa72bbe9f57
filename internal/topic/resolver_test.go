package topic

import (
	"slices"
	"testing"
	"time"

	"github.com/life-stream-dev/life-stream-go-message-hub/internal/message"
)

func fixedTime(weekday time.Weekday, hour int) time.Time {
	// 2025-06-02 是周一
	base := time.Date(2025, 6, 2, hour, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, int(weekday-time.Monday))
}

func TestGenerateCandidatesBusinessHours(t *testing.T) {
	resolver := NewResolver(NewStatsCollector())
	resolver.now = func() time.Time { return fixedTime(time.Monday, 10) }

	msg := message.NewMessage(message.TypeAlert, message.Target{Type: message.TargetOrg, OrgId: "o1"})
	candidates := resolver.GenerateCandidates(msg)

	if !slices.Contains(candidates, "/topic/alerts") {
		t.Errorf("Expected alert base topic, got %v", candidates)
	}
	if !slices.Contains(candidates, "/topic/org/o1/events") {
		t.Errorf("Expected org events topic, got %v", candidates)
	}
	if !slices.Contains(candidates, "/topic/schedule/business-hours") {
		t.Errorf("Expected business-hours bucket, got %v", candidates)
	}
}

func TestGenerateCandidatesOffHours(t *testing.T) {
	resolver := NewResolver(NewStatsCollector())
	resolver.now = func() time.Time { return fixedTime(time.Sunday, 10) }

	msg := message.NewMessage(message.TypeNotification, message.Target{Type: message.TargetBroadcast})
	candidates := resolver.GenerateCandidates(msg)

	if !slices.Contains(candidates, "/topic/schedule/off-hours") {
		t.Errorf("Expected off-hours bucket, got %v", candidates)
	}
}

func TestGenerateCandidatesKeywordScan(t *testing.T) {
	resolver := NewResolver(NewStatsCollector())

	msg := message.NewMessage(message.TypeTaskProgress, message.Target{Type: message.TargetBroadcast})
	msg.Source.TaskId = "t42"
	msg.Payload["detail"] = "task FAILED with timeout"
	candidates := resolver.GenerateCandidates(msg)

	if !slices.Contains(candidates, "/topic/alerts/urgent") {
		t.Errorf("Expected urgent topic from keyword scan, got %v", candidates)
	}
	if !slices.Contains(candidates, "/topic/task/t42/progress") {
		t.Errorf("Expected task progress topic, got %v", candidates)
	}
}

func TestGenerateCandidatesDeterministic(t *testing.T) {
	resolver := NewResolver(NewStatsCollector())
	resolver.now = func() time.Time { return fixedTime(time.Tuesday, 14) }

	msg := message.NewMessage(message.TypeAlert, message.Target{Type: message.TargetOrg, OrgId: "o9"})
	msg.Payload["text"] = "critical error"

	first := resolver.GenerateCandidates(msg)
	second := resolver.GenerateCandidates(msg)
	if !slices.Equal(first, second) {
		t.Errorf("Expected deterministic candidates, got %v then %v", first, second)
	}
}

func TestEvictIdle(t *testing.T) {
	stats := NewStatsCollector()
	resolver := NewResolver(stats)

	stats.Touch("/topic/old")
	stats.IncSubscribers("/topic/kept")

	// maxIdle 为负值使所有零订阅条目立即过期
	removed := resolver.EvictIdle(-time.Second)
	if removed != 1 {
		t.Fatalf("Expected 1 evicted entry, got %d", removed)
	}
	if _, ok := stats.Get("/topic/old"); ok {
		t.Error("Expected /topic/old to be evicted")
	}
	if _, ok := stats.Get("/topic/kept"); !ok {
		t.Error("Expected /topic/kept to survive eviction")
	}
}

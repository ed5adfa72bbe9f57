package topic

import (
	"sync"
	"testing"
)

func TestSubscriberCountFloor(t *testing.T) {
	stats := NewStatsCollector()
	stats.IncSubscribers("/topic/a")
	stats.DecSubscribers("/topic/a")
	stats.DecSubscribers("/topic/a")

	s, ok := stats.Get("/topic/a")
	if !ok {
		t.Fatal("Expected stats entry for /topic/a")
	}
	if s.SubscriberCount != 0 {
		t.Errorf("Expected subscriber count floored at 0, got %d", s.SubscriberCount)
	}
}

func TestMessageCountMonotonic(t *testing.T) {
	stats := NewStatsCollector()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				stats.IncMessages("/topic/busy")
			}
		}()
	}
	wg.Wait()

	s, _ := stats.Get("/topic/busy")
	if s.MessageCount != 800 {
		t.Errorf("Expected 800 messages counted, got %d", s.MessageCount)
	}
}

func TestSnapshot(t *testing.T) {
	stats := NewStatsCollector()
	stats.IncSubscribers("/topic/x")
	stats.IncMessages("/topic/y")

	snapshot := stats.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("Expected 2 entries in snapshot, got %d", len(snapshot))
	}
}

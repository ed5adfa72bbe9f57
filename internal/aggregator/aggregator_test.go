package aggregator

import (
	"testing"
	"time"

	"github.com/life-stream-dev/life-stream-go-message-hub/internal/message"
)

func statusMessage(orgId string, text string) *message.Message {
	msg := message.NewMessage(message.TypeTerminalStatusChange, message.Target{Type: message.TargetOrg, OrgId: orgId})
	msg.Payload["message"] = text
	return msg
}

func TestHighPriorityBypassesBuffer(t *testing.T) {
	agg := NewAggregator(200)

	normal := statusMessage("o1", "normal event")
	high := statusMessage("o1", "high event")
	high.Metadata.Priority = message.PriorityHigh

	if outcome := agg.Submit(normal); outcome.Kind != OutcomeQueued {
		t.Fatalf("Expected NORMAL message queued, got %s", outcome.Kind)
	}
	outcome := agg.Submit(high)
	if outcome.Kind != OutcomeImmediate {
		t.Fatalf("Expected HIGH message immediate, got %s", outcome.Kind)
	}
	if outcome.Messages[0].Id != high.Id {
		t.Error("Expected HIGH message returned unchanged")
	}

	// HIGH 消息不得出现在后续冲刷内容中
	key := AggregationKey(normal)
	if agg.PendingSize(key) != 1 {
		t.Errorf("Expected 1 buffered message, got %d", agg.PendingSize(key))
	}
}

func TestRequireAckBypassesBuffer(t *testing.T) {
	agg := NewAggregator(200)
	msg := statusMessage("o1", "ack me")
	msg.Metadata.RequireAck = true

	if outcome := agg.Submit(msg); outcome.Kind != OutcomeImmediate {
		t.Errorf("Expected ack-required message immediate, got %s", outcome.Kind)
	}
}

func TestQuantityThresholdTriggersFlush(t *testing.T) {
	agg := NewAggregator(200)

	// ALERT 默认阈值3
	var outcome Outcome
	for i := 0; i < 3; i++ {
		msg := message.NewMessage(message.TypeAlert, message.Target{Type: message.TargetOrg, OrgId: "o1"})
		msg.Payload["message"] = "alert"
		outcome = agg.Submit(msg)
	}

	if outcome.Kind != OutcomeAggregated {
		t.Fatalf("Expected aggregated flush at threshold, got %s", outcome.Kind)
	}
	if outcome.Count != 3 {
		t.Errorf("Expected 3 aggregated messages, got %d", outcome.Count)
	}
	merged := outcome.Messages[0]
	if merged.Payload["aggregated_count"] != 3 {
		t.Errorf("Expected aggregated_count 3, got %v", merged.Payload["aggregated_count"])
	}
}

func TestTimeWindowNotTriggeredEarly(t *testing.T) {
	agg := NewAggregator(200)
	current := time.Now()
	agg.now = func() time.Time { return current }

	// 默认窗口10s/阈值20：2秒内15条不得冲刷
	for i := 0; i < 15; i++ {
		current = current.Add(133 * time.Millisecond)
		msg := statusMessage("o1", "status change")
		msg.Timestamp = current
		if outcome := agg.Submit(msg); outcome.Kind != OutcomeQueued {
			t.Fatalf("Expected message %d queued before window elapses, got %s", i+1, outcome.Kind)
		}
	}

	if outcomes := agg.FlushDue(); len(outcomes) != 0 {
		t.Fatalf("Expected no due flush before 10s, got %d", len(outcomes))
	}

	// 窗口过后周期清扫必须恰好冲刷一条合并消息
	current = current.Add(10 * time.Second)
	outcomes := agg.FlushDue()
	if len(outcomes) != 1 {
		t.Fatalf("Expected exactly one flush after window, got %d", len(outcomes))
	}
	if outcomes[0].Kind != OutcomeAggregated || outcomes[0].Count != 15 {
		t.Fatalf("Expected aggregated flush of 15, got %s count=%d", outcomes[0].Kind, outcomes[0].Count)
	}
	merged := outcomes[0].Messages[0]
	if merged.Payload["aggregated_count"] != 15 {
		t.Errorf("Expected aggregated_count 15, got %v", merged.Payload["aggregated_count"])
	}
}

func TestSingleMessagePassThrough(t *testing.T) {
	agg := NewAggregator(200)
	current := time.Now()
	agg.now = func() time.Time { return current }

	msg := statusMessage("o1", "lonely")
	agg.Submit(msg)

	current = current.Add(11 * time.Second)
	outcomes := agg.FlushDue()
	if len(outcomes) != 1 {
		t.Fatalf("Expected one flush, got %d", len(outcomes))
	}
	if outcomes[0].Kind != OutcomeImmediate {
		t.Fatalf("Expected single message passed through unchanged, got %s", outcomes[0].Kind)
	}
	if outcomes[0].Messages[0].Id != msg.Id {
		t.Error("Expected original message id preserved on pass-through")
	}
}

func TestSynthesizeOrderAndSummary(t *testing.T) {
	base := time.Now()
	var snapshot []*message.Message
	for i, text := range []string{"first", "second", "third", "fourth", "fifth"} {
		msg := statusMessage("o1", text)
		msg.Timestamp = base.Add(time.Duration(i) * time.Second)
		snapshot = append(snapshot, msg)
	}

	merged := synthesize(snapshot)

	// 信封取最新时间戳的原始消息
	if merged.Timestamp != snapshot[4].Timestamp {
		t.Error("Expected newest message as envelope template")
	}
	if merged.Id == snapshot[4].Id {
		t.Error("Expected synthesized message to carry a fresh id")
	}

	originals := merged.Payload["aggregated"].([]map[string]any)
	if len(originals) != 5 {
		t.Fatalf("Expected 5 originals, got %d", len(originals))
	}
	for i, text := range []string{"first", "second", "third", "fourth", "fifth"} {
		if originals[i]["message"] != text {
			t.Errorf("Expected submission order preserved at %d, got %v", i, originals[i]["message"])
		}
	}

	summary := merged.Payload["summary"].(string)
	if summary != "first; second; third..." {
		t.Errorf("Expected summary truncated after 3 entries, got %q", summary)
	}
}

func TestHardBufferCapForcesFlush(t *testing.T) {
	agg := NewAggregator(5)

	// TERMINAL_STATUS_CHANGE 阈值20，但硬上限5先到
	var outcome Outcome
	for i := 0; i < 5; i++ {
		outcome = agg.Submit(statusMessage("o1", "burst"))
	}
	if outcome.Kind != OutcomeAggregated {
		t.Fatalf("Expected forced flush at hard cap, got %s", outcome.Kind)
	}
	if outcome.Count != 5 {
		t.Errorf("Expected 5 messages in forced flush, got %d", outcome.Count)
	}
}

func TestCleanupIdle(t *testing.T) {
	agg := NewAggregator(200)
	current := time.Now()
	agg.now = func() time.Time { return current }

	msg := statusMessage("o1", "old")
	agg.Submit(msg)
	current = current.Add(11 * time.Second)
	agg.FlushDue() // 清空缓冲

	current = current.Add(25 * time.Hour)
	removed := agg.CleanupIdle(24 * time.Hour)
	if removed != 1 {
		t.Errorf("Expected 1 idle key cleaned up, got %d", removed)
	}
}

func TestCounters(t *testing.T) {
	agg := NewAggregator(200)
	for i := 0; i < 3; i++ {
		msg := message.NewMessage(message.TypeAlert, message.Target{Type: message.TargetOrg, OrgId: "o1"})
		agg.Submit(msg)
	}

	aggregated, flushes := agg.Totals()
	if aggregated != 3 {
		t.Errorf("Expected 3 aggregated messages counted, got %d", aggregated)
	}
	if flushes != 1 {
		t.Errorf("Expected 1 flush event counted, got %d", flushes)
	}
}

func TestDistinctKeysDoNotShareBuffers(t *testing.T) {
	agg := NewAggregator(200)
	agg.Submit(statusMessage("o1", "a"))
	agg.Submit(statusMessage("o2", "b"))

	keyA := AggregationKey(statusMessage("o1", ""))
	keyB := AggregationKey(statusMessage("o2", ""))
	if keyA == keyB {
		t.Fatal("Expected distinct keys for distinct orgs")
	}
	if agg.PendingSize(keyA) != 1 || agg.PendingSize(keyB) != 1 {
		t.Error("Expected one buffered message per key")
	}
	if agg.PendingTotal() != 2 {
		t.Errorf("Expected pending total 2, got %d", agg.PendingTotal())
	}
}

// Package aggregator 将同键的低优先级事件按时间/数量窗口合并成批量消息。
// 每个聚合键的缓冲独立加锁，投递回调一律在锁外执行；聚合失败时退化为
// 逐条直发，绝不丢消息。
package aggregator

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/logger"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/message"
)

type OutcomeKind int

const (
	OutcomeImmediate OutcomeKind = iota
	OutcomeQueued
	OutcomeAggregated
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeImmediate:
		return "IMMEDIATE"
	case OutcomeQueued:
		return "QUEUED"
	case OutcomeAggregated:
		return "AGGREGATED"
	case OutcomeFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Outcome Submit 的显式结果。Messages 为需要立即投递的消息：
// Immediate 时是原消息，Aggregated 时是合并后的消息，Failed 时是
// 退回调用方逐条投递的缓冲消息。Queued 时为空。
type Outcome struct {
	Kind     OutcomeKind
	Count    int
	Messages []*message.Message
}

// keyBuffer 单个聚合键的缓冲与状态，状态机 EMPTY → BUFFERING → FLUSHING → EMPTY
type keyBuffer struct {
	mu        sync.Mutex
	messages  []*message.Message
	rule      Rule
	lastFlush time.Time
	lastTouch time.Time
}

type Aggregator struct {
	buffers   sync.Map // aggregationKey -> *keyBuffer
	maxBuffer int      // 缓冲硬上限，到达即强制冲刷
	now       func() time.Time

	aggregatedTotal atomic.Int64 // 被合并过的消息总数
	flushTotal      atomic.Int64 // 冲刷事件总数
}

func NewAggregator(maxBuffer int) *Aggregator {
	if maxBuffer <= 0 {
		maxBuffer = 200
	}
	return &Aggregator{maxBuffer: maxBuffer, now: time.Now}
}

func (a *Aggregator) bufferFor(msg *message.Message, key string) *keyBuffer {
	if value, ok := a.buffers.Load(key); ok {
		return value.(*keyBuffer)
	}
	now := a.now()
	value, _ := a.buffers.LoadOrStore(key, &keyBuffer{
		rule:      defaultRuleFor(msg.Type, key),
		lastFlush: now,
		lastTouch: now,
	})
	return value.(*keyBuffer)
}

// Submit 提交消息。HIGH/URGENT 或要求确认的消息完全绕过缓冲。
func (a *Aggregator) Submit(msg *message.Message) Outcome {
	if msg.Metadata.Priority >= message.PriorityHigh || msg.Metadata.RequireAck {
		return Outcome{Kind: OutcomeImmediate, Count: 1, Messages: []*message.Message{msg}}
	}

	key := AggregationKey(msg)
	buffer := a.bufferFor(msg, key)
	now := a.now()

	buffer.mu.Lock()
	buffer.messages = append(buffer.messages, msg)
	buffer.lastTouch = now
	size := len(buffer.messages)

	triggered := size >= buffer.rule.QuantityThreshold ||
		now.Sub(buffer.lastFlush) >= buffer.rule.TimeWindow ||
		size >= a.maxBuffer

	if !triggered {
		buffer.mu.Unlock()
		return Outcome{Kind: OutcomeQueued, Count: size}
	}

	snapshot := buffer.messages
	buffer.messages = nil
	buffer.lastFlush = now
	buffer.mu.Unlock()

	// 合并在锁外进行
	return a.buildOutcome(key, snapshot)
}

// buildOutcome 将快照合并为投递结果；任何异常都退化为 Failed 逐条直发
func (a *Aggregator) buildOutcome(key string, snapshot []*message.Message) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorF("Flush failed for key %s, degrading to pass-through: %v", key, r)
			outcome = Outcome{Kind: OutcomeFailed, Count: len(snapshot), Messages: snapshot}
		}
	}()

	a.flushTotal.Add(1)

	if len(snapshot) == 1 {
		// 单条消息原样放行
		return Outcome{Kind: OutcomeImmediate, Count: 1, Messages: snapshot}
	}

	merged := synthesize(snapshot)
	a.aggregatedTotal.Add(int64(len(snapshot)))
	logger.DebugF("Flushed %d messages for key %s into %s", len(snapshot), key, merged.Id)
	return Outcome{Kind: OutcomeAggregated, Count: len(snapshot), Messages: []*message.Message{merged}}
}

// synthesize 以时间戳最新的原始消息为信封模板合成汇总消息，
// 明细保持提交顺序，摘要文本截断到前3条
func synthesize(snapshot []*message.Message) *message.Message {
	newest := snapshot[0]
	for _, msg := range snapshot[1:] {
		if msg.Timestamp.After(newest.Timestamp) {
			newest = msg
		}
	}

	merged := *newest
	merged.Id = uuid.NewString()

	originals := make([]map[string]any, 0, len(snapshot))
	summaryParts := make([]string, 0, 3)
	for i, msg := range snapshot {
		originals = append(originals, map[string]any{
			"id":        msg.Id,
			"timestamp": msg.Timestamp,
			"message":   summaryText(msg),
			"payload":   msg.Payload,
		})
		if i < 3 {
			summaryParts = append(summaryParts, summaryText(msg))
		}
	}
	summary := strings.Join(summaryParts, "; ")
	if len(snapshot) > 3 {
		summary += "..."
	}

	merged.Payload = map[string]any{
		"aggregated_count": len(snapshot),
		"aggregated":       originals,
		"summary":          summary,
	}
	return &merged
}

func summaryText(msg *message.Message) string {
	if text, ok := msg.Payload["message"].(string); ok && text != "" {
		return text
	}
	return fmt.Sprintf("%s event", msg.Type)
}

// FlushDue 冲刷所有超过时间窗口的缓冲，即使没有新消息到达。
// 返回产生的投递结果，由调用方在锁外投递。
func (a *Aggregator) FlushDue() []Outcome {
	now := a.now()
	var outcomes []Outcome

	a.buffers.Range(func(key, value any) bool {
		buffer := value.(*keyBuffer)
		buffer.mu.Lock()
		if len(buffer.messages) == 0 || now.Sub(buffer.lastFlush) < buffer.rule.TimeWindow {
			buffer.mu.Unlock()
			return true
		}
		snapshot := buffer.messages
		buffer.messages = nil
		buffer.lastFlush = now
		buffer.mu.Unlock()

		outcomes = append(outcomes, a.buildOutcome(key.(string), snapshot))
		return true
	})
	return outcomes
}

// CleanupIdle 清除超过保留期未被触达且缓冲为空的键的规则与时间戳记录
func (a *Aggregator) CleanupIdle(retention time.Duration) int {
	deadline := a.now().Add(-retention)
	removed := 0
	a.buffers.Range(func(key, value any) bool {
		buffer := value.(*keyBuffer)
		buffer.mu.Lock()
		idle := len(buffer.messages) == 0 && buffer.lastTouch.Before(deadline)
		buffer.mu.Unlock()
		if idle {
			a.buffers.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		logger.DebugF("Cleaned up %d idle aggregation keys", removed)
	}
	return removed
}

// PendingSize 指定键当前缓冲的消息数
func (a *Aggregator) PendingSize(key string) int {
	value, ok := a.buffers.Load(key)
	if !ok {
		return 0
	}
	buffer := value.(*keyBuffer)
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	return len(buffer.messages)
}

// PendingTotal 全部键的缓冲消息总数
func (a *Aggregator) PendingTotal() int {
	total := 0
	a.buffers.Range(func(key, value any) bool {
		buffer := value.(*keyBuffer)
		buffer.mu.Lock()
		total += len(buffer.messages)
		buffer.mu.Unlock()
		return true
	})
	return total
}

// Totals 返回累计合并消息数与冲刷事件数（只读观测）
func (a *Aggregator) Totals() (aggregated int64, flushes int64) {
	return a.aggregatedTotal.Load(), a.flushTotal.Load()
}

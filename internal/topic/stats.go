package topic

import (
	"sync"
	"time"

	"github.com/life-stream-dev/life-stream-go-message-hub/internal/logger"
)

// Stats 单个主题的观测数据快照
type Stats struct {
	Topic           string
	SubscriberCount int
	MessageCount    int64
	CreatedAt       time.Time
	LastAccess      time.Time
}

type statsEntry struct {
	mu              sync.Mutex
	subscriberCount int
	messageCount    int64
	createdAt       time.Time
	lastAccess      time.Time
}

// StatsCollector 按主题聚合订阅数与消息数，entry级别加锁避免全局争用
type StatsCollector struct {
	entries sync.Map // topic -> *statsEntry
}

func NewStatsCollector() *StatsCollector {
	return &StatsCollector{}
}

var (
	collectorInstance *StatsCollector
	collectorOnce     sync.Once
)

// GetStatsCollector 获取进程级统计收集器实例
func GetStatsCollector() *StatsCollector {
	collectorOnce.Do(func() {
		collectorInstance = NewStatsCollector()
	})
	return collectorInstance
}

func (sc *StatsCollector) entry(topic string) *statsEntry {
	if value, ok := sc.entries.Load(topic); ok {
		return value.(*statsEntry)
	}
	now := time.Now()
	value, _ := sc.entries.LoadOrStore(topic, &statsEntry{createdAt: now, lastAccess: now})
	return value.(*statsEntry)
}

func (sc *StatsCollector) IncSubscribers(topic string) {
	e := sc.entry(topic)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscriberCount++
	e.lastAccess = time.Now()
}

// DecSubscribers 订阅数递减，下限为0
func (sc *StatsCollector) DecSubscribers(topic string) {
	e := sc.entry(topic)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.subscriberCount > 0 {
		e.subscriberCount--
	}
	e.lastAccess = time.Now()
}

func (sc *StatsCollector) IncMessages(topic string) {
	e := sc.entry(topic)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.messageCount++
	e.lastAccess = time.Now()
}

// Touch 仅刷新最近访问时间，供候选主题生成时登记
func (sc *StatsCollector) Touch(topic string) {
	e := sc.entry(topic)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastAccess = time.Now()
}

func (sc *StatsCollector) Get(topic string) (Stats, bool) {
	value, ok := sc.entries.Load(topic)
	if !ok {
		return Stats{}, false
	}
	e := value.(*statsEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Topic:           topic,
		SubscriberCount: e.subscriberCount,
		MessageCount:    e.messageCount,
		CreatedAt:       e.createdAt,
		LastAccess:      e.lastAccess,
	}, true
}

func (sc *StatsCollector) Snapshot() []Stats {
	var result []Stats
	sc.entries.Range(func(key, value any) bool {
		e := value.(*statsEntry)
		e.mu.Lock()
		result = append(result, Stats{
			Topic:           key.(string),
			SubscriberCount: e.subscriberCount,
			MessageCount:    e.messageCount,
			CreatedAt:       e.createdAt,
			LastAccess:      e.lastAccess,
		})
		e.mu.Unlock()
		return true
	})
	return result
}

// EvictIdle 清除零订阅且超过最大空闲时间的主题条目，返回清除数量
func (sc *StatsCollector) EvictIdle(maxIdle time.Duration) int {
	deadline := time.Now().Add(-maxIdle)
	removed := 0
	sc.entries.Range(func(key, value any) bool {
		e := value.(*statsEntry)
		e.mu.Lock()
		idle := e.subscriberCount == 0 && e.lastAccess.Before(deadline)
		e.mu.Unlock()
		if idle {
			sc.entries.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		logger.DebugF("Evicted %d idle topic entries", removed)
	}
	return removed
}

// Package subscription 实现两种生命周期的主题订阅注册表。
// SESSION 订阅随所属会话销毁，TEMPORARY 订阅由周期清扫按TTL过期。
package subscription

import (
	"sync"
	"time"

	"github.com/life-stream-dev/life-stream-go-message-hub/internal/logger"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/topic"
)

type Lifetime int

const (
	LifetimeSession Lifetime = iota
	LifetimeTemporary
)

func (l Lifetime) String() string {
	if l == LifetimeTemporary {
		return "TEMPORARY"
	}
	return "SESSION"
}

// Subscription 一条订阅记录；同一 (userId, topic) 允许在不同生命周期下冗余存在
type Subscription struct {
	UserId    string
	Topic     string
	Lifetime  Lifetime
	ScopeId   string // SESSION: 会话ID；TEMPORARY: 临时作用域ID
	CreatedAt time.Time
}

type userSubs struct {
	mu   sync.Mutex
	subs map[string][]Subscription // topic -> 各作用域的订阅
}

// Registry 订阅注册表，按用户分桶，桶内独立加锁
type Registry struct {
	users sync.Map // userId -> *userSubs
	stats *topic.StatsCollector
}

func NewRegistry(stats *topic.StatsCollector) *Registry {
	return &Registry{stats: stats}
}

func (r *Registry) userSubsFor(userId string) *userSubs {
	if value, ok := r.users.Load(userId); ok {
		return value.(*userSubs)
	}
	value, _ := r.users.LoadOrStore(userId, &userSubs{subs: make(map[string][]Subscription)})
	return value.(*userSubs)
}

// Subscribe 登记订阅并使主题订阅数加一；完全相同的订阅重复登记是幂等的
func (r *Registry) Subscribe(userId string, topicName string, lifetime Lifetime, scopeId string) {
	entry := r.userSubsFor(userId)
	entry.mu.Lock()
	for _, sub := range entry.subs[topicName] {
		if sub.Lifetime == lifetime && sub.ScopeId == scopeId {
			entry.mu.Unlock()
			logger.DebugF("Duplicate subscription ignored, user=%s, topic=%s, scope=%s", userId, topicName, scopeId)
			return
		}
	}
	entry.subs[topicName] = append(entry.subs[topicName], Subscription{
		UserId:    userId,
		Topic:     topicName,
		Lifetime:  lifetime,
		ScopeId:   scopeId,
		CreatedAt: time.Now(),
	})
	entry.mu.Unlock()

	r.stats.IncSubscribers(topicName)
	logger.DebugF("User %s subscribed to %s (%s, scope=%s)", userId, topicName, lifetime, scopeId)
}

// Unsubscribe 移除订阅。scopeId 为空串时移除该主题下的所有作用域。
// 返回是否有记录被移除，每条被移除的记录使主题订阅数减一。
func (r *Registry) Unsubscribe(userId string, topicName string, scopeId string) bool {
	value, ok := r.users.Load(userId)
	if !ok {
		return false
	}
	entry := value.(*userSubs)

	entry.mu.Lock()
	existing := entry.subs[topicName]
	kept := existing[:0]
	removed := 0
	for _, sub := range existing {
		if scopeId == "" || sub.ScopeId == scopeId {
			removed++
			continue
		}
		kept = append(kept, sub)
	}
	if removed == 0 {
		entry.mu.Unlock()
		return false
	}
	if len(kept) == 0 {
		delete(entry.subs, topicName)
	} else {
		entry.subs[topicName] = kept
	}
	entry.mu.Unlock()

	for i := 0; i < removed; i++ {
		r.stats.DecSubscribers(topicName)
	}
	logger.DebugF("User %s unsubscribed from %s, removed=%d", userId, topicName, removed)
	return true
}

// DropSession 批量移除该会话的全部 SESSION 订阅并返回涉及的主题列表，
// 统计递减由调用方负责。TEMPORARY 订阅不受影响。
func (r *Registry) DropSession(userId string, sessionId string) []string {
	value, ok := r.users.Load(userId)
	if !ok {
		return nil
	}
	entry := value.(*userSubs)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	var removedTopics []string
	for topicName, subs := range entry.subs {
		kept := subs[:0]
		for _, sub := range subs {
			if sub.Lifetime == LifetimeSession && sub.ScopeId == sessionId {
				removedTopics = append(removedTopics, topicName)
				continue
			}
			kept = append(kept, sub)
		}
		if len(kept) == 0 {
			delete(entry.subs, topicName)
		} else {
			entry.subs[topicName] = kept
		}
	}

	if len(removedTopics) > 0 {
		logger.DebugF("Dropped %d session subscriptions, user=%s, session=%s", len(removedTopics), userId, sessionId)
	}
	return removedTopics
}

// SweepExpiredTemporary 移除创建时间早于 now-ttl 的 TEMPORARY 订阅，返回移除数量
func (r *Registry) SweepExpiredTemporary(now time.Time, ttl time.Duration) int {
	deadline := now.Add(-ttl)
	removed := 0

	r.users.Range(func(key, value any) bool {
		entry := value.(*userSubs)
		entry.mu.Lock()
		var expired []string
		for topicName, subs := range entry.subs {
			kept := subs[:0]
			for _, sub := range subs {
				if sub.Lifetime == LifetimeTemporary && sub.CreatedAt.Before(deadline) {
					expired = append(expired, topicName)
					continue
				}
				kept = append(kept, sub)
			}
			if len(kept) == 0 {
				delete(entry.subs, topicName)
			} else {
				entry.subs[topicName] = kept
			}
		}
		entry.mu.Unlock()

		for _, topicName := range expired {
			r.stats.DecSubscribers(topicName)
			removed++
		}
		return true
	})

	if removed > 0 {
		logger.InfoF("Swept %d expired temporary subscriptions", removed)
	}
	return removed
}

func (r *Registry) IsSubscribed(userId string, topicName string) bool {
	value, ok := r.users.Load(userId)
	if !ok {
		return false
	}
	entry := value.(*userSubs)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return len(entry.subs[topicName]) > 0
}

// AllTopics 返回用户当前订阅的主题集合
func (r *Registry) AllTopics(userId string) map[string]struct{} {
	result := make(map[string]struct{})
	value, ok := r.users.Load(userId)
	if !ok {
		return result
	}
	entry := value.(*userSubs)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	for topicName := range entry.subs {
		result[topicName] = struct{}{}
	}
	return result
}

// SubscribersOf 返回订阅模式能匹配指定具体主题的全部用户ID，供扇出投递使用
func (r *Registry) SubscribersOf(concreteTopic string) []string {
	var result []string
	r.users.Range(func(key, value any) bool {
		entry := value.(*userSubs)
		entry.mu.Lock()
		for pattern := range entry.subs {
			if pattern == concreteTopic || topic.MatchWildcard(pattern, concreteTopic) {
				result = append(result, key.(string))
				break
			}
		}
		entry.mu.Unlock()
		return true
	})
	return result
}

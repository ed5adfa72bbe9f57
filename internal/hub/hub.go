// Package hub 将路由、聚合、注册表与投递器装配成消息发布管线
package hub

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/aggregator"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/connection"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/dispatcher"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/logger"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/message"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/routing"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/subscription"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/topic"
)

type Hub struct {
	conns    *connection.Registry
	subs     *subscription.Registry
	stats    *topic.StatsCollector
	resolver *topic.Resolver
	engine   *routing.Engine
	agg      *aggregator.Aggregator
	disp     dispatcher.Dispatcher

	deliveryFailures atomic.Int64
}

func NewHub(
	conns *connection.Registry,
	subs *subscription.Registry,
	stats *topic.StatsCollector,
	resolver *topic.Resolver,
	engine *routing.Engine,
	agg *aggregator.Aggregator,
	disp dispatcher.Dispatcher,
) *Hub {
	return &Hub{
		conns:    conns,
		subs:     subs,
		stats:    stats,
		resolver: resolver,
		engine:   engine,
		agg:      agg,
		disp:     disp,
	}
}

// Publish 入站发布契约。入参校验是唯一同步可见的失败；
// 之后的路由与聚合对调用方永不失败。
func (h *Hub) Publish(msg *message.Message) (message.RoutingDecision, aggregator.Outcome, error) {
	if err := message.Validate(msg); err != nil {
		return message.RoutingDecision{}, aggregator.Outcome{}, err
	}

	decision := h.engine.Decide(msg)
	targets := h.withSubscribedCandidates(msg, decision.TargetTopics)

	outcome := h.agg.Submit(msg)
	if outcome.Kind != aggregator.OutcomeQueued {
		h.dispatch(outcome.Messages, targets)
	}
	return decision, outcome, nil
}

// withSubscribedCandidates 在规则目标之外补充当前有订阅者的动态候选主题
func (h *Hub) withSubscribedCandidates(msg *message.Message, targets []string) []string {
	seen := make(map[string]struct{}, len(targets))
	result := make([]string, 0, len(targets))
	for _, target := range targets {
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		result = append(result, target)
	}
	for _, candidate := range h.resolver.GenerateCandidates(msg) {
		if _, ok := seen[candidate]; ok {
			continue
		}
		stats, tracked := h.stats.Get(candidate)
		if !tracked || stats.SubscriberCount == 0 {
			continue
		}
		seen[candidate] = struct{}{}
		result = append(result, candidate)
	}
	return result
}

// HandleFlush 周期冲刷结果的投递入口，注册给聚合器清扫协程。
// 合并消息沿用信封目标重新路由。
func (h *Hub) HandleFlush(outcome aggregator.Outcome) {
	for _, msg := range outcome.Messages {
		decision := h.engine.Decide(msg)
		h.dispatch([]*message.Message{msg}, decision.TargetTopics)
	}
}

// dispatch 投递在所有锁之外执行；失败只计数，不重试
func (h *Hub) dispatch(messages []*message.Message, targets []string) {
	for _, msg := range messages {
		for _, target := range targets {
			delivered := false
			if topic.IsQueue(target) {
				if owner := topic.QueueOwner(target); owner != "" {
					delivered = h.disp.SendToUser(owner, target, msg)
				}
			} else {
				delivered = h.disp.SendToTopic(target, msg)
			}
			if !delivered {
				h.deliveryFailures.Add(1)
			}
		}
	}
}

// Connect 登记会话
func (h *Hub) Connect(sessionId string, userId string, orgId string, deviceType string) {
	h.conns.Register(sessionId, userId, orgId, deviceType)
}

// Disconnect 注销会话并级联移除该会话的 SESSION 订阅；
// 已触发的投递不会被撤回。
func (h *Hub) Disconnect(userId string, sessionId string) {
	removed := h.subs.DropSession(userId, sessionId)
	for _, topicName := range removed {
		h.stats.DecSubscribers(topicName)
	}
	h.conns.Remove(sessionId)
}

// SubscribeSession 建立随会话销毁的订阅
func (h *Hub) SubscribeSession(userId string, topicName string, sessionId string) {
	h.subs.Subscribe(userId, topicName, subscription.LifetimeSession, sessionId)
}

// SubscribeTemporary 建立独立于会话、按TTL过期的临时订阅，返回其作用域ID
func (h *Hub) SubscribeTemporary(userId string, topicName string) string {
	scopeId := "tmp-" + uuid.NewString()
	h.subs.Subscribe(userId, topicName, subscription.LifetimeTemporary, scopeId)
	return scopeId
}

// Snapshot 只读观测面
type Snapshot struct {
	TotalConnections int
	PendingMessages  int
	AggregatedTotal  int64
	FlushTotal       int64
	DeliveryFailures int64
	Topics           []topic.Stats
}

func (h *Hub) Snapshot() Snapshot {
	aggregated, flushes := h.agg.Totals()
	snapshot := Snapshot{
		TotalConnections: h.conns.TotalConnections(),
		PendingMessages:  h.agg.PendingTotal(),
		AggregatedTotal:  aggregated,
		FlushTotal:       flushes,
		DeliveryFailures: h.deliveryFailures.Load(),
		Topics:           h.stats.Snapshot(),
	}
	logger.DebugF("Hub snapshot: connections=%d, pending=%d, aggregated=%d, flushes=%d",
		snapshot.TotalConnections, snapshot.PendingMessages, snapshot.AggregatedTotal, snapshot.FlushTotal)
	return snapshot
}

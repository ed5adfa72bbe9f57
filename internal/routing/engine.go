// Package routing 将业务事件映射到目标主题集合。
// 规则按优先级升序求值，首个命中的规则生成目标；任何内部异常都会
// 被兜底决策吸收，Decide 对调用方永不失败。
package routing

import (
	"slices"
	"sync"

	"github.com/life-stream-dev/life-stream-go-message-hub/internal/logger"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/message"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/topic"
)

// Rule 一条路由规则：谓词命中后由生成器产出目标主题列表
type Rule struct {
	Name      string
	Priority  int
	Predicate func(msg *message.Message) bool
	Generate  func(msg *message.Message) []string
}

// criticalTypes 无法路由时必须强制进入系统兜底主题的消息类型
var criticalTypes = map[message.Type]struct{}{
	message.TypeAlert:           {},
	message.TypeCommandFeedback: {},
}

type Engine struct {
	mu    sync.RWMutex
	rules map[message.Type][]Rule
	stats *topic.StatsCollector
}

func NewEngine(stats *topic.StatsCollector) *Engine {
	engine := &Engine{
		rules: make(map[message.Type][]Rule),
		stats: stats,
	}
	engine.registerDefaults()
	return engine
}

// AddRule 注册规则并保持桶内按优先级升序
func (e *Engine) AddRule(msgType message.Type, rule Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	bucket := append(e.rules[msgType], rule)
	slices.SortStableFunc(bucket, func(a, b Rule) int {
		return a.Priority - b.Priority
	})
	e.rules[msgType] = bucket
}

// Decide 为消息计算路由决策，每条消息恰好一个决策。
// 规则求值中的 panic 被捕获并替换为兜底决策。
func (e *Engine) Decide(msg *message.Message) (decision message.RoutingDecision) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorF("Routing rule evaluation panicked for message %s: %v", msg.Id, r)
			decision = e.fallback(msg)
			e.countTopics(decision.TargetTopics)
		}
	}()

	e.mu.RLock()
	bucket := e.rules[msg.Type]
	e.mu.RUnlock()

	for _, rule := range bucket {
		if !rule.Predicate(msg) {
			continue
		}
		targets := rule.Generate(msg)
		if len(targets) == 0 {
			continue
		}
		decision = message.RoutingDecision{
			MessageId:       msg.Id,
			Strategy:        message.StrategyRuleBased,
			TargetTopics:    targets,
			AppliedRuleName: rule.Name,
		}
		e.countTopics(decision.TargetTopics)
		return decision
	}

	decision = e.fallback(msg)
	e.countTopics(decision.TargetTopics)
	return decision
}

// fallback 规则桶为空或无规则命中时的兜底路径
func (e *Engine) fallback(msg *message.Message) message.RoutingDecision {
	decision := message.RoutingDecision{
		MessageId: msg.Id,
		Strategy:  message.StrategyFallback,
	}

	if userId := msg.FirstUserId(); userId != "" {
		decision.TargetTopics = []string{topic.UserQueue(userId)}
		return decision
	}

	if _, critical := criticalTypes[msg.Type]; !critical && msg.Target.Type == message.TargetUser {
		// USER 目标但无用户ID：非关键类型丢弃并记录
		logger.WarnF("No route for message %s (type=%s), dropping", msg.Id, msg.Type)
		return decision
	}

	decision.TargetTopics = []string{topic.SystemBroadcast}
	return decision
}

func (e *Engine) countTopics(topics []string) {
	for _, target := range topics {
		e.stats.IncMessages(target)
	}
}

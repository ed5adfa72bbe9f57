package aggregator

import (
	"strings"
	"time"

	"github.com/life-stream-dev/life-stream-go-message-hub/internal/message"
)

// Rule 单个聚合键的聚合策略，首次使用时由消息类型默认值惰性派生
type Rule struct {
	AggregationKey      string
	TimeWindow          time.Duration
	QuantityThreshold   int
	SimilarityThreshold float64
}

// 各消息类型的默认聚合参数
var typeDefaults = map[message.Type]Rule{
	message.TypeAlert:                {TimeWindow: 2 * time.Second, QuantityThreshold: 3},
	message.TypeNotification:         {TimeWindow: 5 * time.Second, QuantityThreshold: 5},
	message.TypeTerminalStatusChange: {TimeWindow: 10 * time.Second, QuantityThreshold: 20},
	message.TypeTaskProgress:         {TimeWindow: 3 * time.Second, QuantityThreshold: 5},
}

var fallbackDefault = Rule{TimeWindow: 5 * time.Second, QuantityThreshold: 10}

func defaultRuleFor(msgType message.Type, key string) Rule {
	rule, ok := typeDefaults[msgType]
	if !ok {
		rule = fallbackDefault
	}
	rule.AggregationKey = key
	rule.SimilarityThreshold = 0.8
	return rule
}

// AggregationKey 由类型、子类型链与目标组织派生缓冲键
func AggregationKey(msg *message.Message) string {
	builder := strings.Builder{}
	builder.WriteString(string(msg.Type))
	builder.WriteString("|")
	builder.WriteString(strings.Join(msg.SubTypes, "."))
	builder.WriteString("|")
	builder.WriteString(msg.Target.OrgId)
	return builder.String()
}

// Package message 定义消息分发子系统的核心数据模型
package message

import (
	"time"

	"github.com/google/uuid"
)

type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityNormal:
		return "NORMAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityUrgent:
		return "URGENT"
	}
	return "UNKNOWN"
}

type Type string

const (
	TypeTerminalStatusChange Type = "TERMINAL_STATUS_CHANGE"
	TypeTaskProgress         Type = "TASK_PROGRESS"
	TypeCommandFeedback      Type = "COMMAND_FEEDBACK"
	TypeNotification         Type = "NOTIFICATION"
	TypeAlert                Type = "ALERT"
	TypeSystem               Type = "SYSTEM"
)

type TargetType string

const (
	TargetUser      TargetType = "USER"
	TargetOrg       TargetType = "ORG"
	TargetTopic     TargetType = "TOPIC"
	TargetBroadcast TargetType = "BROADCAST"
)

// Source 消息来源（产生事件的服务与资源）
type Source struct {
	ServiceId    string `json:"service_id"`
	ResourceType string `json:"resource_type"`
	ResourceId   string `json:"resource_id"`
	TaskId       string `json:"task_id"`
}

// Target 消息投递目标
type Target struct {
	Type          TargetType `json:"type"`
	UserIds       []string   `json:"user_ids"`
	OrgId         string     `json:"org_id"`
	ExplicitTopic string     `json:"explicit_topic"`
}

// Metadata 投递元数据，决定消息在聚合器中的处理方式
type Metadata struct {
	Priority   Priority      `json:"priority"`
	Persistent bool          `json:"persistent"`
	TTL        time.Duration `json:"ttl"`
	RequireAck bool          `json:"require_ack"`
	RetryCount int           `json:"retry_count"`
}

// Message 一条业务事件消息，发布后不可变；重试会产生新的消息ID
type Message struct {
	Id        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      Type           `json:"type"`
	SubTypes  []string       `json:"sub_types"`
	Source    Source         `json:"source"`
	Target    Target         `json:"target"`
	Payload   map[string]any `json:"payload"`
	Metadata  Metadata       `json:"metadata"`
}

func NewMessage(msgType Type, target Target) *Message {
	return &Message{
		Id:        uuid.NewString(),
		Timestamp: time.Now(),
		Type:      msgType,
		Target:    target,
		Payload:   make(map[string]any),
		Metadata:  Metadata{Priority: PriorityNormal},
	}
}

// Retry 返回携带新ID的副本，重试次数加一，原消息保持不变
func (m *Message) Retry() *Message {
	copied := *m
	copied.Id = uuid.NewString()
	copied.Timestamp = time.Now()
	copied.Metadata.RetryCount = m.Metadata.RetryCount + 1
	return &copied
}

// FirstUserId 返回首个目标用户ID，不存在时返回空串
func (m *Message) FirstUserId() string {
	if len(m.Target.UserIds) > 0 {
		return m.Target.UserIds[0]
	}
	return ""
}

type Strategy string

const (
	StrategyRuleBased Strategy = "RULE_BASED"
	StrategyFallback  Strategy = "FALLBACK"
)

// RoutingDecision 每条已发布消息恰好对应一个路由决策
type RoutingDecision struct {
	MessageId       string   `json:"message_id"`
	Strategy        Strategy `json:"strategy"`
	TargetTopics    []string `json:"target_topics"`
	AppliedRuleName string   `json:"applied_rule_name"`
}

package routing

import (
	"strings"

	"github.com/life-stream-dev/life-stream-go-message-hub/internal/message"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/topic"
)

func payloadString(msg *message.Message, key string) string {
	value, ok := msg.Payload[key].(string)
	if !ok {
		return ""
	}
	return strings.ToUpper(value)
}

// explicitTopicRule 显式主题目标在所有类型下都具有最高优先级
var explicitTopicRule = Rule{
	Name:     "explicit-topic",
	Priority: 5,
	Predicate: func(msg *message.Message) bool {
		return msg.Target.Type == message.TargetTopic && msg.Target.ExplicitTopic != ""
	},
	Generate: func(msg *message.Message) []string {
		return []string{msg.Target.ExplicitTopic}
	},
}

func (e *Engine) registerDefaults() {
	allTypes := []message.Type{
		message.TypeTerminalStatusChange,
		message.TypeTaskProgress,
		message.TypeCommandFeedback,
		message.TypeNotification,
		message.TypeAlert,
		message.TypeSystem,
	}
	for _, msgType := range allTypes {
		e.AddRule(msgType, explicitTopicRule)
	}

	e.AddRule(message.TypeTerminalStatusChange, Rule{
		Name:     "terminal-offline-alert",
		Priority: 10,
		Predicate: func(msg *message.Message) bool {
			return msg.Target.OrgId != "" && payloadString(msg, "status") == "OFFLINE"
		},
		Generate: func(msg *message.Message) []string {
			return []string{
				topic.OrgTopic(msg.Target.OrgId, "terminal", "status"),
				topic.OrgTopic(msg.Target.OrgId, "alerts"),
			}
		},
	})
	e.AddRule(message.TypeTerminalStatusChange, Rule{
		Name:     "terminal-status-org",
		Priority: 20,
		Predicate: func(msg *message.Message) bool {
			return msg.Target.OrgId != ""
		},
		Generate: func(msg *message.Message) []string {
			return []string{topic.OrgTopic(msg.Target.OrgId, "terminal", "status")}
		},
	})

	e.AddRule(message.TypeTaskProgress, Rule{
		Name:     "task-finished-user",
		Priority: 10,
		Predicate: func(msg *message.Message) bool {
			state := payloadString(msg, "state")
			return (state == "COMPLETED" || state == "FAILED") && msg.FirstUserId() != ""
		},
		Generate: func(msg *message.Message) []string {
			targets := []string{topic.UserQueueChild(msg.FirstUserId(), "tasks")}
			if msg.Source.TaskId != "" {
				targets = append(targets, topic.TaskTopic(msg.Source.TaskId))
			}
			return targets
		},
	})
	e.AddRule(message.TypeTaskProgress, Rule{
		Name:     "task-progress-topic",
		Priority: 20,
		Predicate: func(msg *message.Message) bool {
			return msg.Source.TaskId != ""
		},
		Generate: func(msg *message.Message) []string {
			return []string{topic.TaskTopic(msg.Source.TaskId)}
		},
	})

	e.AddRule(message.TypeCommandFeedback, Rule{
		Name:     "command-feedback-user",
		Priority: 10,
		Predicate: func(msg *message.Message) bool {
			return msg.FirstUserId() != ""
		},
		Generate: func(msg *message.Message) []string {
			return []string{topic.UserQueueChild(msg.FirstUserId(), "commands")}
		},
	})

	e.AddRule(message.TypeNotification, Rule{
		Name:     "notification-user",
		Priority: 10,
		Predicate: func(msg *message.Message) bool {
			return msg.Target.Type == message.TargetUser && len(msg.Target.UserIds) > 0
		},
		Generate: func(msg *message.Message) []string {
			targets := make([]string, 0, len(msg.Target.UserIds))
			for _, userId := range msg.Target.UserIds {
				targets = append(targets, topic.UserQueueChild(userId, "notifications"))
			}
			return targets
		},
	})
	e.AddRule(message.TypeNotification, Rule{
		Name:     "notification-org",
		Priority: 20,
		Predicate: func(msg *message.Message) bool {
			return msg.Target.Type == message.TargetOrg && msg.Target.OrgId != ""
		},
		Generate: func(msg *message.Message) []string {
			return []string{topic.OrgTopic(msg.Target.OrgId, "notifications")}
		},
	})
	e.AddRule(message.TypeNotification, Rule{
		Name:     "notification-broadcast",
		Priority: 30,
		Predicate: func(msg *message.Message) bool {
			return msg.Target.Type == message.TargetBroadcast
		},
		Generate: func(msg *message.Message) []string {
			return []string{topic.SystemBroadcast}
		},
	})

	e.AddRule(message.TypeAlert, Rule{
		Name:     "alert-urgent-org",
		Priority: 10,
		Predicate: func(msg *message.Message) bool {
			return msg.Target.OrgId != "" && msg.Metadata.Priority >= message.PriorityHigh
		},
		Generate: func(msg *message.Message) []string {
			return []string{
				topic.OrgTopic(msg.Target.OrgId, "alerts", "urgent"),
				topic.OrgTopic(msg.Target.OrgId, "alerts"),
			}
		},
	})
	e.AddRule(message.TypeAlert, Rule{
		Name:     "alert-org",
		Priority: 20,
		Predicate: func(msg *message.Message) bool {
			return msg.Target.OrgId != ""
		},
		Generate: func(msg *message.Message) []string {
			return []string{topic.OrgTopic(msg.Target.OrgId, "alerts")}
		},
	})
	e.AddRule(message.TypeAlert, Rule{
		Name:     "alert-broadcast",
		Priority: 30,
		Predicate: func(msg *message.Message) bool {
			return true
		},
		Generate: func(msg *message.Message) []string {
			return []string{topic.SystemBroadcast}
		},
	})

	e.AddRule(message.TypeSystem, Rule{
		Name:     "system-broadcast",
		Priority: 10,
		Predicate: func(msg *message.Message) bool {
			return true
		},
		Generate: func(msg *message.Message) []string {
			return []string{topic.SystemBroadcast}
		},
	})
}

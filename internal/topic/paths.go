// Package topic 提供主题路径构造、通配符匹配与主题统计
package topic

import "strings"

const (
	QueuePrefix = "/queue"
	TopicPrefix = "/topic"

	// SystemBroadcast 系统级兜底广播主题
	SystemBroadcast = "/topic/system/broadcast"
)

// UserQueue 用户个人点对点队列主题
func UserQueue(userId string) string {
	return QueuePrefix + "/user/" + userId
}

// UserQueueChild 用户队列下的子主题（如 notifications、commands）
func UserQueueChild(userId string, child string) string {
	return UserQueue(userId) + "/" + child
}

// OrgTopic 组织级扇出主题
func OrgTopic(orgId string, parts ...string) string {
	builder := strings.Builder{}
	builder.WriteString(TopicPrefix)
	builder.WriteString("/org/")
	builder.WriteString(orgId)
	for _, part := range parts {
		builder.WriteString("/")
		builder.WriteString(part)
	}
	return builder.String()
}

// TaskTopic 任务进度扇出主题
func TaskTopic(taskId string) string {
	return TopicPrefix + "/task/" + taskId + "/progress"
}

// IsQueue 判断主题是否为点对点队列主题
func IsQueue(topic string) bool {
	return strings.HasPrefix(topic, QueuePrefix+"/")
}

// QueueOwner 从队列主题中解析用户ID，非用户队列主题返回空串
func QueueOwner(topic string) string {
	rest, found := strings.CutPrefix(topic, QueuePrefix+"/user/")
	if !found {
		return ""
	}
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

// Hierarchy 返回含起点的前缀链：base, base/l0, base/l0/l1, ...
func Hierarchy(base string, levels ...string) []string {
	result := make([]string, 0, len(levels)+1)
	result = append(result, base)
	current := base
	for _, level := range levels {
		current = current + "/" + level
		result = append(result, current)
	}
	return result
}

// Package dispatcher 定义出站投递契约。真实的线缆传输由外部长连接
// 网关负责，这里提供按注册表解析会话与订阅者的默认实现。
package dispatcher

import (
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/connection"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/logger"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/message"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/subscription"
)

// Dispatcher 出站投递接口
type Dispatcher interface {
	SendToUser(userId string, topic string, msg *message.Message) bool
	SendToTopic(topic string, msg *message.Message) bool
}

// LoopbackDispatcher 默认实现：点对点投递展开到用户的每个活跃会话，
// 扇出投递展开到主题的全部当前订阅者
type LoopbackDispatcher struct {
	conns *connection.Registry
	subs  *subscription.Registry
}

func NewDispatcher(conns *connection.Registry, subs *subscription.Registry) Dispatcher {
	return &LoopbackDispatcher{conns: conns, subs: subs}
}

// SendToUser 每个活跃会话各投递一次。没有任何会话真正收到投递时
// 返回 false，表示会话在决策与发送之间消失。
func (d *LoopbackDispatcher) SendToUser(userId string, topic string, msg *message.Message) bool {
	sessions := d.conns.Sessions(userId)
	delivered := 0
	for _, session := range sessions {
		if session.Status == connection.StatusDisconnecting {
			continue
		}
		logger.DebugF("Deliver message %s to user %s session %s via %s", msg.Id, userId, session.SessionId, topic)
		delivered++
	}
	if delivered == 0 {
		logger.DebugF("No live session for user %s, message %s undeliverable", userId, msg.Id)
		return false
	}
	return true
}

// SendToTopic 扇出到主题的全部订阅用户
func (d *LoopbackDispatcher) SendToTopic(topic string, msg *message.Message) bool {
	subscribers := d.subs.SubscribersOf(topic)
	if len(subscribers) == 0 {
		logger.DebugF("No subscriber for topic %s, message %s dropped at fan-out", topic, msg.Id)
		return false
	}
	for _, userId := range subscribers {
		d.SendToUser(userId, topic, msg)
	}
	return true
}

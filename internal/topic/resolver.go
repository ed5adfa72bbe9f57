package topic

import (
	"context"
	"strings"
	"time"

	"github.com/life-stream-dev/life-stream-go-message-hub/internal/event"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/logger"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/message"
)

// Resolver 动态主题解析器：根据消息内容生成额外的候选主题
type Resolver struct {
	stats *StatsCollector
	now   func() time.Time
}

func NewResolver(stats *StatsCollector) *Resolver {
	return &Resolver{stats: stats, now: time.Now}
}

var urgentKeywords = []string{"urgent", "error", "failed", "failure", "critical", "timeout"}
var successKeywords = []string{"success", "completed", "finished", "ok"}

func scanKeywords(payload map[string]any) (urgent bool, success bool) {
	for _, value := range payload {
		text, ok := value.(string)
		if !ok {
			continue
		}
		lowered := strings.ToLower(text)
		for _, keyword := range urgentKeywords {
			if strings.Contains(lowered, keyword) {
				urgent = true
			}
		}
		for _, keyword := range successKeywords {
			if strings.Contains(lowered, keyword) {
				success = true
			}
		}
	}
	return urgent, success
}

// businessHours 周一至周五 9:00-18:00 视为工作时段
func businessHours(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return t.Hour() >= 9 && t.Hour() < 18
}

// GenerateCandidates 对输入是确定性的；副作用仅为刷新生成主题的访问时间
func (r *Resolver) GenerateCandidates(msg *message.Message) []string {
	var candidates []string

	switch msg.Type {
	case message.TypeTerminalStatusChange:
		candidates = append(candidates, TopicPrefix+"/terminal/status")
	case message.TypeTaskProgress:
		if msg.Source.TaskId != "" {
			candidates = append(candidates, TaskTopic(msg.Source.TaskId))
		}
	case message.TypeAlert:
		candidates = append(candidates, TopicPrefix+"/alerts")
	case message.TypeNotification:
		candidates = append(candidates, TopicPrefix+"/notifications")
	}

	if msg.Target.OrgId != "" {
		candidates = append(candidates, OrgTopic(msg.Target.OrgId, "events"))
	}

	urgent, success := scanKeywords(msg.Payload)
	if urgent {
		candidates = append(candidates, TopicPrefix+"/alerts/urgent")
	}
	if success {
		candidates = append(candidates, TopicPrefix+"/events/success")
	}

	if businessHours(r.now()) {
		candidates = append(candidates, TopicPrefix+"/schedule/business-hours")
	} else {
		candidates = append(candidates, TopicPrefix+"/schedule/off-hours")
	}

	for _, candidate := range candidates {
		r.stats.Touch(candidate)
	}
	return candidates
}

// EvictIdle 清理长时间无人访问且无订阅者的生成主题记录
func (r *Resolver) EvictIdle(maxIdle time.Duration) int {
	return r.stats.EvictIdle(maxIdle)
}

// StartEvictSweeper 启动空闲主题清理协程，返回的回调已注册到 Cleaner
func (r *Resolver) StartEvictSweeper(interval time.Duration, maxIdle time.Duration) {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.EvictIdle(maxIdle)
			case <-stop:
				return
			}
		}
	}()

	event.NewCleaner().Add("topic-evict-sweeper", event.CallableFunc(func(ctx context.Context) error {
		close(stop)
		<-done
		return nil
	}))
	logger.DebugF("Idle topic eviction sweeper started, interval=%v, max_idle=%v", interval, maxIdle)
}

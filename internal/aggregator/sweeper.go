package aggregator

import (
	"context"
	"time"

	"github.com/life-stream-dev/life-stream-go-message-hub/internal/event"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/logger"
)

// FlushHandler 周期冲刷产生的结果经此回调投递
type FlushHandler func(outcome Outcome)

// StartSweepers 启动定时冲刷与空闲键清理两个后台协程，
// 均注册到 Cleaner 以便随进程优雅退出。
func (a *Aggregator) StartSweepers(flushInterval, cleanupInterval, retention time.Duration, handler FlushHandler) {
	stop := make(chan struct{})
	flushDone := make(chan struct{})
	cleanupDone := make(chan struct{})

	go func() {
		defer close(flushDone)
		ticker := time.NewTicker(flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				for _, outcome := range a.FlushDue() {
					if handler != nil {
						handler(outcome)
					}
				}
			case <-stop:
				return
			}
		}
	}()

	go func() {
		defer close(cleanupDone)
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.CleanupIdle(retention)
			case <-stop:
				return
			}
		}
	}()

	event.NewCleaner().Add("aggregator-sweepers", event.CallableFunc(func(ctx context.Context) error {
		close(stop)
		<-flushDone
		<-cleanupDone
		// 退出前把仍在缓冲的消息冲刷出去
		for _, outcome := range a.FlushAll() {
			if handler != nil {
				handler(outcome)
			}
		}
		return nil
	}))
	logger.DebugF("Aggregator sweepers started, flush=%v, cleanup=%v, retention=%v", flushInterval, cleanupInterval, retention)
}

// FlushAll 无条件冲刷所有非空缓冲，用于停机前排空
func (a *Aggregator) FlushAll() []Outcome {
	now := a.now()
	var outcomes []Outcome
	a.buffers.Range(func(key, value any) bool {
		buffer := value.(*keyBuffer)
		buffer.mu.Lock()
		if len(buffer.messages) == 0 {
			buffer.mu.Unlock()
			return true
		}
		snapshot := buffer.messages
		buffer.messages = nil
		buffer.lastFlush = now
		buffer.mu.Unlock()

		outcomes = append(outcomes, a.buildOutcome(key.(string), snapshot))
		return true
	})
	return outcomes
}

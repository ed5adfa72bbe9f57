package subscription

import (
	"context"
	"time"

	"github.com/life-stream-dev/life-stream-go-message-hub/internal/event"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/logger"
)

// StartSweeper 启动 TEMPORARY 订阅的TTL清扫协程。
// 实际移除最多滞后一个清扫周期，这是有界的陈旧性。
func (r *Registry) StartSweeper(interval time.Duration, ttl time.Duration) {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.SweepExpiredTemporary(time.Now(), ttl)
			case <-stop:
				return
			}
		}
	}()

	event.NewCleaner().Add("temporary-subscription-sweeper", event.CallableFunc(func(ctx context.Context) error {
		close(stop)
		<-done
		return nil
	}))
	logger.DebugF("Temporary subscription sweeper started, interval=%v, ttl=%v", interval, ttl)
}

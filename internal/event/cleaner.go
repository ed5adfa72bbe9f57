package event

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/life-stream-dev/life-stream-go-message-hub/internal/logger"
)

type Callable interface {
	Invoke(ctx context.Context) error
}

// CallableFunc 允许直接注册函数作为清理回调
type CallableFunc func(ctx context.Context) error

func (f CallableFunc) Invoke(ctx context.Context) error {
	return f(ctx)
}

type namedCallable struct {
	name     string
	callable Callable
}

type Cleaner struct {
	cleaners       []namedCallable
	mu             sync.Mutex
	initOnce       sync.Once
	cleaning       bool
	loggerShutdown Callable
}

var cleanerInstance = &Cleaner{}

func NewCleaner() *Cleaner {
	return cleanerInstance
}

func (c *Cleaner) Add(name string, callable Callable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cleaning {
		logger.DebugF("Cleaner is already shutting down, ignoring cleaner %s", name)
		return
	}
	c.cleaners = append(c.cleaners, namedCallable{name: name, callable: callable})
}

func (c *Cleaner) Init(loggerShutdown Callable) {
	c.initOnce.Do(func() {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		c.loggerShutdown = loggerShutdown

		go func() {
			<-ctx.Done()
			stop()
			logger.Info("Received interrupt signal, shutting down")
			c.Run()
			syscall.Exit(0)
		}()
	})
}

// Run 按注册顺序执行全部清理回调，最后关闭日志
func (c *Cleaner) Run() {
	c.mu.Lock()
	c.cleaning = true // 标记为清理中，阻止后续Add操作
	cleanersCopy := make([]namedCallable, len(c.cleaners))
	copy(cleanersCopy, c.cleaners)
	c.mu.Unlock()

	logger.DebugF("Starting cleanup of %d registered functions", len(cleanersCopy))

	var errs []error
	for _, nc := range cleanersCopy {
		func(nc namedCallable) { // 使用匿名函数确保defer在每次迭代执行
			logger.DebugF("Invoking cleaner %s", nc.name)
			timeoutCtx, cancelFunc := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelFunc()
			if err := nc.callable.Invoke(timeoutCtx); err != nil {
				logger.ErrorF("Cleaner %s failed: %v", nc.name, err)
				errs = append(errs, err)
			}
		}(nc)
	}

	if len(errs) > 0 {
		logger.ErrorF("%d errors occurred during cleanup:", len(errs))
		for i, err := range errs {
			logger.ErrorF("Error %d: %v", i+1, err)
		}
	} else {
		logger.Debug("All cleaners executed successfully")
	}
	logger.Info("Cleanup finished, hub offline")

	if c.loggerShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := c.loggerShutdown.Invoke(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "LOGGER SHUTDOWN ERROR: %v\n", err)
		}
	}
}

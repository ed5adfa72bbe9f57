package main

import (
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/aggregator"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/config"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/connection"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/dispatcher"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/event"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/hub"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/logger"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/routing"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/subscription"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/topic"
	"github.com/life-stream-dev/life-stream-go-message-hub/internal/utils"
)

func main() {
	conf, err := config.ReadConfig()
	if err != nil {
		logger.FatalF("Error occured while reading config %v", err)
		return
	}
	loggerCallback := logger.Init()
	logger.Debug("Application initializing...")
	cleaner := event.NewCleaner()
	cleaner.Init(loggerCallback)

	stats := topic.GetStatsCollector()
	conns := connection.GetRegistry()
	subs := subscription.NewRegistry(stats)
	resolver := topic.NewResolver(stats)
	engine := routing.NewEngine(stats)
	agg := aggregator.NewAggregator(conf.Hub.AggregationMaxBuffer)
	disp := dispatcher.NewDispatcher(conns, subs)
	messageHub := hub.NewHub(conns, subs, stats, resolver, engine, agg, disp)

	subs.StartSweeper(
		utils.ParseStringTime(conf.Hub.TemporarySweep),
		utils.ParseStringTime(conf.Hub.TemporarySubTTL),
	)
	resolver.StartEvictSweeper(
		utils.ParseStringTime(conf.Hub.TopicEvictInterval),
		utils.ParseStringTime(conf.Hub.TopicMaxIdle),
	)
	agg.StartSweepers(
		utils.ParseStringTime(conf.Hub.FlushSweepInterval),
		utils.ParseStringTime(conf.Hub.IdleCleanupInterval),
		utils.ParseStringTime(conf.Hub.IdleKeyRetention),
		messageHub.HandleFlush,
	)

	logger.InfoF("%s started, aggregation max buffer %d", conf.AppName, conf.Hub.AggregationMaxBuffer)
	select {}
}

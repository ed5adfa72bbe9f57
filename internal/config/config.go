package config

import (
	"encoding/json"
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Hub struct {
		// 聚合器配置
		FlushSweepInterval   string `json:"flush_sweep_interval"`
		IdleCleanupInterval  string `json:"idle_cleanup_interval"`
		IdleKeyRetention     string `json:"idle_key_retention"`
		AggregationMaxBuffer int    `json:"aggregation_max_buffer"`
		// 订阅配置
		TemporarySubTTL    string `json:"temporary_sub_ttl"`
		TemporarySweep     string `json:"temporary_sweep_interval"`
		TopicEvictInterval string `json:"topic_evict_interval"`
		TopicMaxIdle       string `json:"topic_max_idle"`
	} `json:"hub"`
	DebugMode bool   `json:"debug_mode"`
	AppName   string `json:"app_name"`
	AppPort   int    `json:"app_port"`
}

var config Config
var initialized = false

func defaultConfig() Config {
	var c Config
	c.Hub.FlushSweepInterval = "1s"
	c.Hub.IdleCleanupInterval = "5m"
	c.Hub.IdleKeyRetention = "24h"
	c.Hub.AggregationMaxBuffer = 200
	c.Hub.TemporarySubTTL = "30m"
	c.Hub.TemporarySweep = "30s"
	c.Hub.TopicEvictInterval = "5m"
	c.Hub.TopicMaxIdle = "1h"
	c.AppName = "message-hub"
	c.AppPort = 9480
	return c
}

// applyEnvOverrides 允许通过环境变量（或 .env 文件）覆盖部分配置
func applyEnvOverrides() {
	_ = godotenv.Load()
	if value, ok := os.LookupEnv("HUB_DEBUG_MODE"); ok {
		config.DebugMode = value == "true" || value == "1"
	}
	if value, ok := os.LookupEnv("HUB_APP_NAME"); ok {
		config.AppName = value
	}
	if value, ok := os.LookupEnv("HUB_APP_PORT"); ok {
		if port, err := strconv.Atoi(value); err == nil {
			config.AppPort = port
		}
	}
}

func ReadConfig() (Config, error) {
	bytes, err := os.ReadFile("config.json")

	if err != nil {
		config = defaultConfig()
		writer, _ := os.OpenFile("config.json", os.O_WRONLY|os.O_CREATE, 0777)
		data, _ := json.MarshalIndent(config, "", "\t")
		_, _ = writer.Write(data)
		_ = writer.Close()
		return config, errors.New("the configuration file does not exist and has been created. Please try again after editing the configuration file")
	}

	config = defaultConfig()
	err = json.Unmarshal(bytes, &config)

	if err != nil {
		return config, errors.New("the configuration file does not contain valid JSON")
	}

	applyEnvOverrides()
	initialized = true
	return config, nil
}

func GetConfig() (Config, error) {
	if initialized {
		return config, nil
	}
	return ReadConfig()
}

/*
 * @module service/config
 * @description 服务配置模块，负责从环境变量加载并校验全部运行配置
 * @architecture 分层架构 - 配置层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 应用启动时加载一次，加载失败则拒绝启动
 * @rules 所有阈值和超参数在加载时校验，非法配置直接报错而不是留到运行时
 * @dependencies github.com/spf13/cast
 * @refs service/init.go, service/detector/severity.go
 */

package config

import (
	"fmt"
	"os"

	"github.com/spf13/cast"
)

// FeatureColumns 特征列的固定顺序，所有向量按此顺序编码
var FeatureColumns = []string{"temperature", "pressure", "humidity", "vibration"}

// Settings 服务配置
type Settings struct {
	// 服务基础配置
	AppName string `json:"app_name"`
	Version string `json:"version"`

	// 模型配置
	ModelPath            string  `json:"model_path"`
	DefaultAlgorithm     string  `json:"default_algorithm"`
	DefaultContamination float64 `json:"default_contamination"`
	MinTrainingSamples   int     `json:"min_training_samples"`

	// 告警阈值配置
	CriticalThreshold float64 `json:"critical_threshold"`
	WarningThreshold  float64 `json:"warning_threshold"`
	AlertMinSeverity  string  `json:"alert_min_severity"`

	// 批量预测配置
	MaxBatchSize int `json:"max_batch_size"`

	// 安全配置（bcrypt哈希后的API Key，为空则不启用鉴权）
	APIKeyHash string `json:"-"`

	// 定时重训练配置
	RetrainCron    string `json:"retrain_cron"`
	RetrainSamples int    `json:"retrain_samples"`

	// 数据接入配置
	MQTTBroker  string `json:"mqtt_broker"`
	MQTTTopic   string `json:"mqtt_topic"`
	KafkaBroker string `json:"kafka_broker"`
	KafkaTopic  string `json:"kafka_topic"`
	RedisAddr   string `json:"redis_addr"`
}

// Load 从环境变量加载配置并校验
func Load() (*Settings, error) {
	s := &Settings{
		AppName:              "anomalens-service",
		Version:              "1.0.0",
		ModelPath:            getEnvWithDefault("MODEL_PATH", "models/anomaly_detector.json"),
		DefaultAlgorithm:     getEnvWithDefault("MODEL_ALGORITHM", "isolation_forest"),
		DefaultContamination: cast.ToFloat64(getEnvWithDefault("DEFAULT_CONTAMINATION", "0.1")),
		MinTrainingSamples:   cast.ToInt(getEnvWithDefault("MIN_TRAINING_SAMPLES", "10")),
		CriticalThreshold:    cast.ToFloat64(getEnvWithDefault("ALERT_THRESHOLD_CRITICAL", "0.8")),
		WarningThreshold:     cast.ToFloat64(getEnvWithDefault("ALERT_THRESHOLD_WARNING", "0.6")),
		AlertMinSeverity:     getEnvWithDefault("ALERT_MIN_SEVERITY", "warning"),
		MaxBatchSize:         cast.ToInt(getEnvWithDefault("MAX_BATCH_SIZE", "1000")),
		APIKeyHash:           os.Getenv("API_KEY_HASH"),
		RetrainCron:          getEnvWithDefault("RETRAIN_CRON", "0 0 2 * * *"),
		RetrainSamples:       cast.ToInt(getEnvWithDefault("RETRAIN_SAMPLES", "1000")),
		MQTTBroker:           os.Getenv("MQTT_BROKER"),
		MQTTTopic:            getEnvWithDefault("MQTT_TOPIC", "iot/sensors"),
		KafkaBroker:          os.Getenv("KAFKA_BROKER"),
		KafkaTopic:           getEnvWithDefault("KAFKA_TOPIC", "iot_sensors"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate 校验配置合法性
func (s *Settings) Validate() error {
	if s.CriticalThreshold <= s.WarningThreshold {
		return fmt.Errorf("告警阈值配置非法: critical(%.2f) 必须大于 warning(%.2f)",
			s.CriticalThreshold, s.WarningThreshold)
	}
	if s.WarningThreshold <= 0 || s.CriticalThreshold >= 1 {
		return fmt.Errorf("告警阈值必须落在(0,1)区间内: warning=%.2f, critical=%.2f",
			s.WarningThreshold, s.CriticalThreshold)
	}
	if s.DefaultContamination <= 0 || s.DefaultContamination > 0.5 {
		return fmt.Errorf("污染率必须落在(0,0.5]区间内: %.3f", s.DefaultContamination)
	}
	if s.MinTrainingSamples < 10 {
		return fmt.Errorf("最小训练样本数不能小于10: %d", s.MinTrainingSamples)
	}
	if s.MaxBatchSize <= 0 {
		return fmt.Errorf("批量上限必须为正数: %d", s.MaxBatchSize)
	}
	switch s.AlertMinSeverity {
	case "info", "warning", "critical":
	default:
		return fmt.Errorf("未知的告警严重级别: %s", s.AlertMinSeverity)
	}
	return nil
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

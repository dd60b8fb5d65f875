/*
 * @module service/init
 * @description 服务初始化模块，负责配置加载、数据库连接、检测器构建与可选组件装配
 * @architecture 分层架构 - 服务层，显式构造注入，不使用包级单例
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 配置加载 -> 数据库迁移 -> 检测器构建 -> 可选组件装配 -> 对外提供服务
 * @rules 配置非法直接拒绝启动；可选组件（Redis/MQTT/Kafka/调度器）缺失不阻塞核心能力
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, gorm.io/driver/sqlite
 * @refs main.go, api/routes.go
 */

package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"anomalens-service/service/alerting"
	"anomalens-service/service/cache"
	"anomalens-service/service/config"
	"anomalens-service/service/detector"
	"anomalens-service/service/ingest"
	"anomalens-service/service/mlops"
	"anomalens-service/service/models"
	"anomalens-service/service/monitoring"
	"anomalens-service/service/scheduler"
)

// Services 已装配的服务集合，由main构造后注入各控制器
type Services struct {
	Config    *config.Settings
	DB        *gorm.DB
	Detector  *detector.Detector
	Generator *mlops.DataGenerator
	Alerts    *alerting.Service
	Cache     *cache.PredictionCache
	Scheduler *scheduler.RetrainScheduler

	mqttSource  *ingest.MQTTSource
	kafkaSource *ingest.KafkaSource
	ingestStop  context.CancelFunc
}

// Initialize 装配全部服务组件
func Initialize() (*Services, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("配置加载失败: %w", err)
	}

	algorithm, err := detector.ParseAlgorithm(settings.DefaultAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("配置加载失败: %w", err)
	}

	db, err := openDatabase()
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.AnomalyAlert{}, &models.TrainingRun{}); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	slog.Info("数据库迁移完成")

	classifier, err := detector.NewSeverityClassifier(settings.WarningThreshold, settings.CriticalThreshold)
	if err != nil {
		return nil, err
	}
	det := detector.New(classifier, settings.MinTrainingSamples, config.FeatureColumns)

	// 已有持久化包时恢复模型，失败不阻塞启动，服务以未就绪状态运行
	if _, statErr := os.Stat(settings.ModelPath); statErr == nil {
		if loadErr := det.Load(settings.ModelPath); loadErr != nil {
			slog.Warn("启动时模型加载失败，服务以未就绪状态启动", "path", settings.ModelPath, "error", loadErr)
		}
	}
	if det.Ready() {
		monitoring.ModelReady.Set(1)
	} else {
		monitoring.ModelReady.Set(0)
	}

	svcs := &Services{
		Config:    settings,
		DB:        db,
		Detector:  det,
		Generator: mlops.NewDataGenerator(42),
	}

	if settings.RedisAddr != "" {
		predCache, cacheErr := cache.NewPredictionCache(settings.RedisAddr, os.Getenv("REDIS_PASSWORD"), 0)
		if cacheErr != nil {
			slog.Warn("Redis预测缓存初始化失败，缓存能力不可用", "error", cacheErr)
		} else {
			svcs.Cache = predCache
		}
	}

	var publisher alerting.AlertPublisher
	if svcs.Cache != nil {
		publisher = svcs.Cache
	}
	svcs.Alerts = alerting.NewService(db, settings.AlertMinSeverity,
		buildNotificationChannels(), alerting.NewScriptFilter(os.Getenv("ALERT_FILTER_SCRIPT")), publisher)

	svcs.Scheduler = scheduler.NewRetrainScheduler(db, det, svcs.Generator,
		settings.RetrainCron, algorithm, settings.RetrainSamples, settings.DefaultContamination, settings.ModelPath)
	if os.Getenv("RETRAIN_ENABLED") == "true" {
		if err := svcs.Scheduler.Start(); err != nil {
			return nil, err
		}
	}

	if err := svcs.startIngestSources(); err != nil {
		return nil, err
	}

	slog.Info("服务初始化完成",
		"algorithm", settings.DefaultAlgorithm,
		"model_ready", det.Ready(),
		"redis", svcs.Cache != nil,
		"mqtt", svcs.mqttSource != nil,
		"kafka", svcs.kafkaSource != nil)
	return svcs, nil
}

// ProcessReading 流式摄入的评分链路：校验 -> 评分 -> 缓存 -> 告警
func (s *Services) ProcessReading(reading models.SensorReading) error {
	if err := reading.Validate(); err != nil {
		return err
	}

	result, err := s.Detector.Predict(&reading)
	if err != nil {
		return err
	}

	if s.Cache != nil {
		if cacheErr := s.Cache.StoreLatest(result); cacheErr != nil {
			slog.Warn("预测缓存写入失败", "sensor_id", result.SensorID, "error", cacheErr)
		}
	}
	if result.IsAnomaly {
		monitoring.AnomaliesTotal.WithLabelValues(result.SensorID, result.Severity).Inc()
		if _, alertErr := s.Alerts.HandlePrediction(result); alertErr != nil {
			monitoring.AlertHandleFailuresTotal.Inc()
			slog.Error("告警处理失败", "sensor_id", result.SensorID, "error", alertErr)
		}
	}
	return nil
}

// startIngestSources 按配置启动MQTT/Kafka摄入源
func (s *Services) startIngestSources() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.ingestStop = cancel

	if s.Config.MQTTBroker != "" {
		hostname, _ := os.Hostname()
		clientID := fmt.Sprintf("anomalens-%s-%d", hostname, os.Getpid())
		s.mqttSource = ingest.NewMQTTSource(s.Config.MQTTBroker, s.Config.MQTTTopic, clientID, s.ProcessReading)
		if err := s.mqttSource.Start(); err != nil {
			slog.Warn("MQTT摄入源启动失败", "broker", s.Config.MQTTBroker, "error", err)
			s.mqttSource = nil
		}
	}

	if s.Config.KafkaBroker != "" {
		s.kafkaSource = ingest.NewKafkaSource([]string{s.Config.KafkaBroker},
			s.Config.KafkaTopic, "anomalens-service", s.ProcessReading)
		s.kafkaSource.Start(ctx)
	}
	return nil
}

// Teardown 优雅关闭全部组件
func (s *Services) Teardown() {
	if s.ingestStop != nil {
		s.ingestStop()
	}
	if s.mqttSource != nil {
		s.mqttSource.Stop()
	}
	if s.kafkaSource != nil {
		if err := s.kafkaSource.Stop(); err != nil {
			slog.Warn("Kafka摄入源关闭失败", "error", err)
		}
	}
	if s.Scheduler != nil {
		s.Scheduler.Stop()
	}
	if s.Cache != nil {
		if err := s.Cache.Close(); err != nil {
			slog.Warn("Redis连接关闭失败", "error", err)
		}
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		sqlDB.Close()
	}
	slog.Info("服务组件已全部关闭")
}

// openDatabase 打开数据库连接
// 配置了PostgreSQL时优先使用，否则回落到本地SQLite文件
func openDatabase() (*gorm.DB, error) {
	if dsn := postgresDSN(); dsn != "" {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("数据库连接失败: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("获取底层连接池失败: %w", err)
		}
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)
		slog.Info("PostgreSQL连接成功")
		return db, nil
	}

	path := getEnvWithDefault("SQLITE_PATH", "data/anomalens.db")
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	slog.Info("SQLite连接成功", "path", path)
	return db, nil
}

// postgresDSN 从环境变量构建PostgreSQL连接串，未配置时返回空串
func postgresDSN() string {
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		return databaseURL
	}
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	port := getEnvWithDefault("DB_PORT", "5432")
	user := getEnvWithDefault("DB_USER", "postgres")
	password := getEnvWithDefault("DB_PASSWORD", "postgres")
	dbname := getEnvWithDefault("DB_NAME", "postgres")
	sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
}

// buildNotificationChannels 按环境变量装配通知渠道
func buildNotificationChannels() []alerting.NotificationSender {
	var channels []alerting.NotificationSender

	if url := os.Getenv("ALERT_WEBHOOK_URL"); url != "" {
		channels = append(channels, &alerting.WebhookNotificationChannel{
			URL:     url,
			Method:  "POST",
			Timeout: 10 * time.Second,
			Enabled: true,
		})
	}
	if url := os.Getenv("SLACK_WEBHOOK_URL"); url != "" {
		channels = append(channels, &alerting.SlackNotificationChannel{
			WebhookURL: url,
			Channel:    getEnvWithDefault("SLACK_CHANNEL", "#alerts"),
			Enabled:    true,
		})
	}
	if server := os.Getenv("SMTP_SERVER"); server != "" {
		channels = append(channels, &alerting.EmailNotificationChannel{
			SMTPServer:  server,
			SMTPPort:    587,
			Username:    os.Getenv("SMTP_USERNAME"),
			Password:    os.Getenv("SMTP_PASSWORD"),
			FromAddress: getEnvWithDefault("SMTP_FROM", "anomalens@localhost"),
			ToAddresses: []string{getEnvWithDefault("SMTP_TO", "ops@localhost")},
			Enabled:     true,
		})
	}
	return channels
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

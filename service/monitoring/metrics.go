/*
 * @module service/monitoring/metrics
 * @description Prometheus指标采集，覆盖预测量、异常量、评分延迟、模型就绪与通知失败
 * @architecture 分层架构 - 监控支撑层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 包初始化注册指标 -> 业务链路打点 -> /metrics暴露
 * @rules 指标注册只发生一次；业务失败不因打点失败而失败
 * @dependencies github.com/prometheus/client_golang/prometheus
 * @refs api/controllers/prediction_controller.go, service/alerting/alert_service.go
 */

package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PredictionsTotal 预测请求总数，按结果分类
	PredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anomalens_predictions_total",
		Help: "预测请求总数",
	}, []string{"status"})

	// AnomaliesTotal 检出异常总数，按传感器与严重级别分类
	AnomaliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anomalens_anomalies_total",
		Help: "检出异常总数",
	}, []string{"sensor_id", "severity"})

	// PredictionLatency 单条预测耗时分布
	PredictionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "anomalens_prediction_latency_seconds",
		Help:    "单条预测耗时",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0},
	})

	// ModelReady 模型就绪状态，1就绪0未就绪
	ModelReady = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "anomalens_model_ready",
		Help: "模型是否就绪",
	})

	// TrainingRunsTotal 训练次数，按触发来源与结果分类
	TrainingRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anomalens_training_runs_total",
		Help: "模型训练次数",
	}, []string{"trigger", "status"})

	// AlertsCreatedTotal 创建的告警总数，按严重级别分类
	AlertsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anomalens_alerts_created_total",
		Help: "创建的告警总数",
	}, []string{"severity"})

	// NotificationFailuresTotal 通知渠道发送失败次数
	NotificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anomalens_notification_failures_total",
		Help: "通知发送失败次数",
	}, []string{"channel"})

	// AlertHandleFailuresTotal 告警落库或处理失败次数
	AlertHandleFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anomalens_alert_handle_failures_total",
		Help: "告警处理失败次数",
	})

	// IngestMessagesTotal 消息源摄入条数，按来源与结果分类
	IngestMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anomalens_ingest_messages_total",
		Help: "消息源摄入条数",
	}, []string{"source", "status"})
)

/*
 * @module service/alerting/alert_service
 * @description 告警服务，负责异常告警的创建落库、过滤、多渠道分发与人工确认
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 预测结果 -> 级别门槛判断 -> 告警落库 -> 脚本过滤 -> 渠道分发 -> 人工确认
 * @rules 告警落库先于通知且不受通知失败影响；单渠道失败只计数不中断
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/detector/detector.go, api/controllers/alert_controller.go
 */

package alerting

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"anomalens-service/service/detector"
	"anomalens-service/service/models"
	"anomalens-service/service/monitoring"
)

// AlertPublisher 告警事件发布能力，由缓存层的Redis发布订阅实现
type AlertPublisher interface {
	PublishAlert(alert *models.AnomalyAlert) error
}

// Service 告警服务
type Service struct {
	db          *gorm.DB
	minSeverity string
	channels    []NotificationSender
	filter      *ScriptFilter
	publisher   AlertPublisher
}

// NewService 创建告警服务
// publisher可以为nil，表示不启用告警事件发布
func NewService(db *gorm.DB, minSeverity string, channels []NotificationSender, filter *ScriptFilter, publisher AlertPublisher) *Service {
	return &Service{
		db:          db,
		minSeverity: minSeverity,
		channels:    channels,
		filter:      filter,
		publisher:   publisher,
	}
}

// HandlePrediction 处理一条预测结果，级别达到门槛时创建并分发告警
// 返回创建的告警，未达门槛时返回nil
func (s *Service) HandlePrediction(result *models.PredictionResult) (*models.AnomalyAlert, error) {
	if detector.SeverityRank(result.Severity) < detector.SeverityRank(s.minSeverity) {
		return nil, nil
	}

	data := make(models.JSONB, len(result.Features))
	for name, value := range result.Features {
		data[name] = value
	}

	alert := &models.AnomalyAlert{
		ID:           uuid.New().String(),
		SensorID:     result.SensorID,
		Severity:     result.Severity,
		AnomalyScore: result.AnomalyScore,
		Message: fmt.Sprintf("传感器 %s 检测到 %s 级异常，异常分数 %.4f",
			result.SensorID, result.Severity, result.AnomalyScore),
		Data:            data,
		Recommendations: result.Recommendations,
		TriggeredAt:     result.Timestamp,
	}

	if err := s.db.Create(alert).Error; err != nil {
		return nil, fmt.Errorf("告警落库失败: %w", err)
	}
	monitoring.AlertsCreatedTotal.WithLabelValues(alert.Severity).Inc()

	s.dispatch(alert)
	return alert, nil
}

// dispatch 过滤后向所有渠道分发，任何失败只记录不回传
func (s *Service) dispatch(alert *models.AnomalyAlert) {
	if s.filter != nil {
		notify, err := s.filter.ShouldNotify(alert)
		if err != nil {
			slog.Warn("告警过滤脚本异常，按放行处理", "alert_id", alert.ID, "error", err)
		}
		if !notify {
			slog.Debug("告警被过滤脚本跳过通知", "alert_id", alert.ID)
			return
		}
	}

	for _, channel := range s.channels {
		if !channel.IsEnabled() {
			continue
		}
		if err := channel.Send(alert); err != nil {
			deliveryErr := &SinkDeliveryError{Channel: channel.GetChannelType(), Err: err}
			monitoring.NotificationFailuresTotal.WithLabelValues(channel.GetChannelType()).Inc()
			slog.Error("告警通知发送失败", "alert_id", alert.ID, "error", deliveryErr)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishAlert(alert); err != nil {
			slog.Error("告警事件发布失败", "alert_id", alert.ID, "error", err)
		}
	}
}

// RecentAlerts 查询最近的告警，支持时间窗、级别与传感器过滤
func (s *Service) RecentAlerts(hours int, severity, sensorID string, limit int) ([]models.AnomalyAlert, error) {
	if hours <= 0 {
		hours = 24
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := s.db.Where("triggered_at >= ?", time.Now().Add(-time.Duration(hours)*time.Hour))
	if severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if sensorID != "" {
		query = query.Where("sensor_id = ?", sensorID)
	}

	var alerts []models.AnomalyAlert
	if err := query.Order("triggered_at DESC").Limit(limit).Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("查询告警失败: %w", err)
	}
	return alerts, nil
}

// Acknowledge 人工确认告警，只设置确认三元组，不改动其他字段
func (s *Service) Acknowledge(alertID, user string) (*models.AnomalyAlert, error) {
	var alert models.AnomalyAlert
	if err := s.db.First(&alert, "id = ?", alertID).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"acknowledged":    true,
		"acknowledged_by": user,
		"acknowledged_at": now,
	}
	if err := s.db.Model(&alert).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("更新告警确认状态失败: %w", err)
	}

	alert.Acknowledged = true
	alert.AcknowledgedBy = &user
	alert.AcknowledgedAt = &now
	return &alert, nil
}

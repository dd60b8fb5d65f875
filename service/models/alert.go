/*
 * @module service/models/alert
 * @description 异常告警模型，告警历史只追加不删除，唯一的变更是确认操作
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 告警创建 -> 通知分发 -> 人工确认
 * @rules 告警一经创建不可删除；确认操作只设置acknowledged三元组
 * @dependencies gorm, github.com/lib/pq
 * @refs service/alerting/alert_service.go
 */

package models

import (
	"time"

	"github.com/lib/pq"
)

// AnomalyAlert 异常告警记录
type AnomalyAlert struct {
	ID              string         `json:"alert_id" gorm:"primaryKey;type:varchar(64)"`
	SensorID        string         `json:"sensor_id" gorm:"type:varchar(64);index;not null"`
	Severity        string         `json:"severity" gorm:"type:varchar(16);index;not null"` // info, warning, critical
	AnomalyScore    float64        `json:"anomaly_score"`
	Message         string         `json:"message"`
	Data            JSONB          `json:"data" gorm:"type:jsonb"` // 触发告警的原始读数
	Recommendations pq.StringArray `json:"recommendations" gorm:"type:text[]"`
	TriggeredAt     time.Time      `json:"timestamp" gorm:"index"`
	Acknowledged    bool           `json:"acknowledged" gorm:"default:false"`
	AcknowledgedBy  *string        `json:"acknowledged_by,omitempty" gorm:"type:varchar(64)"`
	AcknowledgedAt  *time.Time     `json:"acknowledged_at,omitempty"`
	CreatedAt       time.Time      `json:"-"`
}

// TableName 指定表名
func (AnomalyAlert) TableName() string {
	return "anomaly_alerts"
}

// AcknowledgeRequest 告警确认请求
type AcknowledgeRequest struct {
	User string `json:"user" example:"admin"`
}

/*
 * @module service/models/model_info
 * @description 模型元信息与训练请求/响应模型
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 训练完成时创建，重训练时整体原子替换，监控方只读查询
 * @rules ModelInfo与模型快照同生命周期，不允许单独修改
 * @dependencies time, gorm
 * @refs service/detector/detector.go, service/scheduler/retrain_scheduler.go
 */

package models

import "time"

// ModelInfo 当前已加载模型的元信息
type ModelInfo struct {
	ModelType     string            `json:"model_type" example:"isolation_forest"`
	Version       string            `json:"version" example:"1.0"`
	TrainingDate  time.Time         `json:"training_date"`
	Features      []string          `json:"features"`
	Contamination float64           `json:"contamination" example:"0.1"`
	NSamples      int               `json:"n_samples" example:"1000"`
	Parameters    map[string]string `json:"parameters"`
}

// TrainingRequest 模型训练请求
type TrainingRequest struct {
	NSamples      int     `json:"n_samples" example:"1000"`      // 训练样本数 [100,10000]
	Contamination float64 `json:"contamination" example:"0.1"`   // 预期异常率 (0,0.5]
	Algorithm     string  `json:"algorithm" example:"isolation_forest"` // isolation_forest, one_class_svm, lof
}

// TrainingResponse 训练响应
type TrainingResponse struct {
	Success bool   `json:"success" example:"true"`
	ModelID string `json:"model_id" example:"model_20250101_020000"`
	Message string `json:"message"`
}

// ModelBundleRequest 模型持久化请求，path为空时使用配置的默认路径
type ModelBundleRequest struct {
	Path string `json:"path,omitempty" example:"models/anomaly_detector.json"`
}

// TrainingRun 训练历史记录，追加写入
type TrainingRun struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Algorithm     string    `json:"algorithm" gorm:"type:varchar(32);not null"`
	NSamples      int       `json:"n_samples"`
	Contamination float64   `json:"contamination"`
	DurationMs    int64     `json:"duration_ms"`
	Status        string    `json:"status" gorm:"type:varchar(16)"` // success, failed
	Error         string    `json:"error,omitempty"`
	TriggeredBy   string    `json:"triggered_by" gorm:"type:varchar(32)"` // api, scheduler
	CreatedAt     time.Time `json:"created_at"`
}

// TableName 指定表名
func (TrainingRun) TableName() string {
	return "training_runs"
}

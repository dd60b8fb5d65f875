/*
 * @module service/models/prediction
 * @description 预测结果与批量预测响应模型
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 评分完成 -> 结果组装 -> 响应返回
 * @rules anomaly_score与confidence必须落在[0,1]，is_anomaly与severity是两个独立信号
 * @dependencies time
 * @refs service/detector/detector.go
 */

package models

import "time"

// PredictionResult 单条预测结果
// IsAnomaly 来自模型的原生判定边界，Severity 来自归一化分数的阈值分级，
// 二者可能不一致，均原样返回而不做折中
type PredictionResult struct {
	SensorID        string             `json:"sensor_id" example:"sensor_001"`
	Timestamp       time.Time          `json:"timestamp"`
	IsAnomaly       bool               `json:"is_anomaly" example:"false"`
	AnomalyScore    float64            `json:"anomaly_score" example:"0.42"` // [0,1]，越大越异常
	Confidence      float64            `json:"confidence" example:"0.63"`    // [0,1]，启发式而非校准概率
	Severity        string             `json:"severity" example:"info"`      // info, warning, critical
	Features        map[string]float64 `json:"features"`
	Recommendations []string           `json:"recommendations"`
}

// BatchItemResult 批量预测中单项的结果，失败项只影响自身
type BatchItemResult struct {
	Index      int               `json:"index"`
	SensorID   string            `json:"sensor_id"`
	Prediction *PredictionResult `json:"prediction,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// BatchSummary 批量预测统计摘要
type BatchSummary struct {
	TotalReadings     int     `json:"total_readings"`
	Succeeded         int     `json:"succeeded"`
	Failed            int     `json:"failed"`
	AnomaliesDetected int     `json:"anomalies_detected"`
	AnomalyRate       float64 `json:"anomaly_rate"`
	AverageScore      float64 `json:"average_anomaly_score"`
	CriticalCount     int     `json:"critical_anomalies"`
}

// BatchPredictionResponse 批量预测响应
type BatchPredictionResponse struct {
	Results          []BatchItemResult `json:"results"`
	Summary          BatchSummary      `json:"summary"`
	ProcessingTimeMs float64           `json:"processing_time_ms"`
}

// Summarize 从逐项结果计算摘要
func Summarize(results []BatchItemResult) BatchSummary {
	summary := BatchSummary{TotalReadings: len(results)}
	var scoreSum float64
	for _, item := range results {
		if item.Prediction == nil {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		scoreSum += item.Prediction.AnomalyScore
		if item.Prediction.IsAnomaly {
			summary.AnomaliesDetected++
		}
		if item.Prediction.Severity == "critical" {
			summary.CriticalCount++
		}
	}
	if summary.Succeeded > 0 {
		summary.AnomalyRate = float64(summary.AnomaliesDetected) / float64(summary.Succeeded)
		summary.AverageScore = scoreSum / float64(summary.Succeeded)
	}
	return summary
}

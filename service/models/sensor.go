/*
 * @module service/models/sensor
 * @description 传感器读数模型与范围校验，所有读数在进入评分链路前完成校验
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 请求解析 -> 范围校验 -> 特征向量化
 * @rules 物理量超出允许范围的读数在摄入阶段拒绝，不会进入评分阶段
 * @dependencies time
 * @refs service/detector/detector.go
 */

package models

import (
	"fmt"
	"time"
)

// 各物理量的允许范围
const (
	TemperatureMin = -50.0
	TemperatureMax = 100.0
	PressureMin    = 900.0
	PressureMax    = 1100.0
	HumidityMin    = 0.0
	HumidityMax    = 100.0
	VibrationMin   = 0.0
	VibrationMax   = 10.0
)

// SensorReading 单条传感器读数
type SensorReading struct {
	SensorID    string     `json:"sensor_id" example:"sensor_001"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Temperature float64    `json:"temperature" example:"21.5"` // 摄氏度
	Pressure    float64    `json:"pressure" example:"1013.2"`  // hPa
	Humidity    float64    `json:"humidity" example:"48.0"`    // 百分比
	Vibration   float64    `json:"vibration" example:"0.3"`    // 振动水平
	Location    string     `json:"location,omitempty"`
	Metadata    JSONB      `json:"metadata,omitempty"`
}

// ValidationError 读数校验错误
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("读数校验失败 [%s]: %s", e.Field, e.Reason)
}

// Validate 校验读数的物理量范围
func (r *SensorReading) Validate() error {
	if r.SensorID == "" {
		return &ValidationError{Field: "sensor_id", Reason: "不能为空"}
	}
	if r.Temperature < TemperatureMin || r.Temperature > TemperatureMax {
		return &ValidationError{Field: "temperature",
			Reason: fmt.Sprintf("%.2f 超出允许范围 [%.0f, %.0f]", r.Temperature, TemperatureMin, TemperatureMax)}
	}
	if r.Pressure < PressureMin || r.Pressure > PressureMax {
		return &ValidationError{Field: "pressure",
			Reason: fmt.Sprintf("%.2f 超出允许范围 [%.0f, %.0f]", r.Pressure, PressureMin, PressureMax)}
	}
	if r.Humidity < HumidityMin || r.Humidity > HumidityMax {
		return &ValidationError{Field: "humidity",
			Reason: fmt.Sprintf("%.2f 超出允许范围 [%.0f, %.0f]", r.Humidity, HumidityMin, HumidityMax)}
	}
	if r.Vibration < VibrationMin || r.Vibration > VibrationMax {
		return &ValidationError{Field: "vibration",
			Reason: fmt.Sprintf("%.2f 超出允许范围 [%.0f, %.0f]", r.Vibration, VibrationMin, VibrationMax)}
	}
	return nil
}

// ToVector 按固定特征顺序编码为特征向量
func (r *SensorReading) ToVector() []float64 {
	return []float64{r.Temperature, r.Pressure, r.Humidity, r.Vibration}
}

// Features 返回特征名到取值的映射
func (r *SensorReading) Features() map[string]float64 {
	return map[string]float64{
		"temperature": r.Temperature,
		"pressure":    r.Pressure,
		"humidity":    r.Humidity,
		"vibration":   r.Vibration,
	}
}

// EffectiveTimestamp 返回读数时间戳，缺省时取当前时间
func (r *SensorReading) EffectiveTimestamp() time.Time {
	if r.Timestamp != nil {
		return *r.Timestamp
	}
	return time.Now()
}

// BatchSensorData 批量读数请求
type BatchSensorData struct {
	Readings []SensorReading `json:"readings"`
}

// Validate 校验批量请求：数量上限与批内sensor_id唯一性
func (b *BatchSensorData) Validate(maxSize int) error {
	if len(b.Readings) == 0 {
		return &ValidationError{Field: "readings", Reason: "不能为空"}
	}
	if len(b.Readings) > maxSize {
		return &ValidationError{Field: "readings",
			Reason: fmt.Sprintf("数量 %d 超过批量上限 %d", len(b.Readings), maxSize)}
	}
	seen := make(map[string]struct{}, len(b.Readings))
	for _, reading := range b.Readings {
		if _, ok := seen[reading.SensorID]; ok {
			return &ValidationError{Field: "readings",
				Reason: fmt.Sprintf("批内存在重复的sensor_id: %s", reading.SensorID)}
		}
		seen[reading.SensorID] = struct{}{}
	}
	return nil
}

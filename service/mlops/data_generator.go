/*
 * @module service/mlops/data_generator
 * @description 合成传感器数据生成器，正常工况高斯分布叠加注入式异常，用于训练与重训练
 * @architecture 分层架构 - MLOps支撑层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 固定种子初始化 -> 正常样本生成 -> 按污染率注入异常
 * @rules 同一种子下生成结果确定可复现；生成值裁剪到物理量允许范围内
 * @dependencies math/rand, fmt, time
 * @refs service/scheduler/retrain_scheduler.go, api/controllers/model_controller.go
 */

package mlops

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"anomalens-service/service/models"
)

// 正常工况的分布参数
const (
	normalTempMean     = 20.0
	normalTempStd      = 2.0
	normalPressureMean = 1013.0
	normalPressureStd  = 10.0
	normalHumidityMean = 50.0
	normalHumidityStd  = 5.0
	normalVibrationMax = 0.5
)

// DataGenerator 合成数据生成器
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator 创建固定种子的生成器
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{rng: rand.New(rand.NewSource(seed))}
}

// GenerateTrainingData 生成n条特征向量，按contamination比例注入异常
func (g *DataGenerator) GenerateTrainingData(n int, contamination float64) [][]float64 {
	samples := make([][]float64, n)
	anomalyCount := int(float64(n) * contamination)
	for i := 0; i < n; i++ {
		reading := g.normalReading(fmt.Sprintf("train_%04d", i))
		if i < anomalyCount {
			g.injectAnomaly(&reading)
		}
		samples[i] = reading.ToVector()
	}
	g.rng.Shuffle(n, func(a, b int) { samples[a], samples[b] = samples[b], samples[a] })
	return samples
}

// GenerateReadings 生成n条正常工况读数，用于演示与测试
func (g *DataGenerator) GenerateReadings(n int) []models.SensorReading {
	readings := make([]models.SensorReading, n)
	for i := 0; i < n; i++ {
		readings[i] = g.normalReading(fmt.Sprintf("sensor_%03d", i%10))
	}
	return readings
}

// normalReading 从正常工况分布采样一条读数
func (g *DataGenerator) normalReading(sensorID string) models.SensorReading {
	now := time.Now().UTC()
	return models.SensorReading{
		SensorID:    sensorID,
		Timestamp:   &now,
		Temperature: clamp(g.gaussian(normalTempMean, normalTempStd), models.TemperatureMin, models.TemperatureMax),
		Pressure:    clamp(g.gaussian(normalPressureMean, normalPressureStd), models.PressureMin, models.PressureMax),
		Humidity:    clamp(g.gaussian(normalHumidityMean, normalHumidityStd), models.HumidityMin, models.HumidityMax),
		Vibration:   g.rng.Float64() * normalVibrationMax,
	}
}

// injectAnomaly 随机注入一种异常模式：温度尖峰、气压骤降或异常振动
func (g *DataGenerator) injectAnomaly(r *models.SensorReading) {
	switch g.rng.Intn(3) {
	case 0:
		r.Temperature = clamp(r.Temperature+15+g.rng.Float64()*15, models.TemperatureMin, models.TemperatureMax)
	case 1:
		r.Pressure = clamp(r.Pressure-50-g.rng.Float64()*50, models.PressureMin, models.PressureMax)
	default:
		r.Vibration = clamp(1+g.rng.Float64(), models.VibrationMin, models.VibrationMax)
	}
}

// gaussian 从N(mean, std²)采样
func (g *DataGenerator) gaussian(mean, std float64) float64 {
	return mean + g.rng.NormFloat64()*std
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

/*
 * @module service/detector/ocsvm
 * @description 单类边界评分模型，RBF核密度替身近似one-class SVM的决策函数
 * @architecture 策略模式 - ScoringModel的核密度实现
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 选取支持样本 -> 估计核宽度 -> nu分位点定边界 -> 并发只读评分
 * @rules 原始分为对数核密度，越低越异常；支持样本上限防止推理开销失控
 * @dependencies math, math/rand, encoding/json
 * @refs service/detector/algorithm.go
 */

package detector

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
)

const (
	maxSupportSamples = 512
	densityEpsilon    = 1e-12
)

// OneClassBoundary 基于RBF核密度的单类边界模型
type OneClassBoundary struct {
	Nu      float64     `json:"nu"`
	Gamma   float64     `json:"gamma"`
	Support [][]float64 `json:"support"`
	Offset  float64     `json:"offset"`
}

// NewOneClassBoundary 创建未拟合的单类边界模型，nu沿用污染率
func NewOneClassBoundary(contamination float64) *OneClassBoundary {
	return &OneClassBoundary{Nu: contamination}
}

// Fit 选取支持样本并拟合核宽度与判定边界
func (m *OneClassBoundary) Fit(samples [][]float64) error {
	if len(samples) < 2 {
		return fmt.Errorf("单类边界模型至少需要2条样本，得到%d条", len(samples))
	}

	// 支持样本封顶，超出时无放回抽样
	if len(samples) > maxSupportSamples {
		rng := rand.New(rand.NewSource(defaultRandomSeed))
		m.Support = sampleWithoutReplacement(samples, maxSupportSamples, rng)
	} else {
		m.Support = make([][]float64, len(samples))
		copy(m.Support, samples)
	}

	// gamma = 1/(d*var)，对应sklearn的"scale"
	dim := len(samples[0])
	variance := totalVariance(samples)
	if variance <= 0 {
		variance = 1
	}
	m.Gamma = 1 / (float64(dim) * variance)

	trainScores := make([]float64, len(samples))
	for i, sample := range samples {
		trainScores[i] = m.RawScore(sample)
	}
	m.Offset = quantile(trainScores, m.Nu)

	return nil
}

// RawScore 对数核密度 ln(ε + mean_i exp(-γ‖x-xi‖²))，越低越异常
func (m *OneClassBoundary) RawScore(sample []float64) float64 {
	var density float64
	for _, sv := range m.Support {
		density += math.Exp(-m.Gamma * squaredDistance(sample, sv))
	}
	density /= float64(len(m.Support))
	return math.Log(densityEpsilon + density)
}

// IsAnomaly 原生判定：落在nu分位边界之下即为异常
func (m *OneClassBoundary) IsAnomaly(sample []float64) bool {
	return m.RawScore(sample) < m.Offset
}

// Params 返回超参数
func (m *OneClassBoundary) Params() map[string]string {
	return map[string]string{
		"nu":          fmt.Sprintf("%g", m.Nu),
		"gamma":       fmt.Sprintf("%g", m.Gamma),
		"n_support":   fmt.Sprintf("%d", len(m.Support)),
		"max_support": fmt.Sprintf("%d", maxSupportSamples),
	}
}

// MarshalState 序列化已拟合状态
func (m *OneClassBoundary) MarshalState() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalState 恢复已拟合状态，未拟合或不完整的状态被拒绝
func (m *OneClassBoundary) UnmarshalState(data []byte) error {
	if err := json.Unmarshal(data, m); err != nil {
		return err
	}
	if len(m.Support) == 0 {
		return fmt.Errorf("单类边界状态未拟合: 没有支持样本")
	}
	if m.Gamma <= 0 || math.IsNaN(m.Gamma) || math.IsInf(m.Gamma, 0) {
		return fmt.Errorf("单类边界核宽度非法: gamma=%v", m.Gamma)
	}
	if math.IsNaN(m.Offset) || math.IsInf(m.Offset, 0) {
		return fmt.Errorf("单类边界判定边界非法: %v", m.Offset)
	}
	return nil
}

// totalVariance 所有特征的联合方差，用于核宽度估计
func totalVariance(samples [][]float64) float64 {
	dim := len(samples[0])
	n := float64(len(samples))

	mean := make([]float64, dim)
	for _, sample := range samples {
		for i, v := range sample {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= n
	}

	var total float64
	for _, sample := range samples {
		for i, v := range sample {
			diff := v - mean[i]
			total += diff * diff
		}
	}
	return total / (n * float64(dim))
}

// squaredDistance 欧氏距离平方
func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

/*
 * @module service/detector/scaler
 * @description 标准化缩放器，训练时拟合一次均值和尺度，推理时只读应用
 * @architecture 分层架构 - 领域核心层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 训练集拟合 -> 状态冻结 -> 并发只读应用
 * @rules 拟合后的状态不可变，必须与同一代训练出的模型捆绑使用
 * @dependencies math
 * @refs service/detector/detector.go
 */

package detector

import "math"

// ScalerState 每个特征的均值与尺度，拟合后不可变
type ScalerState struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler 从训练集拟合缩放参数
// 样本数低于minSamples时返回InsufficientDataError
func FitScaler(samples [][]float64, minSamples int) (*ScalerState, error) {
	if len(samples) < minSamples {
		return nil, &InsufficientDataError{Got: len(samples), Min: minSamples}
	}

	dim := len(samples[0])
	mean := make([]float64, dim)
	scale := make([]float64, dim)

	for _, sample := range samples {
		for i, v := range sample {
			mean[i] += v
		}
	}
	n := float64(len(samples))
	for i := range mean {
		mean[i] /= n
	}

	for _, sample := range samples {
		for i, v := range sample {
			diff := v - mean[i]
			scale[i] += diff * diff
		}
	}
	for i := range scale {
		scale[i] = math.Sqrt(scale[i] / n)
		// 零方差特征不缩放，避免除零
		if scale[i] == 0 {
			scale[i] = 1
		}
	}

	return &ScalerState{Mean: mean, Scale: scale}, nil
}

// Apply 对单个样本做标准化，纯函数，不修改状态
func (s *ScalerState) Apply(sample []float64) []float64 {
	out := make([]float64, len(sample))
	for i, v := range sample {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out
}

// ApplyAll 对样本集合做标准化
func (s *ScalerState) ApplyAll(samples [][]float64) [][]float64 {
	out := make([][]float64, len(samples))
	for i, sample := range samples {
		out[i] = s.Apply(sample)
	}
	return out
}

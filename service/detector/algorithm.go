/*
 * @module service/detector/algorithm
 * @description 评分模型能力边界与算法注册表，封闭枚举在配置加载时穷尽检查
 * @architecture 策略模式 - 多种离群点评分策略可互换
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 算法选择 -> 构造评分模型 -> 拟合 -> 并发只读评分
 * @rules 所有变体统一采用"原始分越低越异常"的约定，归一化由编排方负责
 * @dependencies fmt, sort
 * @refs service/detector/iforest.go, service/detector/ocsvm.go, service/detector/lof.go
 */

package detector

import (
	"fmt"
	"sort"
)

// Algorithm 支持的离群点检测算法，封闭枚举
type Algorithm string

const (
	AlgorithmIsolationForest Algorithm = "isolation_forest"
	AlgorithmOneClassSVM     Algorithm = "one_class_svm"
	AlgorithmLOF             Algorithm = "lof"
)

// SupportedAlgorithms 返回全部受支持的算法
func SupportedAlgorithms() []Algorithm {
	return []Algorithm{AlgorithmIsolationForest, AlgorithmOneClassSVM, AlgorithmLOF}
}

// ParseAlgorithm 解析算法名并做穷尽检查
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case AlgorithmIsolationForest, AlgorithmOneClassSVM, AlgorithmLOF:
		return Algorithm(name), nil
	default:
		return "", fmt.Errorf("未知算法: %s，可选项为 %v", name, SupportedAlgorithms())
	}
}

// ScoringModel 离群点评分能力
// RawScore 返回各算法原生尺度的分数，约定越低越异常；
// IsAnomaly 是模型原生判定边界的结果，与严重级别分级相互独立
type ScoringModel interface {
	Fit(samples [][]float64) error
	RawScore(sample []float64) float64
	IsAnomaly(sample []float64) bool
	Params() map[string]string
	MarshalState() ([]byte, error)
	UnmarshalState(data []byte) error
}

// newScoringModel 按算法构造未拟合的评分模型
func newScoringModel(algorithm Algorithm, contamination float64) (ScoringModel, error) {
	switch algorithm {
	case AlgorithmIsolationForest:
		return NewIsolationForest(contamination), nil
	case AlgorithmOneClassSVM:
		return NewOneClassBoundary(contamination), nil
	case AlgorithmLOF:
		return NewLocalOutlierFactor(contamination), nil
	default:
		return nil, fmt.Errorf("未知算法: %s", algorithm)
	}
}

// quantile 取升序意义下的分位点，用于从训练分数推导原生判定边界
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lower := int(pos)
	if lower >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[lower+1]*frac
}

/*
 * @module service/detector/iforest
 * @description 隔离森林评分模型，随机子采样建树，用平均路径长度衡量隔离难度
 * @architecture 策略模式 - ScoringModel的集成树实现
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 子采样建树 -> 训练分位点定边界 -> 并发只读评分
 * @rules 原始分取负隔离度，越低越异常；判定边界为训练分数的污染率分位点
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
	defaultNEstimators   = 100
	defaultSubsampleSize = 256
	defaultRandomSeed    = 42
)

// isoNode 隔离树节点，叶子节点只保留样本数
type isoNode struct {
	Feature int      `json:"f"`
	Split   float64  `json:"s"`
	Left    *isoNode `json:"l,omitempty"`
	Right   *isoNode `json:"r,omitempty"`
	Size    int      `json:"n,omitempty"`
}

// IsolationForest 隔离森林
type IsolationForest struct {
	Contamination float64    `json:"contamination"`
	NEstimators   int        `json:"n_estimators"`
	SubsampleSize int        `json:"subsample_size"`
	Seed          int64      `json:"seed"`
	Trees         []*isoNode `json:"trees"`
	Offset        float64    `json:"offset"`

	// 拟合时实际使用的子样本量，决定归一化因子
	Psi int `json:"psi"`
}

// NewIsolationForest 创建未拟合的隔离森林
func NewIsolationForest(contamination float64) *IsolationForest {
	return &IsolationForest{
		Contamination: contamination,
		NEstimators:   defaultNEstimators,
		SubsampleSize: defaultSubsampleSize,
		Seed:          defaultRandomSeed,
	}
}

// Fit 拟合隔离森林并从训练分数推导判定边界
func (f *IsolationForest) Fit(samples [][]float64) error {
	if len(samples) < 2 {
		return fmt.Errorf("隔离森林至少需要2条样本，得到%d条", len(samples))
	}

	rng := rand.New(rand.NewSource(f.Seed))
	f.Psi = f.SubsampleSize
	if f.Psi > len(samples) {
		f.Psi = len(samples)
	}
	heightLimit := int(math.Ceil(math.Log2(float64(f.Psi))))

	f.Trees = make([]*isoNode, f.NEstimators)
	for t := 0; t < f.NEstimators; t++ {
		subsample := sampleWithoutReplacement(samples, f.Psi, rng)
		f.Trees[t] = buildIsoTree(subsample, 0, heightLimit, rng)
	}

	// 训练集原始分的污染率分位点作为原生判定边界
	trainScores := make([]float64, len(samples))
	for i, sample := range samples {
		trainScores[i] = f.RawScore(sample)
	}
	f.Offset = quantile(trainScores, f.Contamination)

	return nil
}

// RawScore 返回负的隔离度 -s(x)，s(x)=2^{-E[h(x)]/c(ψ)}，越低越异常
func (f *IsolationForest) RawScore(sample []float64) float64 {
	var total float64
	for _, tree := range f.Trees {
		total += pathLength(tree, sample, 0)
	}
	avgPath := total / float64(len(f.Trees))
	isolation := math.Pow(2, -avgPath/averagePathLength(f.Psi))
	return -isolation
}

// IsAnomaly 原生判定：原始分落在判定边界之下即为异常
func (f *IsolationForest) IsAnomaly(sample []float64) bool {
	return f.RawScore(sample) < f.Offset
}

// Params 返回超参数
func (f *IsolationForest) Params() map[string]string {
	return map[string]string{
		"n_estimators":   fmt.Sprintf("%d", f.NEstimators),
		"subsample_size": fmt.Sprintf("%d", f.SubsampleSize),
		"contamination":  fmt.Sprintf("%g", f.Contamination),
	}
}

// MarshalState 序列化已拟合状态
func (f *IsolationForest) MarshalState() ([]byte, error) {
	return json.Marshal(f)
}

// UnmarshalState 恢复已拟合状态，未拟合或不完整的状态被拒绝
func (f *IsolationForest) UnmarshalState(data []byte) error {
	if err := json.Unmarshal(data, f); err != nil {
		return err
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("隔离森林状态未拟合: 没有任何树")
	}
	for i, tree := range f.Trees {
		if tree == nil {
			return fmt.Errorf("隔离森林状态不完整: 第%d棵树为空", i)
		}
	}
	if f.Psi < 2 {
		return fmt.Errorf("隔离森林子样本量非法: psi=%d", f.Psi)
	}
	if math.IsNaN(f.Offset) || math.IsInf(f.Offset, 0) {
		return fmt.Errorf("隔离森林判定边界非法: %v", f.Offset)
	}
	return nil
}

// buildIsoTree 递归构建隔离树，达到高度上限或无法再分时落叶
func buildIsoTree(samples [][]float64, depth, heightLimit int, rng *rand.Rand) *isoNode {
	if depth >= heightLimit || len(samples) <= 1 {
		return &isoNode{Size: len(samples)}
	}

	dim := len(samples[0])
	feature := rng.Intn(dim)

	minV, maxV := samples[0][feature], samples[0][feature]
	for _, sample := range samples[1:] {
		v := sample[feature]
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	if minV == maxV {
		return &isoNode{Size: len(samples)}
	}

	split := minV + rng.Float64()*(maxV-minV)
	var left, right [][]float64
	for _, sample := range samples {
		if sample[feature] < split {
			left = append(left, sample)
		} else {
			right = append(right, sample)
		}
	}

	return &isoNode{
		Feature: feature,
		Split:   split,
		Left:    buildIsoTree(left, depth+1, heightLimit, rng),
		Right:   buildIsoTree(right, depth+1, heightLimit, rng),
	}
}

// pathLength 样本在单棵树中的路径长度，叶子处补上剩余样本的期望路径
func pathLength(node *isoNode, sample []float64, depth int) float64 {
	if node.Left == nil && node.Right == nil {
		return float64(depth) + averagePathLength(node.Size)
	}
	if sample[node.Feature] < node.Split {
		return pathLength(node.Left, sample, depth+1)
	}
	return pathLength(node.Right, sample, depth+1)
}

// averagePathLength BST不成功查找的期望路径长度 c(n)
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + 0.5772156649
	return 2*h - 2*float64(n-1)/float64(n)
}

// sampleWithoutReplacement 无放回抽样
func sampleWithoutReplacement(samples [][]float64, k int, rng *rand.Rand) [][]float64 {
	indices := rng.Perm(len(samples))[:k]
	out := make([][]float64, k)
	for i, idx := range indices {
		out[i] = samples[idx]
	}
	return out
}

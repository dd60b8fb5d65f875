/*
 * @module service/detector/lof
 * @description 局部离群因子评分模型，用邻域可达密度比衡量局部偏离程度
 * @architecture 策略模式 - ScoringModel的近邻密度实现
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 保存训练集 -> 预计算k距离与局部可达密度 -> 并发只读评分
 * @rules 原始分取负LOF，越低越异常；训练期邻居搜索排除样本自身
 * @dependencies math, sort, encoding/json
 * @refs service/detector/algorithm.go
 */

package detector

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

const defaultLOFNeighbors = 20

// LocalOutlierFactor 局部离群因子模型
// 拟合后保存训练样本、每个样本的k距离和局部可达密度，推理只读
type LocalOutlierFactor struct {
	Contamination float64     `json:"contamination"`
	K             int         `json:"k"`
	Samples       [][]float64 `json:"samples"`
	KDist         []float64   `json:"k_dist"`
	LRD           []float64   `json:"lrd"`
	Offset        float64     `json:"offset"`
}

// NewLocalOutlierFactor 创建未拟合的LOF模型
func NewLocalOutlierFactor(contamination float64) *LocalOutlierFactor {
	return &LocalOutlierFactor{Contamination: contamination, K: defaultLOFNeighbors}
}

// neighborRef 邻居索引与距离
type neighborRef struct {
	index int
	dist  float64
}

// Fit 保存训练集并预计算每个样本的k距离与局部可达密度
func (m *LocalOutlierFactor) Fit(samples [][]float64) error {
	if len(samples) < 2 {
		return fmt.Errorf("LOF至少需要2条样本，得到%d条", len(samples))
	}

	k := m.K
	if k > len(samples)-1 {
		k = len(samples) - 1
	}
	m.K = k

	m.Samples = make([][]float64, len(samples))
	copy(m.Samples, samples)

	// 训练期邻居搜索排除样本自身
	neighbors := make([][]neighborRef, len(samples))
	m.KDist = make([]float64, len(samples))
	for i, sample := range samples {
		nn := m.nearestNeighbors(sample, k, i)
		neighbors[i] = nn
		m.KDist[i] = nn[len(nn)-1].dist
	}

	m.LRD = make([]float64, len(samples))
	for i := range samples {
		m.LRD[i] = localReachabilityDensity(neighbors[i], m.KDist)
	}

	trainScores := make([]float64, len(samples))
	for i := range samples {
		trainScores[i] = -lofValue(neighbors[i], m.LRD, localReachabilityDensity(neighbors[i], m.KDist))
	}
	m.Offset = quantile(trainScores, m.Contamination)

	return nil
}

// RawScore 返回负的LOF值，越低越异常
func (m *LocalOutlierFactor) RawScore(sample []float64) float64 {
	nn := m.nearestNeighbors(sample, m.K, -1)
	lrd := localReachabilityDensity(nn, m.KDist)
	return -lofValue(nn, m.LRD, lrd)
}

// IsAnomaly 原生判定：落在污染率分位边界之下即为异常
func (m *LocalOutlierFactor) IsAnomaly(sample []float64) bool {
	return m.RawScore(sample) < m.Offset
}

// Params 返回超参数
func (m *LocalOutlierFactor) Params() map[string]string {
	return map[string]string{
		"n_neighbors":   fmt.Sprintf("%d", m.K),
		"contamination": fmt.Sprintf("%g", m.Contamination),
	}
}

// MarshalState 序列化已拟合状态
func (m *LocalOutlierFactor) MarshalState() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalState 恢复已拟合状态，未拟合或不完整的状态被拒绝
func (m *LocalOutlierFactor) UnmarshalState(data []byte) error {
	if err := json.Unmarshal(data, m); err != nil {
		return err
	}
	if len(m.Samples) < 2 {
		return fmt.Errorf("LOF状态未拟合: 训练样本数%d", len(m.Samples))
	}
	if len(m.KDist) != len(m.Samples) || len(m.LRD) != len(m.Samples) {
		return fmt.Errorf("LOF状态不完整: samples=%d k_dist=%d lrd=%d",
			len(m.Samples), len(m.KDist), len(m.LRD))
	}
	if m.K < 1 {
		return fmt.Errorf("LOF邻居数非法: k=%d", m.K)
	}
	if math.IsNaN(m.Offset) || math.IsInf(m.Offset, 0) {
		return fmt.Errorf("LOF判定边界非法: %v", m.Offset)
	}
	return nil
}

// nearestNeighbors 在训练集中找k个最近邻，exclude为需要跳过的样本下标，-1表示不跳过
func (m *LocalOutlierFactor) nearestNeighbors(sample []float64, k, exclude int) []neighborRef {
	refs := make([]neighborRef, 0, len(m.Samples))
	for i, s := range m.Samples {
		if i == exclude {
			continue
		}
		refs = append(refs, neighborRef{index: i, dist: math.Sqrt(squaredDistance(sample, s))})
	}
	sort.Slice(refs, func(a, b int) bool { return refs[a].dist < refs[b].dist })
	if len(refs) > k {
		refs = refs[:k]
	}
	return refs
}

// localReachabilityDensity 邻域平均可达距离的倒数
func localReachabilityDensity(neighbors []neighborRef, kDist []float64) float64 {
	var sum float64
	for _, nb := range neighbors {
		sum += math.Max(nb.dist, kDist[nb.index])
	}
	avg := sum / float64(len(neighbors))
	if avg == 0 {
		return math.Inf(1)
	}
	return 1 / avg
}

// lofValue 邻居密度与自身密度之比的均值，1附近为正常，远大于1为离群
func lofValue(neighbors []neighborRef, trainLRD []float64, lrd float64) float64 {
	if math.IsInf(lrd, 1) {
		return 1
	}
	var sum float64
	for _, nb := range neighbors {
		sum += trainLRD[nb.index]
	}
	return sum / (float64(len(neighbors)) * lrd)
}

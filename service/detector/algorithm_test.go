/*
 * @module service/detector/algorithm_test
 * @description 评分模型单元测试，三种算法共用同一组离群点判别用例
 * @architecture 测试层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 构造簇状训练集 -> 拟合 -> 验证离群点分数显著更低
 * @rules 所有算法统一"原始分越低越异常"的约定
 * @dependencies testing, stretchr/testify
 */

package detector

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clusteredSamples 以原点为中心的致密簇
func clusteredSamples(n int) [][]float64 {
	rng := rand.New(rand.NewSource(7))
	samples := make([][]float64, n)
	for i := range samples {
		samples[i] = []float64{
			rng.NormFloat64() * 0.5,
			rng.NormFloat64() * 0.5,
			rng.NormFloat64() * 0.5,
			rng.NormFloat64() * 0.5,
		}
	}
	return samples
}

// TestParseAlgorithm 测试算法名解析
func TestParseAlgorithm(t *testing.T) {
	for _, name := range []string{"isolation_forest", "one_class_svm", "lof"} {
		algorithm, err := ParseAlgorithm(name)
		require.NoError(t, err)
		assert.Equal(t, Algorithm(name), algorithm)
	}

	_, err := ParseAlgorithm("dbscan")
	assert.Error(t, err)
}

// TestScoringModelsSeparateOutliers 测试三种算法都能区分离群点
func TestScoringModelsSeparateOutliers(t *testing.T) {
	samples := clusteredSamples(300)
	inlier := []float64{0.1, -0.2, 0.05, 0.15}
	outlier := []float64{8, 8, 8, 8}

	for _, algorithm := range SupportedAlgorithms() {
		model, err := newScoringModel(algorithm, 0.1)
		require.NoError(t, err, "algorithm=%s", algorithm)
		require.NoError(t, model.Fit(samples), "algorithm=%s", algorithm)

		inlierScore := model.RawScore(inlier)
		outlierScore := model.RawScore(outlier)
		assert.Less(t, outlierScore, inlierScore,
			"algorithm=%s 离群点的原始分必须更低", algorithm)
		assert.True(t, model.IsAnomaly(outlier),
			"algorithm=%s 离群点必须被原生边界判为异常", algorithm)
		assert.False(t, model.IsAnomaly(inlier),
			"algorithm=%s 簇内点不应被判为异常", algorithm)
	}
}

// TestScoringModelStateRoundTrip 测试状态序列化后评分一致
func TestScoringModelStateRoundTrip(t *testing.T) {
	samples := clusteredSamples(200)
	probe := []float64{1.5, -0.5, 0.3, 2.0}

	for _, algorithm := range SupportedAlgorithms() {
		model, err := newScoringModel(algorithm, 0.1)
		require.NoError(t, err)
		require.NoError(t, model.Fit(samples))

		state, err := model.MarshalState()
		require.NoError(t, err, "algorithm=%s", algorithm)

		restored, err := newScoringModel(algorithm, 0.1)
		require.NoError(t, err)
		require.NoError(t, restored.UnmarshalState(state), "algorithm=%s", algorithm)

		assert.InDelta(t, model.RawScore(probe), restored.RawScore(probe), 1e-9,
			"algorithm=%s 恢复后的评分必须逐位一致", algorithm)
	}
}

// TestQuantile 测试分位点插值
func TestQuantile(t *testing.T) {
	values := []float64{4, 1, 3, 2}

	assert.InDelta(t, 1.0, quantile(values, 0), 1e-9)
	assert.InDelta(t, 4.0, quantile(values, 1), 1e-9)
	assert.InDelta(t, 2.5, quantile(values, 0.5), 1e-9)
	assert.Equal(t, []float64{4, 1, 3, 2}, values, "输入不应被原地排序")
}

// TestIsolationForestDeterministic 测试固定种子下训练可复现
func TestIsolationForestDeterministic(t *testing.T) {
	samples := clusteredSamples(200)
	probe := []float64{0.5, 0.5, 0.5, 0.5}

	a := NewIsolationForest(0.1)
	require.NoError(t, a.Fit(samples))
	b := NewIsolationForest(0.1)
	require.NoError(t, b.Fit(samples))

	assert.InDelta(t, a.RawScore(probe), b.RawScore(probe), 1e-12)
	assert.InDelta(t, a.Offset, b.Offset, 1e-12)
}

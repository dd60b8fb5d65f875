/*
 * @module service/detector/detector_test
 * @description 异常检测器编排核心单元测试
 * @architecture 测试层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 测试准备 -> 训练/评分/持久化 -> 不变式验证
 * @rules 覆盖未就绪、训练失败保留旧模型、批量部分失败、持久化往返与并发评分
 * @dependencies testing, stretchr/testify
 */

package detector

import (
	"context"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anomalens-service/service/models"
)

var testFeatures = []string{"temperature", "pressure", "humidity", "vibration"}

// newTestDetector 构造测试检测器
func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	classifier, err := NewSeverityClassifier(0.6, 0.8)
	require.NoError(t, err)
	return New(classifier, 10, testFeatures)
}

// normalTrainingData 正常工况附近的训练集
func normalTrainingData(n int) [][]float64 {
	rng := rand.New(rand.NewSource(42))
	samples := make([][]float64, n)
	for i := range samples {
		samples[i] = []float64{
			20 + rng.NormFloat64()*2,
			1013 + rng.NormFloat64()*10,
			50 + rng.NormFloat64()*5,
			rng.Float64() * 0.5,
		}
	}
	return samples
}

func normalReading(sensorID string) *models.SensorReading {
	return &models.SensorReading{
		SensorID:    sensorID,
		Temperature: 20.5,
		Pressure:    1013,
		Humidity:    50,
		Vibration:   0.2,
	}
}

func anomalousReading(sensorID string) *models.SensorReading {
	return &models.SensorReading{
		SensorID:    sensorID,
		Temperature: 80,
		Pressure:    920,
		Humidity:    95,
		Vibration:   9,
	}
}

// TestPredictBeforeTraining 测试未就绪时预测被拒绝
func TestPredictBeforeTraining(t *testing.T) {
	det := newTestDetector(t)

	assert.False(t, det.Ready())

	_, err := det.Predict(normalReading("sensor_001"))
	var notReadyErr *NotReadyError
	require.ErrorAs(t, err, &notReadyErr)

	_, err = det.Info()
	require.ErrorAs(t, err, &notReadyErr)

	err = det.Save("unused.json")
	require.ErrorAs(t, err, &notReadyErr)
}

// TestTrainAndPredict 测试训练后评分落在约定区间
func TestTrainAndPredict(t *testing.T) {
	det := newTestDetector(t)
	require.NoError(t, det.Train(AlgorithmIsolationForest, normalTrainingData(500), 0.1))
	require.True(t, det.Ready())

	normal, err := det.Predict(normalReading("sensor_001"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, normal.AnomalyScore, 0.0)
	assert.LessOrEqual(t, normal.AnomalyScore, 1.0)
	assert.GreaterOrEqual(t, normal.Confidence, 0.0)
	assert.LessOrEqual(t, normal.Confidence, 1.0)
	assert.Equal(t, "sensor_001", normal.SensorID)
	assert.Len(t, normal.Features, 4)
	assert.NotEmpty(t, normal.Recommendations)

	anomalous, err := det.Predict(anomalousReading("sensor_002"))
	require.NoError(t, err)
	assert.Greater(t, anomalous.AnomalyScore, normal.AnomalyScore,
		"明显异常的读数必须得到更高的异常分")
	assert.True(t, anomalous.IsAnomaly)
}

// TestPredictValidation 测试非法读数在评分前被拒绝
func TestPredictValidation(t *testing.T) {
	det := newTestDetector(t)
	require.NoError(t, det.Train(AlgorithmIsolationForest, normalTrainingData(100), 0.1))

	bad := normalReading("sensor_001")
	bad.Temperature = 200

	_, err := det.Predict(bad)
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "temperature", validationErr.Field)
}

// TestTrainFailurePreservesModel 测试训练失败时旧模型保持可用
func TestTrainFailurePreservesModel(t *testing.T) {
	det := newTestDetector(t)
	require.NoError(t, det.Train(AlgorithmIsolationForest, normalTrainingData(100), 0.1))

	before, err := det.Predict(normalReading("sensor_001"))
	require.NoError(t, err)

	// 样本不足导致训练失败
	err = det.Train(AlgorithmLOF, normalTrainingData(3), 0.1)
	require.Error(t, err)

	after, err := det.Predict(normalReading("sensor_001"))
	require.NoError(t, err)
	assert.Equal(t, before.AnomalyScore, after.AnomalyScore, "失败的训练不能影响旧模型")

	info, err := det.Info()
	require.NoError(t, err)
	assert.Equal(t, string(AlgorithmIsolationForest), info.ModelType)
}

// TestPredictBatchPartialFailure 测试批量中单项失败只影响自身
func TestPredictBatchPartialFailure(t *testing.T) {
	det := newTestDetector(t)
	require.NoError(t, det.Train(AlgorithmIsolationForest, normalTrainingData(100), 0.1))

	bad := *normalReading("sensor_002")
	bad.Vibration = 99

	readings := []models.SensorReading{
		*normalReading("sensor_001"),
		bad,
		*normalReading("sensor_003"),
	}

	results, err := det.PredictBatch(context.Background(), readings)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NotNil(t, results[0].Prediction)
	assert.Nil(t, results[1].Prediction)
	assert.NotEmpty(t, results[1].Error)
	assert.NotNil(t, results[2].Prediction)

	summary := models.Summarize(results)
	assert.Equal(t, 3, summary.TotalReadings)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
}

// TestPredictBatchCancellation 测试上下文取消时返回部分结果
func TestPredictBatchCancellation(t *testing.T) {
	det := newTestDetector(t)
	require.NoError(t, det.Train(AlgorithmIsolationForest, normalTrainingData(100), 0.1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	readings := []models.SensorReading{*normalReading("sensor_001"), *normalReading("sensor_002")}
	results, err := det.PredictBatch(ctx, readings)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

// TestSaveLoadRoundTrip 测试持久化往返后预测逐位一致
func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")

	det := newTestDetector(t)
	require.NoError(t, det.Train(AlgorithmOneClassSVM, normalTrainingData(300), 0.1))
	require.NoError(t, det.Save(path))

	before, err := det.Predict(anomalousReading("sensor_001"))
	require.NoError(t, err)

	restored := newTestDetector(t)
	require.NoError(t, restored.Load(path))

	after, err := restored.Predict(anomalousReading("sensor_001"))
	require.NoError(t, err)

	assert.Equal(t, before.AnomalyScore, after.AnomalyScore)
	assert.Equal(t, before.IsAnomaly, after.IsAnomaly)
	assert.Equal(t, before.Severity, after.Severity)

	info, err := restored.Info()
	require.NoError(t, err)
	assert.Equal(t, string(AlgorithmOneClassSVM), info.ModelType)
	assert.Equal(t, 300, info.NSamples)
}

// TestLoadCorruptBundle 测试损坏的持久化包被拒绝且不影响当前状态
func TestLoadCorruptBundle(t *testing.T) {
	dir := t.TempDir()
	det := newTestDetector(t)

	cases := map[string]string{
		"not_json.json":      "not json at all",
		"missing_model.json": `{"version":1,"algorithm":"lof","scaler":{"mean":[0],"scale":[1]},"info":{}}`,
		"bad_version.json":   `{"version":99,"algorithm":"lof","scaler":{"mean":[0],"scale":[1]},"model_state":{},"info":{}}`,
		"bad_algorithm.json": `{"version":1,"algorithm":"dbscan","scaler":{"mean":[0],"scale":[1]},"model_state":{},"info":{}}`,
	}
	for name, content := range cases {
		path := filepath.Join(dir, name)
		require.NoError(t, writeFile(path, content))

		err := det.Load(path)
		var corruptErr *CorruptStateError
		require.ErrorAs(t, err, &corruptErr, "case=%s", name)
		assert.False(t, det.Ready(), "case=%s 损坏的包不能激活检测器", name)
	}
}

// TestLoadInconsistentBundle 测试字段间不自洽的持久化包被拒绝
// 维度错配的缩放器、空树森林、无支持样本、长度错配的LOF状态都属于损坏包
func TestLoadInconsistentBundle(t *testing.T) {
	dir := t.TempDir()
	det := newTestDetector(t)

	cases := map[string]string{
		// 缩放器只有均值没有尺度，放行后首次评分会越界
		"scaler_mismatch.json": `{"version":1,"algorithm":"isolation_forest",` +
			`"scaler":{"mean":[0,0,0,0],"scale":[]},` +
			`"model_state":{"trees":[{"n":2}],"psi":2,"offset":-0.5},"info":{}}`,
		// 元信息特征数与缩放器维度不一致
		"feature_mismatch.json": `{"version":1,"algorithm":"isolation_forest",` +
			`"scaler":{"mean":[0,0],"scale":[1,1]},` +
			`"model_state":{"trees":[{"n":2}],"psi":2,"offset":-0.5},` +
			`"info":{"features":["temperature","pressure","humidity","vibration"]}}`,
		// 空树的隔离森林，放行后评分是除零得到的NaN
		"empty_trees.json": `{"version":1,"algorithm":"isolation_forest",` +
			`"scaler":{"mean":[0,0,0,0],"scale":[1,1,1,1]},` +
			`"model_state":{"trees":[],"psi":2,"offset":-0.5},"info":{}}`,
		// 没有支持样本的单类边界
		"empty_support.json": `{"version":1,"algorithm":"one_class_svm",` +
			`"scaler":{"mean":[0,0,0,0],"scale":[1,1,1,1]},` +
			`"model_state":{"nu":0.1,"gamma":0.25,"support":[],"offset":-1},"info":{}}`,
		// k距离数组与训练样本数不一致的LOF
		"lof_mismatch.json": `{"version":1,"algorithm":"lof",` +
			`"scaler":{"mean":[0,0,0,0],"scale":[1,1,1,1]},` +
			`"model_state":{"contamination":0.1,"k":2,` +
			`"samples":[[0,0,0,0],[1,1,1,1],[2,2,2,2]],"k_dist":[1],"lrd":[1,1,1],"offset":-1},"info":{}}`,
	}
	for name, content := range cases {
		path := filepath.Join(dir, name)
		require.NoError(t, writeFile(path, content))

		err := det.Load(path)
		var corruptErr *CorruptStateError
		require.ErrorAs(t, err, &corruptErr, "case=%s", name)
		assert.False(t, det.Ready(), "case=%s 不自洽的包不能激活检测器", name)
	}
}

// TestLoadCorruptBundlePreservesSnapshot 测试加载失败后当前快照继续正常服务
func TestLoadCorruptBundlePreservesSnapshot(t *testing.T) {
	det := newTestDetector(t)
	require.NoError(t, det.Train(AlgorithmIsolationForest, normalTrainingData(200), 0.1))

	before, err := det.Predict(normalReading("sensor_001"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, writeFile(path, `{"version":1,"algorithm":"isolation_forest",`+
		`"scaler":{"mean":[0,0,0,0],"scale":[]},`+
		`"model_state":{"trees":[],"psi":2,"offset":-0.5},"info":{}}`))

	var corruptErr *CorruptStateError
	require.ErrorAs(t, det.Load(path), &corruptErr)

	after, err := det.Predict(normalReading("sensor_001"))
	require.NoError(t, err)
	assert.Equal(t, before.AnomalyScore, after.AnomalyScore, "失败的加载不能影响旧模型")
	assert.False(t, math.IsNaN(after.AnomalyScore))
	assert.GreaterOrEqual(t, after.AnomalyScore, 0.0)
	assert.LessOrEqual(t, after.AnomalyScore, 1.0)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

// TestConcurrentPredictDuringTrain 测试训练期间并发评分不崩溃且结果自洽
func TestConcurrentPredictDuringTrain(t *testing.T) {
	det := newTestDetector(t)
	require.NoError(t, det.Train(AlgorithmIsolationForest, normalTrainingData(200), 0.1))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				result, err := det.Predict(normalReading("sensor_001"))
				if assert.NoError(t, err) {
					assert.GreaterOrEqual(t, result.AnomalyScore, 0.0)
					assert.LessOrEqual(t, result.AnomalyScore, 1.0)
				}
			}
		}()
	}

	for i := 0; i < 5; i++ {
		require.NoError(t, det.Train(AlgorithmIsolationForest, normalTrainingData(100), 0.1))
		time.Sleep(5 * time.Millisecond)
	}
	close(stop)
	wg.Wait()
}

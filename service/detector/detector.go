/*
 * @module service/detector/detector
 * @description 异常检测器编排核心，管理缩放器+模型+元信息的不可变快照，热路径无锁
 * @architecture 分层架构 - 领域核心层，快照原子替换
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 未就绪 -> 训练/加载 -> 快照原子替换 -> 并发评分；训练失败保留旧快照
 * @rules 缩放器与模型必须同代捆绑替换；评分期间读到的快照自洽；持久化采用临时文件+重命名
 * @dependencies sync/atomic, encoding/json, log/slog, os
 * @refs service/models, api/controllers/prediction_controller.go
 */

package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"anomalens-service/service/models"
)

// bundleVersion 持久化包格式版本
const bundleVersion = 1

// Snapshot 一代训练产物：缩放器、模型、元信息三者不可分离
type Snapshot struct {
	Scaler *ScalerState
	Model  ScoringModel
	Info   models.ModelInfo
}

// Detector 异常检测器
// 预测走无锁的快照读取，训练/加载由trainMu串行化后整体替换快照
type Detector struct {
	snapshot atomic.Pointer[Snapshot]
	trainMu  sync.Mutex

	classifier         *SeverityClassifier
	minTrainingSamples int
	featureNames       []string
}

// New 创建未就绪的检测器
func New(classifier *SeverityClassifier, minTrainingSamples int, featureNames []string) *Detector {
	return &Detector{
		classifier:         classifier,
		minTrainingSamples: minTrainingSamples,
		featureNames:       featureNames,
	}
}

// Ready 模型是否已训练或加载
func (d *Detector) Ready() bool {
	return d.snapshot.Load() != nil
}

// Info 返回当前模型元信息，未就绪时返回NotReadyError
func (d *Detector) Info() (models.ModelInfo, error) {
	snap := d.snapshot.Load()
	if snap == nil {
		return models.ModelInfo{}, &NotReadyError{}
	}
	return snap.Info, nil
}

// Train 用给定样本训练指定算法的模型
// 成功时原子替换快照；任一阶段失败时旧快照保持不动
func (d *Detector) Train(algorithm Algorithm, samples [][]float64, contamination float64) error {
	d.trainMu.Lock()
	defer d.trainMu.Unlock()

	start := time.Now()

	scaler, err := FitScaler(samples, d.minTrainingSamples)
	if err != nil {
		return err
	}

	model, err := newScoringModel(algorithm, contamination)
	if err != nil {
		return &TrainingError{Algorithm: string(algorithm), Reason: "构造评分模型失败", Err: err}
	}

	scaled := scaler.ApplyAll(samples)
	if err := model.Fit(scaled); err != nil {
		return &TrainingError{Algorithm: string(algorithm), Reason: "拟合失败", Err: err}
	}

	info := models.ModelInfo{
		ModelType:     string(algorithm),
		Version:       "1.0",
		TrainingDate:  time.Now().UTC(),
		Features:      append([]string(nil), d.featureNames...),
		Contamination: contamination,
		NSamples:      len(samples),
		Parameters:    model.Params(),
	}

	d.snapshot.Store(&Snapshot{Scaler: scaler, Model: model, Info: info})
	slog.Info("模型训练完成",
		"algorithm", algorithm,
		"n_samples", len(samples),
		"contamination", contamination,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Predict 对单条已校验读数评分
func (d *Detector) Predict(reading *models.SensorReading) (*models.PredictionResult, error) {
	snap := d.snapshot.Load()
	if snap == nil {
		return nil, &NotReadyError{}
	}
	if err := reading.Validate(); err != nil {
		return nil, err
	}

	scaled := snap.Scaler.Apply(reading.ToVector())
	raw := snap.Model.RawScore(scaled)
	score := normalizeScore(raw)
	severity, recommendations := d.classifier.Classify(score)

	return &models.PredictionResult{
		SensorID:        reading.SensorID,
		Timestamp:       reading.EffectiveTimestamp(),
		IsAnomaly:       snap.Model.IsAnomaly(scaled),
		AnomalyScore:    score,
		Confidence:      Confidence(score),
		Severity:        severity,
		Features:        reading.Features(),
		Recommendations: recommendations,
	}, nil
}

// PredictBatch 逐项评分，单项失败只影响自身；ctx取消时返回已完成的部分结果
func (d *Detector) PredictBatch(ctx context.Context, readings []models.SensorReading) ([]models.BatchItemResult, error) {
	if !d.Ready() {
		return nil, &NotReadyError{}
	}

	results := make([]models.BatchItemResult, 0, len(readings))
	for i := range readings {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		item := models.BatchItemResult{Index: i, SensorID: readings[i].SensorID}
		prediction, err := d.Predict(&readings[i])
		if err != nil {
			item.Error = err.Error()
		} else {
			item.Prediction = prediction
		}
		results = append(results, item)
	}
	return results, nil
}

// bundle 持久化包，缩放器、模型状态与元信息一体存取
type bundle struct {
	Version    int              `json:"version"`
	Algorithm  string           `json:"algorithm"`
	Scaler     *ScalerState     `json:"scaler"`
	ModelState json.RawMessage  `json:"model_state"`
	Info       models.ModelInfo `json:"info"`
}

// Save 将当前快照写入磁盘，临时文件+重命名保证原子性
func (d *Detector) Save(path string) error {
	snap := d.snapshot.Load()
	if snap == nil {
		return &NotReadyError{}
	}

	state, err := snap.Model.MarshalState()
	if err != nil {
		return fmt.Errorf("序列化模型状态失败: %w", err)
	}
	data, err := json.Marshal(bundle{
		Version:    bundleVersion,
		Algorithm:  snap.Info.ModelType,
		Scaler:     snap.Scaler,
		ModelState: state,
		Info:       snap.Info,
	})
	if err != nil {
		return fmt.Errorf("序列化持久化包失败: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建模型目录失败: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("重命名模型文件失败: %w", err)
	}

	slog.Info("模型已保存", "path", path, "algorithm", snap.Info.ModelType)
	return nil
}

// Load 从磁盘恢复快照，不完整或不一致的包返回CorruptStateError且不动当前快照
func (d *Detector) Load(path string) error {
	d.trainMu.Lock()
	defer d.trainMu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取模型文件失败: %w", err)
	}

	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return &CorruptStateError{Path: path, Reason: fmt.Sprintf("JSON解析失败: %v", err)}
	}
	if b.Version != bundleVersion {
		return &CorruptStateError{Path: path, Reason: fmt.Sprintf("不支持的包版本 %d", b.Version)}
	}
	if b.Scaler == nil || len(b.Scaler.Mean) == 0 {
		return &CorruptStateError{Path: path, Reason: "缺少缩放器状态"}
	}
	if len(b.Scaler.Mean) != len(b.Scaler.Scale) {
		return &CorruptStateError{Path: path, Reason: fmt.Sprintf(
			"缩放器维度不一致: mean=%d scale=%d", len(b.Scaler.Mean), len(b.Scaler.Scale))}
	}
	if len(b.Info.Features) > 0 && len(b.Info.Features) != len(b.Scaler.Mean) {
		return &CorruptStateError{Path: path, Reason: fmt.Sprintf(
			"缩放器维度与特征数不一致: scaler=%d features=%d", len(b.Scaler.Mean), len(b.Info.Features))}
	}
	if len(b.ModelState) == 0 {
		return &CorruptStateError{Path: path, Reason: "缺少模型状态"}
	}

	algorithm, err := ParseAlgorithm(b.Algorithm)
	if err != nil {
		return &CorruptStateError{Path: path, Reason: err.Error()}
	}
	model, err := newScoringModel(algorithm, b.Info.Contamination)
	if err != nil {
		return &CorruptStateError{Path: path, Reason: err.Error()}
	}
	if err := model.UnmarshalState(b.ModelState); err != nil {
		return &CorruptStateError{Path: path, Reason: fmt.Sprintf("模型状态解析失败: %v", err)}
	}

	d.snapshot.Store(&Snapshot{Scaler: b.Scaler, Model: model, Info: b.Info})
	slog.Info("模型已加载", "path", path, "algorithm", b.Algorithm, "n_samples", b.Info.NSamples)
	return nil
}

// normalizeScore 用logistic压缩把原生分映射到[0,1]
// 原生分越低越异常，映射后越大越异常
func normalizeScore(raw float64) float64 {
	return 1 / (1 + math.Exp(raw))
}

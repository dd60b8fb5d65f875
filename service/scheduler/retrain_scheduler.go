/*
 * @module service/scheduler/retrain_scheduler
 * @description 定时重训练调度器，按cron表达式生成新训练集重训模型并记录训练历史
 * @architecture 分层架构 - 业务服务层，后台任务
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow cron触发 -> 生成训练数据 -> 训练 -> 持久化 -> 记录TrainingRun
 * @rules 重训失败保留旧模型并记录失败原因；同一时刻最多一个重训任务在跑
 * @dependencies github.com/robfig/cron/v3, gorm.io/gorm, github.com/google/uuid
 * @refs service/detector/detector.go, service/mlops/data_generator.go
 */

package scheduler

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"anomalens-service/service/detector"
	"anomalens-service/service/mlops"
	"anomalens-service/service/models"
	"anomalens-service/service/monitoring"
)

// RetrainScheduler 定时重训练调度器
type RetrainScheduler struct {
	cron      *cron.Cron
	db        *gorm.DB
	detector  *detector.Detector
	generator *mlops.DataGenerator

	cronExpr      string
	algorithm     detector.Algorithm
	nSamples      int
	contamination float64
	modelPath     string

	running atomic.Bool
}

// NewRetrainScheduler 创建重训练调度器
func NewRetrainScheduler(db *gorm.DB, det *detector.Detector, generator *mlops.DataGenerator,
	cronExpr string, algorithm detector.Algorithm, nSamples int, contamination float64, modelPath string) *RetrainScheduler {
	return &RetrainScheduler{
		cron:          cron.New(cron.WithSeconds()),
		db:            db,
		detector:      det,
		generator:     generator,
		cronExpr:      cronExpr,
		algorithm:     algorithm,
		nSamples:      nSamples,
		contamination: contamination,
		modelPath:     modelPath,
	}
}

// Start 注册cron任务并启动调度
func (s *RetrainScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cronExpr, func() {
		if err := s.RunOnce("scheduler"); err != nil {
			slog.Error("定时重训练失败", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("注册重训练任务失败: %w", err)
	}
	s.cron.Start()
	slog.Info("重训练调度器已启动", "cron", s.cronExpr, "algorithm", s.algorithm)
	return nil
}

// Stop 停止调度，等待在跑的任务结束
func (s *RetrainScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("重训练调度器已停止")
}

// RunOnce 执行一次完整的重训练流水线
// triggeredBy标注触发来源，api或scheduler
func (s *RetrainScheduler) RunOnce(triggeredBy string) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("已有重训练任务在执行")
	}
	defer s.running.Store(false)

	start := time.Now()
	run := &models.TrainingRun{
		ID:            uuid.New().String(),
		Algorithm:     string(s.algorithm),
		NSamples:      s.nSamples,
		Contamination: s.contamination,
		TriggeredBy:   triggeredBy,
	}

	samples := s.generator.GenerateTrainingData(s.nSamples, s.contamination)
	err := s.detector.Train(s.algorithm, samples, s.contamination)
	if err == nil {
		err = s.detector.Save(s.modelPath)
	}

	run.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		monitoring.TrainingRunsTotal.WithLabelValues(triggeredBy, "failed").Inc()
	} else {
		run.Status = "success"
		monitoring.TrainingRunsTotal.WithLabelValues(triggeredBy, "success").Inc()
	}

	if dbErr := s.db.Create(run).Error; dbErr != nil {
		slog.Error("训练历史落库失败", "run_id", run.ID, "error", dbErr)
	}

	if err != nil {
		return fmt.Errorf("重训练流水线失败: %w", err)
	}
	slog.Info("重训练流水线完成",
		"run_id", run.ID,
		"algorithm", s.algorithm,
		"n_samples", s.nSamples,
		"duration_ms", run.DurationMs,
		"triggered_by", triggeredBy)
	return nil
}

// RecentRuns 查询最近的训练历史
func (s *RetrainScheduler) RecentRuns(limit int) ([]models.TrainingRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var runs []models.TrainingRun
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("查询训练历史失败: %w", err)
	}
	return runs, nil
}

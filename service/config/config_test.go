/*
 * @module service/config/config_test
 * @description 服务配置加载与校验单元测试
 * @architecture 测试层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 环境变量设置 -> 加载 -> 校验结果验证
 * @rules 非法配置必须在加载阶段被拒绝
 * @dependencies testing, stretchr/testify
 */

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadDefaults 测试缺省配置
func TestLoadDefaults(t *testing.T) {
	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "isolation_forest", settings.DefaultAlgorithm)
	assert.InDelta(t, 0.1, settings.DefaultContamination, 1e-9)
	assert.InDelta(t, 0.8, settings.CriticalThreshold, 1e-9)
	assert.InDelta(t, 0.6, settings.WarningThreshold, 1e-9)
	assert.Equal(t, 1000, settings.MaxBatchSize)
	assert.Equal(t, "warning", settings.AlertMinSeverity)
}

// TestLoadEnvOverride 测试环境变量覆盖
func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MODEL_ALGORITHM", "lof")
	t.Setenv("ALERT_THRESHOLD_CRITICAL", "0.9")
	t.Setenv("ALERT_THRESHOLD_WARNING", "0.7")
	t.Setenv("MAX_BATCH_SIZE", "200")

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "lof", settings.DefaultAlgorithm)
	assert.InDelta(t, 0.9, settings.CriticalThreshold, 1e-9)
	assert.InDelta(t, 0.7, settings.WarningThreshold, 1e-9)
	assert.Equal(t, 200, settings.MaxBatchSize)
}

// TestValidateRejectsBadThresholds 测试阈值序校验
func TestValidateRejectsBadThresholds(t *testing.T) {
	t.Setenv("ALERT_THRESHOLD_CRITICAL", "0.5")
	t.Setenv("ALERT_THRESHOLD_WARNING", "0.6")

	_, err := Load()
	assert.Error(t, err, "critical必须大于warning")
}

// TestValidateRejectsBadContamination 测试污染率区间校验
func TestValidateRejectsBadContamination(t *testing.T) {
	t.Setenv("DEFAULT_CONTAMINATION", "0.6")
	_, err := Load()
	assert.Error(t, err)
}

// TestValidateRejectsUnknownSeverity 测试告警级别枚举校验
func TestValidateRejectsUnknownSeverity(t *testing.T) {
	t.Setenv("ALERT_MIN_SEVERITY", "fatal")
	_, err := Load()
	assert.Error(t, err)
}

// TestValidateRejectsSmallMinSamples 测试最小训练样本数下限
func TestValidateRejectsSmallMinSamples(t *testing.T) {
	t.Setenv("MIN_TRAINING_SAMPLES", "5")
	_, err := Load()
	assert.Error(t, err)
}

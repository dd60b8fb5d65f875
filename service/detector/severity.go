/*
 * @module service/detector/severity
 * @description 严重级别分级器，按归一化异常分落入的阈值带输出级别与处置建议
 * @architecture 分层架构 - 领域核心层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 构造时校验阈值序 -> 分级纯函数 -> 建议列表按级别固定
 * @rules critical阈值必须严格大于warning阈值；建议列表内容与顺序固定不可变
 * @dependencies fmt, math
 * @refs service/detector/detector.go, service/alerting/alert_service.go
 */

package detector

import (
	"fmt"
	"math"
)

// 严重级别，三档封闭
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// SeverityRank 级别的序，用于告警最低级别门槛比较
func SeverityRank(severity string) int {
	switch severity {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// SeverityClassifier 按阈值带对归一化异常分分级
type SeverityClassifier struct {
	WarningThreshold  float64
	CriticalThreshold float64
}

// NewSeverityClassifier 构造分级器，阈值序不合法时拒绝
func NewSeverityClassifier(warning, critical float64) (*SeverityClassifier, error) {
	if warning <= 0 || warning >= 1 || critical <= 0 || critical >= 1 {
		return nil, fmt.Errorf("严重级别阈值必须落在(0,1)区间: warning=%g critical=%g", warning, critical)
	}
	if critical <= warning {
		return nil, fmt.Errorf("critical阈值(%g)必须严格大于warning阈值(%g)", critical, warning)
	}
	return &SeverityClassifier{WarningThreshold: warning, CriticalThreshold: critical}, nil
}

// Classify 返回异常分所属级别与对应的处置建议
func (c *SeverityClassifier) Classify(score float64) (string, []string) {
	switch {
	case score > c.CriticalThreshold:
		return SeverityCritical, []string{
			"Immediate investigation required",
			"Check sensor for faults",
			"Review recent sensor history",
		}
	case score > c.WarningThreshold:
		return SeverityWarning, []string{
			"Monitor sensor closely",
			"Check for environmental changes",
		}
	default:
		return SeverityInfo, []string{
			"Continue normal monitoring",
		}
	}
}

// Confidence 置信度 = min(score*1.5, 1.0)
func Confidence(score float64) float64 {
	return math.Min(score*1.5, 1.0)
}

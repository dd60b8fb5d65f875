/*
 * @module service/detector/errors
 * @description 检测器错误分类，校验、就绪、训练、持久化错误各自独立成类型
 * @architecture 分层架构 - 领域核心层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 错误产生 -> 类型化包装 -> 调用方按类型映射处理
 * @rules 评分链路上的错误不允许静默吞掉，训练失败必须保留旧模型
 * @dependencies fmt
 * @refs api/controllers/prediction_controller.go
 */

package detector

import "fmt"

// NotReadyError 模型尚未训练或加载时发起预测
type NotReadyError struct{}

func (e *NotReadyError) Error() string {
	return "模型未就绪: 请先训练或加载模型"
}

// InsufficientDataError 训练样本数不足
type InsufficientDataError struct {
	Got int
	Min int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("训练样本不足: 提供了%d条，至少需要%d条", e.Got, e.Min)
}

// TrainingError 训练失败，旧模型保持可用
type TrainingError struct {
	Algorithm string
	Reason    string
	Err       error
}

func (e *TrainingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("模型训练失败 [%s]: %s: %v", e.Algorithm, e.Reason, e.Err)
	}
	return fmt.Sprintf("模型训练失败 [%s]: %s", e.Algorithm, e.Reason)
}

func (e *TrainingError) Unwrap() error {
	return e.Err
}

// CorruptStateError 持久化包不完整或不一致
type CorruptStateError struct {
	Path   string
	Reason string
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("模型持久化包损坏 [%s]: %s", e.Path, e.Reason)
}

// Package xlog 基于 log/slog 的结构化日志库。
//
// # 创建 Logger
//
// 使用 Builder 模式（first-error-wins：遇到第一个配置错误后，后续 Set 操作被跳过）：
//
//	logger, cleanup, err := xlog.New().
//		SetLevel(xlog.LevelDebug).
//		SetFormat("json").
//		SetRotation("/var/log/app.log").
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// Build 返回的 cleanup 用于关闭轮转文件，可重复调用。
//
// # 接口
//
// [Logger] 的所有方法都要求 context.Context，且只接受 slog.Attr，
// 避免隐式 key-value 转换。[Leveler] 提供运行时级别调整，
// Build 返回二者的组合 [LoggerWithLevel]。派生 logger（With/WithGroup）
// 共享父级的 LevelVar，动态级别变更同步生效。
//
// # 日志级别
//
// LevelDebug(-4)、LevelInfo(0)、LevelWarn(4)、LevelError(8)。
// Level 实现 encoding.TextUnmarshaler，可直接从配置文件反序列化。
//
// # 便捷属性
//
// [Err]、[Duration]、[Component]、[Operation]、[Count]、[Key]。
package xlog

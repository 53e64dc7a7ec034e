// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展
//   - xrotate: 日志文件轮转
//
// 指标与链路追踪直接使用 OpenTelemetry API，由各组件通过
// WithMeterProvider/WithTracerProvider 注入，未注入时为空操作。
package observability

// Package xrun 提供基于 errgroup + context 的任务生命周期管理。
//
// # 概述
//
// xrun 基于 Go 官方扩展库 [errgroup] 构建，提供：
//   - 多任务并发运行和协调关闭（Group）
//   - 信号处理（Run/RunWithOptions）
//   - 周期任务与延迟任务（Ticker/Timer）
//
// 任一任务返回错误或收到终止信号时，context 被取消，
// 所有任务应监听 ctx.Done() 并退出。
//
// # 快速开始
//
//	g, ctx := xrun.NewGroup(ctx, xrun.WithName("demo"), xrun.WithLogger(logger))
//	g.GoWithName("cleaner", xrun.Ticker(time.Second, false, sweep))
//	g.GoWithName("delayed", xrun.Timer(10*time.Millisecond, work))
//	if err := g.Wait(); err != nil {
//	    return err
//	}
//
// 信号退出：
//
//	err := xrun.Run(ctx, myService)
//	var sigErr *xrun.SignalError
//	if errors.As(err, &sigErr) {
//	    log.Printf("received signal: %v", sigErr.Signal)
//	}
//
// # 错误处理
//
// Wait() 的规则：
//   - 任务返回非 context.Canceled 的错误时，直接返回该错误
//   - Group 被 Cancel(cause) 或信号取消时，返回 cause（如 *SignalError）
//   - Group 被普通取消（无 cause）时，返回 nil
//   - 任务内部产生的 context.Canceled（Group 未取消）原样返回
//
// # 设计决策
//
// 1. errgroup 单错误语义：Wait() 仅返回第一个非 nil 错误，
//    其他任务通过 context 取消得到通知。
//
// 2. 信号处理只在 Run/RunWithOptions 中注册，直接使用 NewGroup 时需自行管理。
//    Run 中任一 service 正常返回即结束整个运行，常驻的辅助 service（如配置监视）
//    无需调用方另行取消。
//    DefaultSignals() 返回新切片而非暴露全局变量。
//
// 3. 日志可选：未设置 WithLogger 时不输出任何日志。
//
// [errgroup]: https://pkg.go.dev/golang.org/x/sync/errgroup
package xrun

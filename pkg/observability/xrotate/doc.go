// Package xrotate 提供日志文件轮转能力。
//
// [Rotator] 是 io.WriteCloser 的超集，额外提供 Rotate 手动触发轮转，
// 可直接作为 xlog 的输出目标。默认实现基于 lumberjack，按文件大小轮转，
// 并按备份数量和保留天数清理旧文件。
//
//	r, err := xrotate.NewLumberjack("/var/log/app.log",
//		xrotate.WithMaxSize(100),
//		xrotate.WithMaxBackups(3),
//	)
package xrotate

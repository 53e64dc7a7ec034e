package xkeymutex

import "errors"

var (
	// ErrInvalidShardCount 表示分片数不是 2 的正整数幂或超过上限。
	ErrInvalidShardCount = errors.New("xkeymutex: invalid shard count")

	// ErrInvalidInterval 表示 Cleaner 间隔为负数。
	ErrInvalidInterval = errors.New("xkeymutex: invalid cleaner interval")
)

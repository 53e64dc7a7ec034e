package xconf

import "github.com/knadh/koanf/v2"

// Format 配置文件格式。
type Format string

// 支持的配置格式。
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 配置接口。
// 只提供增值功能，其余操作通过 Client() 返回的 koanf 实例完成。
type Config interface {
	// Client 返回当前的 koanf 实例（快照）。Reload 之后旧实例仍可用，但数据已过期。
	Client() *koanf.Koanf

	// Unmarshal 将 path 处的配置反序列化到 target，path 为空时反序列化整个配置。
	// 字符串形式的 time.Duration 与实现 encoding.TextUnmarshaler 的类型会被自动转换。
	Unmarshal(path string, target any) error

	// Reload 重新读取配置文件。解析失败时保留旧配置。
	// 从字节数据创建的 Config 返回 ErrNotReloadable。
	Reload() error

	// Path 返回配置文件路径，从字节数据创建时为空。
	Path() string

	// Format 返回配置格式。
	Format() Format
}

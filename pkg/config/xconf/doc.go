// Package xconf 提供基于 koanf 的配置加载、反序列化和热重载。
//
// # 设计理念
//
// xconf 定位为最小化配置加载器，只负责文件或字节数据的加载、
// 反序列化和热重载。默认值与校验由使用方在 Unmarshal 之后完成。
//
// # 支持的格式
//
//   - YAML：.yaml, .yml
//   - JSON：.json
//
// # 并发安全
//
// koanf 实例通过原子指针整体替换：
//   - Client()/Unmarshal() 无锁读取当前实例
//   - Reload() 串行执行，解析失败时保留旧配置
//
// Client() 返回的是快照，Reload() 后旧指针仍可使用但数据已过期。
//
// # Unmarshal
//
// 使用 koanf 默认的 mapstructure 配置：允许弱类型转换，
// 并自动把 "10s" 之类的字符串转换为 time.Duration，
// 把字符串交给实现了 encoding.TextUnmarshaler 的字段（如 xlog.Level）。
//
//	var cfg struct {
//	    Interval time.Duration `koanf:"cleaner_interval"`
//	}
//	err := conf.Unmarshal("keymutex", &cfg)
//
// # 配置监视
//
// 基于 fsnotify 监视配置文件所在目录，内置防抖，支持编辑器的原子写入。
// 回调在监视循环中串行执行，Stop() 返回后不再有回调。
package xconf

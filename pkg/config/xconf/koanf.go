package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// koanfConfig 是 Config 的 koanf 实现。
// k 通过原子指针整体替换，读操作无锁；reloadMu 串行化 Reload。
type koanfConfig struct {
	k        atomic.Pointer[koanf.Koanf]
	reloadMu sync.Mutex
	path     string
	format   Format
	opts     *options
}

// New 从文件创建配置，根据扩展名识别格式（.yaml/.yml/.json）。
func New(path string, opts ...Option) (Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}

	c := &koanfConfig{
		path:   filepath.Clean(path),
		format: format,
		opts:   applyOptions(opts),
	}
	k, err := c.load()
	if err != nil {
		return nil, err
	}
	c.k.Store(k)
	return c, nil
}

// NewFromBytes 从字节数据创建配置，需显式指定格式。
// 空数据得到空配置，Unmarshal 返回目标的零值。
func NewFromBytes(data []byte, format Format, opts ...Option) (Config, error) {
	if !isValidFormat(format) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	c := &koanfConfig{
		format: format,
		opts:   applyOptions(opts),
	}
	k := koanf.New(c.opts.delim)
	if len(data) > 0 {
		if err := loadData(k, data, format); err != nil {
			return nil, err
		}
	}
	c.k.Store(k)
	return c, nil
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (c *koanfConfig) Client() *koanf.Koanf {
	return c.k.Load()
}

func (c *koanfConfig) Unmarshal(path string, target any) error {
	if err := c.k.Load().UnmarshalWithConf(path, target, koanf.UnmarshalConf{
		Tag: c.opts.tag,
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

func (c *koanfConfig) Reload() error {
	if c.path == "" {
		return ErrNotReloadable
	}

	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	k, err := c.load()
	if err != nil {
		return err
	}
	c.k.Store(k)
	return nil
}

func (c *koanfConfig) Path() string {
	return c.path
}

func (c *koanfConfig) Format() Format {
	return c.format
}

// Watch 监视配置文件变更，见包级函数 Watch。
func (c *koanfConfig) Watch(callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	return Watch(c, callback, opts...)
}

func (c *koanfConfig) load() (*koanf.Koanf, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	k := koanf.New(c.opts.delim)
	if err := loadData(k, data, c.format); err != nil {
		return nil, err
	}
	return k, nil
}

func detectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %q", ErrUnsupportedFormat, ext)
	}
}

func isValidFormat(format Format) bool {
	return format == FormatYAML || format == FormatJSON
}

func loadData(k *koanf.Koanf, data []byte, format Format) error {
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return ErrUnsupportedFormat
	}

	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return nil
}

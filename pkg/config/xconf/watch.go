package xconf

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchCallback 配置变更回调。err 非 nil 表示重载失败或监视出错，此时 cfg 仍是旧配置。
type WatchCallback func(cfg Config, err error)

type watcherState int

const (
	watcherIdle watcherState = iota
	watcherRunning
	watcherStopped
)

// Watcher 配置文件监视器，文件变更时自动 Reload 并回调。
//
// 回调在监视循环的 goroutine 中串行执行。Stop 返回后不会再有回调。
// 不要在回调中调用 Stop，否则会等待自身退出而死锁。
type Watcher struct {
	cfg      *koanfConfig
	fs       *fsnotify.Watcher
	callback WatchCallback
	debounce time.Duration

	mu    sync.Mutex
	state watcherState
	stop  chan struct{}
	done  chan struct{}
}

// Watch 为从文件创建的 Config 创建监视器。创建后需调用 Start 或 StartAsync。
//
// 监视的是配置文件所在目录而非文件本身：编辑器保存时常先删除再创建，
// 直接监视文件会丢失后续事件。
//
//	w, err := xconf.Watch(cfg, func(c xconf.Config, err error) {
//	    if err != nil {
//	        logger.Warn(ctx, "config reload failed", xlog.Err(err))
//	        return
//	    }
//	    apply(c)
//	})
//	if err != nil {
//	    return err
//	}
//	w.StartAsync()
//	defer w.Stop()
func Watch(cfg Config, callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	kc, ok := cfg.(*koanfConfig)
	if !ok {
		return nil, fmt.Errorf("xconf: unsupported config type %T", cfg)
	}
	if kc.path == "" {
		return nil, ErrNotReloadable
	}

	o := defaultWatchOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xconf: failed to create watcher: %w", err)
	}
	dir := filepath.Dir(kc.path)
	if err := fsw.Add(dir); err != nil {
		return nil, errors.Join(
			fmt.Errorf("xconf: failed to watch directory %s: %w", dir, err),
			fsw.Close(),
		)
	}

	return &Watcher{
		cfg:      kc,
		fs:       fsw,
		callback: callback,
		debounce: o.debounce,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start 在当前 goroutine 中运行监视循环，直到 Stop。
// 已启动或已停止时立即返回。
func (w *Watcher) Start() {
	if w.transition() {
		w.run()
	}
}

// StartAsync 在后台 goroutine 中运行监视循环。
func (w *Watcher) StartAsync() {
	if w.transition() {
		go w.run()
	}
}

func (w *Watcher) transition() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != watcherIdle {
		return false
	}
	w.state = watcherRunning
	return true
}

// Stop 停止监视并等待监视循环退出。幂等。
func (w *Watcher) Stop() error {
	w.mu.Lock()
	prev := w.state
	if prev == watcherStopped {
		w.mu.Unlock()
		return nil
	}
	w.state = watcherStopped
	w.mu.Unlock()

	close(w.stop)
	if prev == watcherRunning {
		<-w.done
	}
	return w.fs.Close()
}

func (w *Watcher) run() {
	defer close(w.done)

	filename := filepath.Base(w.cfg.path)
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !relevant(event, filename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			err := w.cfg.Reload()
			w.notify(err)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.notify(fmt.Errorf("xconf: watch error: %w", err))
		}
	}
}

// relevant 报告事件是否可能表示目标文件内容已更新。
// Rename 对应 vim/emacs 先写临时文件再改名的原子写入。
func relevant(event fsnotify.Event, filename string) bool {
	if filepath.Base(event.Name) != filename {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (w *Watcher) notify(err error) {
	if w.callback != nil {
		w.callback(w.cfg, err)
	}
}

// Package watcher observes the template store directory and reports edits
// so cached fragments for changed templates can be invalidated and preview
// clients reloaded.
package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/scriptlet/internal/logging"
)

// ChangeEvent is one observed template change.
type ChangeEvent struct {
	// Template is the template name derived from the changed path.
	Template string
	// Removed is true when the template file was deleted or renamed away.
	Removed bool
}

// ChangeHandler receives debounced change events.
type ChangeHandler func(event ChangeEvent)

// Namer maps a changed file path to a template name; it returns "" for
// paths that are not templates. The directory store provides this.
type Namer interface {
	NameFromPath(path string) string
}

// StoreWatcher watches one store directory with debouncing, so editor
// write bursts collapse into a single event per template.
type StoreWatcher struct {
	fsw      *fsnotify.Watcher
	namer    Namer
	logger   logging.Logger
	debounce time.Duration

	mu       sync.Mutex
	handlers []ChangeHandler
	pending  map[string]*pendingChange
}

type pendingChange struct {
	timer   *time.Timer
	removed bool
}

// New creates a watcher over the store directory.
func New(dir string, namer Namer, logger logging.Logger, debounce time.Duration) (*StoreWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &StoreWatcher{
		fsw:      fsw,
		namer:    namer,
		logger:   logger,
		debounce: debounce,
		pending:  make(map[string]*pendingChange),
	}, nil
}

// OnChange registers a handler. Handlers run on the watcher goroutine and
// must not block.
func (w *StoreWatcher) OnChange(h ChangeHandler) {
	w.mu.Lock()
	w.handlers = append(w.handlers, h)
	w.mu.Unlock()
}

// Run processes events until ctx is done.
func (w *StoreWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, err, "watch error")
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *StoreWatcher) Close() error {
	return w.fsw.Close()
}

func (w *StoreWatcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	name := w.namer.NameFromPath(ev.Name)
	if name == "" {
		return
	}
	removed := ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename)
	if !removed && !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[name]; ok {
		p.removed = p.removed || removed
		p.timer.Reset(w.debounce)
		return
	}
	p := &pendingChange{removed: removed}
	p.timer = time.AfterFunc(w.debounce, func() {
		w.fire(ctx, name)
	})
	w.pending[name] = p
}

func (w *StoreWatcher) fire(ctx context.Context, name string) {
	w.mu.Lock()
	p, ok := w.pending[name]
	if !ok {
		w.mu.Unlock()
		return
	}
	delete(w.pending, name)
	handlers := make([]ChangeHandler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	event := ChangeEvent{Template: name, Removed: p.removed}
	w.logger.Debug(ctx, "template changed", "template", name, "removed", p.removed)
	for _, h := range handlers {
		h(event)
	}
}

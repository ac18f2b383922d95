// Package watch reports edits to a domain directory's Lua files so the
// REPL front ends can reload the domain without restarting.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a burst of writes is collected before a change
// is reported.
const DefaultDebounce = 250 * time.Millisecond

// Watcher emits the sorted names of Lua files that changed in one directory.
type Watcher struct {
	dir      string
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger
	changes  chan []string
}

// New creates a watcher for dir. Nothing is watched until Start.
func New(dir string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:      dir,
		fsw:      fsw,
		debounce: debounce,
		logger:   logger,
		changes:  make(chan []string, 1),
	}, nil
}

// Changes returns the channel of change batches. It is closed when the
// watcher stops.
func (w *Watcher) Changes() <-chan []string {
	return w.changes
}

// Start begins watching. It returns once the directory watch is in place.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fsw.Add(w.dir); err != nil {
		return err
	}
	go w.run(ctx)
	w.logger.Info("watching domain", "dir", w.dir, "debounce", w.debounce)
	return nil
}

// Close stops the watcher. The changes channel is closed by run on exit.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.changes)

	pending := map[string]bool{}
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !isDomainFile(event) {
				continue
			}
			w.logger.Debug("domain file changed", "file", event.Name, "op", event.Op.String())
			pending[filepath.Base(event.Name)] = true
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("domain watch error", "error", err)

		case <-timer.C:
			w.flush(pending)
			pending = map[string]bool{}
		}
	}
}

// flush reports pending names. A batch still unread by the consumer is
// merged with the new one, so no edit is lost and the send never blocks.
func (w *Watcher) flush(pending map[string]bool) {
	if len(pending) == 0 {
		return
	}
	select {
	case prev := <-w.changes:
		for _, name := range prev {
			pending[name] = true
		}
	default:
	}

	names := make([]string, 0, len(pending))
	for name := range pending {
		names = append(names, name)
	}
	sort.Strings(names)
	w.changes <- names
}

func isDomainFile(event fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(event.Name), ".lua") {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

package kvlog

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch notifies onChange whenever another process appends to the log
// file underlying l, so a read replica can reload without polling. It is
// best-effort: if the watcher cannot be established, Watch logs and
// returns a no-op stop function rather than failing the caller.
func (l *Log[T, PT]) Watch(onChange func()) (stop func()) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("kvlog: fsnotify unavailable, watch disabled", "path", l.path, "err", err)
		return func() {}
	}
	if err := w.Add(l.path); err != nil {
		slog.Warn("kvlog: cannot watch path", "path", l.path, "err", err)
		w.Close()
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					onChange()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("kvlog: watch error", "path", l.path, "err", err)
			case <-done:
				return
			}
		}
	}()
	return func() {
		close(done)
		w.Close()
	}
}

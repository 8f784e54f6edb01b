package signals

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"voicetype/internal/domain"
)

// Event describes a kind being raised or cleared.
type Event struct {
	Kind    domain.SignalKind
	Present bool
	At      time.Time
}

// Watch streams changes to the channel directory until ctx is done.
// Temporary files created while raising a kind are not reported.
func (c *Channel) Watch(ctx context.Context) (<-chan Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(c.dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", c.dir, err)
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				out, ok := translate(ev)
				if !ok {
					continue
				}
				select {
				case events <- out:
				case <-ctx.Done():
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return events, nil
}

func translate(ev fsnotify.Event) (Event, bool) {
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") {
		return Event{}, false
	}
	kind, ok := KindForFile(name)
	if !ok {
		return Event{}, false
	}

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		return Event{Kind: kind, Present: true, At: time.Now()}, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return Event{Kind: kind, Present: false, At: time.Now()}, true
	default:
		return Event{}, false
	}
}

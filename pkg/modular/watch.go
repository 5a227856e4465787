// SPDX-License-Identifier: MPL-2.0

package modular

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/daylightnebula/modular/internal/watch"
)

// ErrNothingToWatch is returned by Watch when no classpath entry is on disk.
var ErrNothingToWatch = errors.New("no watchable classpath entries")

// WatchConfig configures Registry.Watch.
type WatchConfig struct {
	// Debounce is the quiet period before a reload. Zero uses the watcher
	// default.
	Debounce time.Duration
	// OnReload, if set, receives each snapshot published by the watcher.
	OnReload func(*Snapshot)
}

// Watch reloads the registry whenever fragments change on disk, until ctx is
// cancelled. Directory entries are watched recursively for changes below
// their modular/ tree; archive entries are watched through their parent
// directory. Watch initializes the registry if needed.
func (r *Registry) Watch(ctx context.Context, cfg WatchConfig) error {
	snap := r.Snapshot()

	var watchers []*watch.Watcher
	onChange := func(context.Context, []string) error {
		if err := r.Reload(); err != nil {
			return err
		}
		if cfg.OnReload != nil {
			cfg.OnReload(r.Snapshot())
		}
		return nil
	}

	for _, entry := range snap.Entries() {
		info, err := os.Stat(entry)
		if err != nil {
			continue
		}
		wc := watch.Config{
			Debounce: cfg.Debounce,
			OnChange: onChange,
			Logger:   r.log(),
		}
		if info.IsDir() {
			wc.BaseDir = entry
			wc.Recursive = true
			wc.Patterns = []string{"modular/**"}
		} else {
			wc.BaseDir = filepath.Dir(entry)
			wc.Patterns = []string{filepath.Base(entry)}
		}

		w, err := watch.New(wc)
		if err != nil {
			for _, started := range watchers {
				_ = started.Close()
			}
			return err
		}
		watchers = append(watchers, w)
	}
	if len(watchers) == 0 {
		return ErrNothingToWatch
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range watchers {
		r.log().Debug("watching classpath entry", "dir", w.BaseDir())
		g.Go(func() error { return w.Run(gctx) })
	}
	return g.Wait()
}

// Package watch re-runs the analysis when project files change, keeping one
// long-lived process instead of manual re-scans during an edit session.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/cordlesssteve/topolop/internal/report"
)

const defaultDebounce = 2 * time.Second

// skipDirs are trees that churn constantly but never change analysis results
// directly; tools pick up their effects through lockfiles at the root.
var skipDirs = map[string]bool{
	".git":         true,
	".topolop":     true,
	"node_modules": true,
	"target":       true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
}

type Options struct {
	Root     string
	Debounce time.Duration
	Logger   *zap.SugaredLogger
	// OnChange runs after each quiet period with the changed paths, relative
	// to the root. It executes on the watch goroutine; a slow rescan simply
	// delays the next batch.
	OnChange func(ctx context.Context, paths []string)
}

type Watcher struct {
	root     string
	debounce time.Duration
	log      *zap.SugaredLogger
	onChange func(ctx context.Context, paths []string)
	fw       *fsnotify.Watcher
}

// New registers watches for root and every non-ignored directory below it.
func New(opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:     opts.Root,
		debounce: opts.Debounce,
		log:      opts.Logger,
		onChange: opts.OnChange,
		fw:       fw,
	}
	if err := w.addTree(opts.Root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// addTree walks dir and watches every directory that is not ignored. Walk
// errors on single entries are skipped so one unreadable directory does not
// kill the watch.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != dir && (skipDirs[name] || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		if err := w.fw.Add(path); err != nil {
			w.log.Warnw("watch add failed", "dir", path, "error", err)
		}
		return nil
	})
}

// Run blocks until ctx is cancelled, invoking OnChange after each debounced
// batch of events. Cancellation is a clean stop, not an error.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fw.Close()

	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if w.ignored(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					w.watchIfDir(ev.Name)
				}
			}
			rel, err := filepath.Rel(w.root, ev.Name)
			if err != nil {
				rel = ev.Name
			}
			pending[filepath.ToSlash(rel)] = struct{}{}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnw("watch error", "error", err)

		case <-fire:
			fire = nil
			timer = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]struct{})
			w.log.Debugw("changes settled", "count", len(paths))
			if w.onChange != nil {
				w.onChange(ctx, paths)
			}
		}
	}
}

func (w *Watcher) watchIfDir(path string) {
	if err := w.addTree(path); err != nil {
		w.log.Warnw("watch add failed", "dir", path, "error", err)
	}
}

// ignored filters events from skip trees, hidden directories, and our own
// report output, which would otherwise re-trigger the scan that wrote it.
func (w *Watcher) ignored(path string) bool {
	if filepath.Base(path) == report.ResultsFileName {
		return true
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if skipDirs[seg] {
			return true
		}
		if seg != "." && seg != ".." && strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

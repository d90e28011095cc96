package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 100 * time.Millisecond

// fileEvent reports a settled change to one watched file, or a watcher error.
type fileEvent struct {
	Path string
	Err  error
}

// fileWatcher watches a set of files through their parent directories, so
// editors that save by renaming a temp file over the original are still
// noticed. Bursts of events for the same file are debounced into one.
type fileWatcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer

	updates chan fileEvent
	done    chan struct{}
	once    sync.Once
}

func watchFiles(paths []string, debounce time.Duration) (*fileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	fw := &fileWatcher{
		watcher:  w,
		files:    make(map[string]bool, len(paths)),
		debounce: debounce,
		timers:   make(map[string]*time.Timer),
		updates:  make(chan fileEvent, len(paths)+1),
		done:     make(chan struct{}),
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		fw.files[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	go fw.process()
	return fw, nil
}

// Updates delivers settled changes until Close.
func (fw *fileWatcher) Updates() <-chan fileEvent { return fw.updates }

func (fw *fileWatcher) Close() error {
	var err error
	fw.once.Do(func() {
		close(fw.done)
		err = fw.watcher.Close()
		fw.mu.Lock()
		for _, t := range fw.timers {
			t.Stop()
		}
		fw.mu.Unlock()
	})
	return err
}

func (fw *fileWatcher) send(ev fileEvent) {
	select {
	case fw.updates <- ev:
	case <-fw.done:
	}
}

func (fw *fileWatcher) debounceUpdate(path string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if t, ok := fw.timers[path]; ok {
		t.Stop()
	}
	fw.timers[path] = time.AfterFunc(fw.debounce, func() {
		fw.send(fileEvent{Path: path})
	})
}

func (fw *fileWatcher) process() {
	for {
		select {
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.send(fileEvent{Err: err})
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !fw.files[filepath.Clean(ev.Name)] {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				fw.debounceUpdate(filepath.Clean(ev.Name))
			}
		}
	}
}

// watch imports every input once, then re-imports an input each time its file
// changes, until ctx is done. Failures are logged and never end the loop.
func (imp *importer) watch(ctx context.Context) error {
	byPath := make(map[string]string, len(imp.cfg.Inputs))
	for _, in := range imp.cfg.Inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return newUsageError(fmt.Sprintf("import: resolve %q: %v", in, err))
		}
		byPath[abs] = in
	}

	fw, err := watchFiles(imp.cfg.Inputs, defaultDebounce)
	if err != nil {
		return newUsageError(fmt.Sprintf("import: cannot watch inputs: %v", err))
	}
	defer fw.Close()

	for _, in := range imp.cfg.Inputs {
		imp.reimport(ctx, in)
	}
	imp.log.Info("watching for changes", "inputs", len(imp.cfg.Inputs))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-fw.Updates():
			if ev.Err != nil {
				imp.log.Warn("watcher error", "error", ev.Err)
				continue
			}
			in, ok := byPath[ev.Path]
			if !ok {
				continue
			}
			imp.log.Debug("input changed", "input", in)
			imp.reimport(ctx, in)
		}
	}
}

func (imp *importer) reimport(ctx context.Context, input string) {
	res, err := imp.importOne(ctx, input)
	switch {
	case errors.Is(err, errSkipped):
	case err != nil:
		imp.log.Error("import failed", "input", input, "error", err)
	case imp.cfg.DryRun:
		printPlan(filepath.Dir(res.Path), res.Planned)
	}
}

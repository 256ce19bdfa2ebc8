package render

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/penwyp/tracevis/internal/core/model"
	"github.com/penwyp/tracevis/internal/data/scanner"
	"github.com/penwyp/tracevis/internal/presentation/formatter"
	"github.com/penwyp/tracevis/internal/util"
)

// FileWatcher reports changes to table files under a path.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	root    string
	single  bool
	match   *scanner.FileScanner
	events  chan model.FileEvent
	done    chan struct{}
	once    sync.Once
}

// NewFileWatcher watches path. For a file the parent directory is watched so
// editors that replace the file atomically are still seen.
func NewFileWatcher(path string) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &FileWatcher{
		watcher: watcher,
		root:    abs,
		single:  !info.IsDir(),
		match:   scanner.NewFileScanner(abs),
		events:  make(chan model.FileEvent, 100),
		done:    make(chan struct{}),
	}

	if fw.single {
		err = watcher.Add(filepath.Dir(abs))
	} else {
		err = fw.addTree(abs)
	}
	if err != nil {
		watcher.Close()
		return nil, err
	}

	go fw.processEvents()
	return fw, nil
}

func (fw *FileWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return fw.watcher.Add(p)
		}
		return nil
	})
}

func (fw *FileWatcher) relevant(name string) bool {
	if fw.single {
		return filepath.Clean(name) == fw.root
	}
	return fw.match.Matches(name)
}

func (fw *FileWatcher) processEvents() {
	defer close(fw.events)
	for {
		select {
		case <-fw.done:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !fw.single && event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = fw.addTree(event.Name)
					continue
				}
			}
			if !fw.relevant(event.Name) || (event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write)) {
				continue
			}
			select {
			case fw.events <- model.FileEvent{Path: event.Name, Operation: event.Op.String()}:
			case <-fw.done:
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			util.LogError("File monitoring error: " + err.Error())
		}
	}
}

func (fw *FileWatcher) Events() <-chan model.FileEvent {
	return fw.events
}

func (fw *FileWatcher) Close() error {
	var err error
	fw.once.Do(func() {
		close(fw.done)
		err = fw.watcher.Close()
	})
	return err
}

// ReportFunc receives the outcome of every render in watch mode.
type ReportFunc func(reports []*formatter.Report, err error)

// Watch renders once, then re-renders whenever a watched table's content
// changes, until ctx is cancelled. Events are debounced and a render only
// happens when the file fingerprint differs from the last rendered one.
func (o *Orchestrator) Watch(ctx context.Context, onReport ReportFunc) error {
	fw, err := NewFileWatcher(o.config.Input)
	if err != nil {
		return err
	}
	defer fw.Close()

	seen := make(map[string]string)
	render := func() {
		reports, err := o.Run(ctx)
		onReport(reports, err)
	}
	remember := func(path string) bool {
		fp, err := util.CalculateFileFingerprint(path)
		if err != nil {
			util.LogDebugf("Fingerprint unavailable for %s: %v", path, err)
			return false
		}
		changed := seen[path] != fp
		seen[path] = fp
		return changed
	}

	for _, path := range o.watchedFiles() {
		remember(path)
	}
	render()
	util.LogInfof("Watching %s for changes", o.config.Input)

	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-fw.Events():
			if !ok {
				return nil
			}
			util.LogDebugf("Input event: %s %s", ev.Operation, ev.Path)
			pending[ev.Path] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(o.config.Debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(o.config.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for path := range pending {
				if remember(path) {
					changed = append(changed, path)
				}
			}
			pending = make(map[string]struct{})
			if len(changed) == 0 {
				util.LogDebug("Input events without content change, skipping render")
				continue
			}
			sort.Strings(changed)
			util.LogInfof("Input changed: %s, re-rendering", strings.Join(changed, ", "))
			render()
		}
	}
}

func (o *Orchestrator) watchedFiles() []string {
	abs, err := filepath.Abs(o.config.Input)
	if err != nil {
		return nil
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil
	}
	if !info.IsDir() {
		return []string{abs}
	}
	files, _ := scanner.NewFileScanner(abs).Scan()
	return files
}

package vfs

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// DiskWatch mirrors out-of-band edits under a directory (an operator editing
// agents/*.md directly in $EDITOR) into a VFS as ordinary writes, so every
// downstream subscriber (registry, event log) sees them the same way it
// sees a tool-driven write.
type DiskWatch struct {
	root    string
	target  VFS
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	done    chan struct{}
}

// NewDiskWatch starts watching root and every directory below it that
// exists at startup, and mirrors changes into target. Directories created
// later are not added to the watch.
func NewDiskWatch(root string, target VFS, logger *slog.Logger) (*DiskWatch, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dw := &DiskWatch{
		root:    root,
		target:  target,
		watcher: w,
		logger:  logger,
		done:    make(chan struct{}),
	}

	if err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	}); err != nil {
		w.Close()
		return nil, err
	}

	go dw.loop()
	return dw, nil
}

func (dw *DiskWatch) loop() {
	for {
		select {
		case ev, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			dw.handle(ev)
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			dw.logger.Warn("vfs disk watch error", "error", err)
		case <-dw.done:
			return
		}
	}
}

func (dw *DiskWatch) handle(ev fsnotify.Event) {
	rel, err := filepath.Rel(dw.root, ev.Name)
	if err != nil {
		return
	}
	vpath := Normalize(strings.ReplaceAll(rel, string(filepath.Separator), "/"))

	switch {
	case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
		data, err := os.ReadFile(ev.Name)
		if err != nil {
			dw.logger.Warn("vfs disk watch read failed", "path", ev.Name, "error", err)
			return
		}
		if err := dw.target.Write(vpath, string(data), "disk"); err != nil {
			dw.logger.Warn("vfs disk watch mirror write failed", "path", vpath, "error", err)
		}
	case ev.Op&fsnotify.Remove != 0:
		if err := dw.target.Delete(vpath); err != nil {
			dw.logger.Warn("vfs disk watch mirror delete failed", "path", vpath, "error", err)
		}
	}
}

// Close stops the watcher goroutine.
func (dw *DiskWatch) Close() error {
	close(dw.done)
	return dw.watcher.Close()
}

// Package reload watches the content tree for changes, classifies them
// by asset kind and fans them out to per-kind handlers. The watch
// goroutine owns the filesystem events; the simulation thread drains
// them through PollEvents at frame boundaries.
package reload

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lixenwraith/ember/asset"
	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/parameter"
	"github.com/lixenwraith/ember/status"
)

// Op classifies one observed filesystem change.
type Op int

const (
	OpCreated Op = iota
	OpModified
	OpDeleted
	OpDirectoryCreated
	OpDirectoryDeleted
)

func (o Op) String() string {
	switch o {
	case OpCreated:
		return "created"
	case OpModified:
		return "modified"
	case OpDeleted:
		return "deleted"
	case OpDirectoryCreated:
		return "directory-created"
	case OpDirectoryDeleted:
		return "directory-deleted"
	}
	return "unknown"
}

// Event is one observed change, classified by kind.
type Event struct {
	Op   Op
	Path string
	Kind asset.Kind
}

// Handler reacts to a change of its registered kind.
type Handler func(ev Event) error

// Coordinator owns the watcher goroutine and the bounded hand-off
// queue between it and the simulation thread.
type Coordinator struct {
	root    string
	watcher *fsnotify.Watcher
	metrics *status.Registry

	mu       sync.Mutex
	queue    []Event
	handlers map[asset.Kind]Handler
	lastSeen map[string]time.Time

	// watched holds every directory under watch; removals are
	// classified against it since the path itself is already gone
	watched map[string]bool

	stop    chan struct{}
	stopped chan struct{}
}

// NewCoordinator builds a coordinator watching root and every
// directory beneath it.
func NewCoordinator(root string, metrics *status.Registry) (*Coordinator, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &core.FileSystemError{Path: root, Err: err}
	}

	c := &Coordinator{
		root:     root,
		watcher:  watcher,
		metrics:  metrics,
		handlers: make(map[asset.Kind]Handler),
		lastSeen: make(map[string]time.Time),
		watched:  make(map[string]bool),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	if err := c.watchTree(root); err != nil {
		watcher.Close()
		return nil, err
	}

	core.Go(c.run)
	return c, nil
}

// RegisterHandler routes events of the given kind to handler. One
// handler per kind; re-registering replaces.
func (c *Coordinator) RegisterHandler(kind asset.Kind, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[kind] = handler
}

// PollEvents drains the queue: every buffered event is returned once,
// in observation order.
func (c *Coordinator) PollEvents() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.queue
	c.queue = nil
	return out
}

// TriggerReload routes one change to the handler registered for its
// kind. Kinds without a handler are ignored.
func (c *Coordinator) TriggerReload(path string, kind asset.Kind) error {
	c.mu.Lock()
	handler := c.handlers[kind]
	c.mu.Unlock()
	if handler == nil {
		return nil
	}
	return handler(Event{Op: OpModified, Path: path, Kind: kind})
}

// Dispatch drains the queue and routes each event to its handler.
// Handler errors are logged and counted; the drain continues.
func (c *Coordinator) Dispatch() {
	for _, ev := range c.PollEvents() {
		c.mu.Lock()
		handler := c.handlers[ev.Kind]
		c.mu.Unlock()
		if handler == nil {
			continue
		}
		if err := handler(ev); err != nil {
			log.Printf("reload %s %s: %v", ev.Op, ev.Path, err)
			c.count("reload.handler_errors", 1)
		}
	}
}

// Close stops the watch goroutine and the underlying watcher.
func (c *Coordinator) Close() error {
	close(c.stop)
	err := c.watcher.Close()
	select {
	case <-c.stopped:
	case <-time.After(parameter.WatcherStopTimeout):
		log.Printf("reload: watcher stop timed out")
	}
	return err
}

// watchTree registers root and all subdirectories.
func (c *Coordinator) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &core.FileSystemError{Path: path, Err: err}
		}
		if d.IsDir() {
			if werr := c.watcher.Add(path); werr != nil {
				return &core.FileSystemError{Path: path, Err: werr}
			}
			c.rememberDir(path)
		}
		return nil
	})
}

func (c *Coordinator) rememberDir(path string) {
	c.mu.Lock()
	c.watched[path] = true
	c.mu.Unlock()
}

// forgetDir reports whether path was a watched directory, dropping it.
func (c *Coordinator) forgetDir(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watched[path] {
		delete(c.watched, path)
		return true
	}
	return false
}

// run is the watch goroutine: classify, debounce, enqueue.
func (c *Coordinator) run() {
	defer close(c.stopped)
	for {
		select {
		case <-c.stop:
			return
		case fsEv, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			c.observe(fsEv)
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("reload: watcher: %v", err)
			c.count("reload.watcher_errors", 1)
		}
	}
}

func (c *Coordinator) observe(fsEv fsnotify.Event) {
	op, isDir := c.classify(fsEv)
	if op < 0 {
		return
	}

	// New directories join the watch so nested changes are seen
	if op == OpDirectoryCreated {
		if err := c.watcher.Add(fsEv.Name); err != nil {
			log.Printf("reload: watch %s: %v", fsEv.Name, err)
		}
		c.rememberDir(fsEv.Name)
	}

	rel, err := filepath.Rel(c.root, fsEv.Name)
	if err != nil {
		rel = fsEv.Name
	}

	ev := Event{Op: op, Path: rel}
	if !isDir {
		ev.Kind, _ = asset.KindFromPath(rel)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Editors fire bursts of writes for one save; coalesce them
	if op == OpModified {
		if last, ok := c.lastSeen[rel]; ok && time.Since(last) < parameter.ReloadDebounce {
			return
		}
		c.lastSeen[rel] = time.Now()
	}

	if len(c.queue) >= parameter.ReloadQueueSize {
		c.count("reload.dropped_events", 1)
		return
	}
	c.queue = append(c.queue, ev)
}

// classify maps an fsnotify op onto the engine's event vocabulary.
// Returns a negative op for events the coordinator ignores.
func (c *Coordinator) classify(fsEv fsnotify.Event) (Op, bool) {
	isDir := false
	if info, err := os.Stat(fsEv.Name); err == nil {
		isDir = info.IsDir()
	}

	switch {
	case fsEv.Op.Has(fsnotify.Create):
		if isDir {
			return OpDirectoryCreated, true
		}
		return OpCreated, false
	case fsEv.Op.Has(fsnotify.Write):
		return OpModified, isDir
	case fsEv.Op.Has(fsnotify.Remove), fsEv.Op.Has(fsnotify.Rename):
		// The path is gone; directory-ness comes from the watch set
		if c.forgetDir(fsEv.Name) {
			return OpDirectoryDeleted, true
		}
		return OpDeleted, false
	default:
		return Op(-1), isDir
	}
}

func (c *Coordinator) count(key string, delta int64) {
	if c.metrics != nil {
		c.metrics.Ints.Get(key).Add(delta)
	}
}

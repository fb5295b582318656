package dircache

import (
	"io"
	iofs "io/fs"
	"path/filepath"
	"sort"
	"syscall"
	"testing"
	"time"

	"github.com/justyntemme/filer/internal/diritem"
	"github.com/justyntemme/filer/internal/loop"
)

// fakeFS is an in-memory Filesystem. Entries are templates copied on every
// Restat so each stat yields a fresh snapshot.
type fakeFS struct {
	dirs    map[string]map[string]*diritem.Item
	statErr map[string]error
	readErr map[string]error

	reads    []string // Paths passed to ReadNames, in order
	restats  map[string]int
	refreshs int
}

func newFakeFS() *fakeFS {
	return &fakeFS{
		dirs:    make(map[string]map[string]*diritem.Item),
		statErr: make(map[string]error),
		readErr: make(map[string]error),
		restats: make(map[string]int),
	}
}

var fakeEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func (f *fakeFS) mkdir(dir string) {
	if f.dirs[dir] == nil {
		f.dirs[dir] = make(map[string]*diritem.Item)
	}
}

func (f *fakeFS) put(dir, name string, size int64) {
	f.mkdir(dir)
	f.dirs[dir][name] = &diritem.Item{
		Name:     name,
		Type:     diritem.TypeRegular,
		Size:     size,
		Mode:     0o644,
		Atime:    fakeEpoch,
		Ctime:    fakeEpoch,
		Mtime:    fakeEpoch,
		MimeType: "text/plain",
		Icon:     "text-plain",
	}
}

func (f *fakeFS) touch(dir, name string) {
	it := f.dirs[dir][name]
	it.Size++
	it.Mtime = it.Mtime.Add(time.Second)
}

func (f *fakeFS) remove(dir, name string) {
	delete(f.dirs[dir], name)
}

func (f *fakeFS) rename(from, to string) {
	f.dirs[to] = f.dirs[from]
	delete(f.dirs, from)
}

func (f *fakeFS) names(dir string) []string {
	var names []string
	for n := range f.dirs[dir] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (f *fakeFS) readCount(dir string) int {
	n := 0
	for _, p := range f.reads {
		if p == dir {
			n++
		}
	}
	return n
}

func (f *fakeFS) StatDir(path string) (diritem.DirInfo, error) {
	if err := f.statErr[path]; err != nil {
		return diritem.DirInfo{}, err
	}
	if f.dirs[path] == nil {
		return diritem.DirInfo{}, &iofs.PathError{Op: "stat", Path: path, Err: syscall.ENOENT}
	}
	return diritem.DirInfo{Dev: 1, Mode: iofs.ModeDir | 0o755, ModTime: fakeEpoch}, nil
}

func (f *fakeFS) ReadNames(path string) ([]string, error) {
	f.reads = append(f.reads, path)
	if err := f.readErr[path]; err != nil {
		return nil, err
	}
	if f.dirs[path] == nil {
		return nil, &iofs.PathError{Op: "open", Path: path, Err: syscall.ENOENT}
	}
	return f.names(path), nil
}

func (f *fakeFS) Restat(path, leaf string, parent diritem.DirInfo) *diritem.Item {
	f.restats[path]++
	tmpl := f.dirs[filepath.Dir(path)][leaf]
	if tmpl == nil {
		return diritem.Failed(leaf, &iofs.PathError{Op: "lstat", Path: path, Err: syscall.ENOENT})
	}
	it := *tmpl
	return &it
}

func (f *fakeFS) RefreshMounts() { f.refreshs++ }

// fakeWatcher records subscriptions and lets tests fire change callbacks.
type fakeWatcher struct {
	active       map[string][]*fakeWatch
	subscribed   []string
	unsubscribed []string
	fail         error
}

type fakeWatch struct {
	w      *fakeWatcher
	path   string
	fn     func()
	closed bool
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{active: make(map[string][]*fakeWatch)}
}

func (w *fakeWatcher) Watch(path string, onChange func()) (io.Closer, error) {
	if w.fail != nil {
		return nil, w.fail
	}
	fw := &fakeWatch{w: w, path: path, fn: onChange}
	w.active[path] = append(w.active[path], fw)
	w.subscribed = append(w.subscribed, path)
	return fw, nil
}

func (w *fakeWatcher) fire(path string) {
	for _, fw := range append([]*fakeWatch(nil), w.active[path]...) {
		fw.fn()
	}
}

func (w *fakeWatcher) count() int {
	n := 0
	for _, l := range w.active {
		n += len(l)
	}
	return n
}

func (fw *fakeWatch) Close() error {
	if fw.closed {
		return nil
	}
	fw.closed = true
	list := fw.w.active[fw.path]
	for i, x := range list {
		if x == fw {
			fw.w.active[fw.path] = append(list[:i], list[i+1:]...)
			break
		}
	}
	fw.w.unsubscribed = append(fw.w.unsubscribed, fw.path)
	return nil
}

type recorded struct {
	kind  Event
	names []string
}

// recorder is a Listener that logs every event and queues the entries it
// is interested in.
type recorder struct {
	events   []recorded
	interest func(*diritem.Item) bool
	onEvent  func(d *Directory, kind Event, items []*diritem.Item)

	// Model of what a view would show, built from events
	shown map[string]*diritem.Item
}

func newRecorder() *recorder {
	return &recorder{shown: make(map[string]*diritem.Item)}
}

func (r *recorder) DirChanged(d *Directory, kind Event, items []*diritem.Item) {
	r.events = append(r.events, recorded{kind: kind, names: diritem.Names(items)})

	switch kind {
	case EventAdd, EventUpdate:
		for _, it := range items {
			r.shown[it.Name] = it
		}
	case EventRemove:
		for _, it := range items {
			delete(r.shown, it.Name)
		}
	case EventQueueInteresting:
		d.QueueRecheckFunc(func(it *diritem.Item) bool {
			return r.interest == nil || r.interest(it)
		})
	}

	if r.onEvent != nil {
		r.onEvent(d, kind, items)
	}
}

func (r *recorder) of(kind Event) []recorded {
	var out []recorded
	for _, e := range r.events {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) kinds() []Event {
	out := make([]Event, len(r.events))
	for i, e := range r.events {
		out[i] = e.kind
	}
	return out
}

func (r *recorder) shownNames() []string {
	var names []string
	for n := range r.shown {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *recorder) reset() { r.events = nil }

type testEnv struct {
	cache *Cache
	fs    *fakeFS
	w     *fakeWatcher
	sched *loop.Manual
}

func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()
	env := &testEnv{fs: newFakeFS(), w: newFakeWatcher(), sched: loop.NewManual()}
	opts := Options{Scheduler: env.sched, FS: env.fs, Watcher: env.w}
	for _, m := range mutate {
		m(&opts)
	}
	env.cache = New(opts)
	t.Cleanup(env.cache.Close)
	return env
}

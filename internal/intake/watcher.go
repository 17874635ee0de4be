// Package intake submits audio files dropped into a watched inbox folder.
package intake

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/snarg/mallok/internal/audio"
	"github.com/snarg/mallok/internal/task"
)

// Submitter queues a spooled file for processing.
type Submitter interface {
	Submit(userID string, ct task.ContentType, lang task.Language, audioPath string) (string, error)
}

// Spool takes ownership of inbox files.
type Spool interface {
	Adopt(src, ext string) (string, error)
}

// Options configures a Watcher.
type Options struct {
	Dir       string
	User      string
	Debounce  time.Duration
	Retry     time.Duration
	Submitter Submitter
	Spool     Spool
	Log       zerolog.Logger
}

// Status is the watcher summary reported by the health endpoint.
type Status struct {
	Status         string `json:"status"`
	WatchDir       string `json:"watch_dir"`
	FilesSubmitted int64  `json:"files_submitted"`
	FilesSkipped   int64  `json:"files_skipped"`
}

// Watcher monitors INBOX_DIR. Files directly under it are submitted as Korean
// sermons; files under <lang>/<type>/ use those values.
type Watcher struct {
	opts Options
	log  zerolog.Logger

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Debounce: coalesce rapid Create+Write events on the same file.
	// Files handed back after a refused submit are held until their retry.
	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer
	held           map[string]*time.Timer

	filesSubmitted atomic.Int64
	filesSkipped   atomic.Int64
	status         atomic.Value // string: "starting", "backfilling", "watching", "stopped"
}

func NewWatcher(opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.Retry <= 0 {
		opts.Retry = 30 * time.Second
	}
	w := &Watcher{
		opts:           opts,
		log:            opts.Log,
		done:           make(chan struct{}),
		debounceTimers: make(map[string]*time.Timer),
		held:           make(map[string]*time.Timer),
	}
	w.status.Store("starting")
	return w
}

// Start watches the inbox tree and submits files already present.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.opts.Dir, 0o755); err != nil {
		return err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fsw

	dirCount := 0
	err = filepath.WalkDir(w.opts.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.log.Warn().Err(err).Str("path", path).Msg("error walking directory")
			return nil
		}
		if d.IsDir() {
			if addErr := fsw.Add(path); addErr != nil {
				w.log.Warn().Err(addErr).Str("path", path).Msg("failed to watch directory")
			} else {
				dirCount++
			}
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return err
	}

	w.log.Info().
		Int("directories", dirCount).
		Str("watch_dir", w.opts.Dir).
		Msg("inbox watcher initialized")

	w.wg.Add(2)
	go w.watchLoop()
	go w.backfill()
	return nil
}

// Stop closes the fsnotify watcher and cancels pending debounced files.
func (w *Watcher) Stop() {
	w.status.Store("stopped")
	w.stopOnce.Do(func() { close(w.done) })
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.wg.Wait()

	w.debounceMu.Lock()
	for path, t := range w.debounceTimers {
		t.Stop()
		delete(w.debounceTimers, path)
	}
	for path, t := range w.held {
		t.Stop()
		delete(w.held, path)
	}
	w.debounceMu.Unlock()

	w.log.Info().
		Int64("files_submitted", w.filesSubmitted.Load()).
		Int64("files_skipped", w.filesSkipped.Load()).
		Msg("inbox watcher stopped")
}

// Status returns the current watcher status for the health endpoint.
func (w *Watcher) Status() Status {
	s, _ := w.status.Load().(string)
	return Status{
		Status:         s,
		WatchDir:       w.opts.Dir,
		FilesSubmitted: w.filesSubmitted.Load(),
		FilesSkipped:   w.filesSkipped.Load(),
	}
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			// New directory: add it so <lang>/<type>/ folders created later are seen.
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := w.watcher.Add(event.Name); err != nil {
					w.log.Warn().Err(err).Str("path", event.Name).Msg("failed to watch new directory")
				}
				continue
			}
			w.scheduleProcess(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// scheduleProcess debounces file processing so the file is fully written
// before it is moved.
func (w *Watcher) scheduleProcess(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if _, ok := w.held[path]; ok {
		return
	}
	if t, ok := w.debounceTimers[path]; ok {
		t.Reset(w.opts.Debounce)
		return
	}

	w.debounceTimers[path] = time.AfterFunc(w.opts.Debounce, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, path)
		w.debounceMu.Unlock()

		w.process(path)
	})
}

// process moves one inbox file into the spool and submits it. When the queue
// refuses it, the file is put back and retried after opts.Retry.
func (w *Watcher) process(path string) {
	select {
	case <-w.done:
		return
	default:
	}

	ct, lang, ok := Classify(w.opts.Dir, path)
	if !ok {
		w.filesSkipped.Add(1)
		w.log.Debug().Str("path", path).Msg("ignoring inbox file")
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}

	spooled, err := w.opts.Spool.Adopt(path, audio.SpoolExt(path))
	if err != nil {
		w.log.Warn().Err(err).Str("path", path).Msg("failed to spool inbox file")
		return
	}

	id, err := w.opts.Submitter.Submit(w.opts.User, ct, lang, spooled)
	if err != nil {
		w.log.Warn().Err(err).Str("path", path).Msg("inbox submit failed, returning file")
		w.hold(path)
		if rerr := os.Rename(spooled, path); rerr != nil {
			w.log.Error().Err(rerr).Str("spooled", spooled).Msg("failed to return file to inbox")
		}
		return
	}

	w.filesSubmitted.Add(1)
	w.log.Info().
		Str("task_id", id).
		Str("file", filepath.Base(path)).
		Str("type", string(ct)).
		Str("lang", string(lang)).
		Msg("inbox file submitted")
}

func (w *Watcher) hold(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()
	if _, ok := w.held[path]; ok {
		return
	}
	w.held[path] = time.AfterFunc(w.opts.Retry, func() {
		w.debounceMu.Lock()
		delete(w.held, path)
		w.debounceMu.Unlock()

		w.process(path)
	})
}

// backfill submits files that were already in the inbox at startup, oldest first.
func (w *Watcher) backfill() {
	defer w.wg.Done()
	w.status.Store("backfilling")

	type fileEntry struct {
		path    string
		modTime time.Time
	}
	var files []fileEntry
	_ = filepath.WalkDir(w.opts.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if _, _, ok := Classify(w.opts.Dir, path); !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, fileEntry{path: path, modTime: info.ModTime()})
		return nil
	})
	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	for _, f := range files {
		select {
		case <-w.done:
			return
		default:
		}
		w.process(f.path)
	}

	w.status.Store("watching")
	if len(files) > 0 {
		w.log.Info().Int("files", len(files)).Msg("inbox backfill complete")
	}
}

// Classify maps an inbox path to the task parameters it implies. Hidden
// files, unsupported extensions and paths outside the layout are rejected.
func Classify(root, path string) (task.ContentType, task.Language, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", "", false
	}
	base := filepath.Base(rel)
	if strings.HasPrefix(base, ".") || !audio.AllowedExt(filepath.Ext(base)) {
		return "", "", false
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	switch len(parts) {
	case 1:
		return task.Sermon, task.Korean, true
	case 3:
		lang, err := task.ParseLanguage(parts[0])
		if err != nil {
			return "", "", false
		}
		ct, err := task.ParseContentType(parts[1])
		if err != nil {
			return "", "", false
		}
		return ct, lang, true
	default:
		return "", "", false
	}
}

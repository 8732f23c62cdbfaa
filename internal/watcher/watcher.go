// Package watcher tails Claude Code transcript directories and feeds
// new user prompts into the provenance engine. It is the capture path
// for setups that cannot install hooks; running it alongside the
// user-prompt-submit hook would double-record prompts.
package watcher

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/trailhead/internal/provenance"
	"github.com/thebtf/trailhead/internal/transcript"
)

// Watcher monitors a transcript root (one subdirectory per project) for
// JSONL growth. Files existing at startup are ingested from their
// current end, so only prompts submitted while the watcher runs are
// captured.
type Watcher struct {
	rootDir  string
	engine   *provenance.Engine
	watcher  *fsnotify.Watcher
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	running  bool
	offsets  map[string]int64
	timers   map[string]*time.Timer
	debounce time.Duration
}

// New creates a Watcher over a transcript root directory.
func New(rootDir string, engine *provenance.Engine) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		rootDir:  rootDir,
		engine:   engine,
		watcher:  fsw,
		ctx:      ctx,
		cancel:   cancel,
		offsets:  make(map[string]int64),
		timers:   make(map[string]*time.Timer),
		debounce: 250 * time.Millisecond,
	}, nil
}

// Start seeds offsets for existing transcripts and begins watching.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.rootDir); err != nil {
		return err
	}

	entries, err := os.ReadDir(w.rootDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			w.addProjectDir(filepath.Join(w.rootDir, entry.Name()))
		}
	}

	go w.watchLoop()
	log.Info().Str("dir", w.rootDir).Msg("Watching transcripts")
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	w.cancel()
	for _, t := range w.timers {
		t.Stop()
	}
	return w.watcher.Close()
}

// addProjectDir watches one project subdirectory and seeds offsets so
// pre-existing transcript content is not replayed.
func (w *Watcher) addProjectDir(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("Failed to watch project directory")
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if info, err := entry.Info(); err == nil {
			w.offsets[path] = info.Size()
		}
	}
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			// New project directory; nothing in it is pre-existing.
			if err := w.watcher.Add(path); err != nil {
				log.Warn().Err(err).Str("dir", path).Msg("Failed to watch project directory")
			}
			return
		}
	}

	if !strings.HasSuffix(path, ".jsonl") {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	// Debounce per file: transcripts grow in bursts while Claude streams.
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.ingest(path)
	})
}

// ingest reads the transcript from the last known offset and records
// every new user prompt.
func (w *Watcher) ingest(path string) {
	w.mu.Lock()
	offset := w.offsets[path]
	delete(w.timers, path)
	w.mu.Unlock()

	f, err := os.Open(path) // #nosec G304 -- path comes from the watched directory
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to open transcript")
		return
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Size() < offset {
		// Truncated or rewritten; start over.
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to seek transcript")
		return
	}

	reader := bufio.NewReaderSize(f, 64*1024)

	// Advance the offset only past newline-terminated lines: a partial
	// final line is the writer mid-append, and counting it would make
	// the next ingest resume inside that entry.
	consumed := offset
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				log.Warn().Err(err).Str("path", path).Msg("Failed to read transcript")
			}
			break
		}
		consumed += int64(len(line))
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		prompt, ok := transcript.ParseLine([]byte(trimmed))
		if !ok {
			continue
		}
		w.record(prompt)
	}

	w.mu.Lock()
	w.offsets[path] = consumed
	w.mu.Unlock()
}

func (w *Watcher) record(prompt transcript.UserPrompt) {
	cwd := prompt.CWD
	if cwd == "" {
		log.Debug().Str("session", prompt.SessionID).Msg("Transcript entry has no cwd; skipping")
		return
	}
	ts := prompt.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	result, err := w.engine.RecordPrompt(w.ctx, prompt.SessionID, cwd, prompt.Text, ts)
	if err != nil {
		log.Warn().Err(err).Str("session", prompt.SessionID).Msg("Failed to record prompt")
		return
	}
	log.Debug().
		Str("prompt", result.PromptID).
		Str("session", result.SessionID).
		Str("repo", result.RepoKey).
		Msg("Recorded prompt from transcript")
}

package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/rexliu/nanoframe/pkg/config"
)

// Logger wraps slog with a level that can change at runtime and an output
// that can gain a log file after startup. stdout is reserved for the RPC
// stream, so nothing here ever writes to it.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
	sink  *sink
}

// New returns a logger writing to stderr. Terminals get text, anything else JSON.
func New(component string) *Logger {
	return newLogger(os.Stderr, isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()), component)
}

func newLogger(w io.Writer, text bool, component string) *Logger {
	level := new(slog.LevelVar)
	out := &sink{w: w}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if text {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	base := slog.New(handler)
	if component != "" {
		base = base.With("component", component)
	}
	return &Logger{Logger: base, level: level, sink: out}
}

// Configure applies logging settings from config.
func (l *Logger) Configure(cfg config.LoggingConfig) error {
	if l == nil || l.Logger == nil {
		return nil
	}
	if err := l.SetLevel(cfg.Level); err != nil {
		return err
	}
	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o700); err != nil {
			return err
		}
		writer, err := newRollingFile(cfg.FilePath, cfg.FileMaxSize)
		if err != nil {
			return err
		}
		l.sink.add(writer)
	}
	return nil
}

// SetLevel changes the minimum level of every logger derived from l.
func (l *Logger) SetLevel(name string) error {
	lvl, err := config.ParseLevel(name)
	if err != nil {
		return err
	}
	l.level.Set(lvl)
	return nil
}

// Level reports the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	return l.sink.close()
}

// sink fans writes out to stderr plus optional files.
type sink struct {
	mu    sync.Mutex
	w     io.Writer
	files []*rollingFile
}

func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.w.Write(p)
	for _, f := range s.files {
		if _, ferr := f.Write(p); ferr != nil && err == nil {
			err = ferr
		}
	}
	return n, err
}

func (s *sink) add(f *rollingFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, f)
}

func (s *sink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	for _, f := range s.files {
		if err := f.file.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.files = nil
	return first
}

type rollingFile struct {
	path string
	max  int
	file *os.File
}

func newRollingFile(path string, maxMB int) (*rollingFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	return &rollingFile{path: path, max: maxMB, file: f}, nil
}

// Write rotates to path.1 once the file would exceed max megabytes.
func (r *rollingFile) Write(p []byte) (int, error) {
	if r.max > 0 {
		if info, err := r.file.Stat(); err == nil && info.Size()+int64(len(p)) > int64(r.max)*1024*1024 {
			r.file.Close()
			os.Rename(r.path, r.path+".1")
			newFile, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return 0, err
			}
			r.file = newFile
		}
	}
	return r.file.Write(p)
}

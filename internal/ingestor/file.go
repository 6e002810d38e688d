package ingestor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/fsnotify/fsnotify"

	"github.com/GabrielNunesIT/cls-shipper/internal/config"
	"github.com/GabrielNunesIT/cls-shipper/internal/model"
)

// MetaFile holds the path an entry was read from.
const MetaFile = "file"

// FileIngestor tails files matching the configured globs and emits one entry
// per appended line. Each entry carries its path in Metadata[MetaFile].
type FileIngestor struct {
	cfg    config.InputConfig
	name   string
	logger logger.ILogger

	// offsets is only touched by the Start goroutine.
	offsets map[string]int64
}

// NewFileIngestor creates a new file tailing ingestor.
func NewFileIngestor(cfg config.InputConfig, log logger.ILogger) *FileIngestor {
	return &FileIngestor{
		cfg:     cfg,
		name:    "file",
		logger:  log.SubLogger("FileIngestor"),
		offsets: make(map[string]int64),
	}
}

// Name returns the ingestor identifier.
func (f *FileIngestor) Name() string {
	return f.name
}

// Start begins watching and tailing files, sending entries to the output channel.
func (f *FileIngestor) Start(ctx context.Context, out chan<- *model.LogEntry) error {
	defer close(out)

	files, err := f.expand()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files matched patterns: %v", f.cfg.Files)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	dirs := make(map[string]struct{})
	for _, file := range files {
		if err := watcher.Add(file); err != nil {
			return fmt.Errorf("watching file %q: %w", file, err)
		}
		dirs[filepath.Dir(file)] = struct{}{}

		if f.cfg.FromStart {
			f.offsets[file] = 0
			if err := f.readNewLines(ctx, file, out); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				f.logger.Warningf("initial read failed: file=%s, error=%v", file, err)
			}
			continue
		}
		// Tail from the current end
		if info, err := os.Stat(file); err == nil {
			f.offsets[file] = info.Size()
		}
	}

	// Watch directories so rotated files are picked up
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			f.logger.Debugf("cannot watch directory: dir=%s, error=%v", dir, err)
		}
	}

	f.logger.Infof("tailing %d files", len(files))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// Rotation: a matching file was (re)created
			if event.Has(fsnotify.Create) && f.matchesPatterns(event.Name) && !f.isExcluded(event.Name) {
				f.offsets[event.Name] = 0
				if err := watcher.Add(event.Name); err != nil {
					f.logger.Warningf("cannot watch new file: file=%s, error=%v", event.Name, err)
				}
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if _, tracked := f.offsets[event.Name]; !tracked {
					continue
				}
				if err := f.readNewLines(ctx, event.Name, out); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					f.logger.Warningf("read failed: file=%s, error=%v", event.Name, err)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warningf("file watcher error: %v", err)
		}
	}
}

// expand resolves the configured globs into the files to tail.
func (f *FileIngestor) expand() ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range f.cfg.Files {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup || f.isExcluded(m) {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	return files, nil
}

// readNewLines sends the lines appended to path since its recorded offset.
// Only complete lines are consumed; a trailing partial line waits for the
// next write.
func (f *FileIngestor) readNewLines(ctx context.Context, path string, out chan<- *model.LogEntry) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	pos := f.offsets[path]
	info, err := file.Stat()
	if err != nil {
		return err
	}
	if info.Size() < pos {
		pos = 0 // Truncated, read from the beginning
	}
	if _, err := file.Seek(pos, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		raw, n, cut, err := readLine(reader)
		if errors.Is(err, io.EOF) {
			break // partial line stays unread
		}
		if err != nil {
			f.offsets[path] = pos
			return err
		}
		pos += int64(n)

		if len(raw) == 0 {
			continue
		}

		entry := model.NewLogEntry(f.name, raw)
		entry.Metadata[MetaFile] = path
		if cut {
			entry.Metadata[MetaTruncated] = "true"
		}

		select {
		case out <- entry:
		case <-ctx.Done():
			f.offsets[path] = pos
			return ctx.Err()
		}
	}

	f.offsets[path] = pos
	return nil
}

func trimEOL(line []byte) []byte {
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
	}
	if n > 0 && line[n-1] == '\r' {
		n--
	}
	return line[:n]
}

// isExcluded checks if a file matches any exclude pattern.
func (f *FileIngestor) isExcluded(file string) bool {
	for _, pattern := range f.cfg.Exclude {
		matched, _ := filepath.Match(pattern, filepath.Base(file))
		if matched {
			return true
		}
	}
	return false
}

// matchesPatterns checks if a file matches any configured path pattern.
func (f *FileIngestor) matchesPatterns(file string) bool {
	for _, pattern := range f.cfg.Files {
		if matched, _ := filepath.Match(pattern, file); matched {
			return true
		}
	}
	return false
}

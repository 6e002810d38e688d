package ingestor

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/cls-shipper/internal/config"
	"github.com/GabrielNunesIT/cls-shipper/internal/model"
	"github.com/GabrielNunesIT/cls-shipper/internal/testutil"
)

func appendLine(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(text)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func receive(t *testing.T, out <-chan *model.LogEntry) *model.LogEntry {
	t.Helper()
	select {
	case entry := <-out:
		return entry
	case <-time.After(2 * time.Second): // File system events can be slow
		t.Fatal("timeout waiting for log entry")
		return nil
	}
}

func TestFileIngestor(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "app.log")
	appendLine(t, logFile, "line 1\n")

	cfg := config.InputConfig{Files: []string{filepath.Join(tmpDir, "*.log")}}

	ingestor := NewFileIngestor(cfg, testutil.NewTestLogger())
	out := make(chan *model.LogEntry, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = ingestor.Start(ctx, out)
	}()

	// Tails from the end, so "line 1" is skipped
	time.Sleep(100 * time.Millisecond)
	appendLine(t, logFile, "line 2\n")

	entry := receive(t, out)
	assert.Equal(t, "line 2", string(entry.Raw))
	assert.Equal(t, logFile, entry.Metadata[MetaFile])
	assert.Equal(t, "file", entry.Source)

	// Rotation: move away and recreate
	require.NoError(t, os.Rename(logFile, logFile+".1"))
	appendLine(t, logFile, "line 3\n")

	entry = receive(t, out)
	assert.Equal(t, "line 3", string(entry.Raw))
}

func TestFileIngestor_FromStart(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "app.log")
	appendLine(t, logFile, "first\r\n\nsecond\npartial")

	cfg := config.InputConfig{Files: []string{logFile}, FromStart: true}
	ingestor := NewFileIngestor(cfg, testutil.NewTestLogger())
	out := make(chan *model.LogEntry, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = ingestor.Start(ctx, out)
	}()

	assert.Equal(t, "first", string(receive(t, out).Raw))
	assert.Equal(t, "second", string(receive(t, out).Raw))

	// The partial line is completed by a later write
	time.Sleep(100 * time.Millisecond)
	appendLine(t, logFile, " line\n")
	assert.Equal(t, "partial line", string(receive(t, out).Raw))
}

func TestFileIngestor_LineTooLong(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "app.log")
	long := strings.Repeat("x", MaxLineSize+10)
	appendLine(t, logFile, long+"\nnext\n")

	cfg := config.InputConfig{Files: []string{logFile}, FromStart: true}
	ingestor := NewFileIngestor(cfg, testutil.NewTestLogger())
	out := make(chan *model.LogEntry, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = ingestor.Start(ctx, out)
	}()

	entry := receive(t, out)
	assert.Len(t, entry.Raw, MaxLineSize)
	assert.Equal(t, "true", entry.Metadata[MetaTruncated])

	entry = receive(t, out)
	assert.Equal(t, "next", string(entry.Raw))
	assert.NotContains(t, entry.Metadata, MetaTruncated)
}

func TestReadLine(t *testing.T) {
	exact := strings.Repeat("a", MaxLineSize)
	tests := []struct {
		name      string
		input     string
		want      string
		n         int
		truncated bool
		err       error
	}{
		{"lf", "hello\nrest", "hello", 6, false, nil},
		{"crlf", "hello\r\n", "hello", 7, false, nil},
		{"unterminated", "tail", "tail", 4, false, io.EOF},
		{"exact length", exact + "\r\n", exact, MaxLineSize + 2, false, nil},
		{"one over", exact + "b\n", exact, MaxLineSize + 2, true, nil},
		{"far over", exact + strings.Repeat("b", 200000) + "\n", exact, MaxLineSize + 200001, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReaderSize(strings.NewReader(tt.input), 64*1024)
			line, n, truncated, err := readLine(r)
			assert.Equal(t, tt.err, err)
			assert.Equal(t, tt.want, string(line))
			assert.Equal(t, tt.n, n)
			assert.Equal(t, tt.truncated, truncated)
		})
	}
}

func TestFileIngestor_NoMatches(t *testing.T) {
	cfg := config.InputConfig{Files: []string{filepath.Join(t.TempDir(), "*.log")}}
	ingestor := NewFileIngestor(cfg, testutil.NewTestLogger())

	out := make(chan *model.LogEntry)
	err := ingestor.Start(context.Background(), out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files matched")

	_, open := <-out
	assert.False(t, open, "output channel must be closed")
}

func TestFileIngestor_Exclude(t *testing.T) {
	tmpDir := t.TempDir()
	appendLine(t, filepath.Join(tmpDir, "test.log"), "")
	appendLine(t, filepath.Join(tmpDir, "test.exclude.log"), "")

	cfg := config.InputConfig{
		Files:   []string{filepath.Join(tmpDir, "*.log")},
		Exclude: []string{"*.exclude.log"},
	}

	ingestor := NewFileIngestor(cfg, testutil.NewTestLogger())

	assert.True(t, ingestor.isExcluded(filepath.Join(tmpDir, "test.exclude.log")))
	assert.False(t, ingestor.isExcluded(filepath.Join(tmpDir, "test.log")))

	files, err := ingestor.expand()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(tmpDir, "test.log")}, files)
}

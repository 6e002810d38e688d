package ingestor

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"

	"github.com/GabrielNunesIT/go-libs/logger"

	"github.com/GabrielNunesIT/cls-shipper/internal/model"
)

// MaxLineSize is the longest line an ingestor ships. Longer lines are cut
// and flagged with MetaTruncated.
const MaxLineSize = 1024 * 1024

// MetaTruncated is set to "true" on entries cut to MaxLineSize.
const MetaTruncated = "truncated"

// StdinIngestor reads log entries from standard input until EOF.
type StdinIngestor struct {
	name   string
	reader io.Reader // Allows injection for testing
	logger logger.ILogger
}

// NewStdinIngestor creates a new stdin ingestor.
func NewStdinIngestor(log logger.ILogger) *StdinIngestor {
	return NewStdinIngestorWithReader(os.Stdin, log)
}

// NewStdinIngestorWithReader creates a stdin ingestor with a custom reader (for testing).
func NewStdinIngestorWithReader(reader io.Reader, log logger.ILogger) *StdinIngestor {
	return &StdinIngestor{
		name:   "stdin",
		reader: reader,
		logger: log.SubLogger("StdinIngestor"),
	}
}

// Name returns the ingestor identifier.
func (s *StdinIngestor) Name() string {
	return s.name
}

// Start sends one entry per non-empty line until EOF. A final line without
// a newline is shipped too.
func (s *StdinIngestor) Start(ctx context.Context, out chan<- *model.LogEntry) error {
	defer close(out)

	s.logger.Info("reading from stdin")

	reader := bufio.NewReaderSize(s.reader, 64*1024)
	lineCount, truncated := 0, 0
	for {
		raw, _, cut, err := readLine(reader)
		if len(raw) > 0 {
			entry := model.NewLogEntry(s.name, raw)
			if cut {
				entry.Metadata[MetaTruncated] = "true"
				truncated++
			}
			lineCount++

			select {
			case out <- entry:
			case <-ctx.Done():
				s.logger.Debugf("stdin ingestor stopped: lines_read=%d", lineCount)
				return ctx.Err()
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.logger.Errorf("stdin read error: %v", err)
			return err
		}
	}

	s.logger.Infof("EOF reached: lines_read=%d, truncated=%d", lineCount, truncated)
	return nil
}

// readLine returns the next line without its terminator, cut to
// MaxLineSize, and the number of bytes consumed from r. The rest of an
// oversized line is read and discarded, so at most MaxLineSize plus the
// terminator is held in memory.
func readLine(r *bufio.Reader) (line []byte, n int, truncated bool, err error) {
	// room for "\r\n" after a full-length line
	const limit = MaxLineSize + 2

	dropped := false
	for {
		chunk, err := r.ReadSlice('\n')
		n += len(chunk)
		if room := limit - len(line); len(chunk) > room {
			line = append(line, chunk[:max(room, 0)]...)
			dropped = true
		} else {
			line = append(line, chunk...)
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		if !dropped {
			line = trimEOL(line)
		}
		if len(line) > MaxLineSize {
			line = line[:MaxLineSize]
			dropped = true
		}
		return line, n, dropped, err
	}
}

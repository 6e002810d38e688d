package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/cls-shipper/internal/emitter"
	"github.com/GabrielNunesIT/cls-shipper/internal/ingestor"
	"github.com/GabrielNunesIT/cls-shipper/internal/model"
	"github.com/GabrielNunesIT/cls-shipper/internal/resource"
)

// NewLogCmd creates the log command group.
func NewLogCmd(newClient clientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Upload, search and download records",
	}

	upload := &cobra.Command{
		Use:   "upload [LINE...]",
		Short: "Upload lines as records, one per argument or per stdin line",
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, args []string) error {
			topicID, _ := cmd.Flags().GetString("topic")
			key, _ := cmd.Flags().GetString("key")
			source, _ := cmd.Flags().GetString("source")
			if source == "" {
				source = emitter.LocalIPv4()
			}

			lines := args
			if len(lines) == 0 {
				var err error
				if lines, err = readLines(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			if len(lines) == 0 {
				return nil
			}

			list := uploadBatch(lines, key, source, time.Now())
			if err := resource.UploadLogs(cmd.Context(), c, topicID, list); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "uploaded %d records\n", len(lines))
			return nil
		}),
	}
	upload.Flags().String("topic", "", "topic id")
	upload.Flags().String("key", "content", "content key of each record")
	upload.Flags().String("source", "", "source address of the batch (default: local IPv4)")
	_ = upload.MarkFlagRequired("topic")

	cursor := &cobra.Command{
		Use:   "cursor",
		Short: "Print the read position of a topic at a point in time",
		Args:  cobra.NoArgs,
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, _ []string) error {
			topicID, _ := cmd.Flags().GetString("topic")
			start, err := timeFlag(cmd, "start")
			if err != nil {
				return err
			}
			pos, err := resource.Cursor(cmd.Context(), c, topicID, start)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"cursor": pos})
		}),
	}
	cursor.Flags().String("topic", "", "topic id")
	cursor.Flags().String("start", "now", "point in time (RFC 3339 or a duration ago)")
	_ = cursor.MarkFlagRequired("topic")

	search := &cobra.Command{
		Use:   "search [QUERY]",
		Short: "Search records of one or more topics",
		Args:  cobra.MaximumNArgs(1),
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, args []string) error {
			q := resource.SearchQuery{}
			q.LogSetID, _ = cmd.Flags().GetString("logset")
			q.TopicIDs, _ = cmd.Flags().GetStringSlice("topic")
			q.Limit, _ = cmd.Flags().GetInt("limit")
			q.Context, _ = cmd.Flags().GetString("context")
			q.Sort, _ = cmd.Flags().GetString("sort")
			if len(args) == 1 {
				q.Query = args[0]
			}

			var err error
			if q.Start, err = timeFlag(cmd, "start"); err != nil {
				return err
			}
			if q.End, err = timeFlag(cmd, "end"); err != nil {
				return err
			}

			res, err := resource.SearchLogs(cmd.Context(), c, q)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		}),
	}
	search.Flags().String("logset", "", "log set id")
	search.Flags().StringSlice("topic", nil, "topic ids")
	search.Flags().String("start", "15m", "range start (RFC 3339 or a duration ago)")
	search.Flags().String("end", "now", "range end (RFC 3339 or a duration ago)")
	search.Flags().Int("limit", 0, "page size")
	search.Flags().String("context", "", "continue a previous search")
	search.Flags().String("sort", "", "asc or desc")
	_ = search.MarkFlagRequired("logset")
	_ = search.MarkFlagRequired("topic")

	download := &cobra.Command{
		Use:   "download",
		Short: "Download records as JSON lines",
		Long: `Download records of a topic as JSON lines, starting at --cursor or at the
position of --start. Output ending in .gz is gzip compressed.`,
		Args: cobra.NoArgs,
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, _ []string) error {
			topicID, _ := cmd.Flags().GetString("topic")
			count, _ := cmd.Flags().GetInt("count")
			outPath, _ := cmd.Flags().GetString("out")

			pos, _ := cmd.Flags().GetString("cursor")
			if pos == "" {
				start, err := timeFlag(cmd, "start")
				if err != nil {
					return err
				}
				if pos, err = resource.Cursor(cmd.Context(), c, topicID, start); err != nil {
					return err
				}
			}

			list, err := resource.DownloadLogs(cmd.Context(), c, topicID, pos, count)
			if err != nil {
				return err
			}

			w, err := openOutput(outPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			n, writeErr := writeRecords(w, list)
			if err := w.Close(); err != nil && writeErr == nil {
				writeErr = err
			}
			if writeErr != nil {
				return fmt.Errorf("writing records: %w", writeErr)
			}
			if outPath != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d records to %s\n", n, outPath)
			}
			return nil
		}),
	}
	download.Flags().String("topic", "", "topic id")
	download.Flags().String("cursor", "", "read position, as printed by log cursor")
	download.Flags().String("start", "1h", "start position when --cursor is not set")
	download.Flags().Int("count", resource.DefaultDownloadCount, "records to read")
	download.Flags().StringP("out", "o", "", "output file (default stdout)")
	_ = download.MarkFlagRequired("topic")

	cmd.AddCommand(upload, cursor, search, download)
	return cmd
}

// uploadBatch wraps lines in a single log group stamped at now.
func uploadBatch(lines []string, key, source string, now time.Time) *model.LogGroupList {
	logs := make([]*model.Log, 0, len(lines))
	for _, line := range lines {
		logs = append(logs, &model.Log{
			Time:     now.Unix(),
			Contents: []*model.LogContent{{Key: key, Value: line}},
		})
	}
	return &model.LogGroupList{
		LogGroups: []*model.LogGroup{{
			Logs:        logs,
			ContextFlow: emitter.ContextFlow,
			Filename:    fmt.Sprintf("cli-%d", now.Unix()),
			Source:      source,
		}},
	}
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), ingestor.MaxLineSize)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return lines, nil
}

// downloadedRecord is one JSON line of log download output.
type downloadedRecord struct {
	Time     int64             `json:"time"`
	Source   string            `json:"source,omitempty"`
	Filename string            `json:"filename,omitempty"`
	Contents map[string]string `json:"contents"`
}

func writeRecords(w io.Writer, list *model.LogGroupList) (int, error) {
	enc := json.NewEncoder(w)
	n := 0
	for _, g := range list.LogGroups {
		for _, l := range g.Logs {
			rec := downloadedRecord{
				Time:     l.Time,
				Source:   g.Source,
				Filename: g.Filename,
				Contents: make(map[string]string, len(l.Contents)),
			}
			for _, c := range l.Contents {
				rec.Contents[c.Key] = c.Value
			}
			if err := enc.Encode(rec); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// gzipFile closes the compressor before the file.
type gzipFile struct {
	*gzip.Writer
	f *os.File
}

func (g *gzipFile) Close() error {
	err := g.Writer.Close()
	if cerr := g.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// openOutput returns stdout for an empty path, a gzip stream for *.gz and a
// plain file otherwise.
func openOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		return &gzipFile{Writer: gzip.NewWriter(f), f: f}, nil
	}
	return f, nil
}

package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/cls-shipper/internal/config"
	"github.com/GabrielNunesIT/cls-shipper/internal/emitter"
	"github.com/GabrielNunesIT/cls-shipper/internal/model"
	"github.com/GabrielNunesIT/cls-shipper/internal/resource"
	"github.com/GabrielNunesIT/cls-shipper/internal/testutil/mocks"
	"github.com/GabrielNunesIT/cls-shipper/internal/transport"
)

func staticClient(c resource.Caller) clientFactory {
	return func(*cobra.Command) (resource.Caller, error) {
		return c, nil
	}
}

func execute(cmd *cobra.Command, stdin string, args ...string) (string, error) {
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func fill(body string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		if err := json.Unmarshal([]byte(body), args.Get(3)); err != nil {
			panic(err)
		}
	}
}

func TestNewRootCmd_Commands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"ship", "validate", "version", "logset", "topic", "machinegroup", "index", "shipper", "log"} {
		assert.Contains(t, names, want)
	}

	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("log-level"))
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(NewVersionCmd(), "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "cls-shipper dev ("+runtime.Version()), out)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]logger.Level{
		"debug":   logger.LevelDebug,
		"WARNING": logger.LevelWarning,
		"warn":    logger.LevelWarning,
		" error ": logger.LevelError,
		"trace":   logger.LevelTrace,
		"":        logger.LevelInfo,
		"loud":    logger.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestNewLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("info", config.LogFileConfig{}, &buf)

	log.Debug("hidden")
	log.SubLogger("Test").Infof("visible: n=%d", 1)

	assert.Equal(t, logger.LevelInfo, log.GetLevel())
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[Test] visible: n=1")
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shipper.log")
	var console bytes.Buffer

	log := newLogger("debug", config.LogFileConfig{Path: path, MaxSizeMB: 1}, &console)
	log.Debug("to file")
	require.Len(t, log.GetOutput(), 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"to file"`)
	assert.Empty(t, console.String())
}

func TestSetupLogging_InstallsDefault(t *testing.T) {
	log := SetupLogging("error", config.LogFileConfig{})
	assert.Same(t, log, logger.GetDefaultLogger())
	assert.Same(t, log, logger.FromCtx(context.Background()))
	assert.Equal(t, logger.LevelError, log.GetLevel())
}

func TestEffectiveLevel(t *testing.T) {
	cfg := &config.Config{LogLevel: "warn"}
	assert.Equal(t, "warn", effectiveLevel("", cfg))
	assert.Equal(t, "debug", effectiveLevel("debug", cfg))
}

func TestParseTime(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"", now, false},
		{"now", now, false},
		{"90m", now.Add(-90 * time.Minute), false},
		{"2024-04-30T08:00:00Z", time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC), false},
		{"yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		got, err := parseTime(tt.in, now)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%q: got %v", tt.in, got)
	}
}

func TestApplyShipOverrides(t *testing.T) {
	cmd := NewShipCmd(new(string), new(string))
	require.NoError(t, cmd.ParseFlags([]string{
		"--file", "/var/log/a.log,/var/log/b-*.log",
		"--from-start",
		"--topic", "web",
		"--category", "nginx",
		"--min-level", "warn",
		"--metrics-addr", ":9100",
	}))

	cfg := &config.Config{CLS: config.CLSConfig{LogSetName: "app", TopicName: "api"}}
	applyShipOverrides(cmd, cfg)

	assert.Equal(t, []string{"/var/log/a.log", "/var/log/b-*.log"}, cfg.Input.Files)
	assert.True(t, cfg.Input.FromStart)
	assert.Equal(t, "app", cfg.CLS.LogSetName)
	assert.Equal(t, "web", cfg.CLS.TopicName)
	assert.Equal(t, "nginx", cfg.CLS.Category)
	assert.Equal(t, "warn", cfg.CLS.MinLevel)
	assert.Equal(t, ":9100", cfg.Metrics.Address)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidateCmd(t *testing.T) {
	path := writeConfig(t, `
cls:
  endpoint: ap-guangzhou.cls.myqcloud.com
  secretid: AKIDtest
  secretkey: secret
  logsetname: payments
  topicname: api
`)

	out, err := execute(NewValidateCmd(&path), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "http://ap-guangzhou.cls.myqcloud.com")
	assert.Contains(t, out, "payments/api")
	assert.Contains(t, out, "Processors: 2 enabled")
}

func TestValidateCmd_MissingCredentials(t *testing.T) {
	path := writeConfig(t, "cls:\n  endpoint: ap-guangzhou.cls.myqcloud.com\n")

	_, err := execute(NewValidateCmd(&path), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cls.secretid")
}

func TestValidateCmd_Disabled(t *testing.T) {
	path := writeConfig(t, "cls:\n  enabled: false\n")

	out, err := execute(NewValidateCmd(&path), "")
	require.NoError(t, err)
	assert.Contains(t, out, "CLS output: disabled")
}

func TestLogSetCmd_List(t *testing.T) {
	c := mocks.NewCaller(t)
	c.On("Get", mock.Anything, "logsets", transport.FormatJSON, mock.Anything).
		Run(fill(`{"logsets":[{"logset_id":"ls-1","logset_name":"app","period":30}]}`)).
		Return(nil)

	out, err := execute(NewLogSetCmd(staticClient(c)), "", "list")
	require.NoError(t, err)

	var sets []resource.LogSet
	require.NoError(t, json.Unmarshal([]byte(out), &sets))
	assert.Equal(t, []resource.LogSet{{ID: "ls-1", Name: "app", Period: 30}}, sets)
}

func TestLogSetCmd_Create(t *testing.T) {
	c := mocks.NewCaller(t)
	c.On("Create", mock.Anything, "logset", transport.FormatJSON, resource.LogSet{Name: "app", Period: 7}, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(4).(*resource.LogSet).ID = "ls-new"
		}).
		Return(nil)

	out, err := execute(NewLogSetCmd(staticClient(c)), "", "create", "--name", "app", "--period", "7")
	require.NoError(t, err)
	assert.JSONEq(t, `{"logset_id":"ls-new"}`, out)
}

func TestLogSetCmd_CreateRequiresName(t *testing.T) {
	c := mocks.NewCaller(t)
	_, err := execute(NewLogSetCmd(staticClient(c)), "", "create")
	assert.Error(t, err)
	assert.Empty(t, c.Calls)
}

func TestLogSetCmd_Delete(t *testing.T) {
	c := mocks.NewCaller(t)
	c.On("Delete", mock.Anything, "logset?logset_id=ls-1").Return(nil)

	_, err := execute(NewLogSetCmd(staticClient(c)), "", "delete", "ls-1")
	require.NoError(t, err)
}

func TestLogSetCmd_UpdateKeepsPeriod(t *testing.T) {
	c := mocks.NewCaller(t)
	c.On("Get", mock.Anything, "logset?logset_id=ls-1", transport.FormatJSON, mock.Anything).
		Run(fill(`{"logset_id":"ls-1","logset_name":"app","period":30,"create_time":"2024-01-01 00:00:00"}`)).
		Return(nil)
	c.On("Update", mock.Anything, "logset", resource.LogSet{ID: "ls-1", Name: "payments", Period: 30}).Return(nil)

	_, err := execute(NewLogSetCmd(staticClient(c)), "", "update", "ls-1", "--name", "payments")
	require.NoError(t, err)
}

func TestTopicCmd_UpdateKeepsUnsetFields(t *testing.T) {
	c := mocks.NewCaller(t)
	c.On("Get", mock.Anything, "topic?topic_id=t-1", transport.FormatJSON, mock.Anything).
		Run(fill(`{"logset_id":"ls-1","topic_id":"t-1","topic_name":"api","path":"/var/log/api.log","collection":true,"index":true,"create_time":"2024-01-01 00:00:00"}`)).
		Return(nil)
	c.On("Update", mock.Anything, "topic", resource.Topic{
		LogSetID:   "ls-1",
		ID:         "t-1",
		Name:       "api",
		Path:       "/var/log/api.log",
		Collection: true,
		Index:      false,
	}).Return(nil)

	_, err := execute(NewTopicCmd(staticClient(c)), "", "update", "t-1", "--index=false")
	require.NoError(t, err)
}

func TestMachineGroupCmd_Status(t *testing.T) {
	c := mocks.NewCaller(t)
	c.On("Get", mock.Anything, "machines?group_id=g-1", transport.FormatJSON, mock.Anything).
		Run(fill(`{"machines":[{"ip":"10.0.0.1","status":1},{"ip":"10.0.0.2","status":0}]}`)).
		Return(nil)

	out, err := execute(NewMachineGroupCmd(staticClient(c)), "", "status", "g-1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"ip":"10.0.0.1","healthy":true},{"ip":"10.0.0.2","healthy":false}]`, out)
}

func TestIndexCmd_UpdateFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"effective":true,"rule":{"full_text":{"case_sensitive":false}}}`), 0644))

	c := mocks.NewCaller(t)
	c.On("Update", mock.Anything, "index", mock.MatchedBy(func(idx resource.Index) bool {
		return idx.TopicID == "t-1" && idx.Effective && idx.Rule != nil && idx.Rule.FullText != nil
	})).Return(nil)

	_, err := execute(NewIndexCmd(staticClient(c)), "", "update", "t-1", "--file", path)
	require.NoError(t, err)
}

func TestShipperFromFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shipper.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"topic_id":"t-1","bucket":"logs-1250000000","shipper_name":"daily","interval":300,"create_time":"x"}`), 0644))

	cmd := &cobra.Command{}
	addShipperFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--file", path, "--interval", "600", "--effective=false"}))

	s, err := shipperFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, resource.Shipper{
		TopicID:  "t-1",
		Bucket:   "logs-1250000000",
		Name:     "daily",
		Interval: 600,
	}, s)
}

func TestLogCmd_UploadStdin(t *testing.T) {
	c := mocks.NewCaller(t)
	c.On("Create", mock.Anything, "structuredlog?topic_id=t-1", transport.FormatProtobuf, mock.MatchedBy(func(list *model.LogGroupList) bool {
		g := list.LogGroups[0]
		return len(g.Logs) == 2 &&
			g.Source == "10.0.0.5" &&
			g.ContextFlow == emitter.ContextFlow &&
			g.Logs[0].Contents[0].Key == "content" &&
			g.Logs[1].Contents[0].Value == "second"
	}), nil).Return(nil)

	_, err := execute(NewLogCmd(staticClient(c)), "first\n\nsecond\n", "upload", "--topic", "t-1", "--source", "10.0.0.5")
	require.NoError(t, err)
}

func TestLogCmd_DownloadGzip(t *testing.T) {
	out := filepath.Join(t.TempDir(), "records.jsonl.gz")

	c := mocks.NewCaller(t)
	c.On("Get", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.HasPrefix(p, "cursor?topic_id=t-1&start=")
	}), transport.FormatJSON, mock.Anything).
		Run(fill(`{"cursor":"MTAwMA=="}`)).
		Return(nil)
	c.On("Get", mock.Anything, "log?topic_id=t-1&cursor=MTAwMA%3D%3D&count=5", transport.FormatProtobuf, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(3).(*model.LogGroupList) = model.LogGroupList{LogGroups: []*model.LogGroup{{
				Source:   "10.0.0.1",
				Filename: "orders-1700000000",
				Logs: []*model.Log{
					{Time: 1700000000, Contents: []*model.LogContent{{Key: "INFO", Value: "placed"}}},
					{Time: 1700000001, Contents: []*model.LogContent{{Key: "ERROR", Value: "declined"}}},
				},
			}}}
		}).
		Return(nil)

	_, err := execute(NewLogCmd(staticClient(c)), "", "download", "--topic", "t-1", "--count", "5", "--out", out)
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var rec downloadedRecord
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, downloadedRecord{
		Time:     1700000001,
		Source:   "10.0.0.1",
		Filename: "orders-1700000000",
		Contents: map[string]string{"ERROR": "declined"},
	}, rec)
}

func TestLogCmd_DownloadStdout(t *testing.T) {
	c := mocks.NewCaller(t)
	c.On("Get", mock.Anything, "log?topic_id=t-1&cursor=abc&count=10", transport.FormatProtobuf, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(3).(*model.LogGroupList) = model.LogGroupList{LogGroups: []*model.LogGroup{{
				Logs: []*model.Log{{Time: 1, Contents: []*model.LogContent{{Key: "k", Value: "v"}}}},
			}}}
		}).
		Return(nil)

	out, err := execute(NewLogCmd(staticClient(c)), "", "download", "--topic", "t-1", "--cursor", "abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"time":1,"contents":{"k":"v"}}`, strings.TrimSpace(out))
}

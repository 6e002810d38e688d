package processor

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/GabrielNunesIT/cls-shipper/internal/config"
	"github.com/GabrielNunesIT/cls-shipper/internal/model"
)

// Fields consulted for the severity and event time of a parsed line.
var (
	levelFields = []string{"level", "severity", "lvl"}
	timeFields  = []string{"time", "timestamp", "ts"}
)

// Parser extracts structured fields from log entries and, when DetectLevel
// is set, the severity the entry is shipped with.
type Parser struct {
	cfg      config.ParserConfig
	patterns []*regexp.Regexp
}

// NewParser creates a new parsing processor.
func NewParser(cfg config.ParserConfig) (*Parser, error) {
	p := &Parser{cfg: cfg}

	// Compile regex patterns; a name from CommonLogPatterns selects a built-in
	for _, pattern := range cfg.Patterns {
		if builtin, ok := CommonLogPatterns[pattern]; ok {
			pattern = builtin
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		p.patterns = append(p.patterns, re)
	}

	return p, nil
}

// Name returns the processor identifier.
func (p *Parser) Name() string {
	return "parser"
}

// Process parses the log entry and populates the Parsed field.
func (p *Parser) Process(ctx context.Context, entry *model.LogEntry) error {
	if !p.cfg.Enabled {
		return nil
	}

	parsed := p.cfg.JSONAutoDetect && p.tryParseJSON(entry)
	for _, re := range p.patterns {
		if parsed {
			break
		}
		parsed = p.tryParseRegex(entry, re)
	}

	if p.cfg.DetectLevel {
		p.detectLevel(entry)
	}
	return nil
}

// tryParseJSON attempts to parse the raw log as a JSON object.
func (p *Parser) tryParseJSON(entry *model.LogEntry) bool {
	raw := bytes.TrimSpace(entry.Raw)
	if len(raw) == 0 || raw[0] != '{' {
		return false
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return false
	}

	for k, v := range data {
		entry.Parsed[k] = v
	}
	entry.Parsed["_parsed_format"] = "json"

	for _, f := range timeFields {
		s, ok := data[f].(string)
		if !ok {
			continue
		}
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			entry.Timestamp = ts
			break
		}
	}
	return true
}

// tryParseRegex attempts to extract named groups from a regex pattern.
func (p *Parser) tryParseRegex(entry *model.LogEntry, re *regexp.Regexp) bool {
	names := re.SubexpNames()
	if len(names) <= 1 {
		return false // No named groups
	}

	matches := re.FindSubmatch(entry.Raw)
	if matches == nil {
		return false
	}

	for i, name := range names {
		if i == 0 || name == "" {
			continue // Skip full match and unnamed groups
		}
		if i < len(matches) {
			entry.Parsed[name] = string(matches[i])
		}
	}

	entry.Parsed["_parsed_format"] = "regex"
	entry.Parsed["_parsed_pattern"] = re.String()
	return true
}

// detectLevel sets entry.Level from a parsed level field, falling back to a
// keyword scan of the raw line. Entries with no recognisable level keep theirs.
func (p *Parser) detectLevel(entry *model.LogEntry) {
	for _, f := range levelFields {
		s, ok := entry.Parsed[f].(string)
		if !ok {
			continue
		}
		if l, ok := LevelFromName(s); ok {
			entry.Level = l
			return
		}
	}
	if l, ok := LevelFromName(ParseLevel(string(entry.Raw))); ok {
		entry.Level = l
	}
}

// CommonLogPatterns provides pre-built regex patterns for common log formats.
var CommonLogPatterns = map[string]string{
	// Apache/Nginx Combined Log Format
	"combined": `^(?P<remote_addr>\S+) - (?P<remote_user>\S+) \[(?P<time_local>[^\]]+)\] "(?P<request>[^"]*)" (?P<status>\d+) (?P<body_bytes>\d+) "(?P<http_referer>[^"]*)" "(?P<http_user_agent>[^"]*)"`,

	// Syslog (RFC 3164)
	"syslog": `^<(?P<priority>\d+)>(?P<timestamp>\w{3}\s+\d+\s+\d+:\d+:\d+)\s+(?P<hostname>\S+)\s+(?P<program>[^\[:]+)(?:\[(?P<pid>\d+)\])?:\s*(?P<message>.*)`,

	// Key-Value pairs
	"kv": `(?P<key>\w+)=(?P<value>"[^"]*"|\S+)`,

	// Log level detection
	"level": `(?i)\b(?P<level>DEBUG|INFO|WARN(?:ING)?|ERROR|FATAL|CRITICAL|TRACE)\b`,
}

var levelPattern = regexp.MustCompile(CommonLogPatterns["level"])

// levelRank orders keywords from most to least severe.
var levelRank = []string{"FATAL", "CRITICAL", "ERROR", "WARN", "INFO", "DEBUG", "TRACE"}

// ParseLevel returns the most severe level keyword found as a whole word in
// raw, or "" when there is none. WARNING is reported as WARN.
func ParseLevel(raw string) string {
	found := make(map[string]bool)
	for _, m := range levelPattern.FindAllString(raw, -1) {
		m = strings.ToUpper(m)
		if m == "WARNING" {
			m = "WARN"
		}
		found[m] = true
	}
	for _, level := range levelRank {
		if found[level] {
			return level
		}
	}
	return ""
}

// LevelFromName maps a level name, in any case, to a slog level. TRACE sits
// below debug and FATAL/CRITICAL above error.
func LevelFromName(name string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return slog.LevelDebug - 4, true
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO", "INFORMATION", "NOTICE":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR", "ERR":
		return slog.LevelError, true
	case "FATAL", "CRITICAL", "CRIT", "PANIC":
		return slog.LevelError + 4, true
	}
	return 0, false
}

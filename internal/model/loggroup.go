package model

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// LogGroupList is the binary upload/download payload of the log service.
//
// Wire schema (proto2):
//
//	LogGroupList { repeated LogGroup logGroupList = 1; }
//	LogGroup     { repeated Log logs = 1; optional string contextFlow = 2;
//	               optional string filename = 3; optional string source = 4;
//	               repeated LogTag logTags = 5; }
//	Log          { required int64 time = 1; repeated Content contents = 2; }
//	Content      { required string key = 1; required string value = 2; }
//	LogTag       { required string key = 1; required string value = 2; }
type LogGroupList struct {
	LogGroups []*LogGroup
}

// LogGroup is a set of records sharing one origin.
type LogGroup struct {
	Logs        []*Log
	ContextFlow string
	Filename    string
	Source      string
	LogTags     []*LogTag
}

// Log is a single record: key/value contents stamped with epoch seconds.
type Log struct {
	Time     int64
	Contents []*LogContent
}

// LogContent is one key/value pair of a record.
type LogContent struct {
	Key   string
	Value string
}

// LogTag is a key/value label attached to a whole group.
type LogTag struct {
	Key   string
	Value string
}

var errTruncated = errors.New("loggroup: truncated message")

// Marshal encodes the list in protobuf wire format.
func (l *LogGroupList) Marshal() ([]byte, error) {
	var b []byte
	for _, g := range l.LogGroups {
		if g == nil {
			continue
		}
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, g.marshal())
	}
	return b, nil
}

// Unmarshal replaces the list's contents with the decoded form of b.
func (l *LogGroupList) Unmarshal(b []byte) error {
	l.LogGroups = nil
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 || typ != protowire.BytesType {
			return skipField(num, typ, b)
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, fmt.Errorf("log group: %w", protowire.ParseError(n))
		}
		g := &LogGroup{}
		if err := g.unmarshal(v); err != nil {
			return 0, err
		}
		l.LogGroups = append(l.LogGroups, g)
		return n, nil
	})
}

func (g *LogGroup) marshal() []byte {
	var b []byte
	for _, lg := range g.Logs {
		if lg == nil {
			continue
		}
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, lg.marshal())
	}
	b = appendOptionalString(b, 2, g.ContextFlow)
	b = appendOptionalString(b, 3, g.Filename)
	b = appendOptionalString(b, 4, g.Source)
	for _, t := range g.LogTags {
		if t == nil {
			continue
		}
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalPair(t.Key, t.Value))
	}
	return b
}

func (g *LogGroup) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType {
			return skipField(num, typ, b)
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, fmt.Errorf("log group field %d: %w", num, protowire.ParseError(n))
		}
		switch num {
		case 1:
			lg := &Log{}
			if err := lg.unmarshal(v); err != nil {
				return 0, err
			}
			g.Logs = append(g.Logs, lg)
		case 2:
			g.ContextFlow = string(v)
		case 3:
			g.Filename = string(v)
		case 4:
			g.Source = string(v)
		case 5:
			key, value, err := unmarshalPair(v)
			if err != nil {
				return 0, fmt.Errorf("log tag: %w", err)
			}
			g.LogTags = append(g.LogTags, &LogTag{Key: key, Value: value})
		}
		return n, nil
	})
}

func (lg *Log) marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(lg.Time))
	for _, c := range lg.Contents {
		if c == nil {
			continue
		}
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalPair(c.Key, c.Value))
	}
	return b
}

func (lg *Log) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, fmt.Errorf("log time: %w", protowire.ParseError(n))
			}
			lg.Time = int64(v)
			return n, nil
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, fmt.Errorf("log content: %w", protowire.ParseError(n))
			}
			key, value, err := unmarshalPair(v)
			if err != nil {
				return 0, fmt.Errorf("log content: %w", err)
			}
			lg.Contents = append(lg.Contents, &LogContent{Key: key, Value: value})
			return n, nil
		default:
			return skipField(num, typ, b)
		}
	})
}

// marshalPair encodes the shared {key = 1, value = 2} shape of Content and
// LogTag. Both fields are required, so empty strings are still written.
func marshalPair(key, value string) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, key)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, value)
	return b
}

func unmarshalPair(b []byte) (key, value string, err error) {
	err = consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType || (num != 1 && num != 2) {
			return skipField(num, typ, b)
		}
		v, n := protowire.ConsumeString(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		if num == 1 {
			key = v
		} else {
			value = v
		}
		return n, nil
	})
	return key, value, err
}

func appendOptionalString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// consumeFields walks every field in b, handing the bytes after each tag to fn,
// which returns how many of them it consumed.
func consumeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("loggroup: %w", protowire.ParseError(n))
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m > len(b) {
			return errTruncated
		}
		b = b[m:]
	}
	return nil
}

func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, fmt.Errorf("loggroup: skip field %d: %w", num, protowire.ParseError(n))
	}
	return n, nil
}

// Package resource manages log service resources: log sets, topics, host
// groups, indexes, shippers and log objects. Every operation takes the
// Caller it runs on; there is no package-level client.
package resource

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/GabrielNunesIT/cls-shipper/internal/sign"
	"github.com/GabrielNunesIT/cls-shipper/internal/transport"
)

// Caller is the transport surface the resource operations need.
// *transport.Client satisfies it.
type Caller interface {
	Create(ctx context.Context, path string, format transport.Format, in, out any) error
	Get(ctx context.Context, path string, format transport.Format, out any) error
	Update(ctx context.Context, path string, in any) error
	Delete(ctx context.Context, path string) error
}

var _ Caller = (*transport.Client)(nil)

// ErrEmptyID is returned when a create call succeeds without returning an id.
var ErrEmptyID = errors.New("resource: service returned an empty id")

// TimeLayout is the layout of every time value sent in a query string.
const TimeLayout = "2006-01-02 15:04:05"

// buildPath appends key/value pairs to path as a query string. Values are
// escaped with sign.Escape so they canonicalize the same way when signed.
func buildPath(path string, kv ...string) string {
	if len(kv) == 0 {
		return path
	}

	var b strings.Builder
	b.WriteString(path)
	for i := 0; i+1 < len(kv); i += 2 {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(kv[i])
		b.WriteByte('=')
		b.WriteString(sign.Escape(kv[i+1]))
	}
	return b.String()
}

func formatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

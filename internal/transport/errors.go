package transport

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

var (
	// ErrMissingEndpoint is returned by New when no endpoint is configured.
	ErrMissingEndpoint = errors.New("transport: endpoint is required")

	// ErrFormatMismatch is returned when a protobuf call is given anything
	// other than a *model.LogGroupList.
	ErrFormatMismatch = errors.New("transport: protobuf payload must be *model.LogGroupList")
)

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 4 << 10

// StatusError reports a non-2xx response. Code and Message carry the
// service's error detail when the body could be decoded.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("cls: %s %s: status %d", e.Method, e.Path, e.StatusCode)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// IsStatus reports whether err is a StatusError with the given HTTP status.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

type serviceError struct {
	Code    string `json:"errorcode"`
	Message string `json:"errormessage"`
}

func newStatusError(method, path string, resp *http.Response) *StatusError {
	se := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(body) == 0 {
		return se
	}

	var detail serviceError
	if json.Unmarshal(body, &detail) == nil {
		se.Code = detail.Code
		se.Message = detail.Message
	}
	return se
}

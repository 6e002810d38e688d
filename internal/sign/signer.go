// Package sign computes the time-scoped HMAC authorization token that every
// request to the log service carries in its Authorization header.
package sign

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ExpireSeconds is the lifetime of a signature window.
const ExpireSeconds = 60

var (
	// ErrMissingCredentials is returned when the secret id or key is empty.
	ErrMissingCredentials = errors.New("sign: secret id and secret key are required")

	// ErrUnknownAlgorithm is returned for any algorithm other than AlgorithmSHA1.
	ErrUnknownAlgorithm = errors.New("sign: unknown signature algorithm")
)

// Algorithm names the hash used for the request digest and both HMAC rounds.
type Algorithm string

// AlgorithmSHA1 is the only algorithm the service accepts.
const AlgorithmSHA1 Algorithm = "sha1"

// Credentials identify the caller. They are never logged or serialized.
type Credentials struct {
	SecretID  string `json:"-"`
	SecretKey string `json:"-"`
}

// Validate reports ErrMissingCredentials if either half is empty.
func (c Credentials) Validate() error {
	if c.SecretID == "" || c.SecretKey == "" {
		return ErrMissingCredentials
	}
	return nil
}

// String hides the secret key.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{SecretID: %q, SecretKey: [REDACTED]}", c.SecretID)
}

// Window is the [Start, End] epoch-second interval a signature is valid for.
type Window struct {
	Start int64
	End   int64
}

// NewWindow opens a window at t that closes ExpireSeconds later.
func NewWindow(t time.Time) Window {
	start := t.Unix()
	return Window{Start: start, End: start + ExpireSeconds}
}

// String renders the window as "{start};{end}".
func (w Window) String() string {
	return strconv.FormatInt(w.Start, 10) + ";" + strconv.FormatInt(w.End, 10)
}

// Option configures a Signer.
type Option func(*Signer)

// WithAlgorithm selects the signature algorithm.
func WithAlgorithm(alg Algorithm) Option {
	return func(s *Signer) {
		s.alg = alg
	}
}

// Signer produces authorization tokens for one set of credentials.
// It holds no mutable state and is safe for concurrent use.
type Signer struct {
	creds Credentials
	alg   Algorithm
}

// New creates a Signer. Missing credentials and unknown algorithms are
// configuration errors.
func New(creds Credentials, opts ...Option) (*Signer, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	s := &Signer{creds: creds, alg: AlgorithmSHA1}
	for _, opt := range opts {
		opt(s)
	}

	if s.alg != AlgorithmSHA1 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s.alg)
	}
	return s, nil
}

// Sign returns the Authorization token for a request. headers must contain
// exactly the headers that will be sent verbatim with the request.
func (s *Signer) Sign(u *url.URL, method string, w Window, headers map[string]string) string {
	keyTime := w.String()
	query := strings.ReplaceAll(u.RawQuery, "?", "")

	httpRequestInfo := strings.ToLower(method) + "\n" +
		u.Path + "\n" +
		query + "\n" +
		canonicalHeaders(headers) + "\n"

	digest := sha1.Sum([]byte(httpRequestInfo))
	stringToSign := string(s.alg) + "\n" + keyTime + "\n" + hex.EncodeToString(digest[:]) + "\n"

	signKey := hmacHex(s.creds.SecretKey, keyTime)
	signature := hmacHex(signKey, stringToSign)

	var b strings.Builder
	b.WriteString("q-sign-algorithm=")
	b.WriteString(string(s.alg))
	b.WriteString("&q-ak=")
	b.WriteString(s.creds.SecretID)
	b.WriteString("&q-sign-time=")
	b.WriteString(keyTime)
	b.WriteString("&q-key-time=")
	b.WriteString(keyTime)
	b.WriteString("&q-header-list=")
	b.WriteString(headerList(headers))
	b.WriteString("&q-url-param-list=")
	b.WriteString(paramList(query))
	b.WriteString("&q-signature=")
	b.WriteString(signature)
	return b.String()
}

// canonicalHeaders joins lowercase key=Escape(value) pairs with '&', ordered by
// the joined pair rather than by key.
func canonicalHeaders(headers map[string]string) string {
	pairs := make([]string, 0, len(headers))
	for k, v := range headers {
		pairs = append(pairs, strings.ToLower(k)+"="+Escape(v))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}

func headerList(headers map[string]string) string {
	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, strings.ToLower(k))
	}
	sort.Strings(names)
	return strings.Join(names, ";")
}

func paramList(query string) string {
	if query == "" {
		return ""
	}
	parts := strings.Split(query, "&")
	names := make([]string, 0, len(parts))
	for _, kv := range parts {
		name, _, _ := strings.Cut(kv, "=")
		names = append(names, strings.ToLower(name))
	}
	sort.Strings(names)
	return strings.Join(names, ";")
}

func hmacHex(key, data string) string {
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// Escape form-encodes v the way the service canonicalizes header and query
// values: spaces become '+', escapes keep uppercase hex, and the unreserved
// set is letters, digits and "-_.!*()".
func Escape(v string) string {
	return escapeFixups.Replace(url.QueryEscape(v))
}

var escapeFixups = strings.NewReplacer(
	"%21", "!",
	"%2A", "*",
	"%28", "(",
	"%29", ")",
	"~", "%7E",
)

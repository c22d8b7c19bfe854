package gemini

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultMaxVideoBytes caps a downloaded video file (256MB).
const DefaultMaxVideoBytes int64 = 256 << 20

var ErrVideoTooLarge = errors.New("video file exceeds size limit")

// downloadGuard wraps the genai client's transport. File downloads go through
// the SDK without a status check or a size bound, so both are enforced here
// for `:download` requests. Every other call passes through untouched.
type downloadGuard struct {
	base     http.RoundTripper
	maxBytes int64
}

// NewHTTPClient - http client for the Gemini API backend with download limits
func NewHTTPClient(maxVideoBytes int64) *http.Client {
	if maxVideoBytes <= 0 {
		maxVideoBytes = DefaultMaxVideoBytes
	}
	return &http.Client{Transport: &downloadGuard{base: http.DefaultTransport, maxBytes: maxVideoBytes}}
}

func (t *downloadGuard) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || !strings.HasSuffix(req.URL.Path, ":download") {
		return resp, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("download returned %s", resp.Status)
	}
	if resp.ContentLength > t.maxBytes {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d bytes", ErrVideoTooLarge, resp.ContentLength)
	}
	resp.Body = &limitedBody{ReadCloser: resp.Body, remaining: t.maxBytes}
	return resp, nil
}

// limitedBody fails the read once more than remaining bytes arrive.
type limitedBody struct {
	io.ReadCloser
	remaining int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if int64(len(p)) > b.remaining+1 {
		p = p[:b.remaining+1]
	}
	n, err := b.ReadCloser.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n, ErrVideoTooLarge
	}
	return n, err
}

package gemini

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadGuard_PassesThroughOtherCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"code":429}}`)
	}))
	defer srv.Close()

	resp, err := NewHTTPClient(0).Get(srv.URL + "/v1beta/models/gemini-2.5-flash:generateContent")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestDownloadGuard_StreamedBodyOverLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// flushing before the body is complete forces chunked encoding
		_, _ = io.WriteString(w, strings.Repeat("a", 8))
		w.(http.Flusher).Flush()
		_, _ = io.WriteString(w, strings.Repeat("b", 32))
	}))
	defer srv.Close()

	resp, err := NewHTTPClient(16).Get(srv.URL + "/v1beta/files/abc:download?alt=media")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.EqualValues(t, -1, resp.ContentLength)

	_, err = io.ReadAll(resp.Body)
	assert.ErrorIs(t, err, ErrVideoTooLarge)
}

func TestDownloadGuard_WithinLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "1234")
		w.(http.Flusher).Flush()
		_, _ = io.WriteString(w, "5678")
	}))
	defer srv.Close()

	resp, err := NewHTTPClient(8).Get(srv.URL + "/v1beta/files/abc:download?alt=media")
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "12345678", string(data))
}

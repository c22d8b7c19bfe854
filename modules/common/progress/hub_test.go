package progress

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesOnlyTopicSubscribers(t *testing.T) {
	h := NewHub(zerolog.Nop())

	a, cancelA := h.Subscribe("job-a")
	defer cancelA()
	b, cancelB := h.Subscribe("job-b")
	defer cancelB()

	h.Publish("job-a", map[string]string{"state": "describing"})

	select {
	case msg := <-a:
		assert.JSONEq(t, `{"state":"describing"}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("subscriber of job-a got nothing")
	}

	select {
	case msg := <-b:
		t.Fatalf("job-b received %s", msg)
	default:
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := NewHub(zerolog.Nop())
	ch, cancel := h.Subscribe("job")

	topics, subs := h.Stats()
	assert.Equal(t, 1, topics)
	assert.Equal(t, 1, subs)

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)

	topics, subs = h.Stats()
	assert.Zero(t, topics)
	assert.Zero(t, subs)
}

func TestHub_SlowSubscriberIsDropped(t *testing.T) {
	h := NewHub(zerolog.Nop())
	ch, cancel := h.Subscribe("job")
	defer cancel()

	for i := 0; i < sendBuffer+1; i++ {
		h.Publish("job", i)
	}

	_, subs := h.Stats()
	assert.Zero(t, subs)

	n := 0
	for range ch {
		n++
	}
	assert.Equal(t, sendBuffer, n)
}

func TestHub_ServeWS(t *testing.T) {
	h := NewHub(zerolog.Nop())
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?job=job-42"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		_, subs := h.Stats()
		return subs == 1
	}, time.Second, 10*time.Millisecond)

	h.Publish("job-42", map[string]any{"state": "generating_all", "settled": 1})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"generating_all","settled":1}`, string(msg))
}

func TestHub_ServeWSRequiresJob(t *testing.T) {
	h := NewHub(zerolog.Nop())
	rec := httptest.NewRecorder()
	h.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func dialJob(t *testing.T, srv *httptest.Server, job string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?job=" + job
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func TestHub_ServeWSSendsSnapshotThenStream(t *testing.T) {
	h := NewHub(zerolog.Nop())
	h.SetSnapshot(func(_ context.Context, topic string) (any, bool, error) {
		return map[string]any{"jobId": topic, "state": "describing"}, false, nil
	})
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	conn := dialJob(t, srv, "job-7")

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"jobId":"job-7","state":"describing"}`, string(msg))

	h.Publish("job-7", map[string]any{"state": "selecting"})
	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"selecting"}`, string(msg))
}

func TestHub_ServeWSClosesFinishedJob(t *testing.T) {
	h := NewHub(zerolog.Nop())
	h.SetSnapshot(func(_ context.Context, topic string) (any, bool, error) {
		return map[string]any{"jobId": topic, "jobStatus": "completed"}, true, nil
	})
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	conn := dialJob(t, srv, "job-done")

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"jobId":"job-done","jobStatus":"completed"}`, string(msg))

	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err.Error())

	require.Eventually(t, func() bool {
		_, subs := h.Stats()
		return subs == 0
	}, time.Second, 10*time.Millisecond)
}

func TestHub_ServeWSSnapshotUnavailable(t *testing.T) {
	h := NewHub(zerolog.Nop())
	h.SetSnapshot(func(context.Context, string) (any, bool, error) {
		return nil, false, errors.New("redis down")
	})
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	conn := dialJob(t, srv, "job-x")
	require.Eventually(t, func() bool {
		_, subs := h.Stats()
		return subs == 1
	}, time.Second, 10*time.Millisecond)

	h.Publish("job-x", map[string]any{"state": "describing"})
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"describing"}`, string(msg))
}

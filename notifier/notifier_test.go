package notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackNotifierSend(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var mu sync.Mutex
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		mu.Lock()
		gotBody = string(buf)
		mu.Unlock()
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	err := n.Send(context.Background(), EventBadgeEarned, map[string]any{
		"user":  "u1",
		"badge": "Community Builder",
	})
	require.NoError(err)
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(gotBody, "badge-earned")
	assert.Contains(gotBody, "badge=Community Builder")
}

func TestSlackNotifierRejectsNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("channel_not_found"))
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	err := n.Send(context.Background(), EventContentFlagged, nil)
	assert.Error(t, err)
}

type captureNotifier struct {
	mu     sync.Mutex
	events []string
	done   chan struct{}
}

func (c *captureNotifier) Send(ctx context.Context, event string, payload map[string]any) error {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
	c.done <- struct{}{}
	return nil
}

func TestDispatchIsFireAndForget(t *testing.T) {
	cap := &captureNotifier{done: make(chan struct{}, 1)}
	d := NewDispatcher(nil, cap)

	d.Dispatch(EventLevelUp, map[string]any{"user": "u1"})

	select {
	case <-cap.done:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was never invoked")
	}
	cap.mu.Lock()
	defer cap.mu.Unlock()
	assert.Equal(t, []string{EventLevelUp}, cap.events)
}

package player

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriberReceivesStreamedVersions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/events" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, ": hb\n\n")
		fmt.Fprint(w, "event: version\ndata: {\"version\":5}\n\n")
		fmt.Fprint(w, "data: {\"version\":9}\n\n")
		fmt.Fprint(w, "data: {\"version\":7}\n\n") // stale, must be dropped
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	versions := make(chan int64, 8)
	sub := NewSubscriber(srv.URL, time.Second, func(v int64) { versions <- v })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.Run(ctx)

	assert.EqualValues(t, 5, <-versions)
	assert.EqualValues(t, 9, <-versions)
	cancel()

	assert.EqualValues(t, 9, sub.LastVersion())
	select {
	case v := <-versions:
		t.Fatalf("stale version %d must not be dispatched", v)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscriberPollsWhileStreamIsDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/events":
			http.Error(w, "no streaming today", http.StatusServiceUnavailable)
		case "/api/v1/version":
			fmt.Fprint(w, `{"version":33}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	versions := make(chan int64, 1)
	sub := NewSubscriber(srv.URL, 50*time.Millisecond, func(v int64) { versions <- v })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.Run(ctx)

	select {
	case v := <-versions:
		assert.EqualValues(t, 33, v)
	case <-time.After(5 * time.Second):
		t.Fatal("poll fallback never delivered the version")
	}
}

func TestSubscriberStopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	sub := NewSubscriber(srv.URL, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sub.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop on cancellation")
	}
}

func TestNoteVersionMonotonic(t *testing.T) {
	var got []int64
	sub := NewSubscriber("http://localhost", time.Second, func(v int64) { got = append(got, v) })

	sub.noteVersion(3)
	sub.noteVersion(3)
	sub.noteVersion(2)
	sub.noteVersion(4)
	sub.noteVersion(0)

	require.Equal(t, []int64{3, 4}, got)
	assert.EqualValues(t, 4, sub.LastVersion())
}

package player

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"signage-service/pkg/logger"
)

const (
	backoffInitial = time.Second
	backoffMax     = 30 * time.Second
)

// VersionHandler is invoked for every manifest version newer than the last
// one seen.
type VersionHandler func(version int64)

// Subscriber follows the live-update stream. A broken stream reconnects
// with exponential backoff, and the version endpoint is polled while the
// stream is down so updates are never missed outright.
type Subscriber struct {
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
	onVersion    VersionHandler

	last atomic.Int64
}

func NewSubscriber(baseURL string, pollInterval time.Duration, onVersion VersionHandler) *Subscriber {
	return &Subscriber{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		client:       &http.Client{},
		pollInterval: pollInterval,
		onVersion:    onVersion,
	}
}

// LastVersion reports the newest version seen through either channel.
func (s *Subscriber) LastVersion() int64 {
	return s.last.Load()
}

// Run blocks until ctx is cancelled, keeping the subscription alive.
func (s *Subscriber) Run(ctx context.Context) {
	backoff := backoffInitial
	for {
		err := s.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		logger.Warnf("event stream broke, retrying in %s: %v", backoff, err)

		if !s.waitAndPoll(ctx, backoff) {
			return
		}
		backoff *= 2
		if backoff > backoffMax {
			backoff = backoffMax
		}
	}
}

// stream holds one SSE connection open, dispatching version events and
// discarding heartbeat comments. A delivered event resets the backoff by
// returning only on error.
func (s *Subscriber) stream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/v1/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || strings.HasPrefix(line, ":"):
			// Blank separators and heartbeat comments carry no data.
		case strings.HasPrefix(line, "data:"):
			s.dispatch(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("event stream closed by server")
}

func (s *Subscriber) dispatch(payload string) {
	var ev struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return
	}
	s.noteVersion(ev.Version)
}

// noteVersion dispatches a version if it is newer than anything seen so
// far; stale and duplicate versions are dropped.
func (s *Subscriber) noteVersion(version int64) {
	if version == 0 {
		return
	}
	for {
		prev := s.last.Load()
		if version <= prev {
			return
		}
		if s.last.CompareAndSwap(prev, version) {
			break
		}
	}
	if s.onVersion != nil {
		s.onVersion(version)
	}
}

// waitAndPoll sleeps out the backoff, polling the version endpoint on the
// poll interval so a long outage still surfaces new manifests. Returns
// false when ctx is done.
func (s *Subscriber) waitAndPoll(ctx context.Context, backoff time.Duration) bool {
	deadline := time.Now().Add(backoff)
	interval := s.pollInterval
	if interval <= 0 || interval > backoff {
		interval = backoff
	}
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		if interval < remaining {
			remaining = interval
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(remaining):
		}
		s.pollOnce(ctx)
	}
}

func (s *Subscriber) pollOnce(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/v1/version", nil)
	if err != nil {
		return
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return
	}
	var body struct {
		Version int64 `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return
	}
	s.noteVersion(body.Version)
}

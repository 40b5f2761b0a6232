package arxiv

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fastRetry retries quickly enough for tests.
func fastRetry(attempts int) ClientOption {
	return WithRetry(RetryConfig{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	})
}

// flakyPagedServer serves total entries like pagedServer, but the page at
// failStart answers status for its first failures requests.
func flakyPagedServer(t *testing.T, total, failStart, failures, status int) (*httptest.Server, *int32) {
	t.Helper()
	var requests, failed int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		if start == failStart && (failures < 0 || atomic.AddInt32(&failed, 1) <= int32(failures)) {
			w.WriteHeader(status)
			return
		}
		writeFeedPage(w, r, total)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestRetryConfigDelay(t *testing.T) {
	rc := &RetryConfig{InitialInterval: 100 * time.Millisecond, MaxInterval: time.Second, Multiplier: 3}
	for n, base := range map[int]time.Duration{
		1: 100 * time.Millisecond,
		2: 300 * time.Millisecond,
		3: 900 * time.Millisecond,
		4: time.Second,
		9: time.Second,
	} {
		lo, hi := base*9/10, base*11/10
		for range 20 {
			if got := rc.delay(n); got < lo || got > hi {
				t.Fatalf("delay(%d) = %v, want within [%v, %v]", n, got, lo, hi)
			}
		}
	}

	var unset *RetryConfig
	if unset.delay(1) != 0 || rc.delay(0) != 0 {
		t.Error("delay should be zero without a config or before the first attempt")
	}
	if unset.attempts() != 1 || (&RetryConfig{}).attempts() != 1 {
		t.Error("attempts should default to a single request")
	}
}

func TestWithRetryFillsDefaults(t *testing.T) {
	client := NewClient(WithRetry(RetryConfig{MaxAttempts: 5, MaxInterval: time.Minute}))
	want := RetryConfig{MaxAttempts: 5, InitialInterval: time.Second, MaxInterval: time.Minute, Multiplier: 2}
	if client.RetryConfig == nil || *client.RetryConfig != want {
		t.Errorf("RetryConfig = %+v, want %+v", client.RetryConfig, want)
	}
}

func TestTransient(t *testing.T) {
	for status, want := range map[int]bool{
		http.StatusOK:                  false,
		http.StatusBadRequest:          false,
		http.StatusNotFound:            false,
		http.StatusRequestTimeout:      true,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusBadGateway:          true,
		http.StatusServiceUnavailable:  true,
		http.StatusGatewayTimeout:      true,
	} {
		if got := transient(nil, &http.Response{StatusCode: status}); got != want {
			t.Errorf("transient(status %d) = %v, want %v", status, got, want)
		}
	}

	if !transient(fmt.Errorf("fetching page: %w", context.DeadlineExceeded), nil) {
		t.Error("a deadline should be transient")
	}
	if transient(errors.New("connection refused"), nil) || transient(nil, nil) {
		t.Error("plain errors should not be transient")
	}
}

func TestRetryAfter(t *testing.T) {
	tests := map[string]time.Duration{
		"":                              0,
		"2":                             2 * time.Second,
		" 7 ":                           7 * time.Second,
		"0":                             0,
		"Wed, 21 Oct 2015 07:28:00 GMT": 0,
	}
	for header, want := range tests {
		resp := &http.Response{Header: http.Header{}}
		if header != "" {
			resp.Header.Set("Retry-After", header)
		}
		if got := retryAfter(resp); got != want {
			t.Errorf("retryAfter(%q) = %v, want %v", header, got, want)
		}
	}
	if retryAfter(nil) != 0 {
		t.Error("retryAfter(nil) should be zero")
	}
}

func TestCollectRecoversFromTransientPageFailure(t *testing.T) {
	for _, status := range []int{http.StatusServiceUnavailable, http.StatusTooManyRequests} {
		t.Run(strconv.Itoa(status), func(t *testing.T) {
			server, requests := flakyPagedServer(t, 1000, 100, 2, status)
			client := newTestClient(server, fastRetry(3))

			entries, err := client.Collect(context.Background(), SearchParams{Query: "all:x"}, 250, 100)
			if err != nil {
				t.Fatalf("Collect() error = %v", err)
			}
			if len(entries) != 250 {
				t.Fatalf("Collect() returned %d entries, want 250", len(entries))
			}
			for i, entry := range entries {
				if want := fmt.Sprintf("http://arxiv.org/abs/2401.%05dv1", i); entry.ID != want {
					t.Fatalf("entries[%d].ID = %s, want %s", i, entry.ID, want)
				}
			}
			// Three pages plus two failed tries of the second one.
			if got := atomic.LoadInt32(requests); got != 5 {
				t.Errorf("server saw %d requests, want 5", got)
			}
		})
	}
}

func TestCollectKeepsPartialEntriesWhenRetriesRunOut(t *testing.T) {
	server, requests := flakyPagedServer(t, 1000, 100, -1, http.StatusServiceUnavailable)
	client := newTestClient(server, fastRetry(3))

	entries, err := client.Collect(context.Background(), SearchParams{Query: "all:x"}, 250, 100)
	if err == nil {
		t.Fatal("Collect() error = nil, want error")
	}
	if StatusCode(err) != http.StatusServiceUnavailable {
		t.Errorf("StatusCode(err) = %d, want 503", StatusCode(err))
	}
	if !strings.Contains(err.Error(), "fetching results 100-200") {
		t.Errorf("Collect() error = %q, want the failed page range", err.Error())
	}
	if len(entries) != 100 {
		t.Errorf("Collect() kept %d entries, want the first page of 100", len(entries))
	}
	if got := atomic.LoadInt32(requests); got != 4 {
		t.Errorf("server saw %d requests, want 1 + 3 attempts", got)
	}
}

func TestRetrySendsFailuresOnce(t *testing.T) {
	tests := []struct {
		name   string
		status int
		opts   []ClientOption
	}{
		{"bad query is not retried", http.StatusBadRequest, []ClientOption{fastRetry(4)}},
		{"retries off by default", http.StatusServiceUnavailable, nil},
		{"single attempt configured", http.StatusServiceUnavailable, []ClientOption{fastRetry(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, requests := flakyPagedServer(t, 50, 0, -1, tt.status)
			client := newTestClient(server, tt.opts...)

			_, err := client.Count(context.Background(), "all:x")
			if StatusCode(err) != tt.status {
				t.Errorf("StatusCode(err) = %d, want %d", StatusCode(err), tt.status)
			}
			if got := atomic.LoadInt32(requests); got != 1 {
				t.Errorf("server saw %d requests, want 1", got)
			}
		})
	}
}

func TestRetryWaitsForRetryAfterUpToMaxInterval(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeFeedPage(w, r, 12)
	}))
	defer server.Close()

	client := newTestClient(server, WithRetry(RetryConfig{
		MaxAttempts:     2,
		InitialInterval: time.Millisecond,
		MaxInterval:     50 * time.Millisecond,
	}))

	began := time.Now()
	total, err := client.Count(context.Background(), "all:x")
	elapsed := time.Since(began)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if total != 12 {
		t.Errorf("Count() = %d, want 12", total)
	}
	if elapsed < 50*time.Millisecond || elapsed > 5*time.Second {
		t.Errorf("retry waited %v, want the 50ms cap", elapsed)
	}
}

func TestRetryStopsWhenContextEnds(t *testing.T) {
	server, requests := flakyPagedServer(t, 100, 0, -1, http.StatusBadGateway)
	client := newTestClient(server, WithRetry(RetryConfig{
		MaxAttempts:     5,
		InitialInterval: time.Second,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Collect(ctx, SearchParams{Query: "all:x"}, 20, 10)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Collect() error = %v, want context.DeadlineExceeded", err)
	}
	if got := atomic.LoadInt32(requests); got != 1 {
		t.Errorf("server saw %d requests, want 1 before the backoff was cut short", got)
	}
}

// Package stream implements the Stream Reader: a per-source, endlessly
// retrying HTTP pull of an Icecast-style audio stream into a bounded,
// drop-on-full byte queue. It generalizes the teacher's
// internal/radio.StreamHandler fan-out idiom (bounded channel,
// select+default drop) to the consumer side of an HTTP GET instead of the
// producer side of an HTTP response, and borrows audio.rs's reqwest
// client-builder shape (long-lived keep-alive client, per-URL rate
// limited logging, 120s inactivity timeout, 1s reconnect backoff).
package stream

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	queueCapacity     = 256
	inactivityTimeout = 120 * time.Second
	reconnectDelay    = 1 * time.Second
	readBufSize       = 4096
)

var errInactive = errors.New("stream: no data within inactivity window")

// Notifier receives the observable side effects the Stream Reader
// produces for the monitoring hub. A nil Notifier is valid; every call
// site nil-checks before invoking it.
type Notifier interface {
	Connecting(source string)
	Connected(source string, contentType string)
	Disconnected(source string, err error)
	Activity(source string)
}

// Reader pulls one configured source URL and makes its bytes available
// on Chunks(), dropping chunks when the consumer falls behind and
// reconnecting indefinitely on any failure.
type Reader struct {
	Label string
	URL   string

	client   *http.Client
	notifier Notifier

	out chan []byte

	connectLimiter *rate.Limiter
	dropLimiter    *rate.Limiter
}

// New constructs a Reader for label/url. client is shared across every
// Reader in the process, matching audio.rs building a single reqwest
// client for all stream tasks.
func New(label, url string, client *http.Client, notifier Notifier) *Reader {
	return &Reader{
		Label:          label,
		URL:            url,
		client:         client,
		notifier:       notifier,
		out:            make(chan []byte, queueCapacity),
		connectLimiter: rate.NewLimiter(rate.Every(60*time.Second), 1),
		dropLimiter:    rate.NewLimiter(rate.Every(30*time.Second), 1),
	}
}

// NewClient builds the shared *http.Client every Reader should use,
// matching audio.rs's reqwest client builder: a 10s connect timeout, 30s
// TCP keep-alive, and a 90s idle-connection pool, forced to HTTP/1.1
// since Icecast sources don't speak HTTP/2.
func NewClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:       dialer.DialContext,
			IdleConnTimeout:   90 * time.Second,
			ForceAttemptHTTP2: false,
			TLSNextProto:      map[string]func(string, *tls.Conn) http.RoundTripper{},
		},
	}
}

// Chunks returns the channel chunk payloads arrive on. The channel is
// never closed while the Reader's Run is active; it is only abandoned
// when ctx is cancelled.
func (r *Reader) Chunks() <-chan []byte {
	return r.out
}

// Run drives the reconnect loop until ctx is cancelled.
func (r *Reader) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if r.notifier != nil {
			r.notifier.Connecting(r.Label)
		}

		err := r.connectAndStream(ctx)
		if ctx.Err() != nil {
			return
		}

		if r.connectLimiter.Allow() {
			slog.Error("stream: connection ended, reconnecting", "source", r.Label, "error", err)
		}
		if r.notifier != nil {
			r.notifier.Disconnected(r.Label, err)
		}

		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reader) connectAndStream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "audio/*,application/ogg;q=0.9,*/*;q=0.1")
	req.Header.Set("Connection", "keep-alive")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New("stream: non-2xx response: " + resp.Status)
	}

	if r.notifier != nil {
		r.notifier.Connected(r.Label, resp.Header.Get("Content-Type"))
	}

	return r.pump(ctx, resp.Body)
}

type chunkOrErr struct {
	data []byte
	err  error
}

func (r *Reader) pump(ctx context.Context, body io.ReadCloser) error {
	results := make(chan chunkOrErr, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		buf := make([]byte, readBufSize)
		for {
			n, err := body.Read(buf)
			if n > 0 {
				cp := make([]byte, n)
				copy(cp, buf[:n])
				select {
				case results <- chunkOrErr{data: cp}:
				case <-done:
					return
				}
			}
			if err != nil {
				select {
				case results <- chunkOrErr{err: err}:
				case <-done:
				}
				return
			}
		}
	}()

	timer := time.NewTimer(inactivityTimeout)
	defer timer.Stop()

	for {
		select {
		case res := <-results:
			if res.err != nil {
				if res.err == io.EOF {
					return nil
				}
				return res.err
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(inactivityTimeout)

			if r.notifier != nil {
				r.notifier.Activity(r.Label)
			}
			r.push(res.data)

		case <-timer.C:
			return errInactive

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Reader) push(chunk []byte) {
	select {
	case r.out <- chunk:
	default:
		if r.dropLimiter.Allow() {
			slog.Warn("stream: queue full, dropping chunk", "source", r.Label)
		}
	}
}

package realtime

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	reasonTransportClose = "transport close"
	reasonTransportError = "transport error"
)

var (
	// ErrReconnectExhausted is returned by SSETransport.Run once every reconnection attempt failed.
	ErrReconnectExhausted = errors.New("realtime: reconnection attempts exhausted")
	// ErrConnectTimeout marks a connection attempt that produced no response in time.
	ErrConnectTimeout = errors.New("realtime: connect timeout")

	errMissingURL = errors.New("realtime: push url is required")
)

// SSEConfig configures the live push adapter.
type SSEConfig struct {
	URL               string
	HTTPClient        *http.Client
	ConnectTimeout    time.Duration
	ReconnectAttempts int
	Backoff           Backoff
	Logger            *zap.Logger
	Clock             func() time.Time
}

// SSETransport reads `update` events from a Server-Sent Events endpoint and reconnects on a
// bounded schedule when the stream cannot be opened or drops.
type SSETransport struct {
	url            string
	client         *http.Client
	connectTimeout time.Duration
	attempts       int
	backoff        Backoff
	logger         *zap.Logger
	clock          func() time.Time
}

// NewSSETransport validates cfg and returns a live transport.
func NewSSETransport(cfg SSEConfig) (*SSETransport, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errMissingURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	attempts := cfg.ReconnectAttempts
	if attempts < 0 {
		attempts = 0
	}
	return &SSETransport{
		url:            cfg.URL,
		client:         client,
		connectTimeout: cfg.ConnectTimeout,
		attempts:       attempts,
		backoff:        cfg.Backoff,
		logger:         logger,
		clock:          clock,
	}, nil
}

// Run implements Transport.
func (t *SSETransport) Run(ctx context.Context, lifecycle Lifecycle) error {
	attempt := 0
	reconnecting := false
	for {
		if ctx.Err() != nil {
			return nil
		}
		if reconnecting {
			attempt++
			if attempt > t.attempts {
				lifecycle.ReconnectFailed()
				return ErrReconnectExhausted
			}
			lifecycle.Reconnecting(attempt)
			if !sleepContext(ctx, t.backoff.Delay(attempt)) {
				return nil
			}
		} else {
			lifecycle.Connecting()
		}

		stream, err := t.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if reconnecting {
				lifecycle.ReconnectError(err)
			} else {
				lifecycle.ConnectError(err)
			}
			reconnecting = true
			continue
		}

		if reconnecting {
			lifecycle.Reconnected(attempt)
		} else {
			lifecycle.Connected()
		}
		attempt = 0

		reason := t.consume(stream, lifecycle)
		stream.Close()
		if ctx.Err() != nil {
			lifecycle.Disconnected(ReasonClientClose)
			return nil
		}
		lifecycle.Disconnected(reason)
		reconnecting = true
	}
}

type eventStream struct {
	body   io.ReadCloser
	cancel context.CancelFunc
}

func (s *eventStream) Close() {
	s.body.Close()
	s.cancel()
}

func (t *SSETransport) connect(ctx context.Context) (*eventStream, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	var timer *time.Timer
	if t.connectTimeout > 0 {
		timer = time.AfterFunc(t.connectTimeout, cancel)
	}

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, t.url, http.NoBody)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("realtime: build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.client.Do(req)
	if timer != nil && !timer.Stop() {
		if err == nil {
			resp.Body.Close()
		}
		cancel()
		return nil, fmt.Errorf("%w after %s", ErrConnectTimeout, t.connectTimeout)
	}
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("realtime: unexpected status %d", resp.StatusCode)
	}
	return &eventStream{body: resp.Body, cancel: cancel}, nil
}

// consume reads frames until the stream ends and returns the disconnect reason.
func (t *SSETransport) consume(stream *eventStream, lifecycle Lifecycle) string {
	reader := bufio.NewReader(stream.body)
	var parser frameParser
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			if frame, ok := parser.feed(line); ok {
				t.dispatch(frame, lifecycle)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return reasonTransportClose
			}
			t.logger.Debug("live update stream read failed", zap.Error(err))
			return reasonTransportError
		}
	}
}

func (t *SSETransport) dispatch(f frame, lifecycle Lifecycle) {
	if f.event != EventUpdate {
		return
	}
	update, err := DecodeUpdate([]byte(f.data), t.clock().UTC())
	if err != nil {
		t.logger.Warn("discarding malformed live update", zap.Error(err))
		return
	}
	lifecycle.Received(update)
}

type frame struct {
	event string
	data  string
}

// frameParser accumulates Server-Sent Events fields until a blank line dispatches a frame.
type frameParser struct {
	event   string
	data    []string
	hasData bool
}

func (p *frameParser) feed(line string) (frame, bool) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if !p.hasData {
			p.event = ""
			return frame{}, false
		}
		event := p.event
		if event == "" {
			event = "message"
		}
		f := frame{event: event, data: strings.Join(p.data, "\n")}
		p.event, p.data, p.hasData = "", nil, false
		return f, true
	}
	if strings.HasPrefix(line, ":") {
		return frame{}, false
	}
	field, value, found := strings.Cut(line, ":")
	if found {
		value = strings.TrimPrefix(value, " ")
	}
	switch field {
	case "event":
		p.event = value
	case "data":
		p.data = append(p.data, value)
		p.hasData = true
	}
	return frame{}, false
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

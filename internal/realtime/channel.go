package realtime

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	errMissingTransport = errors.New("realtime: transport is required")
	errInvalidCapacity  = errors.New("realtime: buffer capacity must be positive")
)

// Lifecycle receives the signals a Transport raises while it owns the connection.
type Lifecycle interface {
	Connecting()
	Connected()
	Disconnected(reason string)
	ConnectError(err error)
	Reconnecting(attempt int)
	Reconnected(attempt int)
	ReconnectError(err error)
	ReconnectFailed()
	Received(update Update)
}

// Transport delivers push events for one channel. Run blocks until ctx is done or the
// transport gives up, reporting everything through the Lifecycle.
type Transport interface {
	Run(ctx context.Context, lifecycle Lifecycle) error
}

// ChannelConfig describes the dependencies of a Channel.
type ChannelConfig struct {
	Transport Transport
	Capacity  int
	Logger    *zap.Logger
	// OnChange runs after every status or buffer mutation, outside the channel lock.
	OnChange func()
}

// Snapshot is a point-in-time copy of the channel's observable state.
type Snapshot struct {
	Status  Status   `json:"status"`
	Updates []Update `json:"updates"`
}

// Channel maintains one push connection, its status, and the bounded history of updates.
type Channel struct {
	transport Transport
	logger    *zap.Logger
	onChange  func()

	mu     sync.RWMutex
	status Status
	buffer *Buffer
	opened bool
	closed bool
	cancel context.CancelFunc
	done   chan struct{}
}

// NewChannel validates the configuration and returns a disconnected channel.
func NewChannel(cfg ChannelConfig) (*Channel, error) {
	if cfg.Transport == nil {
		return nil, errMissingTransport
	}
	if cfg.Capacity < 1 {
		return nil, errInvalidCapacity
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		transport: cfg.Transport,
		logger:    logger,
		onChange:  cfg.OnChange,
		status:    Status{State: StateDisconnected},
		buffer:    NewBuffer(cfg.Capacity),
	}, nil
}

// Open starts the transport. Only the first call on an unclosed channel has an effect.
func (c *Channel) Open(ctx context.Context) {
	c.mu.Lock()
	if c.opened || c.closed {
		c.mu.Unlock()
		return
	}
	c.opened = true
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		err := c.transport.Run(runCtx, channelLifecycle{channel: c})
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("live update transport stopped", zap.Error(err))
		}
	}()
}

// Close stops the transport and waits for it to exit. It is safe to call in any state and
// more than once.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	c.apply(signal{kind: signalDisconnected, reason: ReasonClientClose})
}

// Snapshot returns copies of the status and buffered updates, newest first.
func (c *Channel) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{Status: c.status, Updates: c.buffer.Items()}
}

// Status returns the current connection status.
func (c *Channel) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Channel) apply(sig signal) {
	c.mu.Lock()
	previous := c.status
	c.status = reduceStatus(c.status, sig)
	next := c.status
	c.mu.Unlock()

	fields := []zap.Field{
		zap.String("signal", sig.kind.String()),
		zap.String("state", string(next.State)),
	}
	if sig.reason != "" {
		fields = append(fields, zap.String("reason", sig.reason))
	}
	if sig.message != "" {
		fields = append(fields, zap.String("error", sig.message))
	}
	if sig.attempt > 0 {
		fields = append(fields, zap.Int("attempt", sig.attempt))
	}
	switch sig.kind {
	case signalConnectError, signalReconnectError, signalReconnectFailed:
		c.logger.Warn("live update channel", fields...)
	default:
		c.logger.Info("live update channel", fields...)
	}

	if previous != next {
		c.notify()
	}
}

func (c *Channel) receive(update Update) {
	c.mu.Lock()
	c.buffer.Push(update)
	c.mu.Unlock()
	c.logger.Debug("live update received", zap.String("type", update.Type))
	c.notify()
}

func (c *Channel) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

type channelLifecycle struct {
	channel *Channel
}

func (l channelLifecycle) Connecting() {
	l.channel.apply(signal{kind: signalConnecting})
}

func (l channelLifecycle) Connected() {
	l.channel.apply(signal{kind: signalConnected})
}

func (l channelLifecycle) Disconnected(reason string) {
	l.channel.apply(signal{kind: signalDisconnected, reason: reason})
}

func (l channelLifecycle) ConnectError(err error) {
	l.channel.apply(signal{kind: signalConnectError, message: errorText(err)})
}

func (l channelLifecycle) Reconnecting(attempt int) {
	l.channel.apply(signal{kind: signalReconnecting, attempt: attempt})
}

func (l channelLifecycle) Reconnected(attempt int) {
	l.channel.apply(signal{kind: signalReconnected, attempt: attempt})
}

func (l channelLifecycle) ReconnectError(err error) {
	l.channel.apply(signal{kind: signalReconnectError, message: errorText(err)})
}

func (l channelLifecycle) ReconnectFailed() {
	l.channel.apply(signal{kind: signalReconnectFailed})
}

func (l channelLifecycle) Received(update Update) {
	l.channel.receive(update)
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

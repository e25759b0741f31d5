package net

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/apigear-io/sioprobe/pkg/log"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	sio "github.com/zishang520/socket.io/clients/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"
)

// Transport names accepted in ClientOptions.Transports.
const (
	TransportPolling      = "polling"
	TransportWebSocket    = "websocket"
	TransportWebTransport = "webtransport"
)

// Handler receives the raw JSON arguments of an event.
type Handler = func(args []json.RawMessage) error

// State is the lifecycle state of a client connection.
type State int

const (
	StateUnopened State = iota
	StateOpening
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

var (
	// ErrClosed is returned when emitting on a closing or closed client.
	ErrClosed = errors.New("socketio: client closed")
	// ErrAlreadyOpened is returned by a second Open.
	ErrAlreadyOpened = errors.New("socketio: client already opened")
)

// ClientOptions configure a Socket.IO client.
type ClientOptions struct {
	// URL addresses the server; its path selects the namespace.
	URL string
	// Path is the Engine.IO handshake path, /socket.io/ by default.
	Path string
	// Transports lists the allowed transports in preference order,
	// websocket only when empty.
	Transports []string
	// Timeout bounds the connection attempt, the library default when zero.
	Timeout time.Duration
}

// Client adapts a Socket.IO client socket to raw JSON handlers and a
// single session outcome. It does not connect until Open is called.
type Client struct {
	opts      ClientOptions
	endpoint  string
	namespace string
	socket    *sio.Socket
	log       zerolog.Logger

	mu    sync.Mutex
	state State
	stop  func() bool

	done chan struct{}
	err  error
}

// NewClient validates the options and returns an unopened client.
func NewClient(opts ClientOptions) (*Client, error) {
	target, endpoint, namespace, err := parseTarget(opts.URL, opts.Path)
	if err != nil {
		return nil, err
	}
	transports, err := transportSet(opts.Transports, sio.Polling, sio.WebSocket, sio.WebTransport)
	if err != nil {
		return nil, err
	}

	o := sio.DefaultOptions()
	o.SetPath(HandshakePath(opts.Path))
	o.SetTransports(transports)
	o.SetAutoConnect(false)
	o.SetReconnection(false)
	o.SetForceNew(true)
	if opts.Timeout > 0 {
		o.SetTimeout(opts.Timeout)
	}
	socket, err := sio.Io(target, o)
	if err != nil {
		return nil, fmt.Errorf("socketio: %w", err)
	}

	c := &Client{
		opts:      opts,
		endpoint:  endpoint,
		namespace: namespace,
		socket:    socket,
		log:       log.With().Str("conn", uuid.NewString()).Str("namespace", namespace).Logger(),
		done:      make(chan struct{}),
	}
	c.watch()
	return c, nil
}

// parseTarget checks the URL and returns the address handed to the
// library, the handshake endpoint and the namespace.
func parseTarget(rawURL, path string) (string, string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", "", fmt.Errorf("socketio: parse url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "http"
	case "https", "wss":
		u.Scheme = "https"
	default:
		return "", "", "", fmt.Errorf("socketio: unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", "", "", fmt.Errorf("socketio: url %q has no host", rawURL)
	}
	namespace := u.Path
	if namespace == "" {
		namespace = rootNamespace
	}
	endpoint := url.URL{Scheme: u.Scheme, Host: u.Host, Path: HandshakePath(path)}
	return u.String(), endpoint.String(), namespace, nil
}

// transportSet maps transport names onto the library's constructors,
// keeping the first occurrence of each.
func transportSet[T comparable](names []string, polling, websocket, webtransport T) (*types.Set[T], error) {
	if len(names) == 0 {
		names = []string{TransportWebSocket}
	}
	selected := make([]T, 0, len(names))
	for _, name := range names {
		switch name {
		case TransportPolling:
			selected = append(selected, polling)
		case TransportWebSocket:
			selected = append(selected, websocket)
		case TransportWebTransport:
			selected = append(selected, webtransport)
		default:
			return nil, fmt.Errorf("socketio: unsupported transport %q", name)
		}
	}
	return types.NewSet(selected...), nil
}

// Endpoint returns the handshake URL of the server.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Namespace returns the Socket.IO namespace the client joins.
func (c *Client) Namespace() string {
	return c.namespace
}

// watch maps the socket's lifecycle events onto the session outcome.
func (c *Client) watch() {
	_ = c.socket.On("connect", func(...any) {
		c.mu.Lock()
		if c.state == StateOpening {
			c.state = StateOpen
		}
		c.mu.Unlock()
		c.log.Info().Str("sid", c.socket.Id()).Msg("connected")
	})
	_ = c.socket.On("connect_error", func(args ...any) {
		err, _ := firstOf[error](args, 0)
		if err == nil {
			err = errors.New("connection refused")
		}
		c.finish(fmt.Errorf("socketio: connect error: %w", err))
	})
	_ = c.socket.On("disconnect", func(args ...any) {
		reason, _ := firstOf[string](args, 0)
		cause, _ := firstOf[error](args, 1)
		c.log.Info().Str("reason", reason).Msg("disconnected")
		c.finish(disconnectError(reason, cause))
	})
}

// disconnectError tells a normal end of session from a failure.
func disconnectError(reason string, cause error) error {
	switch reason {
	case "io server disconnect", "io client disconnect", "transport close", "forced close":
		return nil
	}
	if cause != nil {
		return fmt.Errorf("socketio: %s: %w", reason, cause)
	}
	return fmt.Errorf("socketio: %s", reason)
}

func firstOf[T any](args []any, i int) (T, bool) {
	var zero T
	if i >= len(args) {
		return zero, false
	}
	v, ok := args[i].(T)
	return v, ok
}

// On registers fn for the named event. The pseudo-event "connect" fires
// once the namespace handshake completes.
func (c *Client) On(event string, fn Handler) {
	_ = c.socket.On(types.EventName(event), c.listener(fn))
}

// intercept registers a handler that sees every event, name first.
func (c *Client) intercept(fn Handler) {
	c.socket.OnAny(c.listener(fn))
}

// listener converts decoded arguments back to JSON for fn. A failing
// handler ends the session with its error.
func (c *Client) listener(fn Handler) types.EventListener {
	return func(args ...any) {
		raw, err := rawArgs(args)
		if err == nil {
			err = fn(raw)
		}
		if err != nil {
			c.fail(err)
		}
	}
}

// rawArgs encodes each argument as JSON. Ack callbacks are dropped.
func rawArgs(args []any) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(args))
	for _, arg := range args {
		if _, ok := arg.(func([]any, error)); ok {
			continue
		}
		data, err := json.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("socketio: encode argument: %w", err)
		}
		out = append(out, data)
	}
	return out, nil
}

// plainArgs decodes raw JSON arguments so the encoder sees plain values
// instead of byte slices.
func plainArgs(args []any) ([]any, error) {
	out := make([]any, 0, len(args))
	for _, arg := range args {
		if raw, ok := arg.(json.RawMessage); ok {
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("socketio: decode argument: %w", err)
			}
			arg = v
		}
		out = append(out, arg)
	}
	return out, nil
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed when the session has ended.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the session ended: nil after Close or a server-side
// disconnect, the failure otherwise. Only valid after Done is closed.
func (c *Client) Err() error {
	<-c.done
	return c.err
}

// Open starts connecting in the background and returns immediately.
// Cancelling ctx closes the client.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateUnopened {
		c.mu.Unlock()
		return ErrAlreadyOpened
	}
	c.state = StateOpening
	c.stop = context.AfterFunc(ctx, func() {
		_ = c.Close()
	})
	c.mu.Unlock()

	c.log.Debug().Str("endpoint", c.endpoint).Strs("transports", c.opts.Transports).Msg("opening connection")
	c.socket.Connect()
	return nil
}

// Emit sends an event. Events emitted before the namespace is connected
// are buffered by the socket and flushed in order once it is.
func (c *Client) Emit(event string, args ...any) error {
	switch c.State() {
	case StateClosing, StateClosed:
		return ErrClosed
	}
	values, err := plainArgs(args)
	if err != nil {
		return err
	}
	if err := c.socket.Emit(event, values...); err != nil {
		return fmt.Errorf("socketio: emit %s: %w", event, err)
	}
	return nil
}

// Close ends the session. It is safe to call more than once and from any
// goroutine.
func (c *Client) Close() error {
	c.mu.Lock()
	switch c.state {
	case StateClosing, StateClosed:
		c.mu.Unlock()
		return nil
	}
	opened := c.state != StateUnopened
	c.state = StateClosing
	c.mu.Unlock()

	c.log.Debug().Msg("closing connection")
	if opened {
		c.socket.Disconnect()
	}
	c.finish(nil)
	return nil
}

// fail ends the session with err and drops the connection.
func (c *Client) fail(err error) {
	c.log.Debug().Err(err).Msg("handler failed")
	c.finish(err)
	go c.socket.Disconnect()
}

// finish records the outcome once. Anything after a deliberate Close
// counts as a clean shutdown.
func (c *Client) finish(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return
	}
	if c.state == StateClosing {
		err = nil
	}
	if err != nil {
		c.log.Debug().Err(err).Msg("session failed")
	}
	if c.stop != nil {
		c.stop()
	}
	c.state = StateClosed
	c.err = err
	close(c.done)
}

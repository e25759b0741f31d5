package net

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/apigear-io/sioprobe/pkg/helper"
	"github.com/apigear-io/sioprobe/pkg/log"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	server "github.com/zishang520/socket.io/servers/socket/v3"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var (
	errClientGone = errors.New("feed: client gone")

	childNamespaces = regexp.MustCompile(`^/.+$`)
)

// FeedOptions configure the feed server.
type FeedOptions struct {
	Addr string
	Path string
	// Events are JSON arrays ["name", args...] replayed to every client
	// once it has joined a namespace, whichever namespace that is.
	Events   []json.RawMessage
	Interval time.Duration
	// Batch is the number of events sent per interval, 1 by default.
	Batch int
	// Repeat is the number of replay passes; negative repeats forever.
	Repeat int
	// Disconnect ends the namespace after the replay.
	Disconnect bool
	// Transports the server accepts, polling and websocket when empty.
	Transports   []string
	PingInterval time.Duration
	PingTimeout  time.Duration
	// OnEmit is called for every event a client emits.
	OnEmit func(name string, args []json.RawMessage)
}

type feedEvent struct {
	name string
	args []any
}

// FeedServer replays a fixed list of events to every connecting client.
type FeedServer struct {
	opts   FeedOptions
	events []feedEvent
	io     *server.Server
	router http.Handler
}

// LoadFeed reads an NDJSON feed file, one event array per line.
func LoadFeed(path string) ([]json.RawMessage, error) {
	events, err := helper.ReadNDJSONFile[json.RawMessage](path)
	if err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}
	if _, err := decodeFeed(events); err != nil {
		return nil, err
	}
	return events, nil
}

func decodeFeed(events []json.RawMessage) ([]feedEvent, error) {
	out := make([]feedEvent, 0, len(events))
	for i, ev := range events {
		name, raw, err := SplitEvent(ev)
		if err != nil {
			return nil, fmt.Errorf("feed: entry %d: %w", i+1, err)
		}
		args := make([]any, 0, len(raw))
		for _, r := range raw {
			args = append(args, r)
		}
		if args, err = plainArgs(args); err != nil {
			return nil, fmt.Errorf("feed: entry %d: %w", i+1, err)
		}
		out = append(out, feedEvent{name: name, args: args})
	}
	return out, nil
}

// NewFeedServer builds a Socket.IO server that replays opts.Events on the
// root namespace and on any other namespace a client asks for.
func NewFeedServer(opts FeedOptions) (*FeedServer, error) {
	events, err := decodeFeed(opts.Events)
	if err != nil {
		return nil, err
	}
	names := opts.Transports
	if len(names) == 0 {
		names = []string{TransportPolling, TransportWebSocket}
	}
	transports, err := transportSet(names, server.Polling, server.WebSocket, server.WebTransport)
	if err != nil {
		return nil, err
	}

	o := server.DefaultServerOptions()
	o.SetTransports(transports)
	o.SetServeClient(false)
	if opts.PingInterval > 0 {
		o.SetPingInterval(opts.PingInterval)
	}
	if opts.PingTimeout > 0 {
		o.SetPingTimeout(opts.PingTimeout)
	}

	f := &FeedServer{
		opts:   opts,
		events: events,
		io:     server.NewServer(nil, o),
	}
	f.io.SetPath(HandshakePath(opts.Path))
	f.io.Of(rootNamespace, f.onConnect)
	f.io.Of(childNamespaces, f.onConnect)

	router := chi.NewRouter()
	router.Handle(HandshakePath(opts.Path), f.io.ServeHandler(nil))
	f.router = router
	return f, nil
}

// Handler serves the handshake path. Other paths answer 404.
func (f *FeedServer) Handler() http.Handler {
	return f.router
}

// Close disconnects every client.
func (f *FeedServer) Close() {
	f.io.Close(nil)
}

// onConnect wires a joined socket synchronously, so events the client
// sent right after joining are seen, then replays in the background.
func (f *FeedServer) onConnect(args ...any) {
	socket, ok := firstOf[*server.Socket](args, 0)
	if !ok {
		return
	}
	l := log.With().Str("sid", string(socket.Id())).Str("namespace", socket.Nsp().Name()).Logger()
	l.Info().Msg("feed: client joined")

	ctx, cancel := context.WithCancel(context.Background())
	_ = socket.On("disconnect", func(args ...any) {
		reason, _ := firstOf[string](args, 0)
		l.Info().Str("reason", reason).Msg("feed: client gone")
		cancel()
	})
	socket.OnAny(func(args ...any) {
		raw, err := rawArgs(args)
		if err != nil || len(raw) == 0 {
			l.Warn().Err(err).Msg("feed: bad client event")
			return
		}
		name, _ := firstOf[string](args, 0)
		l.Info().Str("event", name).Msg("feed: client emit")
		if f.opts.OnEmit != nil {
			f.opts.OnEmit(name, raw[1:])
		}
	})
	go f.replay(ctx, cancel, socket, l)
}

func (f *FeedServer) replay(ctx context.Context, cancel context.CancelFunc, socket *server.Socket, l zerolog.Logger) {
	defer cancel()
	sender := helper.NewSenderControl[feedEvent](f.opts.Repeat, f.opts.Interval, f.opts.Batch)
	err := sender.Run(ctx, f.events, func(ev feedEvent) error {
		if !socket.Connected() {
			return errClientGone
		}
		return socket.Emit(ev.name, ev.args...)
	})
	if ctx.Err() != nil || errors.Is(err, errClientGone) {
		return
	}
	if err != nil {
		l.Warn().Err(err).Msg("feed: replay failed")
		return
	}
	if f.opts.Disconnect {
		l.Info().Msg("feed: replay done, disconnecting")
		socket.Disconnect(false)
	}
}

// RunFeedServer serves the feed until the context is cancelled.
func RunFeedServer(ctx context.Context, opts FeedOptions) error {
	feed, err := NewFeedServer(opts)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:    opts.Addr,
		Handler: feed.Handler(),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info().Str("addr", opts.Addr).Str("path", HandshakePath(opts.Path)).Int("events", len(opts.Events)).Msg("feed: listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		feed.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("feed: shutdown error")
		}
		return nil
	})
	return group.Wait()
}

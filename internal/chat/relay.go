package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/fanout/core/logger"
	"github.com/dmitrymomot/fanout/pkg/broadcast"
	"github.com/dmitrymomot/fanout/pkg/ratelimiter"
)

// Envelope is one entry of the relay log: a message and the session that produced it.
type Envelope struct {
	From    uuid.UUID
	Message Message
}

// Relay fans chat messages out to every connected session over a single
// broadcast channel. Each session holds a clone of the sender and a receiver
// cloned from the relay's root receiver, so it sees only messages published
// after it joined.
type Relay struct {
	cfg     Config
	logger  *slog.Logger
	limiter *ratelimiter.Limiter

	mu     sync.Mutex
	closed bool
	tx     *broadcast.Sender[Envelope]
	root   *broadcast.Receiver[Envelope]

	ctx      context.Context
	cancel   context.CancelFunc
	sessions atomic.Int64
	upgrader websocket.Upgrader
}

// Option configures a Relay.
type Option func(*Relay)

// WithConfig sets the relay configuration.
func WithConfig(cfg Config) Option {
	return func(r *Relay) {
		r.cfg = cfg
	}
}

// WithLogger sets the relay logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(r *Relay) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRateLimiter limits renames and chat text per remote host. Messages over
// the limit are dropped; the session stays open.
func WithRateLimiter(l *ratelimiter.Limiter) Option {
	return func(r *Relay) {
		r.limiter = l
	}
}

// NewRelay creates a Relay ready to serve sessions.
func NewRelay(opts ...Option) *Relay {
	r := &Relay{
		cfg:    DefaultConfig(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cfg.MaxLineBytes <= 0 {
		r.cfg.MaxLineBytes = DefaultConfig().MaxLineBytes
	}

	r.tx, r.root = broadcast.New[Envelope]()
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(r.cfg.AllowedOrigins),
	}
	r.logger = r.logger.With(logger.Component("chat"))
	return r
}

// Sessions returns the number of sessions currently being served.
func (r *Relay) Sessions() int {
	return int(r.sessions.Load())
}

// Healthcheck reports ErrRelayClosed once the relay is closed.
func (r *Relay) Healthcheck(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRelayClosed
	}
	return nil
}

// Close ends every session and releases the relay's channel handles.
// Further sessions fail with ErrRelayClosed. Safe to call more than once.
func (r *Relay) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	return errors.Join(r.tx.Close(), r.root.Close())
}

// ServeConn serves one client speaking newline-delimited JSON messages on conn.
// It returns when the client disconnects, ctx is canceled or the relay closes.
// The caller owns conn; ServeConn closes it only to unblock reads on shutdown.
func (r *Relay) ServeConn(ctx context.Context, conn net.Conn) error {
	return r.serve(ctx, newLineConn(conn, r.cfg), conn.RemoteAddr())
}

// WebSocketHandler returns a handler that upgrades requests to WebSocket and
// serves one session per connection, one JSON message per text frame.
func (r *Relay) WebSocketHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := r.upgrader.Upgrade(w, req, nil)
		if err != nil {
			// Upgrade has already replied with an HTTP error.
			r.logger.DebugContext(req.Context(), "websocket upgrade failed", logger.Error(err))
			return
		}
		defer conn.Close()

		if err := r.serve(req.Context(), newWSConn(conn, r.cfg), conn.RemoteAddr()); err != nil {
			r.logger.WarnContext(req.Context(), "websocket session failed", logger.Error(err))
		}
	})
}

func (r *Relay) subscribe() (*broadcast.Sender[Envelope], *broadcast.Receiver[Envelope], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, nil, ErrRelayClosed
	}
	return r.tx.Clone(), r.root.Clone(), nil
}

func (r *Relay) serve(ctx context.Context, c transport, remote net.Addr) error {
	tx, rx, err := r.subscribe()
	if err != nil {
		return err
	}

	id := uuid.New()
	log := r.logger.With(logger.SessionID(id.String()), logger.RemoteAddr(remote))
	n := r.sessions.Add(1)
	defer r.sessions.Add(-1)
	log.DebugContext(ctx, "session started", logger.Count("sessions", int(n)))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(r.ctx, cancel)
	defer stop()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer cancel()
		defer tx.Close()
		return r.read(egCtx, id, c, tx, rateKey(remote), log)
	})
	eg.Go(func() error {
		defer rx.Close()
		return r.write(egCtx, id, c, rx)
	})

	// Reads block in the transport; closing it is the only way to unblock them.
	unblock := context.AfterFunc(egCtx, func() { _ = c.Close() })
	defer unblock()

	err = eg.Wait()
	log.DebugContext(ctx, "session ended", logger.Error(err))
	return err
}

// read introduces the user, then publishes renames and chat text until the
// client disconnects.
func (r *Relay) read(ctx context.Context, id uuid.UUID, c transport, tx *broadcast.Sender[Envelope], key string, log *slog.Logger) error {
	first, err := c.ReadMessage()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ErrNotIntroduced
		}
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("read introduction: %w", err)
	}
	if first.Kind != KindUser {
		return fmt.Errorf("%w: got %s", ErrNotIntroduced, first.Kind)
	}
	user, err := first.User.Normalize()
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "user joined", slog.String("user", user.Name))
	if err := publish(tx, id, NewUser(user)); err != nil {
		return err
	}

	for {
		msg, err := c.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				log.InfoContext(ctx, "user left", slog.String("user", user.Name))
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}
		if msg.Kind != KindChat && r.limiter != nil && !r.limiter.Allow(key) {
			log.WarnContext(ctx, "rate limit exceeded, dropping message", logger.Key("kind", msg.Kind.String()))
			continue
		}

		switch msg.Kind {
		case KindUser:
			renamed, err := msg.User.Normalize()
			if err != nil {
				return err
			}
			log.InfoContext(ctx, "user renamed", slog.String("from", user.Name), slog.String("to", renamed.Name))
			user = renamed
			if err := publish(tx, id, NewUser(user)); err != nil {
				return err
			}
		case KindClientMessage:
			if err := publish(tx, id, NewChat(user, msg.Content)); err != nil {
				return err
			}
		case KindChat:
			log.DebugContext(ctx, "ignoring chat message sent by client")
		}
	}
}

// write delivers relay messages to the client until the stream ends or ctx is
// canceled.
func (r *Relay) write(ctx context.Context, id uuid.UUID, c transport, rx *broadcast.Receiver[Envelope]) error {
	for {
		env, ok, err := rx.Recv(ctx)
		if err != nil || !ok {
			return nil
		}
		if env.From == id && !r.cfg.Echo {
			continue
		}
		if err := c.WriteMessage(env.Message); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("write message: %w", err)
		}
	}
}

// rateKey groups sessions by remote host so reconnecting does not reset the limit.
func rateKey(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

func publish(tx *broadcast.Sender[Envelope], id uuid.UUID, msg Message) error {
	if err := tx.Send(Envelope{From: id, Message: msg}); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Kind, err)
	}
	return nil
}

// Package feed is a websocket transport for the backend's realtime change
// feed. One connection multiplexes every channel; channels are rejoined
// after a reconnect.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/superemem/azwaryfocus/internal/domain/realtime"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("feed closed")
	// ErrNotConnected is returned when a message is sent without a live connection.
	ErrNotConnected = errors.New("feed not connected")
	// ErrJoinRejected is returned when the server refuses a channel join.
	ErrJoinRejected = errors.New("channel join rejected")
)

const (
	defaultHeartbeat   = 25 * time.Second
	defaultJoinTimeout = 10 * time.Second
	defaultMinBackoff  = time.Second
	defaultMaxBackoff  = 30 * time.Second
	readLimit          = 1 << 20
	protocolVersion    = "1.0.0"
)

// Options configures a Client.
type Options struct {
	// URL is the backend base URL; http(s) is mapped to ws(s).
	URL         string
	AnonKey     string
	AccessToken string
	Heartbeat   time.Duration
	JoinTimeout time.Duration
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
	Logger      *slog.Logger
}

// Client implements realtime.Transport over a single websocket.
type Client struct {
	endpoint    string
	token       string
	heartbeat   time.Duration
	joinTimeout time.Duration
	minBackoff  time.Duration
	maxBackoff  time.Duration
	logger      *slog.Logger

	life     context.Context
	shutdown context.CancelFunc

	// dialMu serializes dialers; c.mu is never held across a dial.
	dialMu sync.Mutex

	mu         sync.Mutex
	conn       *websocket.Conn
	stopConn   context.CancelFunc
	cancelDial context.CancelFunc
	channels   map[string]*channel
	pending    map[string]chan replyPayload
	nextRef    uint64
	nextTopic  uint64
	closed     bool

	wg sync.WaitGroup
}

var _ realtime.Transport = (*Client)(nil)

// New creates a Client. The connection is opened by the first Subscribe.
func New(opts Options) (*Client, error) {
	endpoint, err := endpointURL(opts.URL, opts.AnonKey)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	life, shutdown := context.WithCancel(context.Background())
	return &Client{
		endpoint:    endpoint,
		token:       opts.AccessToken,
		heartbeat:   orDefault(opts.Heartbeat, defaultHeartbeat),
		joinTimeout: orDefault(opts.JoinTimeout, defaultJoinTimeout),
		minBackoff:  orDefault(opts.MinBackoff, defaultMinBackoff),
		maxBackoff:  orDefault(opts.MaxBackoff, defaultMaxBackoff),
		logger:      logger,
		life:        life,
		shutdown:    shutdown,
		channels:    map[string]*channel{},
		pending:     map[string]chan replyPayload{},
	}, nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func endpointURL(base, apiKey string) (string, error) {
	if base == "" {
		return "", errors.New("realtime url is required")
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("parse realtime url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported realtime url scheme %q", u.Scheme)
	}
	u.Path += "/realtime/v1/websocket"
	q := url.Values{}
	if apiKey != "" {
		q.Set("apikey", apiKey)
	}
	q.Set("vsn", protocolVersion)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe joins a channel scoped to sub and blocks until the server
// acknowledges the join.
func (c *Client) Subscribe(ctx context.Context, sub realtime.Subscription, handler func(realtime.Change)) (realtime.Channel, error) {
	if _, err := c.connection(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.nextTopic++
	ch := &channel{
		client:  c,
		topic:   topicPrefix + sub.Table + ":" + sub.Filter + ":" + strconv.FormatUint(c.nextTopic, 10),
		sub:     sub,
		handler: handler,
	}
	c.channels[ch.topic] = ch
	c.mu.Unlock()

	if err := c.join(ctx, ch); err != nil {
		if errors.Is(err, ErrJoinRejected) {
			c.mu.Lock()
			delete(c.channels, ch.topic)
			c.mu.Unlock()
			return nil, err
		}
		// The server may have joined before the reply was lost.
		if leaveErr := c.leave(ch); leaveErr != nil {
			c.logger.Debug("leaving unacknowledged channel", "topic", ch.topic, "error", leaveErr)
		}
		return nil, err
	}
	c.logger.Debug("channel joined", "topic", ch.topic)
	return ch, nil
}

// Close leaves every channel and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if c.cancelDial != nil {
		c.cancelDial()
	}
	channels := make([]*channel, 0, len(c.channels))
	for _, ch := range c.channels {
		channels = append(channels, ch)
	}
	c.mu.Unlock()

	for _, ch := range channels {
		_ = ch.Close()
	}

	c.mu.Lock()
	c.closed = true
	conn, stop := c.conn, c.stopConn
	c.conn, c.stopConn = nil, nil
	c.failPendingLocked()
	c.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close(websocket.StatusNormalClosure, "")
		stop()
	}
	c.shutdown()
	c.wg.Wait()
	return err
}

// connection returns the live connection, dialing when there is none. The
// dial is bounded by the join timeout and is cancelled by Close.
func (c *Client) connection(ctx context.Context) (*websocket.Conn, error) {
	c.dialMu.Lock()
	defer c.dialMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.conn != nil {
		conn := c.conn
		c.mu.Unlock()
		return conn, nil
	}
	dialCtx, cancel := context.WithTimeout(c.life, c.joinTimeout)
	defer cancel()
	stopWatch := context.AfterFunc(ctx, cancel)
	defer stopWatch()
	c.cancelDial = cancel
	c.mu.Unlock()

	conn, _, err := websocket.Dial(dialCtx, c.endpoint, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelDial = nil
	if err != nil {
		return nil, fmt.Errorf("dial realtime: %w", err)
	}
	if c.closed {
		conn.CloseNow()
		return nil, ErrClosed
	}
	conn.SetReadLimit(readLimit)

	run, stop := context.WithCancel(c.life)
	c.conn, c.stopConn = conn, stop
	c.wg.Add(2)
	go c.readLoop(run, conn)
	go c.heartbeatLoop(run, conn)
	c.logger.Info("realtime connected")
	return conn, nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		var msg inbound
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			c.connectionLost(conn, err)
			return
		}
		c.route(msg)
	}
}

func (c *Client) heartbeatLoop(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	var outstanding chan replyPayload
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if outstanding != nil {
			select {
			case <-outstanding:
			default:
				c.logger.Warn("realtime heartbeat timed out")
				conn.CloseNow()
				return
			}
		}
		ref := c.ref()
		outstanding = c.expect(ref)
		if err := c.send(ctx, outbound{Topic: phoenixTopic, Event: eventHeartbeat, Payload: struct{}{}, Ref: ref}); err != nil {
			c.forget(ref)
			return
		}
	}
}

// connectionLost drops conn and, unless the client is closed, reconnects
// in the background.
func (c *Client) connectionLost(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.closed || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.stopConn()
	c.stopConn = nil
	c.failPendingLocked()
	resume := len(c.channels) > 0
	if resume {
		c.wg.Add(1)
	}
	c.mu.Unlock()

	conn.CloseNow()
	c.logger.Warn("realtime connection lost", "error", cause)
	if resume {
		go c.reconnect()
	}
}

func (c *Client) reconnect() {
	defer c.wg.Done()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.minBackoff
	policy.MaxInterval = c.maxBackoff

	_, err := backoff.Retry(c.life, func() (*websocket.Conn, error) {
		conn, err := c.connection(c.life)
		if errors.Is(err, ErrClosed) {
			return nil, backoff.Permanent(err)
		}
		return conn, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("realtime reconnect failed", "error", err, "retry_in", next)
		}),
	)
	if err != nil {
		return
	}

	c.mu.Lock()
	channels := make([]*channel, 0, len(c.channels))
	for _, ch := range c.channels {
		channels = append(channels, ch)
	}
	c.mu.Unlock()

	for _, ch := range channels {
		if err := c.join(c.life, ch); err != nil {
			c.logger.Warn("rejoining channel", "topic", ch.topic, "error", err)
		}
	}
}

// join sends phx_join for ch and waits for the reply.
func (c *Client) join(ctx context.Context, ch *channel) error {
	ctx, cancel := context.WithTimeout(ctx, c.joinTimeout)
	defer cancel()

	ref := c.ref()
	replies := c.expect(ref)
	ch.setJoinRef(ref)
	msg := outbound{Topic: ch.topic, Event: eventJoin, Payload: newJoin(ch.sub, c.token), Ref: ref, JoinRef: ref}
	if err := c.send(ctx, msg); err != nil {
		c.forget(ref)
		return fmt.Errorf("join %s: %w", ch.topic, err)
	}

	select {
	case r, ok := <-replies:
		if !ok {
			return fmt.Errorf("join %s: %w", ch.topic, ErrNotConnected)
		}
		if r.Status != "ok" {
			return fmt.Errorf("join %s: %w: %s", ch.topic, ErrJoinRejected, strings.TrimSpace(string(r.Response)))
		}
		return nil
	case <-ctx.Done():
		c.forget(ref)
		return fmt.Errorf("join %s: %w", ch.topic, ctx.Err())
	}
}

// leave removes ch and tells the server. Leaving without a connection is
// not an error: the server has already dropped the channel.
func (c *Client) leave(ch *channel) error {
	c.mu.Lock()
	delete(c.channels, ch.topic)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(c.life, c.joinTimeout)
	defer cancel()
	err := c.send(ctx, outbound{Topic: ch.topic, Event: eventLeave, Payload: struct{}{}, Ref: c.ref(), JoinRef: ch.joinRef()})
	if err != nil && !errors.Is(err, ErrNotConnected) && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("leave %s: %w", ch.topic, err)
	}
	c.logger.Debug("channel left", "topic", ch.topic)
	return nil
}

func (c *Client) send(ctx context.Context, msg outbound) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return wsjson.Write(ctx, conn, msg)
}

func (c *Client) route(msg inbound) {
	if msg.Event == eventReply {
		var r replyPayload
		if err := json.Unmarshal(msg.Payload, &r); err != nil {
			c.logger.Warn("decoding reply", "topic", msg.Topic, "error", err)
			return
		}
		c.resolve(msg.Ref, r)
		return
	}
	if msg.Topic == phoenixTopic {
		return
	}

	c.mu.Lock()
	ch := c.channels[msg.Topic]
	c.mu.Unlock()
	if ch == nil {
		return
	}

	switch msg.Event {
	case eventChanges:
		var p changePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.logger.Warn("decoding change", "topic", msg.Topic, "error", err)
			return
		}
		if ch.handler != nil {
			ch.handler(p.change())
		}
	case eventError:
		c.logger.Warn("channel errored, rejoining", "topic", msg.Topic)
		c.mu.Lock()
		closed := c.closed
		if !closed {
			c.wg.Add(1)
		}
		c.mu.Unlock()
		if !closed {
			go func() {
				defer c.wg.Done()
				if err := c.join(c.life, ch); err != nil {
					c.logger.Warn("rejoining channel", "topic", ch.topic, "error", err)
				}
			}()
		}
	case eventSystem:
		c.logger.Debug("realtime system message", "topic", msg.Topic, "payload", string(msg.Payload))
	case eventClose:
		c.logger.Debug("channel closed by server", "topic", msg.Topic)
	}
}

func (c *Client) ref() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextRef++
	return strconv.FormatUint(c.nextRef, 10)
}

func (c *Client) expect(ref string) chan replyPayload {
	ch := make(chan replyPayload, 1)
	c.mu.Lock()
	c.pending[ref] = ch
	c.mu.Unlock()
	return ch
}

func (c *Client) forget(ref string) {
	c.mu.Lock()
	delete(c.pending, ref)
	c.mu.Unlock()
}

func (c *Client) resolve(ref string, r replyPayload) {
	c.mu.Lock()
	ch, ok := c.pending[ref]
	delete(c.pending, ref)
	c.mu.Unlock()
	if ok {
		ch <- r
	}
}

// failPendingLocked closes every waiting reply channel. c.mu must be held.
func (c *Client) failPendingLocked() {
	for ref, ch := range c.pending {
		close(ch)
		delete(c.pending, ref)
	}
}

type channel struct {
	client  *Client
	topic   string
	sub     realtime.Subscription
	handler func(realtime.Change)

	mu        sync.Mutex
	ref       string
	closeOnce sync.Once
}

func (ch *channel) setJoinRef(ref string) {
	ch.mu.Lock()
	ch.ref = ref
	ch.mu.Unlock()
}

func (ch *channel) joinRef() string {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.ref
}

// Close leaves the channel. Repeated calls are no-ops.
func (ch *channel) Close() error {
	var err error
	ch.closeOnce.Do(func() {
		err = ch.client.leave(ch)
	})
	return err
}

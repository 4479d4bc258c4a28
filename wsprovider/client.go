package wsprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/rgbwebln/rgbwebln/events"
	"github.com/rgbwebln/rgbwebln/rgbrpc"
)

var (
	// ErrClosed is returned for requests issued on, or still pending when,
	// the connection is closed.
	ErrClosed = errors.New("websocket provider closed")

	// DefaultPingInterval is the default time between two pings.
	DefaultPingInterval = time.Second * 30

	// DefaultPongWait is the default time a pong may take to arrive.
	DefaultPongWait = time.Second * 5
)

// Config holds the connection parameters of a Client.
type Config struct {
	// URL is the ws:// or wss:// endpoint of the provider.
	URL string

	// Header is sent with the websocket handshake.
	Header http.Header

	// Dialer dials the connection. websocket.DefaultDialer if nil.
	Dialer *websocket.Dialer

	// RequestTimeout bounds every request in addition to its context.
	// Zero leaves requests bounded by their context only.
	RequestTimeout time.Duration

	// PingInterval and PongWait enable keepalive pings when both are
	// positive.
	PingInterval time.Duration
	PongWait     time.Duration
}

// Client is a provider reached over a websocket. Events pushed by the server
// are dispatched to the handlers registered with On, on the client's read
// goroutine.
type Client struct {
	*events.Registry

	cfg  Config
	conn *websocket.Conn

	nextID atomic.Uint64

	// writeMtx serializes writes, gorilla connections support one
	// concurrent writer.
	writeMtx sync.Mutex

	pendingMtx sync.Mutex
	pending    map[uint64]chan *serverFrame
	closed     bool

	closeOnce sync.Once
	quit      chan struct{}
	wg        sync.WaitGroup
}

// Dial connects to the provider at cfg.URL.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, cfg.URL, cfg.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("unable to dial %s: %w", cfg.URL, err)
	}
	conn.SetReadLimit(MaxMessageSize)

	c := &Client{
		Registry: events.NewRegistry(),
		cfg:      cfg,
		conn:     conn,
		pending:  make(map[uint64]chan *serverFrame),
		quit:     make(chan struct{}),
	}

	// The pong handler must be installed before reading starts.
	if cfg.PingInterval > 0 && cfg.PongWait > 0 {
		c.startPings()
	}

	c.wg.Add(1)
	go c.readLoop()

	log.Infof("Connected to websocket provider at %s", cfg.URL)

	return c, nil
}

// Enable asks the provider to grant access.
func (c *Client) Enable(ctx context.Context, origin fn.Option[string]) error {
	_, err := c.Request(ctx, rgbrpc.MethodEnable, rgbrpc.EnableRequest{
		Origin: fn.MapOptionZ(origin, func(o string) *string {
			return &o
		}),
	})

	return err
}

// IsEnabled asks the provider whether access was granted.
func (c *Client) IsEnabled(ctx context.Context) (bool, error) {
	raw, err := c.Request(ctx, rgbrpc.MethodIsEnabled, nil)
	if err != nil {
		return false, err
	}

	enabled, err := rgbrpc.Decode[bool](rgbrpc.MethodIsEnabled, raw)
	if err != nil {
		return false, err
	}

	return *enabled, nil
}

// Request sends method to the provider and waits for the response with the
// same id.
func (c *Client) Request(ctx context.Context, method string,
	params any) (json.RawMessage, error) {

	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	frame := requestFrame{
		ID:     c.nextID.Add(1),
		Method: method,
	}
	if params != nil {
		rawParams, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("%w: %s params: %v",
				rgbrpc.ErrInvalidRequest, method, err)
		}
		frame.Params = rawParams
	}

	respChan := make(chan *serverFrame, 1)

	c.pendingMtx.Lock()
	if c.closed {
		c.pendingMtx.Unlock()
		return nil, ErrClosed
	}
	c.pending[frame.ID] = respChan
	c.pendingMtx.Unlock()

	defer func() {
		c.pendingMtx.Lock()
		delete(c.pending, frame.ID)
		c.pendingMtx.Unlock()
	}()

	log.Tracef("Sending request id=%d, method=%s", frame.ID, method)

	if err := c.write(ctx, frame); err != nil {
		select {
		case <-c.quit:
			return nil, ErrClosed
		default:
		}

		return nil, err
	}

	select {
	case resp := <-respChan:
		if resp.Error != nil {
			provErr := *resp.Error
			provErr.Method = method

			return nil, &provErr
		}

		return resp.Result, nil

	case <-ctx.Done():
		return nil, ctx.Err()

	case <-c.quit:
		return nil, ErrClosed
	}
}

// write sends a frame, honouring the context deadline.
func (c *Client) write(ctx context.Context, frame requestFrame) error {
	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	_ = c.conn.SetWriteDeadline(deadline)

	if err := c.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("unable to send %s: %w", frame.Method, err)
	}

	return nil
}

// readLoop routes responses to their pending requests and dispatches events
// until the connection fails or is closed.
func (c *Client) readLoop() {
	defer c.wg.Done()
	defer c.shutdown()

	for {
		var frame serverFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			select {
			case <-c.quit:
				log.Tracef("Read loop exiting: %v", err)
			default:
				if isClosedConnError(err) {
					log.Infof("Provider connection "+
						"closed: %v", err)
				} else {
					log.Errorf("Unable to read from "+
						"provider: %v", err)
				}
			}

			return
		}

		if frame.isEvent() {
			log.Debugf("Received %s event", frame.Event)

			c.Registry.Dispatch(frame.Event, frame.Payload)
			continue
		}

		c.pendingMtx.Lock()
		respChan, ok := c.pending[frame.ID]
		c.pendingMtx.Unlock()

		if !ok {
			log.Warnf("Dropping response with unknown id=%d",
				frame.ID)
			continue
		}

		select {
		case respChan <- &frame:
		default:
			log.Warnf("Dropping duplicate response id=%d",
				frame.ID)
		}
	}
}

// startPings sends pings on a ticker and expects pongs before the read
// deadline they extend.
func (c *Client) startPings() {
	_ = c.conn.SetReadDeadline(
		time.Now().Add(c.cfg.PingInterval + c.cfg.PongWait),
	)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(
			time.Now().Add(c.cfg.PingInterval + c.cfg.PongWait),
		)
	})

	pingTicker := ticker.New(c.cfg.PingInterval)
	pingTicker.Resume()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer pingTicker.Stop()

		for {
			select {
			case <-pingTicker.Ticks():
				err := c.conn.WriteControl(
					websocket.PingMessage, nil,
					time.Now().Add(c.cfg.PongWait),
				)
				if err != nil {
					log.Warnf("Unable to send ping: %v", err)
					return
				}

			case <-c.quit:
				return
			}
		}
	}()
}

// shutdown fails every pending request and stops further ones.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.pendingMtx.Lock()
		c.closed = true
		c.pendingMtx.Unlock()

		close(c.quit)
	})
}

// Close ends the connection. Pending requests fail with ErrClosed and
// registered handlers are dropped.
func (c *Client) Close() error {
	c.shutdown()

	c.writeMtx.Lock()
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMtx.Unlock()

	err := c.conn.Close()
	c.wg.Wait()
	c.Registry.Stop()

	if err != nil && !isClosedConnError(err) {
		return err
	}

	return nil
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.quit
}

// isClosedConnError returns true if err reports a connection that is already
// closed.
func isClosedConnError(err error) bool {
	if err == nil {
		return false
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure,
		websocket.CloseGoingAway) {

		return true
	}

	str := err.Error()

	return strings.Contains(str, "use of closed network connection") ||
		strings.Contains(str, "broken pipe") ||
		strings.Contains(str, "connection reset by peer")
}

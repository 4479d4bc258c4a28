package wsprovider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/rgbwebln/rgbwebln/provider"
	"github.com/rgbwebln/rgbwebln/rgbrpc"
)

// writeWait bounds every frame written by the server.
const writeWait = 10 * time.Second

// Server exposes a provider to websocket clients. Each connection gets its
// requests answered concurrently and receives the provider events the server
// was created to forward.
type Server struct {
	provider provider.Provider
	events   []string
	upgrader websocket.Upgrader
}

// NewServer returns a server bridging p, forwarding the named events.
func NewServer(p provider.Provider, forward ...string) *Server {
	return &Server{
		provider: p,
		events:   forward,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// serverConn is one upgraded client connection.
type serverConn struct {
	conn     *websocket.Conn
	writeMtx sync.Mutex
}

func (c *serverConn) write(frame serverFrame) error {
	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	return c.conn.WriteJSON(frame)
}

// ServeHTTP upgrades the request and serves the connection until the client
// goes away.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Unable to upgrade websocket: %v", err)
		return
	}
	conn.SetReadLimit(MaxMessageSize)

	sc := &serverConn{conn: conn}
	defer func() {
		err := conn.Close()
		if err != nil && !isClosedConnError(err) {
			log.Errorf("Unable to close connection: %v", err)
		}
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for _, event := range s.events {
		event := event
		token := s.provider.On(event, func(payload any) {
			raw, err := json.Marshal(payload)
			if err != nil {
				log.Errorf("Unable to encode %s event: %v",
					event, err)
				return
			}

			err = sc.write(serverFrame{Event: event, Payload: raw})
			if err != nil {
				log.Debugf("Unable to forward %s event: %v",
					event, err)
			}
		})
		defer s.provider.Off(event, token)
	}

	for {
		var req requestFrame
		if err := conn.ReadJSON(&req); err != nil {
			if !isClosedConnError(err) {
				log.Debugf("Client connection ended: %v", err)
			}

			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()

			resp := serverFrame{ID: req.ID}

			result, err := s.handle(ctx, req)
			if err != nil {
				resp.Error = toProviderError(req.Method, err)
			} else {
				resp.Result = result
			}

			if err := sc.write(resp); err != nil {
				log.Debugf("Unable to answer request id=%d: %v",
					req.ID, err)
			}
		}()
	}
}

// handle runs one request against the provider.
func (s *Server) handle(ctx context.Context,
	req requestFrame) (json.RawMessage, error) {

	switch req.Method {
	case rgbrpc.MethodEnable:
		var params rgbrpc.EnableRequest
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				return nil, err
			}
		}

		err := s.provider.Enable(ctx, fn.OptionFromPtr(params.Origin))
		if err != nil {
			return nil, err
		}

		return json.Marshal(true)

	case rgbrpc.MethodIsEnabled:
		enabled, err := s.provider.IsEnabled(ctx)
		if err != nil {
			return nil, err
		}

		return json.Marshal(enabled)
	}

	var params any
	if len(req.Params) > 0 {
		params = req.Params
	}

	return s.provider.Request(ctx, req.Method, params)
}

// toProviderError converts a failure into its wire form, keeping provider
// codes intact.
func toProviderError(method string, err error) *rgbrpc.ProviderError {
	var provErr *rgbrpc.ProviderError
	if errors.As(err, &provErr) {
		return provErr
	}

	return rgbrpc.NewProviderError(method, codeInternal, err.Error())
}

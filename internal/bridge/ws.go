package bridge

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/glidecall/shell/internal/logging"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
)

// WSServer exposes the bridge to page contexts over a loopback WebSocket.
// The tracker page runs in an isolated browser context and cannot open
// the native pipe, so it reaches the bus through here instead.
type WSServer struct {
	bus      *Bus
	addr     string
	httpSrv  *http.Server
	upgrader websocket.Upgrader

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewWSServer creates a WebSocket endpoint bound to addr, which must be a
// loopback address (enforced by config validation).
func NewWSServer(bus *Bus, addr string) *WSServer {
	s := &WSServer{
		bus:  bus,
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Pages are loaded from file:// URLs, which send a null or
			// empty Origin. Anything claiming a remote origin is refused.
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == "null" || origin == "file://"
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/bridge", s.handleUpgrade)
	s.httpSrv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start begins serving on the configured loopback address.
func (s *WSServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Warn("ws server stopped", logging.KeyError, err)
		}
	}()
	log.Info("bridge ws listening", "addr", s.addr)
	return nil
}

// Stop shuts the endpoint down. Safe to call more than once.
func (s *WSServer) Stop() {
	s.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpSrv.Shutdown(ctx)
		s.wg.Wait()
	})
}

func (s *WSServer) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("ws upgrade failed", logging.KeyError, err)
		return
	}
	s.wg.Add(1)
	go s.serveSocket(conn)
}

func (s *WSServer) serveSocket(conn *websocket.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	conn.SetReadLimit(MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	var writeMu sync.Mutex
	reply := func(env *Envelope) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(env)
	}

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("ws read failed", logging.KeyError, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))

		if env.Channel == ChannelSources {
			// Page-side bridges omit the id on request channels; stamp one
			// so the reply still correlates.
			if env.ID == "" {
				env.ID = uuid.NewString()
			}
			result, err := s.bus.Request(context.Background(), env)
			out := &Envelope{ID: env.ID, Channel: env.Channel}
			if err != nil {
				out.Error = err.Error()
			} else {
				out.Payload = result
			}
			if err := reply(out); err != nil {
				return
			}
			continue
		}

		s.bus.Publish(env)
	}
}

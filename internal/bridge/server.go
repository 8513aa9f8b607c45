package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/glidecall/shell/internal/logging"
)

const helloTimeout = 10 * time.Second

// Server accepts native surface connections on the local pipe (Windows)
// or unix socket and pumps their envelopes into the bus. Request
// envelopes (non-empty ID) are answered through the bus responder for
// their channel; everything else is published fire-and-forget.
type Server struct {
	bus        *Bus
	socketPath string
	listener   net.Listener

	mu       sync.Mutex
	surfaces map[string]*Conn
	onClosed map[string][]func()
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

// NewServer creates a server for the given socket path. Start must be
// called before surfaces can connect.
func NewServer(bus *Bus, socketPath string) *Server {
	return &Server{
		bus:        bus,
		socketPath: socketPath,
		surfaces:   make(map[string]*Conn),
		onClosed:   make(map[string][]func()),
		stopped:    make(chan struct{}),
	}
}

// Start opens the platform listener and begins accepting surfaces.
func (s *Server) Start() error {
	if err := s.setupListener(); err != nil {
		return err
	}
	s.wg.Add(1)
	go s.acceptLoop()
	log.Info("bridge listening", "socket", s.socketPath)
	return nil
}

// Stop closes the listener and all connected surfaces. Safe to call more
// than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Lock()
		for _, conn := range s.surfaces {
			conn.Close()
		}
		s.mu.Unlock()
		s.wg.Wait()
	})
}

// SendTo delivers an envelope to a connected surface by its hello id.
func (s *Server) SendTo(surface string, env Envelope) error {
	s.mu.Lock()
	conn := s.surfaces[surface]
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("bridge: surface %q not connected", surface)
	}
	return conn.Send(&env)
}

// OnSurfaceClosed registers fn to run when the named surface's transport
// drops. Callbacks run once per disconnect, on the reader goroutine.
func (s *Server) OnSurfaceClosed(surface string, fn func()) {
	s.mu.Lock()
	s.onClosed[surface] = append(s.onClosed[surface], fn)
	s.mu.Unlock()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		raw, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopped:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("accept failed", logging.KeyError, err)
			continue
		}
		s.wg.Add(1)
		go s.serveConn(NewConn(raw))
	}
}

func (s *Server) serveConn(conn *Conn) {
	defer s.wg.Done()

	surface, err := s.awaitHello(conn)
	if err != nil {
		log.Warn("surface rejected", logging.KeyError, err)
		conn.Close()
		return
	}

	s.mu.Lock()
	if prev := s.surfaces[surface]; prev != nil {
		prev.Close()
	}
	s.surfaces[surface] = conn
	s.mu.Unlock()
	log.Info("surface attached", logging.KeySurface, surface)

	for {
		env, err := conn.Recv()
		if err != nil {
			break
		}
		s.route(conn, env)
	}

	s.detach(surface, conn)
}

func (s *Server) awaitHello(conn *Conn) (string, error) {
	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	defer conn.SetReadDeadline(time.Time{})

	env, err := conn.Recv()
	if err != nil {
		return "", err
	}
	if env.Name != EventSurfaceHello {
		return "", fmt.Errorf("expected %s, got %q", EventSurfaceHello, env.Name)
	}
	var hello SurfaceHello
	if err := unmarshalPayload(env.Payload, &hello); err != nil {
		return "", err
	}
	if hello.Surface == "" {
		return "", fmt.Errorf("hello without surface id")
	}
	return hello.Surface, nil
}

// route dispatches one inbound envelope. Envelopes with an ID are
// request/response exchanges; the rest are events.
func (s *Server) route(conn *Conn, env *Envelope) {
	if env.ID == "" {
		s.bus.Publish(*env)
		return
	}

	result, err := s.bus.Request(context.Background(), *env)
	if err != nil {
		if sendErr := conn.SendError(env.ID, env.Channel, err.Error()); sendErr != nil {
			log.Warn("error reply failed", logging.KeyError, sendErr)
		}
		return
	}
	if err := conn.Send(&Envelope{ID: env.ID, Channel: env.Channel, Payload: result}); err != nil {
		log.Warn("reply failed", logging.KeyChannel, env.Channel, logging.KeyError, err)
	}
}

func (s *Server) detach(surface string, conn *Conn) {
	conn.Close()

	s.mu.Lock()
	if s.surfaces[surface] != conn {
		// Replaced by a reconnect; the new connection owns the id now.
		s.mu.Unlock()
		return
	}
	delete(s.surfaces, surface)
	callbacks := s.onClosed[surface]
	s.mu.Unlock()

	log.Info("surface detached", logging.KeySurface, surface)
	s.publishClosed(surface)
	for _, fn := range callbacks {
		fn()
	}
}

func (s *Server) publishClosed(surface string) {
	env := Envelope{
		Channel: ChannelControl,
		Name:    EventSurfaceClosed,
	}
	if raw, err := marshalPayload(SurfaceClosed{Surface: surface}); err == nil {
		env.Payload = raw
	}
	s.bus.Publish(env)
}

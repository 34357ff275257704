// ABOUTME: Listen-along WebSocket server
// ABOUTME: Fans encoded session audio out to every connected listener without blocking the mixer
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Path is the WebSocket endpoint
	Path = "/listen"

	DefaultPort = 8927

	frameQueue  = 64
	clientQueue = 100
)

// Config holds broadcast configuration
type Config struct {
	Port       int // 0 picks a free port
	Name       string
	Codec      string // "opus" or "pcm"
	MDNS       bool
	SampleRate int // session sample rate
}

// Server streams the session mix to WebSocket listeners
type Server struct {
	config   Config
	serverID string
	stream   *stream
	upgrader websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener
	advertiser *Advertiser

	clients   map[string]*client
	clientsMu sync.RWMutex

	frames  chan []float32
	dropped atomic.Int64
	started atomic.Bool

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

type client struct {
	ID       string
	Addr     string
	Conn     *websocket.Conn
	sendChan chan interface{}
}

// New creates a broadcast server
func New(config Config) (*Server, error) {
	if config.Codec == "" {
		config.Codec = CodecOpus
	}
	if config.Name == "" {
		config.Name = "Resonance"
	}
	st, err := newStream(config.Codec, config.SampleRate)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:   config,
		serverID: uuid.New().String(),
		stream:   st,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// listen-along is meant for the local network
				return true
			},
		},
		clients:  make(map[string]*client),
		frames:   make(chan []float32, frameQueue),
		stopChan: make(chan struct{}),
	}, nil
}

// Start listens and begins streaming. It returns once the listener is bound.
func (s *Server) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("broadcast server already started")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("broadcast listen: %w", err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.handleWebSocket)
	s.httpServer = &http.Server{Handler: mux}

	port := ln.Addr().(*net.TCPAddr).Port
	log.Printf("Broadcast listening on :%d%s (%s %dHz)", port, Path, s.stream.format.Codec, s.stream.format.SampleRate)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Broadcast HTTP server error: %v", err)
		}
	}()
	go func() {
		defer s.wg.Done()
		s.encodeLoop()
	}()

	if s.config.MDNS {
		adv, err := Advertise(s.config.Name, port, Path)
		if err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			s.advertiser = adv
		}
	}
	return nil
}

// Addr returns the bound listener address
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Publish hands one mixer frame to the encoder. It never blocks; when the
// encoder falls behind the frame is dropped and counted.
func (s *Server) Publish(frame []float32) {
	if !s.started.Load() {
		return
	}
	buf := make([]float32, len(frame))
	copy(buf, frame)
	select {
	case s.frames <- buf:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns how many frames were discarded because the encoder lagged
func (s *Server) Dropped() int64 {
	return s.dropped.Load()
}

// Clients returns the number of connected listeners
func (s *Server) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Stop ends the stream, disconnects listeners and shuts the server down
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.shutdownMu.Lock()
		s.isShutdown = true
		s.shutdownMu.Unlock()

		close(s.stopChan)
		s.advertiser.Stop()

		s.clientsMu.RLock()
		for _, c := range s.clients {
			s.sendMessage(c, "stream/end", StreamEnd{Reason: "session ended"})
		}
		s.clientsMu.RUnlock()

		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := s.httpServer.Shutdown(ctx); err != nil {
				log.Printf("Broadcast shutdown error: %v", err)
			}
		}

		// hijacked websocket connections are not closed by Shutdown
		s.clientsMu.RLock()
		for _, c := range s.clients {
			c.Conn.Close()
		}
		s.clientsMu.RUnlock()

		s.wg.Wait()
		s.stream.Close()
		log.Printf("Broadcast stopped (%d frames dropped)", s.dropped.Load())
	})
}

func (s *Server) encodeLoop() {
	for {
		select {
		case <-s.stopChan:
			return
		case frame := <-s.frames:
			chunks, err := s.stream.push(frame)
			if err != nil {
				log.Printf("Broadcast encode error: %v", err)
			}
			for _, chunk := range chunks {
				s.broadcast(chunk)
			}
		}
	}
}

func (s *Server) broadcast(chunk []byte) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, c := range s.clients {
		select {
		case c.sendChan <- chunk:
		default:
			// slow listener drops the chunk
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	closed := s.isShutdown
	s.shutdownMu.RUnlock()
	if closed {
		http.Error(w, "broadcast ended", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	s.handleConnection(conn, r.RemoteAddr)
}

func (s *Server) handleConnection(conn *websocket.Conn, addr string) {
	defer conn.Close()

	c := &client{
		ID:       uuid.New().String(),
		Addr:     addr,
		Conn:     conn,
		sendChan: make(chan interface{}, clientQueue),
	}

	// queue the greeting before registering so it precedes any audio
	s.sendMessage(c, "server/hello", ServerHello{
		ServerID: s.serverID,
		ClientID: c.ID,
		Name:     s.config.Name,
		Version:  ProtocolVersion,
	})
	s.sendMessage(c, "stream/start", s.stream.Start())

	s.clientsMu.Lock()
	s.clients[c.ID] = c
	s.clientsMu.Unlock()
	log.Printf("Listener connected: %s (%s)", c.ID, addr)

	done := make(chan struct{})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(c, done)
	}()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c.ID)
		s.clientsMu.Unlock()
		close(done)
		log.Printf("Listener disconnected: %s", c.ID)
	}()

	// listeners only send control frames; reading drives ping/pong and close detection
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}

func (s *Server) clientWriter(c *client, done <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case <-done:
			return
		case msg := <-c.sendChan:
			var (
				kind int
				data []byte
			)
			switch v := msg.(type) {
			case []byte:
				kind, data = websocket.BinaryMessage, v
			default:
				encoded, err := sonic.Marshal(v)
				if err != nil {
					log.Printf("Error marshaling message: %v", err)
					continue
				}
				kind, data = websocket.TextMessage, encoded
			}
			c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.Conn.WriteMessage(kind, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

func (s *Server) sendMessage(c *client, msgType string, payload interface{}) {
	select {
	case c.sendChan <- Message{Type: msgType, Payload: payload}:
	default:
		log.Printf("Listener %s send buffer full, dropping %s", c.ID, msgType)
	}
}

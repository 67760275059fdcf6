package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"wachtrij/internal/metrics"
	"wachtrij/internal/protocol"
	"wachtrij/internal/refresh"
	"wachtrij/internal/render"
	"wachtrij/internal/transport/netutil"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 90 * time.Second
	pingPeriod = 30 * time.Second
)

// Activator renders the panel for a newly opened surface.
type Activator interface {
	Activate(ctx context.Context) (refresh.Frame, error)
}

// Server tracks the open overlay panels. It is the scheduler's display surface:
// present while at least one panel is connected.
type Server struct {
	log     *log.Logger
	metrics *metrics.Metrics

	maxPanels   int
	queueFrames int

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu        sync.Mutex
	clients   map[string]chan []byte
	activator Activator
}

type Options struct {
	MaxPanels   int
	QueueFrames int
	Logger      *log.Logger
	Metrics     *metrics.Metrics
}

func NewServer(opts Options) *Server {
	if opts.MaxPanels <= 0 {
		opts.MaxPanels = 16
	}
	if opts.QueueFrames <= 0 {
		opts.QueueFrames = 4
	}
	return &Server{
		log:         opts.Logger,
		metrics:     opts.Metrics,
		maxPanels:   opts.MaxPanels,
		queueFrames: opts.QueueFrames,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			// Panels are injected into the game page, so the origin is the game's host.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: map[string]chan []byte{},
	}
}

func (s *Server) SetActivator(a Activator) {
	s.mu.Lock()
	s.activator = a
	s.mu.Unlock()
}

func (s *Server) Present() bool { return s.Count() > 0 }

func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Redraw queues f for every open panel. A panel whose queue is full loses its oldest frame.
func (s *Server) Redraw(_ context.Context, f refresh.Frame) error {
	b, err := json.Marshal(PanelMessage(f))
	if err != nil {
		return fmt.Errorf("encode panel: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, out := range s.clients {
		select {
		case out <- b:
			continue
		default:
		}
		select {
		case <-out:
		default:
		}
		select {
		case out <- b:
		default:
		}
		s.metrics.IncDropped()
	}
	return nil
}

func PanelMessage(f refresh.Frame) protocol.PanelMsg {
	return protocol.PanelMsg{
		Type:            protocol.TypePanel,
		ProtocolVersion: protocol.Version,
		ContentID:       render.ContentID,
		Key:             f.Key,
		HTML:            f.Content,
		Loading:         f.Loading,
		Units:           f.Units,
		At:              f.At.Unix(),
		Background:      render.BackgroundStyle(f.Settings),
		Settings: protocol.DisplaySettings{
			BackgroundType:  f.Settings.BackgroundType,
			BackgroundValue: f.Settings.BackgroundValue,
			Opacity:         f.Settings.Opacity,
			Size:            f.Settings.Size,
		},
	}
}

func (s *Server) add() (string, chan []byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.clients) >= s.maxPanels {
		return "", nil, false
	}
	id := fmt.Sprintf("P%d", s.nextID.Add(1))
	out := make(chan []byte, s.queueFrames)
	s.clients[id] = out
	s.metrics.SetSurfaces(len(s.clients))
	return id, out, true
}

func (s *Server) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, id)
	s.metrics.SetSurfaces(len(s.clients))
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !netutil.IsLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id, out, ok := s.add()
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many panels"), time.Now().Add(time.Second))
			return
		}
		defer s.remove(id)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		s.mu.Lock()
		act := s.activator
		s.mu.Unlock()
		if act != nil {
			if _, err := act.Activate(ctx); err != nil && s.log != nil {
				s.log.Printf("panel %s: activate: %v", id, err)
			}
		}

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			ping := time.NewTicker(pingPeriod)
			defer ping.Stop()
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						cancel()
						return
					}
				case <-ping.C:
					if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
						writeErr <- err
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop: panels send nothing meaningful; reads detect close and carry pongs.
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

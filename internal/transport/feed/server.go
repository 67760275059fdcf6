package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"wachtrij/internal/config"
	"wachtrij/internal/metrics"
	"wachtrij/internal/orders"
	persistlog "wachtrij/internal/persistence/log"
	"wachtrij/internal/protocol"
	"wachtrij/internal/queue"
	"wachtrij/internal/refresh"
	"wachtrij/internal/render"
	"wachtrij/internal/settings"
	"wachtrij/internal/transport/netutil"
)

type Journal interface {
	WriteFeed(e persistlog.FeedEntry) error
}

type Panel interface {
	Current(ctx context.Context) (refresh.Frame, error)
}

type Prefs interface {
	Current() (settings.Settings, uint64)
	Update(ctx context.Context, s settings.Settings) (settings.Settings, error)
}

// Server exposes the order feed, panel and settings endpoints to the in-page overlay.
type Server struct {
	cfg     config.Config
	store   *orders.MemoryStore
	panel   Panel
	prefs   Prefs
	journal Journal
	log     *log.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Deps struct {
	Store   *orders.MemoryStore
	Panel   Panel
	Prefs   Prefs
	Journal Journal
	Logger  *log.Logger
	Metrics *metrics.Metrics
}

func NewServer(cfg config.Config, deps Deps) *Server {
	return &Server{
		cfg:     cfg,
		store:   deps.Store,
		panel:   deps.Panel,
		prefs:   deps.Prefs,
		journal: deps.Journal,
		log:     deps.Logger,
		metrics: deps.Metrics,
		now:     time.Now,
	}
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/orders", s.loopbackOnly(s.OrdersHandler()))
	mux.HandleFunc("/v1/panel", s.loopbackOnly(s.PanelHandler()))
	mux.HandleFunc("/v1/settings", s.loopbackOnly(s.SettingsHandler()))
	mux.HandleFunc("/v1/bootstrap", s.loopbackOnly(s.BootstrapHandler()))
}

func (s *Server) loopbackOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !netutil.IsLoopbackRemote(r.RemoteAddr) {
			writeError(rw, http.StatusForbidden, protocol.ErrForbidden, "forbidden")
			return
		}
		h(rw, r)
	}
}

func (s *Server) OrdersHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			s.acceptOrders(rw, r)
		case http.MethodDelete:
			s.store.Reset()
			s.metrics.ResetOrders()
			s.logf("order store reset")
			rw.WriteHeader(http.StatusNoContent)
		default:
			rw.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) acceptOrders(rw http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, s.cfg.Feed.MaxBodyBytes))
	if err != nil {
		s.metrics.ObserveFeed(false, 0)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(rw, http.StatusRequestEntityTooLarge, protocol.ErrProtoBadRequest, err.Error())
			return
		}
		writeError(rw, http.StatusBadRequest, protocol.ErrProtoBadRequest, fmt.Sprintf("read body: %v", err))
		return
	}
	msg, err := protocol.DecodeOrders(raw)
	if err != nil {
		s.metrics.ObserveFeed(false, 0)
		writeError(rw, http.StatusBadRequest, protocol.ErrProtoBadRequest, err.Error())
		return
	}
	if msg.ProtocolVersion != protocol.Version {
		s.metrics.ObserveFeed(false, 0)
		writeError(rw, http.StatusBadRequest, protocol.ErrProtoBadRequest, fmt.Sprintf("unsupported protocol_version %q", msg.ProtocolVersion))
		return
	}

	list := make([]queue.Order, 0, len(msg.Orders))
	seen := make(map[string]struct{}, len(msg.Orders))
	for _, rec := range msg.Orders {
		if _, dup := seen[rec.ID]; dup {
			s.metrics.ObserveFeed(false, 0)
			writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, fmt.Sprintf("duplicate order id %q", rec.ID))
			return
		}
		seen[rec.ID] = struct{}{}
		o, err := queue.NewOrder(rec.ID, queue.UnitType(rec.UnitID), rec.Count, rec.CreatedAt, rec.ToBeCompletedAt)
		if err != nil {
			s.metrics.ObserveFeed(false, 0)
			writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
			return
		}
		list = append(list, o)
	}

	now := s.now()
	batchID := uuid.NewString()
	if s.journal != nil {
		if err := s.journal.WriteFeed(persistlog.FeedEntry{
			BatchID:    batchID,
			ReceivedAt: now.Unix(),
			SentAt:     msg.SentAt,
			Orders:     msg.Orders,
		}); err != nil {
			// Journal failures never reject a feed.
			s.logf("journal write: %v", err)
		}
	}
	rev := s.store.Replace(list, now)
	s.metrics.ObserveFeed(true, len(list))

	writeJSON(rw, http.StatusOK, protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		BatchID:         batchID,
		Revision:        rev,
		Accepted:        len(list),
	})
}

func (s *Server) PanelHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		f, err := s.panel.Current(r.Context())
		if err != nil {
			s.logf("panel: %v", err)
			writeError(rw, http.StatusInternalServerError, protocol.ErrInternal, "render failed")
			return
		}
		rw.Header().Set("Content-Type", "text/html; charset=utf-8")
		rw.Header().Set("Cache-Control", "no-store")
		_, _ = io.WriteString(rw, f.Panel)
	}
}

func (s *Server) SettingsHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			cur, _ := s.prefs.Current()
			writeJSON(rw, http.StatusOK, cur)
		case http.MethodPut, http.MethodPost:
			var in settings.Settings
			dec := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 64*1024))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&in); err != nil {
				writeError(rw, http.StatusBadRequest, protocol.ErrProtoBadRequest, err.Error())
				return
			}
			out, err := s.prefs.Update(r.Context(), in)
			if errors.Is(err, settings.ErrInvalid) {
				writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
				return
			}
			if err != nil {
				s.logf("settings: %v", err)
				writeError(rw, http.StatusInternalServerError, protocol.ErrInternal, "save failed")
				return
			}
			writeJSON(rw, http.StatusOK, out)
		default:
			rw.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		f, err := s.panel.Current(r.Context())
		if err != nil {
			s.logf("bootstrap: %v", err)
			writeError(rw, http.StatusInternalServerError, protocol.ErrInternal, "render failed")
			return
		}

		var groups []protocol.CatalogRef
		for _, c := range queue.Catalogs() {
			ref := protocol.CatalogRef{Kind: string(c.Kind), Title: c.Title}
			for _, u := range c.Units {
				ref.Units = append(ref.Units, string(u))
			}
			groups = append(groups, ref)
		}
		builtins := make([]string, 0, len(settings.Builtins))
		for name := range settings.Builtins {
			builtins = append(builtins, name)
		}
		sort.Strings(builtins)

		w := s.cfg.Window
		writeJSON(rw, http.StatusOK, protocol.BootstrapResponse{
			Type:            protocol.TypeBootstrap,
			ProtocolVersion: protocol.Version,
			Window: protocol.WindowParams{
				Title:    w.Title,
				Width:    w.Width,
				Height:   w.Height,
				Position: [2]any{w.PositionX, w.PositionY},
			},
			ContentID:       render.ContentID,
			RefreshPeriodMS: s.cfg.RefreshPeriod().Milliseconds(),
			HTML:            f.Panel,
			Groups:          groups,
			Settings: protocol.DisplaySettings{
				BackgroundType:  f.Settings.BackgroundType,
				BackgroundValue: f.Settings.BackgroundValue,
				Opacity:         f.Settings.Opacity,
				Size:            f.Settings.Size,
			},
			Builtins: builtins,
		})
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, code, msg string) {
	writeJSON(rw, status, protocol.NewError(code, msg))
}

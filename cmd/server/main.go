package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"wachtrij/internal/config"
	"wachtrij/internal/metrics"
	"wachtrij/internal/orders"
	persistlog "wachtrij/internal/persistence/log"
	"wachtrij/internal/refresh"
	"wachtrij/internal/settings"
	"wachtrij/internal/transport/feed"
	"wachtrij/internal/transport/netutil"
	"wachtrij/internal/transport/ws"
)

func main() {
	var (
		addr           = flag.String("addr", "127.0.0.1:8787", "http listen address")
		configPath     = flag.String("config", "./configs/overlay.yaml", "overlay config path (missing file means defaults)")
		dataDir        = flag.String("data", "./data", "runtime data directory")
		disableJournal = flag.Bool("disable_journal", false, "do not record accepted order feeds")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	if v := strings.TrimSpace(os.Getenv("WACHTRIJ_ADDR")); v != "" {
		*addr = v
	}
	if v := strings.TrimSpace(os.Getenv("WACHTRIJ_DATA")); v != "" {
		*dataDir = v
	}

	cfgPath := strings.TrimSpace(*configPath)
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		logger.Printf("config not found (%s); using defaults", cfgPath)
		cfgPath = ""
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if ms := envInt("WACHTRIJ_REFRESH_MS", 0); ms > 0 {
		cfg.RefreshPeriodMS = ms
		if err := cfg.Validate(); err != nil {
			logger.Fatalf("WACHTRIJ_REFRESH_MS: %v", err)
		}
	}
	if *disableJournal || !envBool("WACHTRIJ_JOURNAL", cfg.Feed.Journal) {
		cfg.Feed.Journal = false
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Fatalf("create data dir: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	prefsStore, err := settings.OpenSQLite(filepath.Join(*dataDir, "settings.db"))
	if err != nil {
		logger.Fatalf("open settings db: %v", err)
	}
	defer prefsStore.Close()
	prefs, err := settings.NewManager(ctx, prefsStore)
	if err != nil {
		logger.Fatalf("load settings: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	store := orders.NewMemoryStore()
	panels := ws.NewServer(ws.Options{
		MaxPanels:   cfg.Panels.MaxPanels,
		QueueFrames: cfg.Panels.QueueFrames,
		Logger:      log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds),
		Metrics:     m,
	})
	sched, err := refresh.New(refresh.Options{
		Period:    cfg.RefreshPeriod(),
		EmptyText: cfg.EmptyText,
		Source:    store,
		Surface:   panels,
		Prefs:     prefs,
		Logger:    log.New(os.Stdout, "[refresh] ", log.LstdFlags|log.Lmicroseconds),
		Metrics:   m,
	})
	if err != nil {
		logger.Fatalf("init scheduler: %v", err)
	}
	panels.SetActivator(sched)

	deps := feed.Deps{
		Store:   store,
		Panel:   sched,
		Prefs:   prefs,
		Logger:  log.New(os.Stdout, "[feed] ", log.LstdFlags|log.Lmicroseconds),
		Metrics: m,
	}
	if cfg.Feed.Journal {
		journal := persistlog.NewOrderJournal(*dataDir)
		defer journal.Close()
		deps.Journal = journal
	} else {
		logger.Printf("order journal disabled")
	}

	mux := http.NewServeMux()
	feed.NewServer(cfg, deps).Register(mux)
	mux.HandleFunc("/v1/ws", panels.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		st := store.Stats()
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"ok":       true,
			"state":    sched.State().String(),
			"panels":   panels.Count(),
			"loaded":   st.Loaded,
			"orders":   st.Orders,
			"revision": st.Revision,
		})
	})
	metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		if !netutil.IsLoopbackRemote(r.RemoteAddr) {
			rw.WriteHeader(http.StatusForbidden)
			return
		}
		metricsHandler.ServeHTTP(rw, r)
	})
	if envBool("WACHTRIJ_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := sched.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		logger.Printf("listening on %s (refresh every %s)", *addr, cfg.RefreshPeriod())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sched.Stop()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		return srv.Shutdown(ctx2)
	})
	if err := g.Wait(); err != nil {
		logger.Fatalf("server: %v", err)
	}
	logger.Printf("stopped")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

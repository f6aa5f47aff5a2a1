package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/gridmarket/api/games"
	"github.com/kilianp07/gridmarket/app/plugins"
	"github.com/kilianp07/gridmarket/config"
	"github.com/kilianp07/gridmarket/core/balancing"
	"github.com/kilianp07/gridmarket/core/catalog"
	dispatchlog "github.com/kilianp07/gridmarket/core/dispatch/logging"
	"github.com/kilianp07/gridmarket/core/events"
	"github.com/kilianp07/gridmarket/core/lifecycle"
	coremetrics "github.com/kilianp07/gridmarket/core/metrics"
	"github.com/kilianp07/gridmarket/core/model"
	coremon "github.com/kilianp07/gridmarket/core/monitoring"
	coremqtt "github.com/kilianp07/gridmarket/core/mqtt"
	"github.com/kilianp07/gridmarket/core/session"
	"github.com/kilianp07/gridmarket/infra/logger"
	"github.com/kilianp07/gridmarket/infra/metrics"
	"github.com/kilianp07/gridmarket/infra/monitoring"
	"github.com/kilianp07/gridmarket/infra/mqtt"
	"github.com/kilianp07/gridmarket/internal/eventbus"
)

// eventBuffer absorbs the burst of events published when a round settles.
const eventBuffer = 1024

// BrokerClient is the MQTT connection used by the service.
type BrokerClient interface {
	coremqtt.Client
	Disconnect()
}

var newBrokerClient = func(cfg mqtt.Config) (BrokerClient, error) {
	return mqtt.NewPahoClient(cfg)
}

// Service wires the game manager to its persistence, metrics, broker and
// HTTP surfaces.
type Service struct {
	Manager  *lifecycle.Manager
	API      http.Handler
	Sessions *session.Registry

	cfg     *config.Config
	bus     *eventbus.TypedBus[events.Event]
	sink    coremetrics.MetricsSink
	store   dispatchlog.LogStore
	janitor *lifecycle.Janitor
	client  BrokerClient
	log     logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)
	logg := logger.New("service")

	clearer, err := plugins.NewClearer(cfg.Clearer)
	if err != nil {
		return nil, fmt.Errorf("clearer: %w", err)
	}
	policy, err := balancing.New(cfg.Balancing)
	if err != nil {
		return nil, fmt.Errorf("balancing: %w", err)
	}

	bus := eventbus.NewBuffered[events.Event](eventBuffer)
	mgr := lifecycle.NewManager(nil, clearer, policy, bus, logger.New("lifecycle"))
	mgr.SetTickInterval(cfg.Game.Tick())
	var preset *model.AssetConfigPreset
	if cfg.Catalog.PresetPath != "" {
		p, err := catalog.LoadPreset(cfg.Catalog.PresetPath)
		if err != nil {
			return nil, fmt.Errorf("preset: %w", err)
		}
		preset = &p
	}
	mgr.SetGameDefaults(cfg.Game.DefaultMode, preset)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := plugins.NewLogStore(cfg.RoundLog)
	if err != nil {
		return nil, fmt.Errorf("round log: %w", err)
	}
	janitor, err := lifecycle.NewJanitor(mgr, cfg.Janitor.Schedule, cfg.Janitor.Retention(), logger.New("janitor"))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	svc := &Service{
		Manager:  mgr,
		Sessions: session.NewRegistry(),
		cfg:      cfg,
		bus:      bus,
		sink:     sink,
		store:    store,
		janitor:  janitor,
		log:      logg,
	}
	svc.API = games.NewRouter(mgr, store, games.Options{Token: cfg.API.Token, AllowedOrigins: cfg.API.AllowedOrigins})

	if cfg.MQTT.Broker != "" && !(cfg.Publish.DisableEgress && cfg.Publish.DisableIngress) {
		client, err := newBrokerClient(cfg.MQTT)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.client = client
	}
	return svc, nil
}

// Run starts every component and blocks until ctx is canceled or the HTTP
// server fails.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, s.sink, logger.New("metrics"))
	dispatchlog.StartRecorder(ctx, s.bus, s.store, logger.New("round_log"))

	if s.client != nil {
		topics := s.cfg.MQTT.Topics()
		if !s.cfg.Publish.DisableEgress {
			mqtt.NewPublisher(s.client, topics, logger.New("mqtt_publisher")).Start(ctx, s.bus)
		}
		if !s.cfg.Publish.DisableIngress {
			l := mqtt.NewCommandListener(s.client, s.Manager, s.Sessions, topics, s.cfg.Publish.HostKey, logger.New("mqtt_listener"))
			if err := l.Start(); err != nil {
				return err
			}
			l.Watch(ctx, s.bus)
		}
	}

	s.janitor.Start()
	defer s.janitor.Stop()

	if port := s.cfg.Metrics.PrometheusPort; port != "" {
		addr := port
		if !strings.Contains(addr, ":") {
			addr = ":" + addr
		}
		go func() {
			if err := metrics.StartPromServer(ctx, addr, nil); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: s.API, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
	}()
	s.log.Infof("api listening on %s", s.cfg.API.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	<-ctx.Done()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if s.client != nil {
		s.client.Disconnect()
	}
	s.bus.Close()
	if c, ok := s.sink.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, s.store.Close())
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}

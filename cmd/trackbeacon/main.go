package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/trackbeacon/core"
	"github.com/signalsfoundry/trackbeacon/internal/broadcast"
	"github.com/signalsfoundry/trackbeacon/internal/cot"
	"github.com/signalsfoundry/trackbeacon/internal/gazetteer"
	"github.com/signalsfoundry/trackbeacon/internal/logging"
	"github.com/signalsfoundry/trackbeacon/internal/observability"
	"github.com/signalsfoundry/trackbeacon/internal/source"
	"github.com/signalsfoundry/trackbeacon/internal/transport"
	"github.com/signalsfoundry/trackbeacon/model"
	"github.com/signalsfoundry/trackbeacon/timectrl"
)

const (
	defaultMulticastGroup = "239.2.3.1"
	defaultPort           = 6969
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found (using environment variables)")
	}

	mode := flag.String("mode", "", "output mode: multicast, tcp, or tls")
	interval := flag.Duration("interval", 10*time.Second, "update interval between broadcasts")
	once := flag.Bool("once", false, "run one iteration and exit")
	timeOffset := flag.Duration("time-offset", 0, "signed offset applied to every query's clock reading")

	mcast := flag.String("mcast", defaultMulticastGroup, "multicast group address")
	iface := flag.String("iface", "", "outbound multicast interface address")
	port := flag.Int("port", defaultPort, "destination port")
	bind := flag.String("bind", "", "local bind address")

	host := flag.String("host", "", "destination host for tcp/tls modes")
	caFile := flag.String("cafile", "", "CA bundle for server verification")
	certFile := flag.String("certfile", "", "client certificate for mutual TLS")
	keyFile := flag.String("keyfile", "", "client private key for mutual TLS")
	p12File := flag.String("p12", "", "password-protected client identity bundle (PKCS#12)")
	p12Password := flag.String("p12-password", "", "password for the identity bundle")
	insecure := flag.Bool("insecure", false, "disable TLS verification (testing only)")

	simulate := flag.Bool("simulate", false, "simulate movement instead of using the live feed position")
	simSpeed := flag.Float64("sim-speed", 250.0, "simulated ground speed in metres per second")
	simStartLat := flag.Float64("sim-start-lat", 90.0, "simulation start latitude")
	simStartLon := flag.Float64("sim-start-lon", 0.0, "simulation start longitude")

	infoURL := flag.String("info-url", getEnv("FEED_INFO_URL", ""), "live feed info endpoint")
	routeFile := flag.String("route-file", getEnv("ROUTE_FILE", ""), "local route document for offline operation")
	gazetteerPath := flag.String("gazetteer", getEnv("GAZETTEER_PATH", ""), "populated-places CSV for offline name lookup")

	callsign := flag.String("callsign", getEnv("BEACON_CALLSIGN", "TRACKER-1"), "tracked entity callsign and UID")
	team := flag.String("team", getEnv("BEACON_TEAM", "Cyan"), "entity team name")
	role := flag.String("role", getEnv("BEACON_ROLE", "Team Member"), "entity team role")

	metricsAddr := flag.String("metrics-addr", getEnv("METRICS_ADDR", ""), "address for the Prometheus /metrics endpoint (empty disables)")

	flag.Parse()

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	traceShutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		fail(ctx, log, "tracing init failed", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), traceShutdown, log)

	metrics, err := observability.NewBeaconCollector(nil)
	if err != nil {
		fail(ctx, log, "metrics init failed", err)
	}

	gz := gazetteer.Empty()
	if *gazetteerPath != "" {
		loaded, err := gazetteer.Load(*gazetteerPath)
		if err != nil {
			// Advisory data: run without it.
			log.Warn(ctx, "gazetteer unavailable", logging.String("error", err.Error()))
		} else {
			gz = loaded
			log.Info(ctx, "gazetteer loaded", logging.Int("places", gz.Len()))
		}
	}

	clock := timectrl.WithOffset(timectrl.SystemClock{}, *timeOffset)

	src, err := selectSource(ctx, sourceOptions{
		simulate:  *simulate,
		speed:     *simSpeed,
		start:     core.LatLon{Lat: *simStartLat, Lon: *simStartLon},
		infoURL:   *infoURL,
		routeFile: *routeFile,
		gz:        gz,
		clock:     clock,
	}, log)
	if err != nil {
		fail(ctx, log, "position source setup failed", err)
	}

	sender, err := transport.New(transport.Config{
		Mode:        transport.Mode(*mode),
		Group:       *mcast,
		InterfaceIP: *iface,
		Host:        *host,
		Port:        *port,
		BindIP:      *bind,
		Identity: transport.TLSIdentity{
			CAFile:      *caFile,
			CertFile:    *certFile,
			KeyFile:     *keyFile,
			P12File:     *p12File,
			P12Password: *p12Password,
			Insecure:    *insecure,
		},
		Metrics: metrics,
	}, log)
	if err != nil {
		fail(ctx, log, "transport setup failed", err)
	}

	session := broadcast.NewSession(sender)
	encoder := cot.NewEncoder(cot.EncoderConfig{
		EntityUID: *callsign,
		Callsign:  *callsign,
		LinkUID:   session.LinkUID,
		GroupName: *team,
		GroupRole: *role,
	})

	loop := broadcast.NewLoop(broadcast.Config{
		Interval: *interval,
		Once:     *once,
	}, src, encoder, session, clock, log, metrics)

	log.Info(ctx, "starting broadcast",
		logging.String("mode", *mode),
		logging.String("interval", interval.String()),
		logging.String("link_uid", session.LinkUID),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	if *metricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, *metricsAddr, metrics, log)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fail(context.Background(), log, "broadcast failed", err)
	}
	log.Info(context.Background(), "stopped")
}

type sourceOptions struct {
	simulate  bool
	speed     float64
	start     core.LatLon
	infoURL   string
	routeFile string
	gz        *gazetteer.Index
	clock     timectrl.Clock
}

// selectSource picks the live or simulated position source exactly once.
// Live-feed unreachability falls back to simulation when a route is
// available locally; configuration errors are fatal.
func selectSource(ctx context.Context, opts sourceOptions, log logging.Logger) (source.PositionSource, error) {
	if !opts.simulate {
		if opts.infoURL == "" {
			return nil, errors.New("either -info-url or -simulate with -route-file is required")
		}
		live := source.NewLiveSource(source.LiveConfig{
			InfoURL:   opts.infoURL,
			Gazetteer: opts.gz,
		}, log)
		if err := live.Refresh(ctx); err == nil {
			return live, nil
		} else {
			log.Warn(ctx, "live feed unreachable, falling back to simulation",
				logging.String("error", err.Error()))
		}
	}

	sim, err := core.NewSimulator(core.Config{Start: opts.start, SpeedMps: opts.speed})
	if err != nil {
		return nil, err
	}

	route, err := loadRoute(ctx, opts, log)
	if err != nil {
		return nil, err
	}
	return source.NewSimSource(sim, route, true, opts.clock.Now())
}

// loadRoute prefers the local route document and falls back to a one-time
// fetch of the live route, so simulation can replay the real itinerary.
func loadRoute(ctx context.Context, opts sourceOptions, log logging.Logger) (*model.Route, error) {
	if opts.routeFile != "" {
		return source.LoadRouteFile(opts.routeFile, opts.gz, log)
	}
	if opts.infoURL == "" {
		return nil, errors.New("simulation needs -route-file or -info-url to obtain a route")
	}
	live := source.NewLiveSource(source.LiveConfig{InfoURL: opts.infoURL, Gazetteer: opts.gz}, log)
	if err := live.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("no local route and live route fetch failed: %w", err)
	}
	return live.Route(), nil
}

func serveMetrics(ctx context.Context, addr string, metrics *observability.BeaconCollector, log logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "metrics server shutdown failed", logging.String("error", err.Error()))
		}
	}()

	log.Info(ctx, "metrics listening", logging.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

func fail(ctx context.Context, log logging.Logger, msg string, err error) {
	log.Error(ctx, msg, logging.String("error", err.Error()))
	os.Exit(1)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

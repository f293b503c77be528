package broadcast

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/trackbeacon/internal/cot"
	"github.com/signalsfoundry/trackbeacon/internal/logging"
	"github.com/signalsfoundry/trackbeacon/internal/observability"
	"github.com/signalsfoundry/trackbeacon/internal/source"
	"github.com/signalsfoundry/trackbeacon/model"
	"github.com/signalsfoundry/trackbeacon/timectrl"
)

// State names the loop's lifecycle phase.
type State int

const (
	Starting State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Config parameterizes the broadcast loop.
type Config struct {
	// Interval is the wall-clock spacing between ticks. Defaults to 10s.
	Interval time.Duration

	// Once runs exactly one iteration, then shuts down.
	Once bool

	// ShutdownTimeout bounds the best-effort deletion send during
	// teardown. Defaults to 5s.
	ShutdownTimeout time.Duration
}

// ApplyDefaults fills zero fields with defaults.
func (c Config) ApplyDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 10 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	return c
}

// Loop is the single stateful orchestrator: one scheduling goroutine, no
// internal parallelism. It may suspend only between ticks and inside a
// bounded transport send.
type Loop struct {
	cfg     Config
	src     source.PositionSource
	enc     *cot.Encoder
	session *Session
	clock   timectrl.Clock
	log     logging.Logger
	metrics *observability.BeaconCollector
	tracer  trace.Tracer

	state State
	last  *model.PositionSnapshot
}

// NewLoop wires the loop's collaborators. The clock should already carry
// any configured time offset.
func NewLoop(cfg Config, src source.PositionSource, enc *cot.Encoder, session *Session, clock timectrl.Clock, log logging.Logger, metrics *observability.BeaconCollector) *Loop {
	if log == nil {
		log = logging.Noop()
	}
	if clock == nil {
		clock = timectrl.SystemClock{}
	}
	return &Loop{
		cfg:     cfg.ApplyDefaults(),
		src:     src,
		enc:     enc,
		session: session,
		clock:   clock,
		log:     log,
		metrics: metrics,
		tracer:  otel.Tracer("trackbeacon/broadcast"),
		state:   Starting,
	}
}

// State reports the loop's current lifecycle phase.
func (l *Loop) State() State { return l.state }

// Run drives the loop until the context is cancelled or, in single-shot
// mode, after one iteration. Teardown always attempts the deletion event
// for the session link before closing the transport, regardless of which
// exit path triggered it.
func (l *Loop) Run(ctx context.Context) error {
	l.state = Running
	defer l.teardown()

	// A zero timer makes the first tick fire immediately.
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		l.tick(ctx)

		if l.cfg.Once {
			return nil
		}
		timer.Reset(l.cfg.Interval)
	}
}

// tick performs one query -> encode -> transmit cycle. Send failures are
// non-fatal: the batch is cut short and retried from fresh state on the
// next tick, never within this one.
func (l *Loop) tick(ctx context.Context) {
	ctx, span := l.tracer.Start(ctx, "broadcast.tick")
	defer span.End()

	now := l.clock.Now()

	snap, err := l.src.CurrentState(ctx, now)
	if err != nil {
		if l.last == nil {
			l.log.Warn(ctx, "position source unavailable, skipping tick",
				logging.String("error", err.Error()))
			return
		}
		// Hold the last-known snapshot for this tick, restamped so the
		// staleness windows stay ahead of consumers.
		l.log.Warn(ctx, "position source unavailable, holding last snapshot",
			logging.String("error", err.Error()))
		snap = *l.last
		snap.Time = now
	} else {
		l.last = &snap
	}

	l.metrics.SetDelivered(snap.Delivered)
	if route := l.src.Route(); route != nil {
		l.metrics.SetRouteWaypoints(len(route.Waypoints))
	}

	sent := 0
	for _, ev := range l.enc.Encode(snap) {
		payload, err := ev.Marshal()
		if err != nil {
			l.log.Error(ctx, "event marshal failed",
				logging.String("uid", ev.UID), logging.String("error", err.Error()))
			continue
		}
		if err := l.session.Sender.Send(ctx, payload); err != nil {
			l.log.Warn(ctx, "send failed, deferring to next tick",
				logging.String("uid", ev.UID), logging.String("error", err.Error()))
			break
		}
		l.metrics.IncEventSent(ev.Type)
		sent++
	}

	next := ""
	if snap.Next != nil {
		next = snap.Next.Name
	}
	l.log.Info(ctx, "broadcast",
		logging.Any("lat", snap.Lat),
		logging.Any("lon", snap.Lon),
		logging.Any("delivered", snap.Delivered),
		logging.String("next", next),
		logging.Int("events", sent),
	)

	span.SetAttributes(
		attribute.Float64("beacon.lat", snap.Lat),
		attribute.Float64("beacon.lon", snap.Lon),
		attribute.Int("beacon.events_sent", sent),
	)
	l.metrics.IncTick()
}

// teardown retracts the session's link object and closes the transport.
// The deletion is best effort; a failure is logged, not retried.
func (l *Loop) teardown() {
	l.state = Stopping
	defer func() { l.state = Stopped }()

	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.ShutdownTimeout)
	defer cancel()

	del := l.enc.EncodeDeletion(l.clock.Now())
	payload, err := del.Marshal()
	if err == nil {
		err = l.session.Sender.Send(ctx, payload)
	}
	if err != nil {
		l.log.Warn(ctx, "link retraction failed",
			logging.String("link_uid", l.session.LinkUID), logging.String("error", err.Error()))
	} else {
		l.log.Info(ctx, "link retracted", logging.String("link_uid", l.session.LinkUID))
	}

	if err := l.session.Close(); err != nil {
		l.log.Warn(ctx, "transport close failed", logging.String("error", err.Error()))
	}
}

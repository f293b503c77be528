package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BeaconCollector bundles Prometheus metrics for the broadcast loop and
// the transport layer. All recording methods are nil-safe so components
// can run unobserved.
type BeaconCollector struct {
	gatherer prometheus.Gatherer

	Ticks        prometheus.Counter
	EventsSent   *prometheus.CounterVec
	SendFailures *prometheus.CounterVec
	Connects     *prometheus.CounterVec

	Delivered      prometheus.Gauge
	RouteWaypoints prometheus.Gauge
}

// NewBeaconCollector registers broadcast metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewBeaconCollector(reg prometheus.Registerer) (*BeaconCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "beacon_ticks_total",
		Help: "Total number of broadcast loop iterations executed.",
	}), "beacon_ticks_total")
	if err != nil {
		return nil, err
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_events_sent_total",
		Help: "Total number of events delivered to the transport, labeled by CoT type.",
	}, []string{"type"})
	events, err = registerCounterVec(reg, events, "beacon_events_sent_total")
	if err != nil {
		return nil, err
	}

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_send_failures_total",
		Help: "Total number of failed transport sends, labeled by transport variant.",
	}, []string{"transport"})
	failures, err = registerCounterVec(reg, failures, "beacon_send_failures_total")
	if err != nil {
		return nil, err
	}

	connects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_stream_connects_total",
		Help: "Total number of stream connection establishments, including reconnects.",
	}, []string{"transport"})
	connects, err = registerCounterVec(reg, connects, "beacon_stream_connects_total")
	if err != nil {
		return nil, err
	}

	delivered, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "beacon_delivered_count",
		Help: "Cumulative delivered count reported in the most recent snapshot.",
	}), "beacon_delivered_count")
	if err != nil {
		return nil, err
	}

	waypoints, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "beacon_route_waypoints",
		Help: "Number of waypoints in the active route.",
	}), "beacon_route_waypoints")
	if err != nil {
		return nil, err
	}

	return &BeaconCollector{
		gatherer:       gatherer,
		Ticks:          ticks,
		EventsSent:     events,
		SendFailures:   failures,
		Connects:       connects,
		Delivered:      delivered,
		RouteWaypoints: waypoints,
	}, nil
}

// IncTick records one completed loop iteration.
func (c *BeaconCollector) IncTick() {
	if c == nil || c.Ticks == nil {
		return
	}
	c.Ticks.Inc()
}

// IncEventSent records a successful transport send for one event type.
func (c *BeaconCollector) IncEventSent(eventType string) {
	if c == nil || c.EventsSent == nil {
		return
	}
	c.EventsSent.WithLabelValues(eventType).Inc()
}

// IncSendFailure records a failed transport send.
func (c *BeaconCollector) IncSendFailure(transport string) {
	if c == nil || c.SendFailures == nil {
		return
	}
	c.SendFailures.WithLabelValues(transport).Inc()
}

// IncConnect records a stream connection establishment.
func (c *BeaconCollector) IncConnect(transport string) {
	if c == nil || c.Connects == nil {
		return
	}
	c.Connects.WithLabelValues(transport).Inc()
}

// SetDelivered publishes the latest cumulative delivered count.
func (c *BeaconCollector) SetDelivered(n int64) {
	if c == nil || c.Delivered == nil {
		return
	}
	c.Delivered.Set(float64(n))
}

// SetRouteWaypoints publishes the active route size.
func (c *BeaconCollector) SetRouteWaypoints(n int) {
	if c == nil || c.RouteWaypoints == nil {
		return
	}
	c.RouteWaypoints.Set(float64(n))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *BeaconCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

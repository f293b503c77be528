package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/signalsfoundry/trackbeacon/core"
	"github.com/signalsfoundry/trackbeacon/internal/gazetteer"
	"github.com/signalsfoundry/trackbeacon/internal/logging"
	"github.com/signalsfoundry/trackbeacon/model"
)

// infoDocument is the wire shape of the live feed's info endpoint.
type infoDocument struct {
	// Location is the entity's current "lat, lon".
	Location string `json:"location"`
	// Route lists URLs of route documents; the first is authoritative.
	Route []string `json:"route"`

	// Progress clock, all in milliseconds since the epoch.
	Now      int64 `json:"now"`
	Takeoff  int64 `json:"takeoff"`
	Duration int64 `json:"duration"`
}

// LiveConfig parameterizes the live feed client.
type LiveConfig struct {
	InfoURL string
	// Timeout bounds each feed request. Defaults to 5s.
	Timeout   time.Duration
	Gazetteer *gazetteer.Index
}

// LiveSource queries a remote feed for the entity's position and route.
// The route is fetched once during Refresh and reused; the position is
// fetched fresh on every query.
type LiveSource struct {
	client  *http.Client
	infoURL string
	gz      *gazetteer.Index
	log     logging.Logger

	route *model.Route
}

// NewLiveSource constructs the client without performing any IO; call
// Refresh to probe reachability and load the route.
func NewLiveSource(cfg LiveConfig, log logging.Logger) *LiveSource {
	if log == nil {
		log = logging.Noop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	gz := cfg.Gazetteer
	if gz == nil {
		gz = gazetteer.Empty()
	}
	return &LiveSource{
		client:  &http.Client{Timeout: timeout},
		infoURL: cfg.InfoURL,
		gz:      gz,
		log:     log,
	}
}

// Refresh fetches the info endpoint and the route document, caching the
// assembled route. It doubles as the startup reachability probe: a
// failure here means the caller should fall back to simulation.
func (s *LiveSource) Refresh(ctx context.Context) error {
	info, err := s.fetchInfo(ctx)
	if err != nil {
		return err
	}
	if len(info.Route) == 0 {
		return fmt.Errorf("%w: info document lists no route URLs", ErrUnavailable)
	}

	var doc routeDocument
	if err := s.getJSON(ctx, info.Route[0], &doc); err != nil {
		return err
	}
	route := BuildRoute(doc.records(), s.gz, s.log)
	if err := route.Validate(); err != nil {
		return fmt.Errorf("%w: route document: %v", ErrUnavailable, err)
	}

	s.route = route
	return nil
}

// Route returns the cached route. Valid only after a successful Refresh.
func (s *LiveSource) Route() *model.Route { return s.route }

// CurrentState fetches the entity's live position and derives the
// delivered count and next waypoint from route progress.
func (s *LiveSource) CurrentState(ctx context.Context, now time.Time) (model.PositionSnapshot, error) {
	if s.route == nil {
		return model.PositionSnapshot{}, fmt.Errorf("%w: no route loaded", ErrUnavailable)
	}

	info, err := s.fetchInfo(ctx)
	if err != nil {
		return model.PositionSnapshot{}, err
	}
	lat, lon, err := parseLatLon(info.Location)
	if err != nil {
		return model.PositionSnapshot{}, fmt.Errorf("%w: info location: %v", ErrUnavailable, err)
	}

	idx := progressIndex(info, len(s.route.Waypoints))
	snap := model.PositionSnapshot{
		Lat:       lat,
		Lon:       lon,
		Time:      now,
		Delivered: s.route.Waypoints[idx].Delivered,
	}
	if idx < len(s.route.Waypoints)-1 {
		next := s.route.Waypoints[idx+1]
		snap.Next = &next
		snap.BearingDeg = core.InitialBearingDeg(
			core.LatLon{Lat: lat, Lon: lon},
			core.LatLon{Lat: next.Lat, Lon: next.Lon},
		)
	}
	return snap, nil
}

func (s *LiveSource) fetchInfo(ctx context.Context) (infoDocument, error) {
	var info infoDocument
	if err := s.getJSON(ctx, s.infoURL, &info); err != nil {
		return infoDocument{}, err
	}
	return info, nil
}

func (s *LiveSource) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: fetch %s: %v", ErrUnavailable, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: fetch %s: status %d", ErrUnavailable, url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUnavailable, url, err)
	}
	return nil
}

// progressIndex maps the feed's takeoff/duration clock onto a waypoint
// index, clamped to the route bounds.
func progressIndex(info infoDocument, routeLen int) int {
	if routeLen == 0 {
		return 0
	}
	duration := info.Duration
	if duration <= 0 {
		duration = 1
	}
	frac := float64(info.Now-info.Takeoff) / float64(duration)

	var idx int
	switch {
	case frac <= 0:
		idx = 0
	case frac >= 1:
		idx = routeLen - 1
	default:
		idx = int(frac * float64(routeLen-1))
	}
	if idx < 0 {
		idx = 0
	} else if idx > routeLen-1 {
		idx = routeLen - 1
	}
	return idx
}

func parseLatLon(s string) (float64, float64, error) {
	var lat, lon float64
	if _, err := fmt.Sscanf(s, "%f, %f", &lat, &lon); err == nil {
		return lat, lon, nil
	}
	if _, err := fmt.Sscanf(s, "%f,%f", &lat, &lon); err == nil {
		return lat, lon, nil
	}
	return 0, 0, fmt.Errorf("bad coordinate pair %q", s)
}

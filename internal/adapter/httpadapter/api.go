package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
	"github.com/couchcryptid/fire-hotspot-service/internal/observability"
)

type firesResponse struct {
	Hour   string                   `json:"hour"`
	Count  int                      `json:"count"`
	Events []domain.FireEvent       `json:"events,omitempty"`
	Tagged []domain.TaggedFireEvent `json:"tagged,omitempty"`
}

type aggregateResponse struct {
	Hour      string                `json:"hour"`
	Matched   int                   `json:"matched"`
	Unmatched int                   `json:"unmatched"`
	Regions   []domain.AggregateRow `json:"regions"`
}

type setHourRequest struct {
	Hour *int `json:"hour"`
}

func (s *Server) handleFires(w http.ResponseWriter, r *http.Request) {
	s.deps.Metrics.FilterRequests.WithLabelValues(observability.FilterFires).Inc()

	q, err := s.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	events := s.deps.Dataset.Filter(q)

	resp := firesResponse{Hour: q.Hour.String(), Count: len(events)}
	if r.URL.Query().Get("tagged") == "true" {
		resp.Tagged = s.deps.Regions.Tag(events)
	} else {
		resp.Events = events
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	s.deps.Metrics.FilterRequests.WithLabelValues(observability.FilterAggregate).Inc()

	q, err := s.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit, err := parseOptionalInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	tagged := s.deps.Regions.Tag(s.deps.Dataset.Filter(q))
	rows := domain.TopRegions(domain.AggregateByRegion(tagged), limit)
	s.deps.Metrics.AggregateDuration.Observe(time.Since(start).Seconds())

	matched := domain.MatchedCount(tagged)
	writeJSON(w, http.StatusOK, aggregateResponse{
		Hour:      q.Hour.String(),
		Matched:   matched,
		Unmatched: len(tagged) - matched,
		Regions:   rows,
	})
}

func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	s.deps.Metrics.FilterRequests.WithLabelValues(observability.FilterLocate).Inc()

	lat, err := parseCoordinate(r, "lat", 90)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	lon, err := parseCoordinate(r, "lon", 180)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ref, ok := s.deps.Regions.Locate(domain.Point{Lat: lat, Lon: lon})
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no region contains point"))
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

func (s *Server) handleAnimationState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Animator.State())
}

func (s *Server) handleAnimationStart(w http.ResponseWriter, _ *http.Request) {
	s.deps.Animator.Start()
	writeJSON(w, http.StatusOK, s.deps.Animator.State())
}

func (s *Server) handleAnimationStop(w http.ResponseWriter, _ *http.Request) {
	s.deps.Animator.Stop()
	writeJSON(w, http.StatusOK, s.deps.Animator.State())
}

func (s *Server) handleAnimationStep(w http.ResponseWriter, _ *http.Request) {
	s.deps.Animator.Advance()
	writeJSON(w, http.StatusOK, s.deps.Animator.State())
}

func (s *Server) handleAnimationShowAll(w http.ResponseWriter, _ *http.Request) {
	s.deps.Animator.ShowAll()
	writeJSON(w, http.StatusOK, s.deps.Animator.State())
}

func (s *Server) handleAnimationSetHour(w http.ResponseWriter, r *http.Request) {
	var req setHourRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if req.Hour == nil {
		writeError(w, http.StatusBadRequest, errors.New("hour is required"))
		return
	}
	if err := s.deps.Animator.SetHour(*req.Hour); err != nil {
		var herr *domain.InvalidHourError
		if errors.As(err, &herr) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Animator.State())
}

// parseQuery reads the hour and bbox parameters. hour accepts a number, "all"
// (the default) or "current" for the animator's cursor. Numeric hours outside
// 0..23 are passed through and match nothing.
func (s *Server) parseQuery(r *http.Request) (domain.Query, error) {
	var q domain.Query

	switch raw := strings.TrimSpace(r.URL.Query().Get("hour")); raw {
	case "", "all":
		q.Hour = domain.AllHours()
	case "current":
		if h := s.deps.Animator.State().CurrentHour; h != nil {
			q.Hour = domain.AtHour(*h)
		}
	default:
		h, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("hour %q: not a number", raw)
		}
		q.Hour = domain.AtHour(h)
	}

	if raw := r.URL.Query().Get("bbox"); raw != "" {
		box, err := domain.ParseBoundingBox(raw)
		if err != nil {
			return q, err
		}
		q.Box = &box
	} else {
		q.Box = s.deps.DefaultBox
	}
	return q, nil
}

func parseOptionalInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s %q: want a non-negative integer", name, raw)
	}
	return n, nil
}

func parseCoordinate(r *http.Request, name string, limit float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v < -limit || v > limit {
		return 0, fmt.Errorf("%s %q: want a number in [%g,%g]", name, raw, -limit, limit)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

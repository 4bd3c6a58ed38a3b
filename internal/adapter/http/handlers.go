package http

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/city-sensor-pipeline/internal/domain"
	"github.com/couchcryptid/city-sensor-pipeline/internal/pipeline"
)

type boundsView struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

type cityView struct {
	Key      string     `json:"key"`
	Name     string     `json:"name"`
	Center   [2]float64 `json:"center"` // [lat, lng]
	Bounds   boundsView `json:"bounds"`
	Dataset  string     `json:"dataset"`
	Fallback string     `json:"fallback,omitempty"`
}

type snapshotView struct {
	ID            string                 `json:"id"`
	Generation    uint64                 `json:"generation"`
	City          cityView               `json:"city"`
	Records       int                    `json:"records"`
	Sensors       []string               `json:"sensors"`
	UsingDemoData bool                   `json:"using_demo_data"`
	Error         string                 `json:"error,omitempty"`
	Report        domain.NormalizeReport `json:"report"`
	Columns       *domain.ColumnMap      `json:"columns,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

type stateView struct {
	Loading     bool          `json:"loading"`
	LoadingCity string        `json:"loading_city,omitempty"`
	Snapshot    *snapshotView `json:"snapshot"`
}

type sensorView struct {
	domain.SensorInfo
	Threshold *domain.Threshold `json:"threshold,omitempty"`
	Overall   domain.Stat       `json:"overall"`
}

type classifyView struct {
	Sensor    string            `json:"sensor"`
	Canonical string            `json:"canonical"`
	Value     float64           `json:"value"`
	Hour      *int              `json:"hour,omitempty"`
	Level     domain.AlertLevel `json:"level"`
	Anomaly   bool              `json:"anomaly"`
}

func newCityView(c domain.City) cityView {
	return cityView{
		Key:    c.Key,
		Name:   c.Name,
		Center: [2]float64{c.CenterLat(), c.CenterLng()},
		Bounds: boundsView{
			MinLat: c.Bounds.Min.Lat(),
			MinLng: c.Bounds.Min.Lon(),
			MaxLat: c.Bounds.Max.Lat(),
			MaxLng: c.Bounds.Max.Lon(),
		},
		Dataset:  c.DatasetPath,
		Fallback: c.FallbackDatasetPath,
	}
}

func newStateView(st pipeline.State) stateView {
	v := stateView{Loading: st.Loading, LoadingCity: st.LoadingCity}
	if snap := st.Snapshot; snap != nil {
		v.Snapshot = &snapshotView{
			ID:            snap.ID.String(),
			Generation:    snap.Generation,
			City:          newCityView(snap.City),
			Records:       len(snap.Records),
			Sensors:       snap.SensorKeys(),
			UsingDemoData: snap.UsingDemoData,
			Error:         snap.Error,
			Report:        snap.Report,
			Columns:       snap.Columns,
			CreatedAt:     snap.CreatedAt,
		}
	}
	return v
}

// NewStateView renders a pipeline state the way GET /api/v1/state does.
// The notification hub uses it so pushes and polls share one shape.
func NewStateView(st pipeline.State) any {
	return newStateView(st)
}

func (s *Server) handleCities(w http.ResponseWriter, _ *http.Request) {
	cities := s.pipeline.Cities()
	out := make([]cityView, 0, len(cities))
	for _, key := range domain.SortedKeys(cities) {
		out = append(out, newCityView(cities[key]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := s.pipeline.Select(key); err != nil {
		if errors.Is(err, domain.ErrUnknownCity) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	}
	s.logger.Info("city selected", "city", key)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "loading", "city": key})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newStateView(s.pipeline.State()))
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request, snap *pipeline.Snapshot) {
	q := r.URL.Query()
	records := snap.Records
	hour, hasHour, err := hourParam(q, "hour")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if hasHour {
		minute, hasMinute, err := intParam(q, "minute", 0, 59)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if !hasMinute {
			minute = domain.AnyMinute
		}
		records = domain.FilterByTime(records, hour, minute)
	} else if q.Has("minute") {
		writeError(w, http.StatusBadRequest, "minute requires hour")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(records), "records": records})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request, snap *pipeline.Snapshot) {
	key := r.URL.Query().Get("sensor")
	if key == "" {
		writeJSON(w, http.StatusOK, snap.Statistics.Canonical())
		return
	}
	entry, ok := snap.Statistics.Get(key)
	if !ok {
		entry, ok = snap.Statistics.Get(snap.Registry.Resolve(key))
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no statistics for sensor %q", key))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleSensors(w http.ResponseWriter, _ *http.Request, snap *pipeline.Snapshot) {
	keys := snap.SensorKeys()
	out := make([]sensorView, 0, len(keys))
	for _, key := range keys {
		v := sensorView{SensorInfo: snap.Registry.DisplayInfo(key)}
		if t, ok := snap.Classifier.Threshold(key); ok {
			v.Threshold = &t
		}
		if e, ok := snap.Statistics.Get(key); ok {
			v.Overall = e.Overall
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request, snap *pipeline.Snapshot) {
	q := r.URL.Query()
	key := q.Get("sensor")
	if key == "" {
		writeError(w, http.StatusBadRequest, "sensor is required")
		return
	}
	value, err := strconv.ParseFloat(q.Get("value"), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		writeError(w, http.StatusBadRequest, "value must be a number")
		return
	}
	hour, hasHour, err := hourParam(q, "hour")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	v := classifyView{Sensor: key, Canonical: snap.Registry.Resolve(key), Value: value}
	if hasHour {
		v.Hour = &hour
		v.Level = snap.Classifier.CheckAlertLevelAt(key, value, hour)
		v.Anomaly = snap.Classifier.IsAnomaly(key, value, hour)
	} else {
		v.Level = snap.Classifier.CheckAlertLevel(key, value)
		v.Anomaly = snap.Classifier.IsAnomaly(key, value, -1)
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request, snap *pipeline.Snapshot) {
	q := r.URL.Query()
	key := q.Get("sensor")
	if key == "" {
		writeError(w, http.StatusBadRequest, "sensor is required")
		return
	}
	hour, hasHour, err := hourParam(q, "hour")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records := snap.Records
	if hasHour {
		minute, hasMinute, err := intParam(q, "minute", 0, 59)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if !hasMinute {
			minute = domain.AnyMinute
		}
		records = domain.FilterByTime(records, hour, minute)
	} else {
		hour = -1
	}

	var variation domain.Jitter
	if v, _ := strconv.ParseBool(q.Get("variation")); v {
		variation = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	points := domain.HeatmapPoints(records, key, snap.Classifier, hour, variation)
	writeJSON(w, http.StatusOK, map[string]any{
		"sensor":    snap.Registry.Resolve(key),
		"hour":      hour,
		"points":    points,
		"demo_data": snap.UsingDemoData,
	})
}

func (s *Server) handleArea(w http.ResponseWriter, r *http.Request, snap *pipeline.Snapshot) {
	q := r.URL.Query()
	var corners [4]float64
	for i, name := range []string{"min_lat", "min_lng", "max_lat", "max_lng"} {
		v, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, name+" must be a number")
			return
		}
		corners[i] = v
	}
	if corners[0] > corners[2] || corners[1] > corners[3] {
		writeError(w, http.StatusBadRequest, "min corner must not exceed max corner")
		return
	}
	hour, hasHour, err := hourParam(q, "hour")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !hasHour {
		hour = domain.Now().In(s.pipeline.Location()).Hour()
	}

	bound := orb.Bound{
		Min: orb.Point{corners[1], corners[0]},
		Max: orb.Point{corners[3], corners[2]},
	}
	summary := domain.SummarizeArea(snap.Records, bound, q["sensor"], hour, snap.Registry)
	writeJSON(w, http.StatusOK, map[string]any{
		"bounds":  boundsView{MinLat: corners[0], MinLng: corners[1], MaxLat: corners[2], MaxLng: corners[3]},
		"hour":    summary.Hour,
		"records": summary.Records,
		"devices": summary.Devices,
		"sensors": summary.Sensors,
	})
}

func hourParam(q url.Values, name string) (int, bool, error) {
	return intParam(q, name, 0, domain.HoursPerDay-1)
}

func intParam(q url.Values, name string, lo, hi int) (int, bool, error) {
	if !q.Has(name) || q.Get(name) == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(q.Get(name))
	if err != nil || n < lo || n > hi {
		return 0, false, fmt.Errorf("%s must be an integer in [%d, %d]", name, lo, hi)
	}
	return n, true, nil
}

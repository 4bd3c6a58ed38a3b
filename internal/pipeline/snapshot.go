package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/city-sensor-pipeline/internal/domain"
)

// Snapshot is one published ingestion result. It is never mutated after
// publication; views derive new slices from it.
type Snapshot struct {
	ID            uuid.UUID
	Generation    uint64
	City          domain.City
	Records       []domain.SensorRecord
	Registry      *domain.Registry
	Statistics    domain.Statistics
	Classifier    *domain.Classifier
	Columns       *domain.ColumnMap // nil for demo data
	Report        domain.NormalizeReport
	UsingDemoData bool
	Error         string // advisory message when UsingDemoData is set
	CreatedAt     time.Time
}

// SensorKeys lists the canonical keys that have statistics in this snapshot.
func (s *Snapshot) SensorKeys() []string {
	return domain.SortedKeys(s.Statistics.Canonical())
}

// State is what consumers observe: the current snapshot plus whether a load
// is in flight. It is swapped as a whole, never edited in place.
type State struct {
	Snapshot    *Snapshot
	Loading     bool
	LoadingCity string
}

// StatePublisher is notified after every state change. Implementations must
// not block.
type StatePublisher interface {
	PublishState(State)
}

package fleetstore

import (
	"sort"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"github.com/transitlens/transitlens/pkg/transit"
)

// Store is the authoritative snapshot of vehicles and stops. It is the
// single mutation point for both the live feed and the polling fallback;
// neither source keeps its own copy. Each merge replaces the collection
// wholesale because every update batch is a full snapshot, not a diff.
type Store struct {
	mu sync.RWMutex

	vehicles map[string]*transit.Vehicle
	stops    map[string]*transit.Stop

	// absent counts consecutive merges a vehicle has been missing from.
	absent           map[string]int
	absenceTolerance int

	vehiclesUpdated time.Time
	stopsUpdated    time.Time
}

// Snapshot is a deep copy of the store's contents, ordered by identifier.
// Consumers may hold it across redraws without aliasing store memory.
type Snapshot struct {
	Vehicles []transit.Vehicle
	Stops    []transit.Stop

	VehiclesUpdated time.Time
	StopsUpdated    time.Time
}

// NewStore creates an empty store. absenceTolerance is the number of
// consecutive merges a known vehicle may be missing from before it is
// dropped; zero means a missing vehicle disappears immediately, which
// matches the full-snapshot data model.
func NewStore(absenceTolerance int) *Store {
	return &Store{
		vehicles:         map[string]*transit.Vehicle{},
		stops:            map[string]*transit.Stop{},
		absent:           map[string]int{},
		absenceTolerance: absenceTolerance,
	}
}

// MergeVehicles replaces the vehicle collection with the batch's
// contents. Within a batch the last entry wins per vehicle identifier.
func (s *Store) MergeVehicles(batch []transit.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*transit.Vehicle, len(batch))
	for i := range batch {
		vehicle := batch[i]
		vehicle.Stale = false
		next[vehicle.ID] = &vehicle
	}

	if s.absenceTolerance > 0 {
		for id, vehicle := range s.vehicles {
			if _, present := next[id]; present {
				continue
			}

			missedCycles := s.absent[id] + 1
			if missedCycles > s.absenceTolerance {
				delete(s.absent, id)
				continue
			}

			s.absent[id] = missedCycles
			retained := *vehicle
			retained.Stale = true
			next[id] = &retained
		}

		for id := range next {
			if !next[id].Stale {
				delete(s.absent, id)
			}
		}
	}

	s.vehicles = next
	s.vehiclesUpdated = time.Now()

	log.Debug().Int("vehicles", len(next)).Msg("Merged vehicle batch")
}

// MergeStops replaces the stop collection with the batch's contents.
// Arrival boards are carried wholesale, never merged entry by entry.
func (s *Store) MergeStops(batch []transit.Stop) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*transit.Stop, len(batch))
	for i := range batch {
		stop := batch[i]
		next[stop.ID] = &stop
	}

	s.stops = next
	s.stopsUpdated = time.Now()

	log.Debug().Int("stops", len(next)).Msg("Merged stop batch")
}

func (s *Store) Vehicle(id string) (transit.Vehicle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vehicle, ok := s.vehicles[id]
	if !ok {
		return transit.Vehicle{}, false
	}

	return *vehicle, true
}

func (s *Store) Stop(id string) (transit.Stop, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stop, ok := s.stops[id]
	if !ok {
		return transit.Stop{}, false
	}

	copied := transit.Stop{}
	if err := copier.CopyWithOption(&copied, stop, copier.Option{DeepCopy: true}); err != nil {
		log.Error().Err(err).Str("stop", id).Msg("Failed to copy stop")
		return transit.Stop{}, false
	}

	return copied, true
}

func (s *Store) VehicleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.vehicles)
}

func (s *Store) StopCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.stops)
}

// Staleness is the elapsed time since the last successful vehicle merge
// from either source. Before the first merge it reports a very large
// duration rather than time-since-epoch semantics.
func (s *Store) Staleness() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.vehiclesUpdated.IsZero() {
		return time.Duration(1<<63 - 1)
	}

	return time.Since(s.vehiclesUpdated)
}

// Snapshot deep-copies the current collections sorted by identifier.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := Snapshot{
		Vehicles:        make([]transit.Vehicle, 0, len(s.vehicles)),
		Stops:           make([]transit.Stop, 0, len(s.stops)),
		VehiclesUpdated: s.vehiclesUpdated,
		StopsUpdated:    s.stopsUpdated,
	}

	for _, vehicle := range s.vehicles {
		snapshot.Vehicles = append(snapshot.Vehicles, *vehicle)
	}
	for _, stop := range s.stops {
		copied := transit.Stop{}
		if err := copier.CopyWithOption(&copied, stop, copier.Option{DeepCopy: true}); err != nil {
			log.Error().Err(err).Str("stop", stop.ID).Msg("Failed to copy stop into snapshot")
			continue
		}
		snapshot.Stops = append(snapshot.Stops, copied)
	}

	sort.Slice(snapshot.Vehicles, func(i, j int) bool {
		return snapshot.Vehicles[i].ID < snapshot.Vehicles[j].ID
	})
	sort.Slice(snapshot.Stops, func(i, j int) bool {
		return snapshot.Stops[i].ID < snapshot.Stops[j].ID
	})

	return snapshot
}

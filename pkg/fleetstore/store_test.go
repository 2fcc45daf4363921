package fleetstore

import (
	"testing"
	"time"

	"github.com/transitlens/transitlens/pkg/transit"
)

func vehicle(id string, route string) transit.Vehicle {
	return transit.Vehicle{ID: id, RouteID: route, Latitude: 40.7, Longitude: -74.0}
}

func TestMergeVehiclesReplacesWholeBatch(t *testing.T) {
	store := NewStore(0)

	store.MergeVehicles([]transit.Vehicle{
		vehicle("a", "1"),
		vehicle("b", "1"),
		vehicle("c", "2"),
	})
	store.MergeVehicles([]transit.Vehicle{
		vehicle("a", "1"),
		vehicle("c", "2"),
		vehicle("d", "3"),
	})

	snapshot := store.Snapshot()

	if len(snapshot.Vehicles) != 3 {
		t.Fatalf("store has %d vehicles, want 3", len(snapshot.Vehicles))
	}
	if _, present := store.Vehicle("b"); present {
		t.Error("vehicle absent from the second batch is still present")
	}
	for _, id := range []string{"a", "c", "d"} {
		if _, present := store.Vehicle(id); !present {
			t.Errorf("vehicle %s missing after merge", id)
		}
	}
}

func TestMergeVehiclesLastWriteWinsWithinBatch(t *testing.T) {
	store := NewStore(0)

	first := vehicle("a", "1")
	second := vehicle("a", "1")
	second.Latitude = 40.8

	store.MergeVehicles([]transit.Vehicle{first, second})

	merged, _ := store.Vehicle("a")
	if merged.Latitude != 40.8 {
		t.Errorf("latitude = %f, want the later entry's 40.8", merged.Latitude)
	}
}

func TestAbsenceToleranceRetainsStaleVehicle(t *testing.T) {
	store := NewStore(2)

	store.MergeVehicles([]transit.Vehicle{vehicle("a", "1"), vehicle("b", "1")})

	// Two merges without "b": still retained, flagged stale.
	store.MergeVehicles([]transit.Vehicle{vehicle("a", "1")})
	store.MergeVehicles([]transit.Vehicle{vehicle("a", "1")})

	retained, present := store.Vehicle("b")
	if !present || !retained.Stale {
		t.Fatalf("vehicle within tolerance not retained as stale: present=%v stale=%v", present, retained.Stale)
	}

	// Third consecutive absence exceeds the tolerance.
	store.MergeVehicles([]transit.Vehicle{vehicle("a", "1")})

	if _, present := store.Vehicle("b"); present {
		t.Error("vehicle beyond absence tolerance still present")
	}
}

func TestAbsenceCounterResetsOnReappearance(t *testing.T) {
	store := NewStore(1)

	store.MergeVehicles([]transit.Vehicle{vehicle("a", "1"), vehicle("b", "1")})
	store.MergeVehicles([]transit.Vehicle{vehicle("a", "1")})

	reappeared := vehicle("b", "1")
	store.MergeVehicles([]transit.Vehicle{vehicle("a", "1"), reappeared})

	merged, present := store.Vehicle("b")
	if !present || merged.Stale {
		t.Fatalf("reappeared vehicle should be fresh: present=%v stale=%v", present, merged.Stale)
	}

	// The counter starts over, so one more absence is tolerated again.
	store.MergeVehicles([]transit.Vehicle{vehicle("a", "1")})
	if _, present := store.Vehicle("b"); !present {
		t.Error("absence counter was not reset by reappearance")
	}
}

func TestMergeStopsReplacesArrivalsWholesale(t *testing.T) {
	store := NewStore(0)

	store.MergeStops([]transit.Stop{{
		ID:   "stop-1",
		Name: "Main St",
		Arrivals: []transit.Arrival{
			{RouteID: "1", ETA: "2 min"},
			{RouteID: "2", ETA: "7 min"},
		},
	}})
	store.MergeStops([]transit.Stop{{
		ID:   "stop-1",
		Name: "Main St",
		Arrivals: []transit.Arrival{
			{RouteID: "2", ETA: "5 min"},
		},
	}})

	stop, _ := store.Stop("stop-1")
	if len(stop.Arrivals) != 1 || stop.Arrivals[0].ETA != "5 min" {
		t.Errorf("arrivals were merged instead of replaced: %+v", stop.Arrivals)
	}
}

func TestSnapshotIsIsolatedAndOrdered(t *testing.T) {
	store := NewStore(0)

	store.MergeVehicles([]transit.Vehicle{vehicle("c", "1"), vehicle("a", "1"), vehicle("b", "1")})
	store.MergeStops([]transit.Stop{{ID: "s2", Arrivals: []transit.Arrival{{RouteID: "1"}}}, {ID: "s1"}})

	snapshot := store.Snapshot()

	for i, id := range []string{"a", "b", "c"} {
		if snapshot.Vehicles[i].ID != id {
			t.Fatalf("vehicles not ordered by id: %+v", snapshot.Vehicles)
		}
	}
	if snapshot.Stops[0].ID != "s1" || snapshot.Stops[1].ID != "s2" {
		t.Fatalf("stops not ordered by id: %+v", snapshot.Stops)
	}

	// Mutating the snapshot must not touch the store.
	snapshot.Stops[1].Arrivals[0].RouteID = "mutated"

	stop, _ := store.Stop("s2")
	if stop.Arrivals[0].RouteID != "1" {
		t.Error("snapshot aliases store-owned arrival memory")
	}
}

func TestStalenessBeforeFirstMerge(t *testing.T) {
	store := NewStore(0)

	if store.Staleness() < 1000*time.Hour {
		t.Error("staleness before any merge should be effectively unbounded")
	}

	store.MergeVehicles([]transit.Vehicle{vehicle("a", "1")})

	if store.Staleness() > time.Minute {
		t.Error("staleness right after a merge should be near zero")
	}
}

package sim

import (
	"path/filepath"
	"testing"

	"primordium/config"
)

func TestSnapshotRoundTripContinuesIdentically(t *testing.T) {
	cfg := config.Default()
	reference := New(cfg, 30, 42)
	subject := New(cfg, 30, 42)

	for tick := 0; tick < 50; tick++ {
		reference.Tick()
		subject.Tick()
	}

	snap, err := subject.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	// Wreck the subject, then restore it.
	for tick := 0; tick < 30; tick++ {
		subject.Tick()
	}
	if err := subject.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if !statesEqual(t, reference, subject) {
		t.Fatal("restored state differs from reference at the snapshot tick")
	}
	for tick := 0; tick < 60; tick++ {
		ra := reference.Tick()
		rb := subject.Tick()
		if ra != rb {
			t.Fatalf("tick %d after restore: reports diverged %+v vs %+v", tick, ra, rb)
		}
	}
	if !statesEqual(t, reference, subject) {
		t.Fatal("restored run diverged from reference")
	}
}

func TestSnapshotSaveLoad(t *testing.T) {
	cfg := config.Default()
	s := New(cfg, 15, 7)
	for tick := 0; tick < 20; tick++ {
		s.Tick()
	}

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	path := filepath.Join(t.TempDir(), "state.gob")
	if err := snap.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	if err := s.Restore(loaded); err != nil {
		t.Fatalf("Restore from file: %v", err)
	}
	if s.TickCount != snap.Tick {
		t.Errorf("TickCount = %d after restore, want %d", s.TickCount, snap.Tick)
	}
}

func TestSnapshotSaveWithMostSlotsFree(t *testing.T) {
	// The genome table is sized to the arena's capacity, so a small
	// population leaves most snapshot slots unoccupied. Those slots must
	// still encode.
	cfg := config.Default()
	s := New(cfg, 5, 1)

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Genomes) <= s.Arena.Count() {
		t.Fatalf("want free slots in snapshot, got %d slots for %d entities",
			len(snap.Genomes), s.Arena.Count())
	}

	path := filepath.Join(t.TempDir(), "sparse.gob")
	if err := snap.Save(path); err != nil {
		t.Fatalf("Save with free slots: %v", err)
	}
	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if err := s.Restore(loaded); err != nil {
		t.Fatalf("Restore: %v", err)
	}
}

func TestRestoreRejectsCorruptSnapshot(t *testing.T) {
	cfg := config.Default()
	s := New(cfg, 10, 3)
	for tick := 0; tick < 10; tick++ {
		s.Tick()
	}

	tickBefore := s.TickCount
	countBefore := s.Arena.Count()

	corrupt := func(name string, mutate func(*Snapshot)) {
		snap, err := s.Snapshot()
		if err != nil {
			t.Fatalf("%s: Snapshot: %v", name, err)
		}
		mutate(snap)
		if err := s.Restore(snap); err == nil {
			t.Errorf("%s: Restore accepted corrupt snapshot", name)
		}
		if s.TickCount != tickBefore || s.Arena.Count() != countBefore {
			t.Errorf("%s: failed restore mutated the simulation", name)
		}
	}

	corrupt("truncated free list", func(snap *Snapshot) {
		snap.Arena.FreeList = snap.Arena.FreeList[:len(snap.Arena.FreeList)/2]
	})
	corrupt("missing genome", func(snap *Snapshot) {
		for slot := range snap.Genomes {
			if snap.Arena.Occupied[slot] {
				snap.Genomes[slot] = GenomeSnapshot{}
				break
			}
		}
	})
	corrupt("active brain without genome", func(snap *Snapshot) {
		for slot := range snap.Genomes {
			if !snap.Arena.Occupied[slot] {
				snap.Brains[slot] = BrainSnapshot{Active: true}
				break
			}
		}
	})
	corrupt("wrong brain vector length", func(snap *Snapshot) {
		for slot := range snap.Brains {
			if snap.Brains[slot].Active {
				snap.Brains[slot].States = snap.Brains[slot].States[:1]
				break
			}
		}
	})
	corrupt("wrong pheromone field size", func(snap *Snapshot) {
		snap.PheromoneCells = snap.PheromoneCells[:3]
	})
	corrupt("terrain cell mismatch", func(snap *Snapshot) {
		snap.Env.TerrainWidth++
	})
	corrupt("garbage rng bytes", func(snap *Snapshot) {
		snap.RNG = []byte{1, 2}
	})
}

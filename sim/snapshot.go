package sim

import (
	"encoding/gob"
	"fmt"
	"os"

	"golang.org/x/exp/rand"

	"primordium/entity"
	"primordium/neural"
	"primordium/systems"
)

// GenomeSnapshot is a genome flattened to its raw genes. An empty Genes
// slice marks an unoccupied slot; value structs are used because gob
// refuses nil pointers inside a slice.
type GenomeSnapshot struct {
	InterNeurons int
	Genes        []float32
}

// BrainSnapshot stores only the dynamic vectors of a brain slot. The
// weight, bias, and tau tensors are deterministic functions of the
// genome and are re-derived on restore.
type BrainSnapshot struct {
	Active  bool
	States  []float32
	Outputs []float32
}

// Snapshot is the complete serializable state of a simulation. A
// restored snapshot continues tick for tick identically to the
// original run, including its random stream.
type Snapshot struct {
	Tick            uint64
	Arena           entity.ArenaState
	Genomes         []GenomeSnapshot
	Brains          []BrainSnapshot
	Food            []systems.FoodItem
	FoodAccumulator float32
	Meat            []systems.MeatItem
	Signals         []systems.SignalState
	PheromoneCells  []float32
	Env             systems.EnvironmentState
	RNG             []byte
}

// Snapshot copies out the simulation's full state.
func (s *State) Snapshot() (*Snapshot, error) {
	rngBytes, err := s.src.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshaling rng: %w", err)
	}

	capacity := s.Arena.Capacity()
	snap := &Snapshot{
		Tick:            s.TickCount,
		Arena:           s.Arena.State(),
		Genomes:         make([]GenomeSnapshot, capacity),
		Brains:          make([]BrainSnapshot, capacity),
		Food:            append([]systems.FoodItem(nil), s.Food...),
		FoodAccumulator: s.FoodSpawner.Accumulator,
		Meat:            append([]systems.MeatItem(nil), s.Meat...),
		Signals:         append([]systems.SignalState(nil), s.Signals...),
		PheromoneCells:  append([]float32(nil), s.Pheromones.Cells...),
		Env:             s.Env.State(),
		RNG:             rngBytes,
	}

	for slot := 0; slot < capacity; slot++ {
		if slot < len(s.Genomes) && s.Genomes[slot] != nil {
			g := s.Genomes[slot]
			snap.Genomes[slot] = GenomeSnapshot{
				InterNeurons: g.InterNeurons(),
				Genes:        append([]float32(nil), g.Genes...),
			}
		}
		if s.Brains.Active(slot) {
			snap.Brains[slot] = BrainSnapshot{
				Active:  true,
				States:  append([]float32(nil), s.Brains.SlotStates(slot)...),
				Outputs: append([]float32(nil), s.Brains.SlotOutputs(slot)...),
			}
		}
	}

	return snap, nil
}

// Restore replaces the simulation's state with the snapshot's. The
// snapshot is validated in full before anything is touched, so a
// corrupt snapshot leaves the simulation unchanged.
func (s *State) Restore(snap *Snapshot) error {
	arena, err := entity.ArenaFromState(snap.Arena)
	if err != nil {
		return err
	}

	capacity := arena.Capacity()
	if len(snap.Genomes) != capacity || len(snap.Brains) != capacity {
		return fmt.Errorf("snapshot: %d genome and %d brain slots for %d arena slots",
			len(snap.Genomes), len(snap.Brains), capacity)
	}

	genomes := make([]*neural.Genome, capacity)
	for slot := 0; slot < capacity; slot++ {
		gs := &snap.Genomes[slot]
		occupied := snap.Arena.Occupied[slot]
		if occupied && len(gs.Genes) == 0 {
			return fmt.Errorf("snapshot: occupied slot %d has no genome", slot)
		}
		if len(gs.Genes) == 0 {
			if snap.Brains[slot].Active {
				return fmt.Errorf("snapshot: slot %d has an active brain but no genome", slot)
			}
			continue
		}
		g := neural.FromRaw(gs.InterNeurons, gs.Genes)
		if g.TotalGeneLen() != len(gs.Genes) {
			return fmt.Errorf("snapshot: slot %d genome has %d genes, want %d for %d interneurons",
				slot, len(gs.Genes), g.TotalGeneLen(), gs.InterNeurons)
		}
		genomes[slot] = g

		bs := &snap.Brains[slot]
		if occupied && !bs.Active {
			return fmt.Errorf("snapshot: occupied slot %d has an inactive brain", slot)
		}
		if bs.Active {
			if n := g.TotalNeurons(); len(bs.States) != n || len(bs.Outputs) != n {
				return fmt.Errorf("snapshot: slot %d brain vectors %d/%d, want %d neurons",
					slot, len(bs.States), len(bs.Outputs), n)
			}
		}
	}

	env, err := systems.EnvironmentFromState(snap.Env)
	if err != nil {
		return err
	}

	pheromones := systems.NewPheromoneGrid(s.World.Width, s.World.Height, s.Pheromones.CellSize)
	if len(snap.PheromoneCells) != len(pheromones.Cells) {
		return fmt.Errorf("snapshot: %d pheromone cells, want %d",
			len(snap.PheromoneCells), len(pheromones.Cells))
	}
	copy(pheromones.Cells, snap.PheromoneCells)

	src := &rand.PCGSource{}
	if err := src.UnmarshalBinary(snap.RNG); err != nil {
		return fmt.Errorf("unmarshaling rng: %w", err)
	}

	// Validation done; apply.
	s.Arena = arena
	s.Genomes = genomes
	s.Brains = neural.NewBrainStorage(capacity)
	for slot := 0; slot < capacity; slot++ {
		if snap.Brains[slot].Active {
			s.Brains.RestoreSlot(slot, snap.Brains[slot].States, snap.Brains[slot].Outputs, genomes[slot])
		}
	}
	s.Food = append(s.Food[:0], snap.Food...)
	s.FoodSpawner.Accumulator = snap.FoodAccumulator
	s.Meat = append(s.Meat[:0], snap.Meat...)
	s.Signals = append(s.Signals[:0], snap.Signals...)
	s.Pheromones = pheromones
	s.Env = env
	s.TickCount = snap.Tick
	s.src = src
	s.rng = rand.New(src)
	s.speciesTick = 0
	s.refreshPopulationCache(true)

	return nil
}

// Save writes the snapshot to a file in gob encoding.
func (snap *Snapshot) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		f.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return f.Close()
}

// LoadSnapshot reads a snapshot written by Save.
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot file: %w", err)
	}
	defer f.Close()

	var snap Snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

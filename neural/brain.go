package neural

import "math"

// BrainStorage holds the decoded CTRNN for every entity slot. Slots are
// parallel to the entity arena: the slot index of an entity is the slot
// index of its brain. Each slot can carry a different neuron count.
type BrainStorage struct {
	// Membrane states, [slot][neuron].
	states [][]float32
	// Decoded 1/tau per neuron.
	tauInv [][]float32
	biases [][]float32
	// Row-major weights, [slot][to*n + from].
	weights [][]float32
	// Output activations sigmoid(state), [slot][neuron].
	outputs [][]float32
	active  []bool

	scratch []float32 // activation buffer reused across slots
}

// MotorOutputs is the decoded motor layer of one brain after a step.
// All channels are in [0,1] except Turn, remapped to [-1,1].
type MotorOutputs struct {
	Forward   float32
	Turn      float32
	Eat       float32
	Attack    float32
	Share     float32
	Pickup    float32
	Reproduce float32
	SignalR   float32
	SignalG   float32
	SignalB   float32
}

// NewBrainStorage creates storage for the given number of slots. All
// slots start inactive.
func NewBrainStorage(capacity int) *BrainStorage {
	return &BrainStorage{
		states:  make([][]float32, capacity),
		tauInv:  make([][]float32, capacity),
		biases:  make([][]float32, capacity),
		weights: make([][]float32, capacity),
		outputs: make([][]float32, capacity),
		active:  make([]bool, capacity),
	}
}

// InitFromGenome decodes a genome into a slot and activates it. All
// membrane states start at zero. Growing past capacity is supported so
// the storage tracks arena growth.
func (b *BrainStorage) InitFromGenome(slot int, g *Genome) {
	b.ensureCapacity(slot + 1)

	n := g.TotalNeurons()
	states := make([]float32, n)
	tauInv := make([]float32, n)
	biases := make([]float32, n)
	weights := make([]float32, n*n)

	for i := 0; i < n; i++ {
		tauInv[i] = 1.0 / g.Tau(i)
		biases[i] = g.Bias(i)
	}
	for to := 0; to < n; to++ {
		for from := 0; from < n; from++ {
			weights[to*n+from] = g.Weight(to, from)
		}
	}

	b.states[slot] = states
	b.tauInv[slot] = tauInv
	b.biases[slot] = biases
	b.weights[slot] = weights
	b.outputs[slot] = make([]float32, n)
	b.active[slot] = true
}

// Deactivate marks a slot inactive. Out-of-range slots are a no-op.
func (b *BrainStorage) Deactivate(slot int) {
	if slot < len(b.active) {
		b.active[slot] = false
	}
}

// Active reports whether a slot holds a live brain.
func (b *BrainStorage) Active(slot int) bool {
	return slot < len(b.active) && b.active[slot]
}

func (b *BrainStorage) ensureCapacity(needed int) {
	if needed <= len(b.active) {
		return
	}
	newCap := needed
	if doubled := len(b.active) * 2; doubled > newCap {
		newCap = doubled
	}
	grow := newCap - len(b.active)
	b.states = append(b.states, make([][]float32, grow)...)
	b.tauInv = append(b.tauInv, make([][]float32, grow)...)
	b.biases = append(b.biases, make([][]float32, grow)...)
	b.weights = append(b.weights, make([][]float32, grow)...)
	b.outputs = append(b.outputs, make([][]float32, grow)...)
	b.active = append(b.active, make([]bool, grow)...)
}

// StepAll advances every active brain by one forward Euler step.
// sensorInputs is indexed by slot; each row drives the sensor neurons
// directly. Sensor states are overwritten, never integrated.
func (b *BrainStorage) StepAll(sensorInputs [][SensorNeurons]float32, dt float32) {
	for slot := range b.active {
		if !b.active[slot] {
			continue
		}

		n := len(b.states[slot])
		if n < SensorNeurons+MotorNeurons {
			continue
		}

		states := b.states[slot]
		tauInv := b.tauInv[slot]
		biases := b.biases[slot]
		weights := b.weights[slot]

		if slot < len(sensorInputs) {
			for i := 0; i < SensorNeurons; i++ {
				states[i] = sensorInputs[slot][i]
			}
		}

		if cap(b.scratch) < n {
			b.scratch = make([]float32, n)
		}
		activations := b.scratch[:n]
		for i := 0; i < n; i++ {
			activations[i] = sigmoid(states[i])
		}

		for i := SensorNeurons; i < n; i++ {
			inputSum := biases[i]
			row := i * n
			for j := 0; j < n; j++ {
				inputSum += weights[row+j] * activations[j]
			}
			dydt := (-states[i] + inputSum) * tauInv[i]
			states[i] += dydt * dt
			states[i] = clampState(states[i])
		}

		outputs := b.outputs[slot]
		for i := 0; i < n; i++ {
			outputs[i] = sigmoid(states[i])
		}
	}
}

// MotorOutputs reads the last ten output channels of a slot. Slots with
// fewer neurons than the motor layer report all-zero motors.
func (b *BrainStorage) MotorOutputs(slot int) MotorOutputs {
	if slot >= len(b.outputs) {
		return MotorOutputs{}
	}
	o := b.outputs[slot]
	if len(o) < MotorNeurons {
		return MotorOutputs{}
	}

	m := len(o) - MotorNeurons
	return MotorOutputs{
		Forward:   o[m],
		Turn:      o[m+1]*2 - 1,
		Eat:       o[m+2],
		Attack:    o[m+3],
		Share:     o[m+4],
		Pickup:    o[m+5],
		Reproduce: o[m+6],
		SignalR:   o[m+7],
		SignalG:   o[m+8],
		SignalB:   o[m+9],
	}
}

// NeuronCount returns the neuron count of a slot, or 0 if the slot was
// never initialized.
func (b *BrainStorage) NeuronCount(slot int) int {
	if slot >= len(b.states) {
		return 0
	}
	return len(b.states[slot])
}

// InterNeuronCount returns a slot's interneuron count, or -1 if the slot
// was never initialized.
func (b *BrainStorage) InterNeuronCount(slot int) int {
	n := b.NeuronCount(slot)
	if n < SensorNeurons+MotorNeurons {
		return -1
	}
	return n - SensorNeurons - MotorNeurons
}

// SlotStates returns the membrane state vector of a slot.
func (b *BrainStorage) SlotStates(slot int) []float32 {
	if slot >= len(b.states) {
		return nil
	}
	return b.states[slot]
}

// SlotOutputs returns the output activation vector of a slot.
func (b *BrainStorage) SlotOutputs(slot int) []float32 {
	if slot >= len(b.outputs) {
		return nil
	}
	return b.outputs[slot]
}

// SlotWeights returns the row-major weight matrix of a slot.
func (b *BrainStorage) SlotWeights(slot int) []float32 {
	if slot >= len(b.weights) {
		return nil
	}
	return b.weights[slot]
}

// Capacity returns the number of slots, active or not.
func (b *BrainStorage) Capacity() int { return len(b.active) }

// RestoreSlot reinstates a slot's full state, used when loading a saved
// simulation. The caller guarantees the vectors are mutually consistent.
func (b *BrainStorage) RestoreSlot(slot int, states, outputs []float32, g *Genome) {
	b.InitFromGenome(slot, g)
	copy(b.states[slot], states)
	copy(b.outputs[slot], outputs)
}

func sigmoid(x float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(float64(-x))))
}

func clampState(x float32) float32 {
	if x < -StateClamp {
		return -StateClamp
	}
	if x > StateClamp {
		return StateClamp
	}
	return x
}

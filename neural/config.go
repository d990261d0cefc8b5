// Package neural provides the variable-topology genome encoding and the
// CTRNN brain runtime that every agent carries.
package neural

// Network dimensions. Sensor and motor counts are fixed; only the
// interneuron block varies per genome.
const (
	SensorNeurons = 12
	MotorNeurons  = 10

	InterNeuronsDefault = 6
	MinInterNeurons     = 3
	MaxInterNeurons     = 16
)

// Gene layout: [weights n*n][biases n][taus n][body params].
const BodyParamCount = 9

// Body param offsets within the body block.
const (
	bodyColorR = iota
	bodyColorG
	bodyColorB
	bodySize
	bodyMaxSpeed
	bodySensorRange
	bodyMetabolicRate
	bodyMutationRate
	bodyMutationSigma
)

// Structural mutation probabilities. At most one structural change per
// Mutate call; add is tried first.
const (
	StructuralAddProb    = 0.02
	StructuralRemoveProb = 0.02
)

// StateClamp bounds membrane potentials each integration step.
const StateClamp = 20.0

package neural

import (
	"golang.org/x/exp/rand"
)

// Genome is a variable-topology encoding of one agent's brain and body.
// Genes are raw values in [0,1], laid out as
// [weights: n*n][biases: n][taus: n][body params] where
// n = SensorNeurons + interNeurons + MotorNeurons. Decoding maps genes
// into their working ranges on demand.
type Genome struct {
	interNeurons int
	Genes        []float32
}

// RandomGenome returns a genome with the default interneuron count and
// uniformly random genes.
func RandomGenome(rng *rand.Rand) *Genome {
	return RandomGenomeWithInter(rng, InterNeuronsDefault)
}

// RandomGenomeWithInter returns a random genome with the given
// interneuron count, clamped into the legal range.
func RandomGenomeWithInter(rng *rand.Rand, interNeurons int) *Genome {
	interNeurons = ClampInterNeurons(interNeurons)
	genes := make([]float32, TotalGeneLenFor(interNeurons))
	for i := range genes {
		genes[i] = rng.Float32()
	}
	return &Genome{interNeurons: interNeurons, Genes: genes}
}

// FromRaw builds a genome from persisted genes, normalizing the slice to
// the expected length for the topology: short inputs are padded with the
// neutral gene 0.5, long inputs truncated.
func FromRaw(interNeurons int, genes []float32) *Genome {
	interNeurons = ClampInterNeurons(interNeurons)
	expected := TotalGeneLenFor(interNeurons)

	normalized := make([]float32, expected)
	n := copy(normalized, genes)
	for i := n; i < expected; i++ {
		normalized[i] = 0.5
	}
	return &Genome{interNeurons: interNeurons, Genes: normalized}
}

// ClampInterNeurons bounds an interneuron count into the legal range.
func ClampInterNeurons(inter int) int {
	if inter < MinInterNeurons {
		return MinInterNeurons
	}
	if inter > MaxInterNeurons {
		return MaxInterNeurons
	}
	return inter
}

// InterNeurons returns the interneuron count.
func (g *Genome) InterNeurons() int { return g.interNeurons }

// TotalNeurons returns n = sensor + inter + motor.
func (g *Genome) TotalNeurons() int {
	return SensorNeurons + g.interNeurons + MotorNeurons
}

// NeuralGeneLen returns the length of the weight+bias+tau blocks.
func (g *Genome) NeuralGeneLen() int {
	n := g.TotalNeurons()
	return n*n + n + n
}

// TotalGeneLen returns the full gene length including body params.
func (g *Genome) TotalGeneLen() int {
	return g.NeuralGeneLen() + BodyParamCount
}

// TotalGeneLenFor returns the full gene length for an interneuron count.
func TotalGeneLenFor(interNeurons int) int {
	n := SensorNeurons + ClampInterNeurons(interNeurons) + MotorNeurons
	return n*n + n + n + BodyParamCount
}

// Mutate returns a mutated copy. The mutation rate and sigma are decoded
// from the child's own body genes before any perturbation, so the
// mutation parameters themselves evolve. Each gene is perturbed
// independently with probability rate by a uniform offset in
// [-sigma, sigma), then clamped back to [0,1]. At most one structural
// change follows: an interneuron insertion is rolled first, and a
// removal is rolled only if the insertion did not fire.
func (g *Genome) Mutate(rng *rand.Rand) *Genome {
	child := &Genome{
		interNeurons: g.interNeurons,
		Genes:        append([]float32(nil), g.Genes...),
	}
	rate := child.MutationRate()
	sigma := child.MutationSigma()

	for i := range child.Genes {
		if rng.Float32() < rate {
			child.Genes[i] += (rng.Float32()*2 - 1) * sigma
			child.Genes[i] = clamp01(child.Genes[i])
		}
	}

	if rng.Float32() < StructuralAddProb {
		if child.interNeurons < MaxInterNeurons {
			child.addInterneuron(rng)
		}
	} else if rng.Float32() < StructuralRemoveProb {
		if child.interNeurons > MinInterNeurons {
			child.removeInterneuron(rng)
		}
	}

	return child
}

// addInterneuron grows the topology by one neuron, appended at the end
// of the interneuron block. Every synapse, bias, and tau gene between
// pre-existing neurons is copied unchanged; only the new neuron's
// incoming/outgoing edges and its bias/tau draw fresh random genes.
func (g *Genome) addInterneuron(rng *rand.Rand) {
	oldInter := g.interNeurons
	if oldInter >= MaxInterNeurons {
		return
	}

	oldN := g.TotalNeurons()
	insertIdx := SensorNeurons + oldInter
	newN := oldN + 1

	oldWeights := g.Genes[:oldN*oldN]
	oldBiases := g.Genes[oldN*oldN : oldN*oldN+oldN]
	oldTaus := g.Genes[oldN*oldN+oldN : oldN*oldN+2*oldN]
	body := g.bodyGenes()

	newGenes := make([]float32, newN*newN+2*newN+BodyParamCount)

	for toNew := 0; toNew < newN; toNew++ {
		for fromNew := 0; fromNew < newN; fromNew++ {
			var v float32
			if toNew == insertIdx || fromNew == insertIdx {
				v = rng.Float32()
			} else {
				toOld := toNew
				if toNew > insertIdx {
					toOld = toNew - 1
				}
				fromOld := fromNew
				if fromNew > insertIdx {
					fromOld = fromNew - 1
				}
				v = oldWeights[toOld*oldN+fromOld]
			}
			newGenes[toNew*newN+fromNew] = v
		}
	}

	biasBase := newN * newN
	tauBase := biasBase + newN
	for iNew := 0; iNew < newN; iNew++ {
		if iNew == insertIdx {
			newGenes[biasBase+iNew] = rng.Float32()
			newGenes[tauBase+iNew] = rng.Float32()
			continue
		}
		iOld := iNew
		if iNew > insertIdx {
			iOld = iNew - 1
		}
		newGenes[biasBase+iNew] = oldBiases[iOld]
		newGenes[tauBase+iNew] = oldTaus[iOld]
	}

	copy(newGenes[tauBase+newN:], body)

	g.Genes = newGenes
	g.interNeurons = oldInter + 1
}

// removeInterneuron deletes one uniformly random interneuron, closing
// the gap in the weight matrix and the bias/tau vectors. Sensor and
// motor indices are never candidates.
func (g *Genome) removeInterneuron(rng *rand.Rand) {
	oldInter := g.interNeurons
	if oldInter <= MinInterNeurons {
		return
	}

	oldN := g.TotalNeurons()
	removeIdx := SensorNeurons + int(rng.Int31n(int32(oldInter)))
	newN := oldN - 1

	oldWeights := g.Genes[:oldN*oldN]
	oldBiases := g.Genes[oldN*oldN : oldN*oldN+oldN]
	oldTaus := g.Genes[oldN*oldN+oldN : oldN*oldN+2*oldN]
	body := g.bodyGenes()

	newGenes := make([]float32, newN*newN+2*newN+BodyParamCount)

	for toNew := 0; toNew < newN; toNew++ {
		toOld := toNew
		if toNew >= removeIdx {
			toOld = toNew + 1
		}
		for fromNew := 0; fromNew < newN; fromNew++ {
			fromOld := fromNew
			if fromNew >= removeIdx {
				fromOld = fromNew + 1
			}
			newGenes[toNew*newN+fromNew] = oldWeights[toOld*oldN+fromOld]
		}
	}

	biasBase := newN * newN
	tauBase := biasBase + newN
	for iNew := 0; iNew < newN; iNew++ {
		iOld := iNew
		if iNew >= removeIdx {
			iOld = iNew + 1
		}
		newGenes[biasBase+iNew] = oldBiases[iOld]
		newGenes[tauBase+iNew] = oldTaus[iOld]
	}

	copy(newGenes[tauBase+newN:], body)

	g.Genes = newGenes
	g.interNeurons = oldInter - 1
}

// Weight decodes W[i][j], mapping [0,1] -> [-16, 16].
func (g *Genome) Weight(i, j int) float32 {
	n := g.TotalNeurons()
	return (g.Genes[i*n+j] - 0.5) * 32.0
}

// Bias decodes neuron i's bias, mapping [0,1] -> [-16, 16].
func (g *Genome) Bias(i int) float32 {
	n := g.TotalNeurons()
	return (g.Genes[n*n+i] - 0.5) * 32.0
}

// Tau decodes neuron i's time constant, mapping [0,1] -> [0.5, 5.0].
func (g *Genome) Tau(i int) float32 {
	n := g.TotalNeurons()
	return 0.5 + g.Genes[n*n+n+i]*4.5
}

func (g *Genome) bodyGene(offset int) float32 {
	idx := g.NeuralGeneLen() + offset
	if idx >= len(g.Genes) {
		return 0.5
	}
	return g.Genes[idx]
}

func (g *Genome) bodyGenes() []float32 {
	body := make([]float32, BodyParamCount)
	for i := range body {
		body[i] = g.bodyGene(i)
	}
	return body
}

// BodyColor decodes the display color, each channel in [0.2, 1.0].
func (g *Genome) BodyColor() (r, gr, b float32) {
	return 0.2 + g.bodyGene(bodyColorR)*0.8,
		0.2 + g.bodyGene(bodyColorG)*0.8,
		0.2 + g.bodyGene(bodyColorB)*0.8
}

// BodySize decodes the radius multiplier [0.6, 1.6].
func (g *Genome) BodySize() float32 {
	return 0.6 + g.bodyGene(bodySize)*1.0
}

// MaxSpeed decodes the speed multiplier [0.5, 1.5].
func (g *Genome) MaxSpeed() float32 {
	return 0.5 + g.bodyGene(bodyMaxSpeed)*1.0
}

// SensorRange decodes the sensor range multiplier [0.5, 1.5].
func (g *Genome) SensorRange() float32 {
	return 0.5 + g.bodyGene(bodySensorRange)*1.0
}

// MetabolicRate decodes the metabolic rate multiplier [0.5, 1.5].
func (g *Genome) MetabolicRate() float32 {
	return 0.5 + g.bodyGene(bodyMetabolicRate)*1.0
}

// MutationRate decodes the evolvable per-gene mutation probability
// [0.01, 0.15].
func (g *Genome) MutationRate() float32 {
	return 0.01 + g.bodyGene(bodyMutationRate)*0.14
}

// MutationSigma decodes the evolvable perturbation half-width
// [0.02, 0.30].
func (g *Genome) MutationSigma() float32 {
	return 0.02 + g.bodyGene(bodyMutationSigma)*0.28
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

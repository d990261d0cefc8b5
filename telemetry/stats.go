package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick uint64  `csv:"-"`
	WindowEndTick   uint64  `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// State at window end
	Population      int `csv:"population"`
	SpeciesEstimate int `csv:"species"`
	FoodCount       int `csv:"food"`
	MeatCount       int `csv:"meat"`

	// Events during window
	Births   int     `csv:"births"`
	Deaths   int     `csv:"deaths"`
	Attacks  int     `csv:"attacks"`
	Kills    int     `csv:"kills"`
	Meals    int     `csv:"meals"`
	KillRate float64 `csv:"kill_rate"`

	// Energy distribution (sampled at window end)
	EnergyMean float64 `csv:"energy_mean"`
	EnergyStd  float64 `csv:"energy_std"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	AgeMean float64 `csv:"age_mean"`
	AgeP50  float64 `csv:"age_p50"`

	AvgGeneration float64 `csv:"avg_generation"`
	AvgSize       float64 `csv:"avg_size"`
}

// ComputeDistribution calculates mean, standard deviation, and
// percentiles from a sample. Zeroes on an empty sample.
func ComputeDistribution(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}

	mean, std = meanStd(values)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)

	return mean, std, p10, p50, p90
}

func meanStd(values []float64) (mean, std float64) {
	mean = stat.Mean(values, nil)
	if len(values) > 1 {
		std = stat.StdDev(values, nil)
	}
	return mean, std
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("population", s.Population),
		slog.Int("species", s.SpeciesEstimate),
		slog.Int("food", s.FoodCount),
		slog.Int("meat", s.MeatCount),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("attacks", s.Attacks),
		slog.Int("kills", s.Kills),
		slog.Int("meals", s.Meals),
		slog.Float64("kill_rate", s.KillRate),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("age_mean", s.AgeMean),
		slog.Float64("avg_generation", s.AvgGeneration),
	)
}

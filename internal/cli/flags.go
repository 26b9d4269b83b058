package cli

import (
	"github.com/happyhackingspace/cryptohmm/internal/config"
	"github.com/spf13/pflag"
)

// trainerFlags overrides the configured trainer settings for flags set on the command line.
type trainerFlags struct {
	minIterations int
	maxIterations int
	threshold     float64
	bandMin       float64
	bandMax       float64
}

func (f *trainerFlags) register(fs *pflag.FlagSet, d config.Trainer) {
	fs.IntVar(&f.minIterations, "min-iterations", d.MinIterations, "Baum-Welch iterations always performed")
	fs.IntVar(&f.maxIterations, "max-iterations", d.MaxIterations, "Maximum Baum-Welch iterations")
	fs.Float64Var(&f.threshold, "threshold", d.ImprovementThreshold, "Stop once the log-likelihood improves by less than this")
	fs.Float64Var(&f.bandMin, "band-min", d.Band.Min, "Lower bound of raw initial values")
	fs.Float64Var(&f.bandMax, "band-max", d.Band.Max, "Upper bound of raw initial values")
}

func (f *trainerFlags) apply(fs *pflag.FlagSet, t *config.Trainer) {
	if fs.Changed("min-iterations") {
		t.MinIterations = f.minIterations
	}
	if fs.Changed("max-iterations") {
		t.MaxIterations = f.maxIterations
	}
	if fs.Changed("threshold") {
		t.ImprovementThreshold = f.threshold
	}
	if fs.Changed("band-min") {
		t.Band.Min = f.bandMin
	}
	if fs.Changed("band-max") {
		t.Band.Max = f.bandMax
	}
}

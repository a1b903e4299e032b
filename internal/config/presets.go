package config

import (
	"sort"

	"github.com/san-kum/chaosnet/internal/dynamo"
)

// Presets reproduce the parameter studies the model was built for. The
// testloop presets use gain 1/sigma so the tanh argument is exactly 1.
var Presets = map[string]*Config{
	"tcorr-n200": {
		N:         200,
		Couplings: []float64{1.05, 1.1, 1.2, 1.25, 1.26, 1.266, 1.2668, 1.27, 1.3, 1.4},
		Gain:      1, Seed: 28031987, Runs: 1,
		BurnIn:  dynamo.Window{T0: 0, Tf: 6000, Dt: 0.1},
		Observe: dynamo.Window{T0: 0, Tf: 10000, Dt: 0.1},
		Lyapunov: LyapunovConfig{
			Window: dynamo.Window{T0: 0, Tf: 100, Dt: 1}, Perturbation: DefaultPerturbation,
		},
		Correlation: CorrelationConfig{Mode: "ensemble"},
	},
	"tcorr-n256": {
		N:         256,
		Couplings: []float64{1.5, 1.6, 2.0},
		Gain:      1, Seed: 19870328, Runs: 1,
		BurnIn:  dynamo.Window{T0: 0, Tf: 10000, Dt: 0.1},
		Observe: dynamo.Window{T0: 0, Tf: 10000, Dt: 0.1},
		Lyapunov: LyapunovConfig{
			Window: dynamo.Window{T0: 0, Tf: 100, Dt: 1}, Perturbation: DefaultPerturbation,
		},
		Correlation: CorrelationConfig{Mode: "ensemble"},
	},
	"testloop-1.05": {
		N:         1000,
		Couplings: []float64{1.05},
		Gain:      1 / 1.05, Seed: 1, Runs: 100,
		BurnIn:  dynamo.Window{T0: 0, Tf: 20000, Dt: 1},
		Observe: dynamo.Window{T0: 0, Tf: 5000, Dt: 0.1},
		Lyapunov: LyapunovConfig{
			Window: dynamo.Window{T0: 0, Tf: 100, Dt: 1}, Perturbation: DefaultPerturbation,
		},
		Correlation: CorrelationConfig{Mode: "single"},
	},
	"testloop-1.2": {
		N:         1000,
		Couplings: []float64{1.2},
		Gain:      1 / 1.2, Seed: 1, Runs: 100,
		BurnIn:  dynamo.Window{T0: 0, Tf: 3000, Dt: 1},
		Observe: dynamo.Window{T0: 0, Tf: 4000, Dt: 0.1},
		Lyapunov: LyapunovConfig{
			Window: dynamo.Window{T0: 0, Tf: 100, Dt: 1}, Perturbation: DefaultPerturbation,
		},
		Correlation: CorrelationConfig{Mode: "single"},
	},
	"quick": {
		N:         50,
		Couplings: []float64{0.5, 1.5},
		Gain:      1, Seed: 7, Runs: 2,
		BurnIn:  dynamo.Window{T0: 0, Tf: 100, Dt: 1},
		Observe: dynamo.Window{T0: 0, Tf: 50, Dt: 0.1},
		Lyapunov: LyapunovConfig{
			Enabled: true,
			Window:  dynamo.Window{T0: 0, Tf: 20, Dt: 0.5}, Perturbation: DefaultPerturbation,
		},
		Correlation: CorrelationConfig{Mode: "ensemble"},
	},
}

// GetPreset returns a validated copy of the named preset with the default
// solver and data directory filled in, or nil if there is no such preset.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := p.Clone()
	cfg.Solver = dynamo.DefaultSolverConfig()
	cfg.DataDir = DefaultDataDir
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package ensemble

import (
	"fmt"
	"math"
	"sort"

	"FinCast/internal/domain/models"
)

// Flat parameter names in the <tag>__<param> namespace.
const (
	ParamPolyDegree         = "poly3__degree"
	ParamPolyAlpha          = "poly3__alpha"
	ParamKNNNeighbors       = "knn__n_neighbors"
	ParamDTMaxDepth         = "dt_reg__max_depth"
	ParamDTMinSamplesSplit  = "dt_reg__min_samples_split"
	ParamDTMaxFeatures      = "dt_reg__max_features"
	ParamAdbMaxDepth        = "adb_reg__base_estimator__max_depth"
	ParamAdbMinSamplesSplit = "adb_reg__base_estimator__min_samples_split"
	ParamAdbMaxFeatures     = "adb_reg__base_estimator__max_features"
	ParamAdbNEstimators     = "adb_reg__n_estimators"
	ParamAdbLearningRate    = "adb_reg__learning_rate"
	ParamXGBColsample       = "xgb_reg__colsample_bytree"
	ParamXGBGamma           = "xgb_reg__gamma"
	ParamXGBLearningRate    = "xgb_reg__learning_rate"
	ParamXGBMaxDepth        = "xgb_reg__max_depth"
	ParamXGBNEstimators     = "xgb_reg__n_estimators"
	ParamXGBSubsample       = "xgb_reg__subsample"
	ParamSVCC               = "lsvc__C"
	ParamRForNEstimators    = "rfor__n_estimators"
)

type param struct {
	kind  Kind
	isInt bool
	get   func(*Config) float64
	set   func(*Config, float64)
}

func intParam(kind Kind, field func(*Config) *int) param {
	return param{
		kind:  kind,
		isInt: true,
		get:   func(c *Config) float64 { return float64(*field(c)) },
		set:   func(c *Config, v float64) { *field(c) = int(math.Round(v)) },
	}
}

func floatParam(kind Kind, field func(*Config) *float64) param {
	return param{
		kind: kind,
		get:  func(c *Config) float64 { return *field(c) },
		set:  func(c *Config, v float64) { *field(c) = v },
	}
}

var params = map[string]param{
	ParamPolyDegree:         intParam(KindPoly3, func(c *Config) *int { return &c.Poly3.Degree }),
	ParamPolyAlpha:          floatParam(KindPoly3, func(c *Config) *float64 { return &c.Poly3.Alpha }),
	ParamKNNNeighbors:       intParam(KindKNN, func(c *Config) *int { return &c.KNN.NNeighbors }),
	ParamDTMaxDepth:         intParam(KindDTReg, func(c *Config) *int { return &c.DTReg.MaxDepth }),
	ParamDTMinSamplesSplit:  intParam(KindDTReg, func(c *Config) *int { return &c.DTReg.MinSamplesSplit }),
	ParamDTMaxFeatures:      intParam(KindDTReg, func(c *Config) *int { return &c.DTReg.MaxFeatures }),
	ParamAdbMaxDepth:        intParam(KindAdbReg, func(c *Config) *int { return &c.AdbReg.Base.MaxDepth }),
	ParamAdbMinSamplesSplit: intParam(KindAdbReg, func(c *Config) *int { return &c.AdbReg.Base.MinSamplesSplit }),
	ParamAdbMaxFeatures:     intParam(KindAdbReg, func(c *Config) *int { return &c.AdbReg.Base.MaxFeatures }),
	ParamAdbNEstimators:     intParam(KindAdbReg, func(c *Config) *int { return &c.AdbReg.NEstimators }),
	ParamAdbLearningRate:    floatParam(KindAdbReg, func(c *Config) *float64 { return &c.AdbReg.LearningRate }),
	ParamXGBColsample:       floatParam(KindXGBReg, func(c *Config) *float64 { return &c.XGBReg.ColsampleByTree }),
	ParamXGBGamma:           floatParam(KindXGBReg, func(c *Config) *float64 { return &c.XGBReg.Gamma }),
	ParamXGBLearningRate:    floatParam(KindXGBReg, func(c *Config) *float64 { return &c.XGBReg.LearningRate }),
	ParamXGBMaxDepth:        intParam(KindXGBReg, func(c *Config) *int { return &c.XGBReg.MaxDepth }),
	ParamXGBNEstimators:     intParam(KindXGBReg, func(c *Config) *int { return &c.XGBReg.NEstimators }),
	ParamXGBSubsample:       floatParam(KindXGBReg, func(c *Config) *float64 { return &c.XGBReg.Subsample }),
	ParamSVCC:               floatParam(KindLSVC, func(c *Config) *float64 { return &c.LSVC.C }),
	ParamRForNEstimators:    intParam(KindRFor, func(c *Config) *int { return &c.RFor.NEstimators }),
}

// IsIntParam reports whether name holds an integer value.
func IsIntParam(name string) bool {
	p, ok := params[name]
	return ok && p.isInt
}

func (c Config) has(kind Kind) bool {
	for _, k := range c.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// Flatten exposes the parameters of the configured members in the flat namespace.
func (c Config) Flatten() map[string]float64 {
	out := make(map[string]float64, len(params))
	for name, p := range params {
		if c.has(p.kind) {
			out[name] = p.get(&c)
		}
	}
	return out
}

// ParamNames returns the flat names of the configured members, sorted.
func (c Config) ParamNames() []string {
	names := make([]string, 0, len(params))
	for name, p := range params {
		if c.has(p.kind) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Set writes one flat parameter; integer parameters are rounded.
func (c *Config) Set(name string, value float64) error {
	p, ok := params[name]
	if !ok || !c.has(p.kind) {
		return &models.ConfigError{Field: name, Reason: fmt.Sprintf("unknown parameter for %s ensemble", c.Mode)}
	}
	p.set(c, value)
	return nil
}

// With returns a copy of c with every value of overrides applied.
func (c Config) With(overrides map[string]float64) (Config, error) {
	out := c
	for name, v := range overrides {
		if err := out.Set(name, v); err != nil {
			return Config{}, err
		}
	}
	return out, nil
}

// Package ensemble assembles the voting ensembles from typed sub-model configurations.
package ensemble

import (
	"fmt"

	"FinCast/internal/domain/models"
	"FinCast/internal/ml"
)

// Kind tags a sub-model of the ensemble.
type Kind string

const (
	KindPoly3  Kind = "poly3"
	KindKNN    Kind = "knn"
	KindDTReg  Kind = "dt_reg"
	KindAdbReg Kind = "adb_reg"
	KindXGBReg Kind = "xgb_reg"
	KindLSVC   Kind = "lsvc"
	KindRFor   Kind = "rfor"
)

// RegressionKinds and ClassificationKinds are the fixed member orders of each mode.
var (
	RegressionKinds     = []Kind{KindPoly3, KindKNN, KindDTReg, KindAdbReg, KindXGBReg}
	ClassificationKinds = []Kind{KindLSVC, KindKNN, KindRFor}
)

type PolyParams struct {
	Degree int
	Alpha  float64
}

type KNNParams struct {
	NNeighbors int
	Weights    ml.KNNWeights
}

type TreeParams struct {
	MaxDepth        int
	MinSamplesSplit int
	// MaxFeatures of 0 means every feature.
	MaxFeatures int
}

type AdaBoostParams struct {
	Base         TreeParams
	NEstimators  int
	LearningRate float64
}

type BoosterParams struct {
	ColsampleByTree float64
	Gamma           float64
	LearningRate    float64
	MaxDepth        int
	NEstimators     int
	Subsample       float64
}

type SVCParams struct {
	C float64
}

type ForestParams struct {
	NEstimators int
}

// Config holds one typed parameter struct per sub-model. It is a value type: copies are
// independent and built estimators never alias it.
type Config struct {
	Mode   models.LabelMode
	Seed   int64
	Poly3  PolyParams
	KNN    KNNParams
	DTReg  TreeParams
	AdbReg AdaBoostParams
	XGBReg BoosterParams
	LSVC   SVCParams
	RFor   ForestParams
}

// DefaultRegressionConfig returns the untuned regression ensemble.
func DefaultRegressionConfig() Config {
	b := ml.DefaultBoosterParams()
	return Config{
		Mode:  models.ModeRegression,
		Seed:  42,
		Poly3: PolyParams{Degree: 3, Alpha: 1},
		KNN:   KNNParams{NNeighbors: 2, Weights: ml.WeightsDistance},
		DTReg: TreeParams{MaxDepth: 4, MinSamplesSplit: 2},
		AdbReg: AdaBoostParams{
			Base:         TreeParams{MaxDepth: 4, MinSamplesSplit: 2},
			NEstimators:  3000,
			LearningRate: 1,
		},
		XGBReg: BoosterParams{
			ColsampleByTree: b.ColsampleByTree,
			Gamma:           b.Gamma,
			LearningRate:    b.LearningRate,
			MaxDepth:        b.MaxDepth,
			NEstimators:     b.NEstimators,
			Subsample:       b.Subsample,
		},
	}
}

// DefaultClassificationConfig returns the untuned classification ensemble.
func DefaultClassificationConfig() Config {
	return Config{
		Mode: models.ModeClassification,
		Seed: 42,
		KNN:  KNNParams{NNeighbors: 5, Weights: ml.WeightsUniform},
		LSVC: SVCParams{C: 1},
		RFor: ForestParams{NEstimators: 100},
	}
}

// Kinds returns the member tags of the configured mode.
func (c Config) Kinds() []Kind {
	if c.Mode == models.ModeClassification {
		return ClassificationKinds
	}
	return RegressionKinds
}

// Validate rejects parameter values no member can be built with.
func (c Config) Validate() error {
	if c.Mode != models.ModeRegression && c.Mode != models.ModeClassification {
		return &models.ConfigError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", c.Mode)}
	}
	if c.KNN.NNeighbors < 1 {
		return &models.ConfigError{Field: "knn__n_neighbors", Reason: "must be >= 1"}
	}
	if c.Mode == models.ModeClassification {
		if c.LSVC.C <= 0 {
			return &models.ConfigError{Field: "lsvc__C", Reason: "must be > 0"}
		}
		if c.RFor.NEstimators < 1 {
			return &models.ConfigError{Field: "rfor__n_estimators", Reason: "must be >= 1"}
		}
		return nil
	}
	switch {
	case c.Poly3.Degree < 1:
		return &models.ConfigError{Field: "poly3__degree", Reason: "must be >= 1"}
	case c.Poly3.Alpha < 0:
		return &models.ConfigError{Field: "poly3__alpha", Reason: "must be >= 0"}
	case c.DTReg.MaxDepth < 1:
		return &models.ConfigError{Field: "dt_reg__max_depth", Reason: "must be >= 1"}
	case c.AdbReg.NEstimators < 1:
		return &models.ConfigError{Field: "adb_reg__n_estimators", Reason: "must be >= 1"}
	case c.AdbReg.Base.MaxDepth < 1:
		return &models.ConfigError{Field: "adb_reg__base_estimator__max_depth", Reason: "must be >= 1"}
	case c.XGBReg.NEstimators < 1:
		return &models.ConfigError{Field: "xgb_reg__n_estimators", Reason: "must be >= 1"}
	case c.XGBReg.MaxDepth < 1:
		return &models.ConfigError{Field: "xgb_reg__max_depth", Reason: "must be >= 1"}
	case c.XGBReg.Subsample <= 0 || c.XGBReg.Subsample > 1:
		return &models.ConfigError{Field: "xgb_reg__subsample", Reason: "must be in (0,1]"}
	case c.XGBReg.ColsampleByTree <= 0 || c.XGBReg.ColsampleByTree > 1:
		return &models.ConfigError{Field: "xgb_reg__colsample_bytree", Reason: "must be in (0,1]"}
	}
	return nil
}

// Member builds an unfitted estimator for one tag.
func (c Config) Member(kind Kind) (ml.Estimator, error) {
	switch kind {
	case KindPoly3:
		return ml.NewPolyRidge(c.Poly3.Degree, c.Poly3.Alpha), nil
	case KindKNN:
		if c.Mode == models.ModeClassification {
			return ml.NewKNNClassifier(c.KNN.NNeighbors), nil
		}
		return ml.NewKNNRegressor(c.KNN.NNeighbors, c.KNN.Weights), nil
	case KindDTReg:
		return ml.NewRegressionTree(c.DTReg.tree(c.Seed)), nil
	case KindAdbReg:
		return ml.NewAdaBoostRegressor(ml.AdaBoostParams{
			NEstimators:  c.AdbReg.NEstimators,
			LearningRate: c.AdbReg.LearningRate,
			Base:         c.AdbReg.Base.tree(0),
			Seed:         c.Seed,
		}), nil
	case KindXGBReg:
		return ml.NewGradientBooster(ml.BoosterParams{
			NEstimators:     c.XGBReg.NEstimators,
			LearningRate:    c.XGBReg.LearningRate,
			MaxDepth:        c.XGBReg.MaxDepth,
			Gamma:           c.XGBReg.Gamma,
			Lambda:          1,
			MinChildWeight:  1,
			Subsample:       c.XGBReg.Subsample,
			ColsampleByTree: c.XGBReg.ColsampleByTree,
			Seed:            c.Seed,
		}), nil
	case KindLSVC:
		return ml.NewLinearSVC(ml.SVCParams{C: c.LSVC.C, Seed: c.Seed}), nil
	case KindRFor:
		return ml.NewRandomForestClassifier(ml.ForestParams{NEstimators: c.RFor.NEstimators, Seed: c.Seed}), nil
	}
	return nil, &models.ConfigError{Field: "kind", Reason: fmt.Sprintf("unknown sub-model %q", kind)}
}

func (p TreeParams) tree(seed int64) ml.TreeParams {
	return ml.TreeParams{
		MaxDepth:        p.MaxDepth,
		MinSamplesSplit: p.MinSamplesSplit,
		MaxFeatures:     p.MaxFeatures,
		Seed:            seed,
	}
}

// Build validates the configuration and returns the unfitted voting ensemble of its mode.
func (c Config) Build() (ml.Estimator, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	members := make([]Member, 0, len(c.Kinds()))
	for _, k := range c.Kinds() {
		est, err := c.Member(k)
		if err != nil {
			return nil, err
		}
		members = append(members, Member{Name: string(k), Estimator: est})
	}
	if c.Mode == models.ModeClassification {
		return NewVotingClassifier(members...), nil
	}
	return NewVotingRegressor(members...), nil
}

// Package search tunes ensemble hyperparameters by randomised cross-validated search.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"FinCast/internal/domain/models"
	"FinCast/internal/ml"
	"FinCast/pkg/logger"
)

// Factory builds an unfitted estimator for one parameter assignment.
type Factory func(params map[string]float64) (ml.Estimator, error)

// UnitRecorder observes the outcome of every (candidate, fold) unit.
type UnitRecorder interface {
	RecordSearchUnit(result string)
}

// Options configure a search.
type Options struct {
	Iterations int
	Folds      int
	// Concurrency bounds the units evaluated at once; 0 uses GOMAXPROCS.
	Concurrency int
	Seed        int64
	Scorer      ml.Scorer
	// ReportTop is the number of ranked candidates logged after the search.
	ReportTop int
}

// Candidate is one sampled parameter assignment and its fold scores.
type Candidate struct {
	Index    int
	Params   map[string]float64
	Scores   []float64
	Failures int
	Mean     float64
	Std      float64
	Rank     int
}

// Result is the outcome of a search.
type Result struct {
	Best Candidate
	// Estimator is the best candidate refitted on the whole training split.
	Estimator  ml.Estimator
	Candidates []Candidate
	Failures   int
	Elapsed    time.Duration
}

var errNoFactory = errors.New("search: nil factory")

// Searcher runs randomised search over a Space.
type Searcher struct {
	space    Space
	opts     Options
	log      *logger.Logger
	recorder UnitRecorder
}

// New returns a searcher over space.
func New(space Space, opts Options, log *logger.Logger, recorder UnitRecorder) *Searcher {
	if opts.Iterations <= 0 {
		opts.Iterations = 5
	}
	if opts.Folds <= 0 {
		opts.Folds = 10
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	if opts.Scorer == nil {
		opts.Scorer = ml.R2
	}
	if opts.ReportTop <= 0 {
		opts.ReportTop = 3
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Searcher{space: space, opts: opts, log: log, recorder: recorder}
}

// Candidates draws the parameter assignments of one search. An empty space yields a single
// empty assignment.
func (s *Searcher) Candidates() []map[string]float64 {
	if len(s.space) == 0 {
		return []map[string]float64{{}}
	}
	rng := rand.New(rand.NewSource(s.opts.Seed))
	out := make([]map[string]float64, s.opts.Iterations)
	for i := range out {
		out[i] = s.space.Sample(rng)
	}
	return out
}

type unit struct {
	candidate int
	fold      int
}

// Search evaluates every (candidate, fold) unit, picks the best mean score and refits it on X.
// Failing units are skipped; if no candidate keeps a successful fold the search fails with
// *models.SearchExhaustedError.
func (s *Searcher) Search(ctx context.Context, factory Factory, X [][]float64, y []float64) (*Result, error) {
	if factory == nil {
		return nil, errNoFactory
	}
	start := time.Now()
	folds, err := ml.KFold(len(X), s.opts.Folds)
	if err != nil {
		return nil, &models.ConfigError{Field: "folds", Reason: err.Error()}
	}
	params := s.Candidates()
	candidates := make([]Candidate, len(params))
	for i, p := range params {
		candidates[i] = Candidate{Index: i, Params: p, Scores: make([]float64, 0, len(folds))}
	}

	scores := make([][]float64, len(params))
	ok := make([][]bool, len(params))
	for i := range scores {
		scores[i] = make([]float64, len(folds))
		ok[i] = make([]bool, len(folds))
	}

	var (
		mu       sync.Mutex
		failures int
		lastErr  error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for c := range params {
		for f := range folds {
			u := unit{candidate: c, fold: f}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				score, err := evaluate(factory, params[u.candidate], folds[u.fold], X, y, s.opts.Scorer)
				if err != nil {
					mu.Lock()
					failures++
					lastErr = err
					mu.Unlock()
					s.record("failed")
					s.log.Warn("search unit failed",
						logger.Int("candidate", u.candidate),
						logger.Int("fold", u.fold),
						logger.Error(err))
					return nil
				}
				scores[u.candidate][u.fold] = score
				ok[u.candidate][u.fold] = true
				s.record("ok")
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var survivors []Candidate
	for i := range candidates {
		c := &candidates[i]
		for f := range folds {
			if ok[i][f] {
				c.Scores = append(c.Scores, scores[i][f])
			} else {
				c.Failures++
			}
		}
		if len(c.Scores) == 0 {
			continue
		}
		c.Mean, c.Std = meanStd(c.Scores)
		survivors = append(survivors, *c)
	}
	if len(survivors) == 0 {
		return nil, &models.SearchExhaustedError{
			Candidates: len(params),
			Folds:      len(folds),
			Failures:   failures,
			LastErr:    lastErr,
		}
	}
	rank(survivors)

	best := survivors[0]
	for _, c := range survivors[1:] {
		if c.Mean > best.Mean {
			best = c
		}
	}
	est, err := factory(best.Params)
	if err != nil {
		return nil, fmt.Errorf("search: build best candidate: %w", err)
	}
	if err := est.Fit(X, y); err != nil {
		return nil, fmt.Errorf("search: refit best candidate: %w", err)
	}

	res := &Result{
		Best:       best,
		Estimator:  est,
		Candidates: survivors,
		Failures:   failures,
		Elapsed:    time.Since(start),
	}
	s.report(res)
	return res, nil
}

func (s *Searcher) record(result string) {
	if s.recorder != nil {
		s.recorder.RecordSearchUnit(result)
	}
}

// report logs the top ranked candidates.
func (s *Searcher) report(res *Result) {
	ranked := append([]Candidate(nil), res.Candidates...)
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].Rank < ranked[b].Rank })
	for _, c := range ranked {
		if c.Rank > s.opts.ReportTop {
			break
		}
		s.log.Info("search candidate",
			logger.Int("rank", c.Rank),
			logger.Float64("mean_score", c.Mean),
			logger.Float64("std_score", c.Std),
			logger.Int("folds", len(c.Scores)),
			logger.Any("params", c.Params))
	}
	s.log.Info("search finished",
		logger.Int("candidates", len(res.Candidates)),
		logger.Int("failed_units", res.Failures),
		logger.Float64("best_score", res.Best.Mean),
		logger.Duration("elapsed_ms", res.Elapsed))
}

// rank assigns competition ranks by descending mean; equal means share a rank.
func rank(cs []Candidate) {
	order := make([]int, len(cs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return cs[order[a]].Mean > cs[order[b]].Mean })
	for pos, i := range order {
		if pos > 0 && cs[i].Mean == cs[order[pos-1]].Mean {
			cs[i].Rank = cs[order[pos-1]].Rank
			continue
		}
		cs[i].Rank = pos + 1
	}
}

func evaluate(factory Factory, params map[string]float64, fold ml.Fold, X [][]float64, y []float64, scorer ml.Scorer) (float64, error) {
	est, err := factory(params)
	if err != nil {
		return 0, err
	}
	if err := est.Fit(ml.Rows(X, fold.Train), ml.Values(y, fold.Train)); err != nil {
		return 0, err
	}
	return ml.Score(est, scorer, ml.Rows(X, fold.Test), ml.Values(y, fold.Test))
}

// meanStd returns the mean and population standard deviation of fold scores.
func meanStd(xs []float64) (float64, float64) {
	mean, variance := stat.PopMeanVariance(xs, nil)
	return mean, math.Sqrt(variance)
}

// CrossValidate scores one parameter assignment over contiguous folds, independently of any
// search. It fails if any fold fails.
func CrossValidate(ctx context.Context, factory Factory, params map[string]float64, X [][]float64, y []float64, folds int, scorer ml.Scorer, concurrency int) ([]float64, error) {
	if factory == nil {
		return nil, errNoFactory
	}
	fs, err := ml.KFold(len(X), folds)
	if err != nil {
		return nil, &models.ConfigError{Field: "folds", Reason: err.Error()}
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	out := make([]float64, len(fs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, f := range fs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := evaluate(factory, params, f, X, y, scorer)
			if err != nil {
				return fmt.Errorf("fold %d: %w", i, err)
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("cross validate: %w", err)
	}
	return out, nil
}

// MeanScore is the mean of CrossValidate's fold scores.
func MeanScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	return stat.Mean(scores, nil)
}

package app

import (
	"context"
	"errors"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"riskcorr/adapters/stats/correction"
	"riskcorr/adapters/stats/describe"
	"riskcorr/adapters/stats/corrtest"
	"riskcorr/adapters/stats/stationarity"
	"riskcorr/adapters/stats/temporal"
	"riskcorr/domain/core"
	"riskcorr/domain/corr"
	"riskcorr/domain/series"
	"riskcorr/internal"
	apperrors "riskcorr/internal/errors"
	"riskcorr/ports"
)

// AnalysisService is the result assembler: it orchestrates fetch, alignment,
// stationarity preprocessing, pairwise testing, multiple-comparison
// correction and filtering for one request.
//
// Stages: VALIDATING -> FETCHING -> ALIGNING_AND_TESTING -> CORRECTING ->
// FILTERING -> DONE. Request-level failures abort immediately; per-pair
// failures are recovered into the skipped-pairs list.
type AnalysisService struct {
	source           ports.SeriesSource
	preproc          *stationarity.Preprocessor
	logger           *internal.Logger
	fetchConcurrency int
	timeout          time.Duration
}

// Option configures an AnalysisService
type Option func(*AnalysisService)

// WithFetchConcurrency bounds parallel series fetches
func WithFetchConcurrency(n int) Option {
	return func(s *AnalysisService) {
		if n > 0 {
			s.fetchConcurrency = n
		}
	}
}

// WithTimeout bounds total wall-clock time per request
func WithTimeout(d time.Duration) Option {
	return func(s *AnalysisService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewAnalysisService creates the assembler around a series source
func NewAnalysisService(source ports.SeriesSource, logger *internal.Logger, opts ...Option) *AnalysisService {
	s := &AnalysisService{
		source:           source,
		preproc:          stationarity.NewPreprocessor(),
		logger:           logger,
		fetchConcurrency: 8,
		timeout:          30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// pairOutcome is what one pair worker hands back to the orchestrator. Workers
// never write shared state; the orchestrator merges returned outcomes.
type pairOutcome struct {
	result  *corr.CorrelationResult
	skipped *corr.SkippedPair
}

// Run executes one analysis request end to end. The caller receives either a
// complete, statistically valid report or an error; never a partial report.
func (s *AnalysisService) Run(ctx context.Context, req corr.Request) (*corr.AnalysisReport, error) {
	started := time.Now()
	requestID := core.NewRequestID()
	req = req.Normalized()

	// VALIDATING: reject before any data access.
	if err := req.Validate(); err != nil {
		return nil, requestError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	variables := distinctKeys(req.Variables)
	s.logger.Info("[Analysis] %s: %d variables, method=%s window=%s..%s",
		requestID, len(variables), req.Config.Method,
		req.Start.Format("2006-01-02"), req.End.Format("2006-01-02"))

	// FETCHING: one series per distinct variable, bounded parallelism.
	fetched, err := s.fetchAll(ctx, variables, req.Start, req.End)
	if err != nil {
		return nil, s.timeoutOr(ctx, err)
	}

	// Per-variable stationarity decisions, computed once on the full window
	// so every pair a variable appears in differences it the same way.
	decisions := make(map[core.VariableKey]stationarity.Decision, len(variables))
	for key, ts := range fetched {
		_, values := ts.Compact()
		if sum, err := describe.Series(values); err == nil {
			s.logger.Debug("[Analysis] %s: n=%d mean=%.4g sd=%.4g range=[%.4g, %.4g]",
				key, sum.N, sum.Mean, sum.StdDev, sum.Min, sum.Max)
		}
		decisions[key] = s.preproc.Analyze(values)
	}

	// ALIGNING_AND_TESTING: every unordered pair, pure CPU work in parallel.
	type pairKey struct{ a, b core.VariableKey }
	pairs := make([]pairKey, 0, len(variables)*(len(variables)-1)/2)
	for i := 0; i < len(variables)-1; i++ {
		for j := i + 1; j < len(variables); j++ {
			pairs = append(pairs, pairKey{variables[i], variables[j]})
		}
	}

	outcomes := make([]pairOutcome, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, pk := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = s.testPair(req.Config.Method, fetched[pk.a], fetched[pk.b], decisions[pk.a], decisions[pk.b])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.timeoutOr(ctx, err)
	}

	// CORRECTING: strictly sequential; the Bonferroni divisor needs every
	// validly-tested pair to be in.
	tested := make([]*corr.CorrelationResult, 0, len(outcomes))
	skipped := make([]corr.SkippedPair, 0)
	for _, out := range outcomes {
		if out.result != nil {
			tested = append(tested, out.result)
		} else if out.skipped != nil {
			skipped = append(skipped, *out.skipped)
		}
	}

	raw := make([]float64, len(tested))
	for i, res := range tested {
		raw[i] = res.PValue
	}
	adjusted := correction.Adjust(raw)

	// FILTERING: significance and effect size must both clear the bar.
	significant := make([]corr.CorrelationResult, 0, len(tested))
	for i, res := range tested {
		res.PAdjusted = adjusted[i]
		if res.PAdjusted < req.Config.Alpha && math.Abs(res.Correlation) >= req.Config.MinEffectSize {
			significant = append(significant, *res)
		}
	}

	report := &corr.AnalysisReport{
		RequestID:           requestID,
		Correlations:        significant,
		SkippedPairs:        skipped,
		NTested:             len(tested),
		NSignificant:        len(significant),
		BonferroniThreshold: correction.Threshold(req.Config.Alpha, len(tested)),
		Config:              req.Config,
		RuntimeMs:           time.Since(started).Milliseconds(),
	}
	s.logger.Info("[Analysis] %s: tested=%d significant=%d skipped=%d in %dms",
		requestID, report.NTested, report.NSignificant, len(report.SkippedPairs), report.RuntimeMs)
	return report, nil
}

// fetchAll retrieves one series per variable with bounded parallelism. Any
// single failure fails the whole request: silent omission would corrupt the
// Bonferroni divisor.
func (s *AnalysisService) fetchAll(ctx context.Context, variables []core.VariableKey, start, end time.Time) (map[core.VariableKey]series.TimeSeries, error) {
	results := make([]series.TimeSeries, len(variables))
	g, gctx := errgroup.WithContext(ctx)
	limit := s.fetchConcurrency
	if len(variables) < limit {
		limit = len(variables)
	}
	g.SetLimit(limit)

	for i, key := range variables {
		g.Go(func() error {
			ts, err := s.source.FetchSeries(gctx, key, start, end)
			if err != nil {
				return apperrors.DataUnavailable(key.String(), err)
			}
			if err := ts.Validate(); err != nil {
				return apperrors.DataUnavailable(key.String(), err)
			}
			results[i] = ts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fetched := make(map[core.VariableKey]series.TimeSeries, len(variables))
	for i, key := range variables {
		fetched[key] = results[i]
	}
	return fetched, nil
}

// testPair aligns, preprocesses and tests one unordered pair. Per-pair
// problems become skip entries, never request failures.
func (s *AnalysisService) testPair(method corr.Method, sa, sb series.TimeSeries, da, db stationarity.Decision) pairOutcome {
	skip := func(reason corr.WarningCode) pairOutcome {
		return pairOutcome{skipped: &corr.SkippedPair{
			Source: sa.Variable,
			Target: sb.Variable,
			Reason: reason,
		}}
	}

	pair, err := temporal.Align(sa, sb)
	if err != nil {
		var oe *temporal.OverlapError
		if errors.As(err, &oe) {
			s.logger.Debug("[Analysis] pair %s/%s skipped: overlap %d", sa.Variable, sb.Variable, oe.Overlap)
		}
		return skip(corr.ReasonInsufficientOverlap)
	}

	var warnings []corr.WarningCode

	// Differencing happens after alignment on raw dates so both sides lose
	// observations consistently; the order itself comes from the cached
	// per-variable decision.
	x := stationarity.ApplyOrder(pair.X, da.Order)
	y := stationarity.ApplyOrder(pair.Y, db.Order)
	if da.Order > 0 || db.Order > 0 {
		warnings = append(warnings, corr.WarningDifferenced)
	}
	if !da.Stationary || !db.Stationary {
		warnings = append(warnings, corr.WarningNonStationary)
	}

	// Orders may differ between the two sides; keep the most recent
	// observations of each.
	x, y, truncated := stationarity.TruncateToMatch(x, y)
	if truncated {
		warnings = append(warnings, corr.WarningOrderMismatch)
	}

	if len(x) < temporal.MinOverlap {
		return skip(corr.ReasonInsufficientOverlap)
	}

	r, p, n, err := corrtest.Compute(method, x, y)
	if err != nil {
		if errors.Is(err, core.ErrConstantSeries) {
			return skip(corr.ReasonConstantSeries)
		}
		if errors.Is(err, core.ErrInsufficientOverlap) {
			return skip(corr.ReasonInsufficientOverlap)
		}
		s.logger.Warn("[Analysis] pair %s/%s failed unexpectedly: %v", sa.Variable, sb.Variable, err)
		return skip(corr.ReasonComputationFailed)
	}

	if n < 30 {
		warnings = append(warnings, corr.WarningShortOverlap)
	}
	if math.Abs(r) == 1 {
		warnings = append(warnings, corr.WarningPerfectCorrelation)
	}
	if warnings == nil {
		warnings = []corr.WarningCode{}
	}

	return pairOutcome{result: &corr.CorrelationResult{
		Source:      sa.Variable,
		Target:      sb.Variable,
		Method:      method,
		Correlation: r,
		PValue:      p,
		SampleSize:  n,
		Warnings:    warnings,
	}}
}

// timeoutOr maps context expiry onto the TIMEOUT code, otherwise passes the
// stage error through.
func (s *AnalysisService) timeoutOr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout("analysis request exceeded its deadline", err)
	}
	return err
}

// requestError maps domain validation sentinels onto machine-readable codes.
func requestError(err error) error {
	switch {
	case errors.Is(err, core.ErrInsufficientVariables):
		return apperrors.WithCode(apperrors.CodeInsufficientVariables, err)
	case errors.Is(err, core.ErrInvalidMethod):
		return apperrors.WithCode(apperrors.CodeInvalidMethod, err)
	case errors.Is(err, core.ErrInvalidThreshold):
		return apperrors.WithCode(apperrors.CodeInvalidThreshold, err)
	case errors.Is(err, core.ErrInvalidDateRange):
		return apperrors.WithCode(apperrors.CodeInvalidDateRange, err)
	default:
		return err
	}
}

// distinctKeys preserves first-seen order while deduplicating.
func distinctKeys(keys []core.VariableKey) []core.VariableKey {
	seen := make(map[core.VariableKey]struct{}, len(keys))
	out := make([]core.VariableKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

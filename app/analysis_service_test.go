package app

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskcorr/adapters/stats/stationarity"
	"riskcorr/domain/core"
	"riskcorr/domain/corr"
	"riskcorr/domain/series"
	"riskcorr/internal"
	apperrors "riskcorr/internal/errors"
	"riskcorr/internal/testkit"
)

func testLogger() *internal.Logger {
	return internal.NewLogger(internal.LogLevelError)
}

func requestFor(n int, vars ...core.VariableKey) corr.Request {
	return corr.Request{
		Variables: vars,
		Start:     testkit.DefaultStart,
		End:       testkit.DefaultStart.AddDate(0, 0, n-1),
		Config:    corr.DefaultConfig(),
	}
}

func TestRun_SinglePairSignificant(t *testing.T) {
	base := testkit.Noisy("oil_price", 120, 42)
	source := testkit.NewMemorySource(base, testkit.CoMoving("sanctions_count", base, 0.1))
	svc := NewAnalysisService(source, testLogger())

	report, err := svc.Run(context.Background(), requestFor(120, "oil_price", "sanctions_count"))
	require.NoError(t, err)

	assert.Equal(t, 1, report.NTested)
	assert.Equal(t, 1, report.NSignificant)
	assert.Empty(t, report.SkippedPairs)
	assert.InDelta(t, 0.05, report.BonferroniThreshold, 1e-12, "single test leaves alpha unchanged")

	require.Len(t, report.Correlations, 1)
	res := report.Correlations[0]
	assert.Equal(t, core.VariableKey("oil_price"), res.Source)
	assert.Equal(t, core.VariableKey("sanctions_count"), res.Target)
	assert.Equal(t, corr.MethodPearson, res.Method)
	assert.Greater(t, res.Correlation, 0.9)
	assert.Less(t, res.PAdjusted, 0.05)
	assert.Equal(t, 120, res.SampleSize)
	assert.Empty(t, res.Warnings)
	assert.NotEmpty(t, report.RequestID)
}

func TestRun_EffectSizeBarFiltersTestedPair(t *testing.T) {
	// Amplitude 0.55 pushes |r| to roughly 0.93: decisively significant, but
	// below a 0.95 effect-size bar.
	base := testkit.Noisy("a", 120, 7)
	source := testkit.NewMemorySource(base, testkit.CoMoving("b", base, 0.55))
	svc := NewAnalysisService(source, testLogger())

	req := requestFor(120, "a", "b")
	req.Config = corr.Config{Method: corr.MethodPearson, Alpha: 0.05, MinEffectSize: 0.95}

	report, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, report.NTested, "a filtered pair still counts as tested")
	assert.Equal(t, 0, report.NSignificant)
	assert.Empty(t, report.Correlations)
	assert.Empty(t, report.SkippedPairs, "filtering is not skipping")
}

func TestRun_IdenticalSeriesPerfectCorrelation(t *testing.T) {
	base := testkit.Noisy("a", 90, 3)
	source := testkit.NewMemorySource(base, testkit.Alias("a_copy", base))
	svc := NewAnalysisService(source, testLogger())

	report, err := svc.Run(context.Background(), requestFor(90, "a", "a_copy"))
	require.NoError(t, err)

	require.Len(t, report.Correlations, 1)
	res := report.Correlations[0]
	assert.Equal(t, 1.0, res.Correlation)
	assert.Equal(t, 0.0, res.PValue)
	assert.Equal(t, 0.0, res.PAdjusted)
	assert.Contains(t, res.Warnings, corr.WarningPerfectCorrelation)
}

func TestRun_ConstantSeriesSkipped(t *testing.T) {
	source := testkit.NewMemorySource(
		testkit.Noisy("a", 90, 2),
		testkit.Constant("flat", 90, 42.0),
	)
	svc := NewAnalysisService(source, testLogger())

	report, err := svc.Run(context.Background(), requestFor(90, "a", "flat"))
	require.NoError(t, err)

	assert.Equal(t, 0, report.NTested)
	assert.Equal(t, 0.0, report.BonferroniThreshold)
	assert.Empty(t, report.Correlations)
	require.Len(t, report.SkippedPairs, 1)
	assert.Equal(t, corr.ReasonConstantSeries, report.SkippedPairs[0].Reason)
}

func TestRun_SymmetricUnderVariableOrder(t *testing.T) {
	base := testkit.Noisy("x", 100, 13)
	source := testkit.NewMemorySource(base, testkit.CoMoving("y", base, 0.2))
	svc := NewAnalysisService(source, testLogger())

	fwd, err := svc.Run(context.Background(), requestFor(100, "x", "y"))
	require.NoError(t, err)
	rev, err := svc.Run(context.Background(), requestFor(100, "y", "x"))
	require.NoError(t, err)

	require.Len(t, fwd.Correlations, 1)
	require.Len(t, rev.Correlations, 1)
	assert.Equal(t, fwd.Correlations[0].Correlation, rev.Correlations[0].Correlation)
	assert.Equal(t, fwd.Correlations[0].PValue, rev.Correlations[0].PValue)
	assert.Equal(t, fwd.Correlations[0].SampleSize, rev.Correlations[0].SampleSize)
	assert.Equal(t, fwd.Correlations[0].Source, rev.Correlations[0].Target)
	assert.Equal(t, fwd.Correlations[0].Target, rev.Correlations[0].Source)
}

func TestRun_FiveVariableBookkeeping(t *testing.T) {
	base := testkit.Noisy("a", 120, 1)
	source := testkit.NewMemorySource(
		base,
		testkit.CoMoving("b", base, 0.1),
		testkit.Constant("c", 120, 7.0),
		testkit.Daily("d", testkit.DefaultStart, 2, func(i int) float64 { return float64(i) }),
		testkit.Noisy("e", 120, 99),
	)
	svc := NewAnalysisService(source, testLogger())

	report, err := svc.Run(context.Background(), requestFor(120, "a", "b", "c", "d", "e"))
	require.NoError(t, err)

	// Of the 10 unordered pairs, every pair touching d lacks overlap (4) and
	// every remaining pair touching c is constant (3); a-b, a-e, b-e remain.
	assert.Equal(t, 3, report.NTested)
	assert.Len(t, report.SkippedPairs, 7)
	assert.InDelta(t, 0.05/3.0, report.BonferroniThreshold, 1e-12)

	overlap, constant := 0, 0
	for _, sp := range report.SkippedPairs {
		switch sp.Reason {
		case corr.ReasonInsufficientOverlap:
			overlap++
		case corr.ReasonConstantSeries:
			constant++
		}
	}
	assert.Equal(t, 4, overlap)
	assert.Equal(t, 3, constant)

	// Only the co-moving pair clears the effect-size bar; the pairs against
	// independent noise sit near zero.
	assert.Equal(t, 1, report.NSignificant)
	require.Len(t, report.Correlations, 1)
	assert.Equal(t, core.VariableKey("a"), report.Correlations[0].Source)
	assert.Equal(t, core.VariableKey("b"), report.Correlations[0].Target)
}

func TestRun_DuplicateVariablesDeduplicated(t *testing.T) {
	base := testkit.Noisy("a", 90, 4)
	source := testkit.NewMemorySource(base, testkit.CoMoving("b", base, 0.1))
	svc := NewAnalysisService(source, testLogger())

	report, err := svc.Run(context.Background(), requestFor(90, "a", "b", "a"))
	require.NoError(t, err)

	assert.Equal(t, 1, report.NTested)
	assert.Equal(t, 2, source.FetchCalls(), "each distinct variable fetched once")
}

func TestRun_InsufficientVariablesFailsBeforeFetch(t *testing.T) {
	source := testkit.NewMemorySource(testkit.Noisy("a", 90, 5))
	svc := NewAnalysisService(source, testLogger())

	report, err := svc.Run(context.Background(), requestFor(90, "a"))
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Equal(t, apperrors.CodeInsufficientVariables, apperrors.GetCode(err))
	assert.Equal(t, 0, source.FetchCalls(), "validation failures must not touch the source")
}

func TestRun_InvalidThresholdRejected(t *testing.T) {
	source := testkit.NewMemorySource(testkit.Noisy("a", 90, 5), testkit.Noisy("b", 90, 6))
	svc := NewAnalysisService(source, testLogger())

	req := requestFor(90, "a", "b")
	req.Config = corr.Config{Method: corr.MethodPearson, Alpha: 0.2, MinEffectSize: 0.7}

	_, err := svc.Run(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidThreshold, apperrors.GetCode(err))
}

func TestRun_ExplicitZeroThresholdsRejected(t *testing.T) {
	source := testkit.NewMemorySource(testkit.Noisy("a", 90, 5), testkit.Noisy("b", 90, 6))
	svc := NewAnalysisService(source, testLogger())

	zeroAlpha := requestFor(90, "a", "b")
	zeroAlpha.Config = corr.Config{Method: corr.MethodPearson, Alpha: 0, MinEffectSize: 0.7}
	_, err := svc.Run(context.Background(), zeroAlpha)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidThreshold, apperrors.GetCode(err),
		"an explicit zero alpha is out of bounds, not a request for the default")

	zeroEffect := requestFor(90, "a", "b")
	zeroEffect.Config = corr.Config{Method: corr.MethodPearson, Alpha: 0.05, MinEffectSize: 0}
	_, err = svc.Run(context.Background(), zeroEffect)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidThreshold, apperrors.GetCode(err))

	assert.Equal(t, 0, source.FetchCalls())
}

func TestRun_UnknownVariableFailsWholeRequest(t *testing.T) {
	source := testkit.NewMemorySource(testkit.Noisy("a", 90, 5))
	svc := NewAnalysisService(source, testLogger())

	report, err := svc.Run(context.Background(), requestFor(90, "a", "ghost"))
	require.Error(t, err)
	assert.Nil(t, report, "no partial results on data failure")
	assert.Equal(t, apperrors.CodeDataUnavailable, apperrors.GetCode(err))
	assert.True(t, strings.Contains(err.Error(), "ghost"), "error must name the failing variable")
}

func TestRun_TimeoutIsFatal(t *testing.T) {
	source := testkit.NewMemorySource(testkit.Noisy("a", 90, 5), testkit.Noisy("b", 90, 6))
	source.BlockUntilCancel = true
	svc := NewAnalysisService(source, testLogger(), WithTimeout(50*time.Millisecond))

	report, err := svc.Run(context.Background(), requestFor(90, "a", "b"))
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Equal(t, apperrors.CodeTimeout, apperrors.GetCode(err))
}

func TestRun_TrendingPairDifferencedBeforeTesting(t *testing.T) {
	x := testkit.Trending("x", 120, 11)
	source := testkit.NewMemorySource(x, testkit.CoMoving("y", x, 0.1))
	svc := NewAnalysisService(source, testLogger())

	report, err := svc.Run(context.Background(), requestFor(120, "x", "y"))
	require.NoError(t, err)

	require.Equal(t, 1, report.NTested)
	require.Len(t, report.Correlations, 1)
	res := report.Correlations[0]
	assert.Contains(t, res.Warnings, corr.WarningDifferenced)
	assert.NotContains(t, res.Warnings, corr.WarningNonStationary)
	assert.NotContains(t, res.Warnings, corr.WarningOrderMismatch)
	assert.Equal(t, 119, res.SampleSize, "first differencing costs one observation")
	assert.Greater(t, res.Correlation, 0.9)
}

func TestRun_DifferingOrdersTruncateFromMostRecent(t *testing.T) {
	// x is a drifting random walk whose increments are exactly the white
	// noise published as y. x gets differenced once, y stays raw, so the
	// orders differ and y must be truncated. The differenced x matches y
	// perfectly only when the longer side keeps its most recent
	// observations; prefix truncation would shift y by one step and drop
	// the correlation to noise level.
	rng := rand.New(rand.NewSource(23))
	noise := make([]float64, 120)
	for i := range noise {
		noise[i] = rng.NormFloat64()
	}
	y := testkit.Daily("y", testkit.DefaultStart, 120, func(i int) float64 {
		return noise[i]
	})
	sum := 0.0
	x := testkit.Daily("x", testkit.DefaultStart, 120, func(i int) float64 {
		sum += noise[i]
		return float64(i) + sum
	})
	source := testkit.NewMemorySource(x, y)
	svc := NewAnalysisService(source, testLogger())

	report, err := svc.Run(context.Background(), requestFor(120, "x", "y"))
	require.NoError(t, err)

	require.Equal(t, 1, report.NTested)
	require.Len(t, report.Correlations, 1)
	res := report.Correlations[0]
	assert.Contains(t, res.Warnings, corr.WarningDifferenced)
	assert.Contains(t, res.Warnings, corr.WarningOrderMismatch)
	assert.Equal(t, 119, res.SampleSize, "the undifferenced side loses its oldest observation")
	assert.InDelta(t, 1.0, res.Correlation, 1e-9)
}

func TestRun_StubbornlyNonStationaryProceedsWithWarning(t *testing.T) {
	// A cubic drift survives two rounds of differencing; the pair is still
	// tested and flagged rather than dropped.
	rng := rand.New(rand.NewSource(5))
	x := testkit.Daily("x", testkit.DefaultStart, 120, func(i int) float64 {
		ti := float64(i)
		return ti*ti*ti + rng.NormFloat64()
	})
	source := testkit.NewMemorySource(x, testkit.CoMoving("y", x, 0.1))
	svc := NewAnalysisService(source, testLogger())

	report, err := svc.Run(context.Background(), requestFor(120, "x", "y"))
	require.NoError(t, err)

	require.Equal(t, 1, report.NTested)
	require.Len(t, report.Correlations, 1)
	res := report.Correlations[0]
	assert.Contains(t, res.Warnings, corr.WarningDifferenced)
	assert.Contains(t, res.Warnings, corr.WarningNonStationary)
	assert.Equal(t, 118, res.SampleSize, "second differencing costs two observations")
}

func TestRun_ShortOverlapWarning(t *testing.T) {
	base := testkit.Noisy("a", 20, 8)
	source := testkit.NewMemorySource(base, testkit.Alias("b", base))
	svc := NewAnalysisService(source, testLogger())

	report, err := svc.Run(context.Background(), requestFor(20, "a", "b"))
	require.NoError(t, err)

	require.Equal(t, 1, report.NTested)
	require.Len(t, report.Correlations, 1)
	assert.Contains(t, report.Correlations[0].Warnings, corr.WarningShortOverlap)
}

func TestRun_SpearmanMethod(t *testing.T) {
	base := testkit.Noisy("a", 100, 21)
	source := testkit.NewMemorySource(base, testkit.CoMoving("b", base, 0.1))
	svc := NewAnalysisService(source, testLogger())

	req := requestFor(100, "a", "b")
	req.Config = corr.Config{Method: corr.MethodSpearman, Alpha: 0.05, MinEffectSize: 0.7}

	report, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, report.Correlations, 1)
	res := report.Correlations[0]
	assert.Equal(t, corr.MethodSpearman, res.Method)
	assert.GreaterOrEqual(t, math.Abs(res.Correlation), 0.7)
}

func TestTestPair_ComputeFailureReason(t *testing.T) {
	a := testkit.Noisy("a", 30, 1)
	b := testkit.Noisy("b", 30, 2)
	svc := NewAnalysisService(testkit.NewMemorySource(a, b), testLogger())

	stationary := stationarity.Decision{Stationary: true}
	out := svc.testPair(corr.Method("kendall"), a, b, stationary, stationary)

	require.NotNil(t, out.skipped)
	assert.Equal(t, corr.ReasonComputationFailed, out.skipped.Reason,
		"a computer failure must not masquerade as an overlap problem")
}

func TestRun_MisalignedDatesInnerJoin(t *testing.T) {
	// b starts ten days after a; only the shared window is tested.
	base := testkit.Noisy("a", 100, 17)
	late := series.TimeSeries{Variable: "b"}
	for i, obs := range testkit.CoMoving("shifted", base, 0.1).Observations {
		if i < 10 {
			continue
		}
		late.Observations = append(late.Observations, obs)
	}
	source := testkit.NewMemorySource(base, late)
	svc := NewAnalysisService(source, testLogger())

	report, err := svc.Run(context.Background(), requestFor(100, "a", "b"))
	require.NoError(t, err)

	require.Len(t, report.Correlations, 1)
	assert.Equal(t, 90, report.Correlations[0].SampleSize)
}

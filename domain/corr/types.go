package corr

import (
	"fmt"
	"time"

	"riskcorr/domain/core"
)

// Method selects the correlation statistic for a request
type Method string

const (
	MethodPearson  Method = "pearson"
	MethodSpearman Method = "spearman"
)

// ParseMethod maps a request string onto a Method; empty selects the default.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", string(MethodPearson):
		return MethodPearson, nil
	case string(MethodSpearman):
		return MethodSpearman, nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrInvalidMethod, s)
	}
}

// Threshold bounds enforced at the request boundary, not inside computation
const (
	MinAlpha         = 0.01
	MaxAlpha         = 0.10
	MinEffectFloor   = 0.5
	MinEffectCeiling = 1.0

	DefaultAlpha         = 0.05
	DefaultMinEffectSize = 0.7
)

// Config carries the validated analysis parameters. It is echoed back in the
// report so callers can tell exactly which bar their results cleared.
type Config struct {
	Method        Method  `json:"method"`
	Alpha         float64 `json:"alpha"`
	MinEffectSize float64 `json:"min_effect_size"`
}

// DefaultConfig returns the config used when a request leaves fields unset
func DefaultConfig() Config {
	return Config{
		Method:        MethodPearson,
		Alpha:         DefaultAlpha,
		MinEffectSize: DefaultMinEffectSize,
	}
}

// Validate rejects out-of-bounds thresholds and unknown methods.
func (c Config) Validate() error {
	if _, err := ParseMethod(string(c.Method)); err != nil {
		return err
	}
	if c.Alpha < MinAlpha || c.Alpha > MaxAlpha {
		return fmt.Errorf("%w: alpha %.4f outside [%.2f, %.2f]",
			core.ErrInvalidThreshold, c.Alpha, MinAlpha, MaxAlpha)
	}
	if c.MinEffectSize < MinEffectFloor || c.MinEffectSize > MinEffectCeiling {
		return fmt.Errorf("%w: min_effect_size %.4f outside [%.2f, %.2f]",
			core.ErrInvalidThreshold, c.MinEffectSize, MinEffectFloor, MinEffectCeiling)
	}
	return nil
}

// Request describes one on-demand analysis over a historical window.
type Request struct {
	Variables []core.VariableKey `json:"variables"`
	Start     time.Time          `json:"start_date"`
	End       time.Time          `json:"end_date"`
	Config    Config             `json:"config"`
}

// Normalized resolves the empty method string to the default. Numeric
// thresholds are never defaulted here: a zero alpha or effect size is an
// out-of-bounds value Validate must reject, and the wire layer already
// distinguishes unset fields from explicit zeros.
func (r Request) Normalized() Request {
	if r.Config.Method == "" {
		r.Config.Method = MethodPearson
	}
	return r
}

// Validate applies the fail-fast checks that must pass before any data fetch.
func (r Request) Validate() error {
	distinct := make(map[core.VariableKey]struct{}, len(r.Variables))
	for _, v := range r.Variables {
		if v == "" {
			return fmt.Errorf("%w: empty variable identifier", core.ErrInsufficientVariables)
		}
		distinct[v] = struct{}{}
	}
	if len(distinct) < 2 {
		return fmt.Errorf("%w: got %d distinct", core.ErrInsufficientVariables, len(distinct))
	}
	if !r.Start.Before(r.End) {
		return fmt.Errorf("%w: start %s >= end %s", core.ErrInvalidDateRange,
			r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	}
	return r.Config.Validate()
}

// WarningCode represents structured warning and skip-reason types
type WarningCode string

const (
	WarningDifferenced        WarningCode = "differenced_for_stationarity"
	WarningNonStationary      WarningCode = "still_non_stationary_after_max_differencing"
	WarningOrderMismatch      WarningCode = "differencing_order_mismatch"
	WarningShortOverlap       WarningCode = "short_overlap"        // n < 30
	WarningPerfectCorrelation WarningCode = "perfect_correlation"  // |r| = 1, likely derived
	ReasonConstantSeries      WarningCode = "constant_series_skipped"
	ReasonInsufficientOverlap WarningCode = "insufficient_overlap"
	ReasonComputationFailed   WarningCode = "computation_failed"
)

// CorrelationResult is one validly-tested pair. Created once per pair per
// request, immutable, never persisted by the engine.
type CorrelationResult struct {
	Source      core.VariableKey `json:"source"`
	Target      core.VariableKey `json:"target"`
	Method      Method           `json:"method"`
	Correlation float64          `json:"correlation"`
	PValue      float64          `json:"p_value"`
	PAdjusted   float64          `json:"p_adjusted"`
	SampleSize  int              `json:"sample_size"`
	Warnings    []WarningCode    `json:"warnings"`
}

// SkippedPair records a pair excluded from testing (and from the Bonferroni
// divisor) together with the reason.
type SkippedPair struct {
	Source core.VariableKey `json:"source"`
	Target core.VariableKey `json:"target"`
	Reason WarningCode      `json:"reason"`
}

// AnalysisReport is the engine's sole output contract.
type AnalysisReport struct {
	RequestID           core.RequestID      `json:"request_id"`
	Correlations        []CorrelationResult `json:"correlations"`
	SkippedPairs        []SkippedPair       `json:"skipped_pairs"`
	NTested             int                 `json:"n_tested"`
	NSignificant        int                 `json:"n_significant"`
	BonferroniThreshold float64             `json:"bonferroni_threshold"`
	Config              Config              `json:"config"`
	RuntimeMs           int64               `json:"runtime_ms"`
}

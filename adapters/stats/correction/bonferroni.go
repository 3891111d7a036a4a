package correction

// Bonferroni multiple-comparison correction over one request's family of
// tests. Conservative family-wise error-rate control is a deliberate design
// choice here: results feed investment-relevant decisions, where one false
// discovery surfaced with false confidence costs more than several genuine
// weak relationships staying hidden.

// Adjust returns adjusted_p = min(1, raw_p * m) for every raw p-value, where
// m is the number of validly-tested pairs in the batch.
func Adjust(raw []float64) []float64 {
	m := float64(len(raw))
	out := make([]float64, len(raw))
	for i, p := range raw {
		adj := p * m
		if adj > 1 {
			adj = 1
		}
		out[i] = adj
	}
	return out
}

// Threshold is the batch-wide significance bar reported to the caller:
// alpha / m. Zero when no pair was validly tested.
func Threshold(alpha float64, m int) float64 {
	if m <= 0 {
		return 0
	}
	return alpha / float64(m)
}

package ui

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"riskcorr/domain/corr"
)

// RenderMarkdown turns an analysis report into a markdown summary suitable
// for dashboards and exports.
func RenderMarkdown(report *corr.AnalysisReport) string {
	var b strings.Builder

	b.WriteString("# Correlation Analysis Report\n\n")
	fmt.Fprintf(&b, "Request `%s` — method **%s**, alpha %.3g, min effect size %.3g\n\n",
		report.RequestID, report.Config.Method, report.Config.Alpha, report.Config.MinEffectSize)
	fmt.Fprintf(&b, "- Pairs tested: %d\n", report.NTested)
	fmt.Fprintf(&b, "- Significant: %d\n", report.NSignificant)
	fmt.Fprintf(&b, "- Bonferroni threshold: %.6g\n", report.BonferroniThreshold)
	fmt.Fprintf(&b, "- Runtime: %dms\n\n", report.RuntimeMs)

	if len(report.Correlations) > 0 {
		b.WriteString("## Significant correlations\n\n")
		b.WriteString("| Source | Target | r | p | p (adjusted) | n | Warnings |\n")
		b.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
		for _, res := range report.Correlations {
			fmt.Fprintf(&b, "| %s | %s | %.4f | %.4g | %.4g | %d | %s |\n",
				res.Source, res.Target, res.Correlation, res.PValue, res.PAdjusted,
				res.SampleSize, joinWarnings(res.Warnings))
		}
		b.WriteString("\n")
	} else {
		b.WriteString("No pair cleared both the significance and effect-size bars.\n\n")
	}

	if len(report.SkippedPairs) > 0 {
		b.WriteString("## Skipped pairs\n\n")
		b.WriteString("| Source | Target | Reason |\n")
		b.WriteString("| --- | --- | --- |\n")
		for _, sp := range report.SkippedPairs {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", sp.Source, sp.Target, sp.Reason)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// RenderHTML converts the markdown summary into a standalone HTML fragment
// for the presentation layer.
func RenderHTML(report *corr.AnalysisReport) []byte {
	md := RenderMarkdown(report)
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML([]byte(md), p, renderer)
}

func joinWarnings(warnings []corr.WarningCode) string {
	if len(warnings) == 0 {
		return "-"
	}
	parts := make([]string, len(warnings))
	for i, w := range warnings {
		parts[i] = string(w)
	}
	return strings.Join(parts, ", ")
}

// package insights compares the two most recent commits of each benchmark
// trend and flags regressions.
package insights

import (
	"math"
	"strings"

	"golang.org/x/perf/benchmath"

	"github.com/open-sauced/benchtrend/pkg/trends"
)

// DefaultAlertRatio flags a metric once the newer commit is twice as bad as
// the older one.
const DefaultAlertRatio = 2.0

// Options tune Compare.
type Options struct {
	// Alpha is the significance level for the distribution comparison.
	// Zero means benchmath's default.
	Alpha float64

	// AlertRatio is how many times worse the head commit must be before the
	// change is reported as a regression. Zero means DefaultAlertRatio.
	AlertRatio float64

	// RequireSignificance only reports regressions that are also
	// statistically significant. This needs re-runs of both commits.
	RequireSignificance bool
}

// Insight is the comparison of one metric between two commits.
type Insight struct {
	Metric      string  `json:"metric"`
	Unit        string  `json:"unit"`
	BaseCommit  string  `json:"baseCommit"`
	HeadCommit  string  `json:"headCommit"`
	BaseSamples int     `json:"baseSamples"`
	HeadSamples int     `json:"headSamples"`
	BaseCenter  float64 `json:"baseCenter"`
	HeadCenter  float64 `json:"headCenter"`
	DeltaPct    float64 `json:"deltaPct"`
	Ratio       float64 `json:"ratio"`
	P           float64 `json:"p"`
	Significant bool    `json:"significant"`
	Regression  bool    `json:"regression"`

	// Delta is benchmath's rendering of the change, "~" when insignificant.
	Delta string `json:"delta"`
}

// Better returns +1 when bigger values of unit are better and -1 otherwise.
// Throughput style units ("iter/sec", "ops/s", "MB/s") are higher-is-better.
func Better(unit string) int {
	u := strings.ToLower(strings.TrimSpace(unit))
	switch {
	case strings.HasSuffix(u, "/sec"), strings.HasSuffix(u, "/s"), strings.Contains(u, "ops"):
		return 1
	default:
		return -1
	}
}

// Compare compares the samples of the latest commit in points with those of
// the commit measured before it. Every point of a commit counts as a sample,
// so re-runs narrow the comparison. ok is false when points do not span two
// commits.
func Compare(metric string, points []trends.Point, opts Options) (Insight, bool) {
	if len(points) == 0 {
		return Insight{}, false
	}

	head := points[len(points)-1].CommitID
	base := ""
	for i := len(points) - 2; i >= 0; i-- {
		if points[i].CommitID != head {
			base = points[i].CommitID
			break
		}
	}

	if base == "" {
		return Insight{}, false
	}

	baseValues := valuesOf(points, base)
	headValues := valuesOf(points, head)

	thresholds := benchmath.DefaultThresholds
	if opts.Alpha > 0 {
		thresholds.CompareAlpha = opts.Alpha
	}

	baseSample := benchmath.NewSample(baseValues, &thresholds)
	headSample := benchmath.NewSample(headValues, &thresholds)

	assumption := benchmath.AssumeNothing
	baseSummary := assumption.Summary(baseSample, 0.95)
	headSummary := assumption.Summary(headSample, 0.95)
	cmp := assumption.Compare(baseSample, headSample)
	if math.IsNaN(cmp.P) {
		cmp.P = 1
	}

	unit := points[len(points)-1].Unit

	in := Insight{
		Metric:      metric,
		Unit:        unit,
		BaseCommit:  base,
		HeadCommit:  head,
		BaseSamples: len(baseValues),
		HeadSamples: len(headValues),
		BaseCenter:  baseSummary.Center,
		HeadCenter:  headSummary.Center,
		P:           cmp.P,
		Significant: cmp.P < cmp.Alpha,
		Delta:       cmp.FormatDelta(baseSummary.Center, headSummary.Center),
	}

	if in.BaseCenter != 0 {
		in.DeltaPct = (in.HeadCenter - in.BaseCenter) / in.BaseCenter * 100
	}

	in.Ratio = worseRatio(in.BaseCenter, in.HeadCenter, Better(unit))

	alert := opts.AlertRatio
	if alert <= 0 {
		alert = DefaultAlertRatio
	}

	in.Regression = in.Ratio > alert && (in.Significant || !opts.RequireSignificance)

	return in, true
}

// CompareAll compares every metric of a trend set, in metric name order.
// Metrics measured for a single commit only are left out.
func CompareAll(tr trends.Trends, opts Options) []Insight {
	var out []Insight
	for _, name := range tr.Names() {
		if in, ok := Compare(name, tr[name], opts); ok {
			out = append(out, in)
		}
	}

	return out
}

// Regressions filters insights down to the flagged ones.
func Regressions(all []Insight) []Insight {
	var out []Insight
	for _, in := range all {
		if in.Regression {
			out = append(out, in)
		}
	}

	return out
}

// worseRatio is how many times worse head is than base. Values below one are
// improvements.
func worseRatio(base, head float64, better int) float64 {
	num, den := head, base
	if better > 0 {
		num, den = base, head
	}

	// undefined ratios never alert
	if den == 0 || math.IsNaN(num) {
		return 0
	}

	return num / den
}

func valuesOf(points []trends.Point, commitID string) []float64 {
	var out []float64
	for _, p := range points {
		if p.CommitID == commitID {
			out = append(out, p.Value)
		}
	}

	return out
}

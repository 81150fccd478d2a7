// package render draws benchmark trends as an HTML page of line charts.
package render

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/open-sauced/benchtrend/pkg/trends"
)

const dateLayout = "2006-01-02 15:04"

// Page writes one line chart per series and metric to w. Series and metrics
// are laid out in name order.
func Page(w io.Writer, title string, series map[string]trends.Trends) error {
	page := components.NewPage()
	page.PageTitle = title
	page.SetLayout(components.PageFlexLayout)

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		tr := series[name]
		for _, metric := range tr.Names() {
			page.AddCharts(LineChart(name, metric, tr[metric]))
		}
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("could not render chart page: %w", err)
	}

	return nil
}

// LineChart builds the chart of a single metric. Each point is labelled with
// its capture date on the x axis and its commit in the tooltip.
func LineChart(series, metric string, points []trends.Point) *charts.Line {
	unit, stable := trends.StableUnit(points)

	subtitle := series
	switch {
	case stable && unit != "":
		subtitle += " (" + unit + ")"
	case !stable && len(points) > 0:
		subtitle += " (mixed units)"
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: metric, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: unit}),
	)

	labels := make([]string, len(points))
	data := make([]opts.LineData, len(points))
	for i, p := range points {
		labels[i] = time.UnixMilli(p.Date).UTC().Format(dateLayout)
		data[i] = opts.LineData{Name: ShortCommit(p.CommitID), Value: p.Value}
	}

	line.SetXAxis(labels).AddSeries(metric, data)

	return line
}

// ShortCommit abbreviates a commit hash the way git does.
func ShortCommit(id string) string {
	if len(id) > 7 {
		return id[:7]
	}

	return id
}

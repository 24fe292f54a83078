package main

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/parcelboard/mapcluster/internal/cluster"
)

// renderCharts writes one scatter chart per strategy to a single HTML
// page. Each point is a cluster centroid; the third dimension (member
// count) drives the color scale so dense clusters stand out.
func renderCharts(path, dataset string, results map[string]cluster.Result) error {
	page := components.NewPage()

	for _, name := range []string{"grid", "distance", "density", "adaptive"} {
		res, ok := results[name]
		if !ok {
			continue
		}
		page.AddCharts(strategyScatter(dataset, name, res))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return fmt.Errorf("render charts: %w", err)
	}
	return nil
}

func strategyScatter(dataset, name string, res cluster.Result) *charts.Scatter {
	data := make([]opts.ScatterData, 0, len(res.Clusters)+len(res.Unclustered))
	maxCount := 1
	for _, c := range res.Clusters {
		if c.Count > maxCount {
			maxCount = c.Count
		}
		data = append(data, opts.ScatterData{Value: []interface{}{c.Centroid.X, c.Centroid.Y, c.Count}})
	}
	for _, f := range res.Unclustered {
		data = append(data, opts.ScatterData{Value: []interface{}{f.X, f.Y, 1}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "cluster-compare: " + dataset, Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("strategy=%s", name),
			Subtitle: fmt.Sprintf("clusters=%d unclustered=%d", len(res.Clusters), len(res.Unclustered)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        1,
			Max:        float32(maxCount),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#31688e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries(name, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	return scatter
}

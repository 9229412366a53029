package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/yanqian/usage-forecaster/internal/domain/analysis"
	"github.com/yanqian/usage-forecaster/internal/domain/series"
)

const (
	chartHeight = 12
	chartWidth  = 72
)

// forecastChart plots actual values and the forecast suffix as two lines that
// meet at the last actual point.
func forecastChart(resp analysis.ForecastResponse) string {
	if len(resp.Points) == 0 {
		return "no points to plot\n"
	}
	actual := make([]float64, len(resp.Points))
	forecast := make([]float64, len(resp.Points))
	lastActual := -1
	for i, p := range resp.Points {
		actual[i], forecast[i] = math.NaN(), math.NaN()
		if p.Type == string(series.KindForecast) {
			forecast[i] = p.Usage
			continue
		}
		actual[i] = p.Usage
		lastActual = i
	}
	if lastActual >= 0 && lastActual < len(resp.Points)-1 {
		forecast[lastActual] = actual[lastActual]
	}

	caption := fmt.Sprintf("%s: %s .. %s, %d-step forecast every %s",
		resp.Source, resp.Points[0].Timestamp, resp.Points[len(resp.Points)-1].Timestamp, resp.Horizon, resp.Interval)
	return asciigraph.PlotMany([][]float64{actual, forecast},
		asciigraph.Height(chartHeight),
		asciigraph.Width(chartWidth),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Default, asciigraph.Green),
	) + "\n"
}

// driftChart plots usage and lists the points classified as drift.
func driftChart(resp analysis.DriftResponse) string {
	if len(resp.Points) == 0 {
		return "no points to plot\n"
	}
	values := make([]float64, len(resp.Points))
	var flagged []string
	for i, p := range resp.Points {
		values[i] = p.Usage
		if p.Drift {
			flagged = append(flagged, p.Timestamp)
		}
	}

	var b strings.Builder
	b.WriteString(asciigraph.Plot(values,
		asciigraph.Height(chartHeight),
		asciigraph.Width(chartWidth),
		asciigraph.Caption(fmt.Sprintf("%s: %s .. %s, %d drift points", resp.Source, resp.Start, resp.End, resp.DriftCount)),
	))
	b.WriteString("\n")
	for _, ts := range flagged {
		b.WriteString("  drift at " + ts + "\n")
	}
	if resp.Divergence != nil {
		fmt.Fprintf(&b, "  half-window divergence %.3f\n", *resp.Divergence)
	}
	return b.String()
}

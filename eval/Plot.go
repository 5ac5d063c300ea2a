package eval

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// PlotHistory saves a plot of mean distance and mean lap time over
// training timesteps for the given evaluation records.
func PlotHistory(history []Record, path string) error {
	if len(history) == 0 {
		return fmt.Errorf("plotHistory: empty history")
	}

	p := plot.New()
	p.Title.Text = "Evaluation"
	p.X.Label.Text = "Timesteps"

	distances := make(plotter.XYs, len(history))
	lapTimes := make(plotter.XYs, len(history))
	for i, r := range history {
		distances[i] = plotter.XY{X: float64(r.Timesteps), Y: r.MeanDistance}
		lapTimes[i] = plotter.XY{X: float64(r.Timesteps), Y: r.MeanLapTime}
	}

	distanceLine, err := plotter.NewLine(distances)
	if err != nil {
		return fmt.Errorf("plotHistory: %v", err)
	}
	distanceLine.Color = plotutil.Color(0)
	p.Add(distanceLine)
	p.Legend.Add("mean distance", distanceLine)

	lapLine, err := plotter.NewLine(lapTimes)
	if err != nil {
		return fmt.Errorf("plotHistory: %v", err)
	}
	lapLine.Color = plotutil.Color(1)
	p.Add(lapLine)
	p.Legend.Add("mean lap time", lapLine)

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("plotHistory: %v", err)
	}
	return nil
}

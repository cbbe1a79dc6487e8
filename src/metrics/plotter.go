package metrics

import (
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"macrocopilot/src/datamodels"
	"macrocopilot/src/utils/errors"
)

// EquityPlotter renders cumulative equity curves to an image file. The
// format follows the file extension (png, svg, pdf, ...).
type EquityPlotter struct {
	title    string
	filename string
	width    vg.Length
	height   vg.Length
	curves   []*datamodels.Series
}

func NewEquityPlotter(filename string) *EquityPlotter {
	return &EquityPlotter{
		title:    "Cumulative Equity",
		filename: filename,
		width:    10 * vg.Inch,
		height:   6 * vg.Inch,
	}
}

func (pb *EquityPlotter) WithTitle(title string) *EquityPlotter {
	pb.title = title
	return pb
}

func (pb *EquityPlotter) WithSize(width, height vg.Length) *EquityPlotter {
	pb.width = width
	pb.height = height
	return pb
}

func (pb *EquityPlotter) WithCurve(curve *datamodels.Series) *EquityPlotter {
	pb.curves = append(pb.curves, curve)
	return pb
}

// Build assembles the plot without writing it.
func (pb *EquityPlotter) Build() (*plot.Plot, error) {
	if pb.filename == "" {
		return nil, errors.Wrap(errors.ErrInvalidConfig, "plot filename is not set")
	}
	p := plot.New()
	p.Title.Text = pb.title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Growth of 1"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	plotted := 0
	for i, curve := range pb.curves {
		if curve.Len() == 0 {
			slog.Warn("Skipping empty equity curve", "curve", curve.Name)
			continue
		}
		pts := make(plotter.XYs, curve.Len())
		for j := range pts {
			pts[j].X = float64(curve.Index[j].Unix())
			pts[j].Y = curve.Values[j]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, errors.Wrapf(err, "creating line for %s", curve.Name)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		p.Add(line)
		p.Legend.Add(curve.Name, line)
		plotted++
	}
	if plotted == 0 {
		return nil, errors.Wrap(errors.ErrInsufficientData, "no equity curve has data")
	}
	return p, nil
}

// Plot builds the chart and saves it to the configured file.
func (pb *EquityPlotter) Plot() error {
	p, err := pb.Build()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(pb.filename), 0755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", pb.filename)
	}
	slog.Info("Saving equity plot", "filename", pb.filename, "curves", len(pb.curves))
	if err := p.Save(pb.width, pb.height, pb.filename); err != nil {
		return errors.Wrapf(err, "saving plot to %s", pb.filename)
	}
	return nil
}

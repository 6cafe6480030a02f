// Package plotting renders exploratory and training charts with gonum/plot.
//
// The model never depends on what a sink produces; sinks only receive data.
package plotting

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/logitcv/dataset"
	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
	"github.com/YuminosukeSato/logitcv/pkg/log"
)

// ScatterSink receives the values of one feature together with the label of
// each row.
type ScatterSink interface {
	Scatter(feature string, values, labels []float64) error
}

// LossSink receives the per-iteration training loss.
type LossSink interface {
	LossCurve(name string, losses []float64) error
}

var (
	negativeColor = color.RGBA{R: 50, G: 50, B: 255, A: 255}
	positiveColor = color.RGBA{R: 255, A: 255}
)

// PNGSink writes one PNG file per call into Dir.
type PNGSink struct {
	Dir    string
	Width  vg.Length
	Height vg.Length

	logger log.Logger
}

// NewPNGSink creates a sink writing 6x4 inch images into dir.
func NewPNGSink(dir string) *PNGSink {
	return &PNGSink{
		Dir:    dir,
		Width:  6 * vg.Inch,
		Height: 4 * vg.Inch,
		logger: log.GetLoggerWithName("plotting"),
	}
}

// ScatterPath returns the file Scatter writes for feature.
func (s *PNGSink) ScatterPath(feature string) string {
	return filepath.Join(s.Dir, fileSafe(feature)+"_scatter.png")
}

// LossCurvePath returns the file LossCurve writes for name.
func (s *PNGSink) LossCurvePath(name string) string {
	return filepath.Join(s.Dir, fileSafe(name)+"_loss.png")
}

// Scatter plots feature values on the x axis against the label on the y
// axis, one colour per class.
func (s *PNGSink) Scatter(feature string, values, labels []float64) error {
	if err := checkPairs("PNGSink.Scatter", values, labels); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = feature + " by class"
	p.X.Label.Text = feature
	p.Y.Label.Text = "label"

	var neg, pos plotter.XYs
	for i, v := range values {
		pt := plotter.XY{X: v, Y: labels[i]}
		if labels[i] == 1 {
			pos = append(pos, pt)
		} else {
			neg = append(neg, pt)
		}
	}
	for _, series := range []struct {
		name  string
		pts   plotter.XYs
		color color.Color
		shape draw.GlyphDrawer
	}{
		{"0", neg, negativeColor, draw.CircleGlyph{}},
		{"1", pos, positiveColor, draw.CrossGlyph{}},
	} {
		if len(series.pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(series.pts)
		if err != nil {
			return lerrors.Wrapf(err, "scatter %s", feature)
		}
		sc.Color = series.color
		sc.Shape = series.shape
		sc.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add("label="+series.name, sc)
	}
	p.Add(plotter.NewGrid())

	return s.save(p, s.ScatterPath(feature))
}

// LossCurve plots the training loss against the iteration number.
func (s *PNGSink) LossCurve(name string, losses []float64) error {
	if len(losses) == 0 {
		return lerrors.NewValueError("PNGSink.LossCurve", "empty loss history")
	}

	p := plot.New()
	p.Title.Text = name + " training loss"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "mean loss"

	pts := make(plotter.XYs, len(losses))
	for i, l := range losses {
		pts[i].X = float64(i + 1)
		pts[i].Y = l
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return lerrors.Wrapf(err, "loss curve %s", name)
	}
	line.Color = positiveColor
	line.LineStyle.Width = vg.Points(2)
	p.Add(line, plotter.NewGrid())

	return s.save(p, s.LossCurvePath(name))
}

func (s *PNGSink) save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return lerrors.Wrapf(err, "create %s", s.Dir)
	}
	if err := p.Save(s.Width, s.Height, path); err != nil {
		return lerrors.Wrapf(err, "save %s", path)
	}
	if s.logger != nil {
		s.logger.Debug("plot written", log.PathKey, path)
	}
	return nil
}

// ScatterCall is one recorded MemorySink.Scatter call.
type ScatterCall struct {
	Feature string
	Values  []float64
	Labels  []float64
}

// MemorySink records calls instead of drawing. It is safe for concurrent use.
type MemorySink struct {
	mu      sync.Mutex
	Calls   []ScatterCall
	History map[string][]float64
}

// Scatter implements ScatterSink.
func (m *MemorySink) Scatter(feature string, values, labels []float64) error {
	if err := checkPairs("MemorySink.Scatter", values, labels); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, ScatterCall{
		Feature: feature,
		Values:  append([]float64(nil), values...),
		Labels:  append([]float64(nil), labels...),
	})
	return nil
}

// LossCurve implements LossSink.
func (m *MemorySink) LossCurve(name string, losses []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.History == nil {
		m.History = make(map[string][]float64)
	}
	m.History[name] = append([]float64(nil), losses...)
	return nil
}

// ScatterFeatures sends every named numeric column of ds to sink. With no
// names, all numeric columns are sent in column order.
func ScatterFeatures(sink ScatterSink, ds *dataset.Dataset, features ...string) error {
	if len(features) == 0 {
		for _, c := range ds.Columns() {
			if c.Kind == dataset.Numeric {
				features = append(features, c.Name)
			}
		}
	}
	labels := ds.Labels()
	for _, name := range features {
		col, ok := ds.Column(name)
		if !ok {
			return lerrors.NewConfigurationError("plot.features", "unknown column", name)
		}
		if col.Kind != dataset.Numeric {
			return lerrors.NewConfigurationError("plot.features",
				fmt.Sprintf("column %q is categorical, encode it first", name), name)
		}
		if err := sink.Scatter(name, col.Numeric, labels); err != nil {
			return err
		}
	}
	return nil
}

func checkPairs(op string, values, labels []float64) error {
	if len(values) != len(labels) {
		return lerrors.NewLengthMismatchError(op, len(values), len(labels))
	}
	if len(values) == 0 {
		return lerrors.NewValueError(op, "no points")
	}
	return nil
}

func fileSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ', '*', '?':
			return '_'
		}
		return r
	}, name)
}

package export

import (
	"fmt"
	"image/color"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/tempo"
	"github.com/RyanBlaney/sonido-rhythm/analysis"
)

const maxHeatMapColumns = 600

// tempogramGrid adapts a tempogram to plotter.GridXYZ. Columns are frames,
// taken every step frames; rows are bins ordered by ascending BPM.
type tempogramGrid struct {
	tg   *tempo.Tempogram
	step int
	bins []int
}

func newTempogramGrid(tg *tempo.Tempogram, maxBPM float64) *tempogramGrid {
	bins := make([]int, 0, tg.NumBins())
	for k, bpm := range tg.BPM {
		if bpm > 0 && (maxBPM <= 0 || bpm <= maxBPM) {
			bins = append(bins, k)
		}
	}
	sort.SliceStable(bins, func(i, j int) bool { return tg.BPM[bins[i]] < tg.BPM[bins[j]] })

	step := (tg.NumFrames() + maxHeatMapColumns - 1) / maxHeatMapColumns
	return &tempogramGrid{tg: tg, step: max(step, 1), bins: bins}
}

func (g *tempogramGrid) Dims() (c, r int) {
	return (g.tg.NumFrames() + g.step - 1) / g.step, len(g.bins)
}

func (g *tempogramGrid) Z(c, r int) float64 {
	return g.tg.Strength[c*g.step][g.bins[r]]
}

func (g *tempogramGrid) X(c int) float64 {
	if g.tg.FrameRate <= 0 {
		return float64(c * g.step)
	}
	return float64(c*g.step) / g.tg.FrameRate
}

func (g *tempogramGrid) Y(r int) float64 {
	return g.tg.BPM[g.bins[r]]
}

// PlotTempogram renders tg as a heat map of strength over time and BPM.
// Bins above maxBPM are left out; maxBPM <= 0 keeps every bin. The image
// format follows the extension of path (png, svg, pdf).
func PlotTempogram(path string, tg *tempo.Tempogram, maxBPM float64) error {
	if tg == nil {
		return fmt.Errorf("tempogram cannot be nil")
	}
	grid := newTempogramGrid(tg, maxBPM)
	if c, r := grid.Dims(); c < 2 || r < 2 {
		return fmt.Errorf("tempogram too small to plot: %d frames, %d bins", c, r)
	}

	p := plot.New()
	p.Title.Text = "Tempogram"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Tempo (BPM)"
	p.Add(plotter.NewHeatMap(grid, palette.Heat(64, 1)))

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save tempogram plot: %w", err)
	}
	return nil
}

// PlotAnalysis draws the novelty function with the beat grid and the
// rhythmic onsets of res marked on top
func PlotAnalysis(path string, res *analysis.Result) error {
	if res == nil || res.Novelty == nil || res.Novelty.Len() == 0 {
		return fmt.Errorf("result has no novelty function to plot")
	}
	fn := res.Novelty

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Rhythm analysis - %d BPM, phase %.3fs", res.Tempo, res.Phase)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Novelty"

	top := 0.0
	pts := make(plotter.XYs, fn.Len())
	for i, v := range fn.Values {
		pts[i] = plotter.XY{X: fn.FrameTime(i), Y: v}
		top = max(top, v)
	}
	if top == 0 {
		top = 1
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = color.RGBA{R: 80, G: 80, B: 80, A: 255}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("novelty", line)

	beats := make(plotter.XYs, 0, len(res.BeatTimes))
	for _, t := range res.BeatTimes {
		if t <= fn.Duration {
			beats = append(beats, plotter.XY{X: t, Y: top * 1.05})
		}
	}
	if len(beats) > 0 {
		sc, err := plotter.NewScatter(beats)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Shape = draw.TriangleGlyph{}
		sc.GlyphStyle.Color = color.RGBA{B: 200, A: 255}
		p.Add(sc)
		p.Legend.Add("beats", sc)
	}

	onsets := make(plotter.XYs, 0, len(res.RhythmicOnsets))
	for _, t := range res.RhythmicOnsets {
		frame := int(t*fn.FrameRate() + 0.5)
		if frame >= 0 && frame < fn.Len() {
			onsets = append(onsets, plotter.XY{X: t, Y: fn.Values[frame]})
		}
	}
	if len(onsets) > 0 {
		sc, err := plotter.NewScatter(onsets)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Color = color.RGBA{R: 200, A: 255}
		p.Add(sc)
		p.Legend.Add("rhythmic onsets", sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save analysis plot: %w", err)
	}
	return nil
}

package novelty

import (
	"fmt"

	"github.com/RyanBlaney/sonido-rhythm/algorithms/common"
	"github.com/RyanBlaney/sonido-rhythm/algorithms/temporal"
)

// Energy computes the energy novelty function: framed RMS, logarithmic
// compression, first-order difference and half-wave rectification. Onsets
// are assumed to coincide with sudden increases in energy.
type Energy struct {
	params Params
	energy *temporal.Energy
}

// NewEnergy creates an energy novelty calculator
func NewEnergy(p Params) *Energy {
	return &Energy{
		params: p,
		energy: temporal.NewEnergy(p.FrameLength, p.HopLength, p.SampleRate),
	}
}

func (e *Energy) Name() Approach { return ApproachEnergy }

func (e *Energy) Compute(samples []float64, duration float64) (*Function, error) {
	if err := e.params.validate(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	rms := e.energy.ComputeRMS(samples)
	compressed := common.LogCompress(rms, e.params.Gamma)
	values := common.HalfWaveRectify(common.FirstOrderDiff(compressed))

	return NewFunction(values, e.params.SampleRate, e.params.FrameLength, e.params.HopLength, duration), nil
}

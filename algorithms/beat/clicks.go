// Package beat estimates the phase of a constant-tempo beat grid against onset
// candidates and generates the resulting click times.
package beat

// Period returns the beat period of tempo in seconds
func Period(tempo int) float64 {
	return 60 / float64(tempo)
}

// PeriodMs returns the whole milliseconds of one beat at tempo
func PeriodMs(tempo int) int {
	return int(60000 / float64(tempo))
}

// ClickTimes returns k*60/tempo for k = 0, 1, ... up to and including the
// first click at or after duration
func ClickTimes(tempo int, duration float64) []float64 {
	if tempo <= 0 {
		return []float64{}
	}
	period := Period(tempo)
	clicks := []float64{0}
	for k := 1; clicks[len(clicks)-1] < duration; k++ {
		clicks = append(clicks, float64(k)*period)
	}
	return clicks
}

// Grid returns the click times of tempo shifted by phase seconds
func Grid(tempo int, duration, phase float64) []float64 {
	clicks := ClickTimes(tempo, duration)
	for i := range clicks {
		clicks[i] += phase
	}
	return clicks
}

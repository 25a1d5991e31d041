package vm

// PressureLevel grades how full physical memory is.
type PressureLevel string

// All pressure levels, from least to most loaded.
const (
	PressureOptimal  PressureLevel = "optimal"
	PressureMedium   PressureLevel = "medium"
	PressureHigh     PressureLevel = "high"
	PressureCritical PressureLevel = "critical"
)

// PressureOf derives the pressure level from the fraction of used frames.
func PressureOf(s State) PressureLevel {
	ratio := float64(s.UsedFrames()) / float64(NumFrames)

	switch {
	case ratio < 0.5:
		return PressureOptimal
	case ratio < 0.75:
		return PressureMedium
	case ratio < 1:
		return PressureHigh
	default:
		return PressureCritical
	}
}

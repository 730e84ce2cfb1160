// services/gate/gate.go
package gate

import (
	"fawtrap-go/types"
	"fawtrap-go/x/mathx"
)

// Gate answers the one question detection cares about. Implementations are
// pure: no side effects beyond reading a sensor or clock.
type Gate interface {
	IsNight() bool
}

// -----------------------------------------------------------------------------
// LDR strategy
// -----------------------------------------------------------------------------

// LDR classifies night from ambient light. The raw ADC value is normalised to
// 0..100 against the calibrated bounds; night iff the scaled value is below
// the threshold. A read failure counts as night so a flaky light sensor does
// not silence the trap during actual darkness.
type LDR struct {
	Read      func() (uint16, error) // raw ADC
	Min, Max  uint16
	Threshold uint8 // percent
}

func (g *LDR) IsNight() bool {
	raw, err := g.Read()
	if err != nil {
		return true
	}
	scaled := mathx.MapU16(raw, g.Min, g.Max, 0, 100)
	return uint8(scaled) < g.Threshold
}

// ScaleLight exposes the same normalisation for telemetry readings.
func ScaleLight(raw, min, max uint16) uint8 {
	return uint8(mathx.MapU16(raw, min, max, 0, 100))
}

// -----------------------------------------------------------------------------
// Clock strategy
// -----------------------------------------------------------------------------

// Clock classifies night from a wall-clock hour window [Start,End) that may
// wrap midnight (18→6 means hours >=18 or <6). Start==End is an empty window.
type Clock struct {
	Hour       func() int // 0..23
	Start, End int
}

func (g *Clock) IsNight() bool {
	h := g.Hour()
	if g.Start == g.End {
		return false
	}
	if g.Start < g.End {
		return h >= g.Start && h < g.End
	}
	return h >= g.Start || h < g.End
}

// -----------------------------------------------------------------------------
// Force override
// -----------------------------------------------------------------------------

// AlwaysNight keeps detection active regardless of light or time.
// Used for daytime testing.
type AlwaysNight struct{}

func (AlwaysNight) IsNight() bool { return true }

// -----------------------------------------------------------------------------
// Construction
// -----------------------------------------------------------------------------

// FromConfig builds the configured strategy. readLDR and hour supply the
// sensor/clock state the strategy needs; the unused one may be nil.
func FromConfig(cfg types.NightConfig, readLDR func() (uint16, error), hour func() int) Gate {
	switch cfg.Mode {
	case "ldr":
		return &LDR{Read: readLDR, Min: cfg.LDRMin, Max: cfg.LDRMax, Threshold: cfg.LightThreshold}
	case "clock":
		return &Clock{Hour: hour, Start: cfg.StartHour, End: cfg.EndHour}
	default:
		return AlwaysNight{}
	}
}

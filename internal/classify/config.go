package classify

import (
	"fmt"
	"math"
)

// MaxBeams is the widest beam layout a uint64 bitmask can describe.
const MaxBeams = 64

// Config is the immutable parameter set for one classification run.
type Config struct {
	NBeams     int     `json:"nbeams"`
	SNRCut     float64 `json:"snr_cut"`
	MembersCut int     `json:"members_cut"`
	NBeamsCut  int     `json:"nbeams_cut"`
	DMCut      float64 `json:"dm_cut"`
	FilterCut  int     `json:"filter_cut"`
	FilterMax  int     `json:"filter_max"`
	// BeamMask selects the beams taking part in the analysis; bit i is beam i.
	BeamMask uint64 `json:"beam_mask"`
}

// DefaultConfig returns the stock 13-beam multibeam receiver settings.
// SNRCut has no default and is left as NaN, so Validate fails until the
// caller sets it.
func DefaultConfig() Config {
	return Config{
		NBeams:     13,
		SNRCut:     math.NaN(),
		MembersCut: 3,
		NBeamsCut:  2,
		DMCut:      1.5,
		FilterCut:  99,
		FilterMax:  12,
		BeamMask:   1<<13 - 1,
	}
}

// ConfigurationError reports a configuration value that is missing or out
// of range. Classification never starts with an invalid Config.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Validate checks every field and returns the first problem found.
func (c Config) Validate() error {
	bad := func(field string, value any, reason string) error {
		return &ConfigurationError{Field: field, Value: value, Reason: reason}
	}

	if c.NBeams < 1 || c.NBeams > MaxBeams {
		return bad("nbeams", c.NBeams, fmt.Sprintf("must be between 1 and %d", MaxBeams))
	}
	if math.IsNaN(c.SNRCut) {
		return bad("snr_cut", c.SNRCut, "required")
	}
	if math.IsInf(c.SNRCut, 0) || c.SNRCut < 0 {
		return bad("snr_cut", c.SNRCut, "must be a finite non-negative number")
	}
	if math.IsNaN(c.DMCut) || math.IsInf(c.DMCut, 0) || c.DMCut < 0 {
		return bad("dm_cut", c.DMCut, "must be a finite non-negative number")
	}

	ints := []struct {
		name  string
		value int
	}{
		{"members_cut", c.MembersCut},
		{"nbeams_cut", c.NBeamsCut},
		{"filter_cut", c.FilterCut},
		{"filter_max", c.FilterMax},
	}
	for _, f := range ints {
		if f.value < 0 {
			return bad(f.name, f.value, "must not be negative")
		}
	}

	return nil
}

// ActiveMask is BeamMask restricted to the beams that exist in the run.
func (c Config) ActiveMask() uint64 {
	if c.NBeams >= MaxBeams {
		return c.BeamMask
	}
	return c.BeamMask & (1<<uint(c.NBeams) - 1)
}

// IsActive reports whether beam takes part in the analysis.
func (c Config) IsActive(beam int) bool {
	if beam < 0 || beam >= c.NBeams {
		return false
	}
	return c.BeamMask&(1<<uint(beam)) != 0
}

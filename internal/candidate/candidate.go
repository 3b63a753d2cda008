// Package candidate models the candidate table written by a single-pulse
// search (Heimdall's .cand output) and checks records against the beam
// layout of a run.
package candidate

import (
	"fmt"
	"math"
)

// Candidate is one detected pulse event. Beam and PrimBeam are 0-based.
type Candidate struct {
	SNR      float64 `json:"snr"`
	SampIdx  int64   `json:"samp_idx"`
	Time     float64 `json:"time"`
	Filter   int     `json:"filter"`
	DMTrial  int     `json:"dm_trial"`
	DM       float64 `json:"dm"`
	Members  int     `json:"members"`
	Begin    int64   `json:"begin"`
	End      int64   `json:"end"`
	NBeams   int     `json:"nbeams"`
	BeamMask uint64  `json:"beam_mask"`
	PrimBeam int     `json:"prim_beam"`
	MaxSNR   float64 `json:"max_snr"`
	Beam     int     `json:"beam"`
}

// Table is an ordered candidate collection. Order is the file order.
type Table []Candidate

// Beam returns the candidates recorded by beam b, in table order.
func (t Table) Beam(b int) Table {
	var out Table
	for _, c := range t {
		if c.Beam == b {
			out = append(out, c)
		}
	}
	return out
}

// MalformedError reports a candidate whose fields cannot be represented in
// the configured beam layout. It is per-record and never aborts a run.
type MalformedError struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("candidate %d: %s=%s: %s", e.Index, e.Field, e.Value, e.Reason)
}

// Check validates c against a run with nbeams beams. It returns nil for a
// well-formed record, otherwise the first offending field.
func Check(index int, c Candidate, nbeams int) *MalformedError {
	bad := func(field string, value any, reason string) *MalformedError {
		return &MalformedError{Index: index, Field: field, Value: fmt.Sprint(value), Reason: reason}
	}

	switch {
	case c.Beam < 0 || c.Beam >= nbeams:
		return bad("beam", c.Beam, fmt.Sprintf("outside [0, %d)", nbeams))
	case c.PrimBeam < 0 || c.PrimBeam >= nbeams:
		return bad("prim_beam", c.PrimBeam, fmt.Sprintf("outside [0, %d)", nbeams))
	case nbeams < 64 && c.BeamMask>>uint(nbeams) != 0:
		return bad("beam_mask", c.BeamMask, fmt.Sprintf("bits set above beam %d", nbeams-1))
	case c.Filter < 0:
		return bad("filter", c.Filter, "negative filter index")
	case c.Members < 0:
		return bad("members", c.Members, "negative member count")
	case math.IsNaN(c.SNR) || math.IsInf(c.SNR, 0) || c.SNR < 0:
		return bad("snr", c.SNR, "not a finite non-negative value")
	case math.IsNaN(c.DM) || math.IsInf(c.DM, 0) || c.DM < 0:
		return bad("dm", c.DM, "not a finite non-negative value")
	}
	return nil
}

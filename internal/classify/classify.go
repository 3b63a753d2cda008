// Package classify partitions a candidate table into mutually exclusive
// categories (hidden, noise, coincident RFI, fat RFI, low-DM RFI and valid)
// using an ordered cascade of cuts.
package classify

import (
	"math/bits"

	"go.uber.org/multierr"

	"github.com/chrissnell/candoverview/internal/candidate"
)

// Category names one class of the partition.
type Category string

const (
	Hidden Category = "hidden"
	Noise  Category = "noise"
	Coinc  Category = "coinc"
	Fat    Category = "fat"
	LowDM  Category = "lowdm"
	Valid  Category = "valid"
)

// Categories lists every category in cascade priority order.
var Categories = []Category{Hidden, Noise, Coinc, Fat, LowDM, Valid}

// rule is one step of the cascade. A candidate lands in the first rule
// that matches; Valid has no rule and takes the rest.
type rule struct {
	category Category
	match    func(Config, candidate.Candidate) bool
}

var cascade = []rule{
	{Hidden, Config.IsHidden},
	{Noise, Config.IsNoise},
	{Coinc, Config.IsCoincRFI},
	{Fat, Config.IsFat},
	{LowDM, Config.IsLowDMRFI},
}

// IsHidden is true for candidates under the SNR floor, wider than
// FilterCut, on an inactive beam, or a secondary copy of an event whose
// primary detection was on another beam.
func (c Config) IsHidden(cand candidate.Candidate) bool {
	return cand.SNR < c.SNRCut ||
		cand.Filter > c.FilterCut ||
		!c.IsActive(cand.Beam) ||
		cand.Beam != cand.PrimBeam
}

// IsNoise is true for events built from too few clustered detections.
func (c Config) IsNoise(cand candidate.Candidate) bool {
	return cand.Members < c.MembersCut
}

// IsCoincRFI is true when the event was seen on more than NBeamsCut of
// the active beams.
func (c Config) IsCoincRFI(cand candidate.Candidate) bool {
	return CoincidentBeams(cand, c) > c.NBeamsCut
}

// IsFat is true when the matched filter width saturates FilterMax.
func (c Config) IsFat(cand candidate.Candidate) bool {
	return cand.Filter >= c.FilterMax
}

// IsLowDMRFI is true below the DM floor.
func (c Config) IsLowDMRFI(cand candidate.Candidate) bool {
	return cand.DM < c.DMCut
}

// CoincidentBeams counts the active beams that co-detected cand.
func CoincidentBeams(cand candidate.Candidate, cfg Config) int {
	return bits.OnesCount64(cand.BeamMask & cfg.ActiveMask())
}

// ClassifyOne returns the category of a single candidate. Malformed
// records are always Hidden and the problem is returned alongside.
// cfg is assumed valid.
func ClassifyOne(index int, cand candidate.Candidate, cfg Config) (Category, *candidate.MalformedError) {
	if merr := candidate.Check(index, cand, cfg.NBeams); merr != nil {
		return Hidden, merr
	}
	for _, r := range cascade {
		if r.match(cfg, cand) {
			return r.category, nil
		}
	}
	return Valid, nil
}

// Partition is the result of one classification run. Every input
// candidate appears in exactly one category, unchanged.
type Partition struct {
	Sets map[Category]candidate.Table `json:"categories"`
	// Assignment holds the category of each input candidate by index.
	Assignment []Category                  `json:"assignment"`
	Malformed  []*candidate.MalformedError `json:"malformed,omitempty"`
}

// Classify runs the cascade over cands. An invalid cfg is rejected before
// any candidate is looked at. An empty table yields six empty categories.
func Classify(cands candidate.Table, cfg Config) (Partition, error) {
	if err := cfg.Validate(); err != nil {
		return Partition{}, err
	}

	p := Partition{
		Sets:       make(map[Category]candidate.Table, len(Categories)),
		Assignment: make([]Category, len(cands)),
	}
	for _, cat := range Categories {
		p.Sets[cat] = candidate.Table{}
	}

	for i, cand := range cands {
		cat, merr := ClassifyOne(i, cand, cfg)
		if merr != nil {
			p.Malformed = append(p.Malformed, merr)
		}
		p.Assignment[i] = cat
		p.Sets[cat] = append(p.Sets[cat], cand)
	}

	return p, nil
}

// Get returns the candidates assigned to cat.
func (p Partition) Get(cat Category) candidate.Table {
	return p.Sets[cat]
}

// Count returns the number of candidates assigned to cat.
func (p Partition) Count(cat Category) int {
	return len(p.Sets[cat])
}

// Len is the total number of classified candidates.
func (p Partition) Len() int {
	return len(p.Assignment)
}

// Err folds the per-record malformed errors into one error, or nil.
func (p Partition) Err() error {
	var err error
	for _, m := range p.Malformed {
		err = multierr.Append(err, m)
	}
	return err
}

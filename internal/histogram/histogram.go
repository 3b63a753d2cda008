// Package histogram builds log-spaced candidate histograms whose bin count
// grows with the sample size.
package histogram

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/candoverview/internal/candidate"
)

// Metric selects the candidate column being histogrammed.
type Metric string

const (
	DM  Metric = "dm"
	SNR Metric = "snr"
)

func (m Metric) value(c candidate.Candidate) (float64, error) {
	switch m {
	case DM:
		return c.DM, nil
	case SNR:
		return c.SNR, nil
	}
	return 0, fmt.Errorf("unknown metric %q", string(m))
}

// Spec fixes the domain, resolution floor and filter ceiling of one
// histogram kind.
type Spec struct {
	Metric  Metric  `json:"metric"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	MinBins int     `json:"min_bins"`
	// Candidates with a filter index above FilterCeiling are left out.
	FilterCeiling int `json:"filter_ceiling"`
}

var (
	// DMSpec covers DM 0.1 to 10010 pc cm^-3.
	DMSpec = Spec{Metric: DM, Min: 0.10, Max: 10010.0, MinBins: 30, FilterCeiling: 10}
	// SNRSpec covers S/N 6 to 100.
	SNRSpec = Spec{Metric: SNR, Min: 6.0, Max: 100.0, MinBins: 50, FilterCeiling: 13}
)

// Validate rejects domains the log scale cannot represent.
func (s Spec) Validate() error {
	if _, err := s.Metric.value(candidate.Candidate{}); err != nil {
		return err
	}
	if !(s.Min > 0) || math.IsInf(s.Min, 0) {
		return fmt.Errorf("%s histogram: minimum %v must be positive and finite", s.Metric, s.Min)
	}
	if !(s.Max > s.Min) || math.IsInf(s.Max, 0) {
		return fmt.Errorf("%s histogram: maximum %v must be finite and above minimum %v", s.Metric, s.Max, s.Min)
	}
	if s.MinBins < 1 {
		return fmt.Errorf("%s histogram: min_bins %d must be at least 1", s.Metric, s.MinBins)
	}
	return nil
}

// Bin is one histogram bar; Center is the geometric midpoint of the bin.
type Bin struct {
	Center float64 `json:"center"`
	Count  int     `json:"count"`
}

// Histogram lists every bin in increasing order, empty bins included, so
// histograms of the same Spec line up bin for bin.
type Histogram struct {
	Metric Metric `json:"metric"`
	Bins   []Bin  `json:"bins"`
}

// Total is the number of candidates counted.
func (h Histogram) Total() int {
	n := 0
	for _, b := range h.Bins {
		n += b.Count
	}
	return n
}

// BinCount is max(minBins, 2*floor(sqrt(n))).
func BinCount(n, minBins int) int {
	return max(minBins, 2*int(math.Sqrt(float64(n))))
}

// Build histograms spec.Metric over cands. Values below Min (and
// NaN) are counted in the lowest bin and values above Max in the highest,
// so every candidate under the filter ceiling is counted once.
func Build(cands candidate.Table, spec Spec) (Histogram, error) {
	if err := spec.Validate(); err != nil {
		return Histogram{}, err
	}

	logMin, logMax := math.Log10(spec.Min), math.Log10(spec.Max)

	values := make([]float64, 0, len(cands))
	for _, c := range cands {
		if c.Filter > spec.FilterCeiling {
			continue
		}
		v, _ := spec.Metric.value(c)
		switch {
		case math.IsNaN(v) || v < spec.Min:
			v = spec.Min
		case v > spec.Max:
			v = spec.Max
		}
		values = append(values, math.Log10(v))
	}
	sort.Float64s(values)

	nbins := BinCount(len(values), spec.MinBins)
	dividers := floats.Span(make([]float64, nbins+1), logMin, logMax)
	// The top bin is closed; Max itself must land inside it.
	dividers[nbins] = math.Inf(1)

	counts := stat.Histogram(nil, dividers, values, nil)

	width := (logMax - logMin) / float64(nbins)
	h := Histogram{Metric: spec.Metric, Bins: make([]Bin, nbins)}
	for i, n := range counts {
		h.Bins[i] = Bin{
			Center: math.Pow(10, logMin+(float64(i)+0.5)*width),
			Count:  int(n),
		}
	}
	return h, nil
}

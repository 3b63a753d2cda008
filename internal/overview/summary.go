package overview

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/candoverview/internal/classify"
)

// CategoryStats describes one category of a partition.
type CategoryStats struct {
	Category classify.Category `json:"category"`
	Count    int               `json:"count"`
	MeanSNR  float64           `json:"mean_snr"`
	MeanDM   float64           `json:"mean_dm"`
	MaxSNR   float64           `json:"max_snr"`
}

// Summary holds per-category statistics in cascade order.
type Summary struct {
	Total      int             `json:"total"`
	Malformed  int             `json:"malformed"`
	Categories []CategoryStats `json:"categories"`
}

// Summarize computes counts and simple S/N and DM statistics for every
// category. Empty categories report zeros.
func Summarize(p classify.Partition) Summary {
	s := Summary{
		Total:      p.Len(),
		Malformed:  len(p.Malformed),
		Categories: make([]CategoryStats, 0, len(classify.Categories)),
	}

	for _, cat := range classify.Categories {
		set := p.Get(cat)
		cs := CategoryStats{Category: cat, Count: len(set)}
		if len(set) > 0 {
			snrs := make([]float64, len(set))
			dms := make([]float64, len(set))
			for i, c := range set {
				snrs[i] = c.SNR
				dms[i] = c.DM
				cs.MaxSNR = max(cs.MaxSNR, c.SNR)
			}
			cs.MeanSNR = stat.Mean(snrs, nil)
			cs.MeanDM = stat.Mean(dms, nil)
		}
		s.Categories = append(s.Categories, cs)
	}

	return s
}

// Count returns the size of cat, or 0 if it is not in the summary.
func (s Summary) Count(cat classify.Category) int {
	for _, cs := range s.Categories {
		if cs.Category == cat {
			return cs.Count
		}
	}
	return 0
}

func logSummary(logger *zap.SugaredLogger, s Summary) {
	logger.Infow("classified candidates",
		"total", s.Total,
		"hidden", s.Count(classify.Hidden),
		"noise", s.Count(classify.Noise),
		"coinc", s.Count(classify.Coinc),
		"fat", s.Count(classify.Fat),
		"lowdm", s.Count(classify.LowDM),
		"valid", s.Count(classify.Valid),
		"malformed", s.Malformed,
	)
}

// Package overview runs a full candidate overview: one classification pass
// over the table plus DM and S/N histograms for every beam. The resulting
// Bundle is plain data for an external renderer.
package overview

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/candoverview/internal/candidate"
	"github.com/chrissnell/candoverview/internal/classify"
	"github.com/chrissnell/candoverview/internal/histogram"
)

// Options tunes a run. The zero value builds histograms sequentially with
// the stock DM and S/N specs and discards log output.
type Options struct {
	Logger *zap.SugaredLogger
	// Workers > 1 builds beam histograms concurrently, at most Workers at a time.
	Workers int
	// DM and SNR override histogram.DMSpec and histogram.SNRSpec when set.
	DM  *histogram.Spec
	SNR *histogram.Spec
}

// Bundle is everything the overview plots consume.
type Bundle struct {
	RunID     string             `json:"run_id"`
	Config    classify.Config    `json:"config"`
	Partition classify.Partition `json:"partition"`
	Summary   Summary            `json:"summary"`
	// Indexed by beam; both have Config.NBeams entries.
	DMHistograms  []histogram.Histogram `json:"dm_histograms"`
	SNRHistograms []histogram.Histogram `json:"snr_histograms"`
}

// Aggregate runs a sequential overview with default options.
func Aggregate(cands candidate.Table, cfg classify.Config) (Bundle, error) {
	return AggregateWithOptions(context.Background(), cands, cfg, Options{})
}

// AggregateWithOptions classifies cands once and histograms every beam of
// the raw table. Histograms do not depend on the classification.
func AggregateWithOptions(ctx context.Context, cands candidate.Table, cfg classify.Config, opts Options) (Bundle, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	dmSpec, snrSpec := histogram.DMSpec, histogram.SNRSpec
	if opts.DM != nil {
		dmSpec = *opts.DM
	}
	if opts.SNR != nil {
		snrSpec = *opts.SNR
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	partition, err := classify.Classify(cands, cfg)
	if err != nil {
		return Bundle{}, fmt.Errorf("classify candidates: %w", err)
	}
	if err := partition.Err(); err != nil {
		logger.Warnw("malformed candidates classified as hidden",
			"count", len(partition.Malformed), "error", err)
		for _, m := range partition.Malformed {
			logger.Debugw("malformed candidate",
				"index", m.Index, "field", m.Field, "value", m.Value, "reason", m.Reason)
		}
	}

	summary := Summarize(partition)
	logSummary(logger, summary)

	b := Bundle{
		RunID:         runID,
		Config:        cfg,
		Partition:     partition,
		Summary:       summary,
		DMHistograms:  make([]histogram.Histogram, cfg.NBeams),
		SNRHistograms: make([]histogram.Histogram, cfg.NBeams),
	}

	beams := splitBeams(cands, cfg.NBeams)
	build := func(beam int) error {
		dm, err := histogram.Build(beams[beam], dmSpec)
		if err != nil {
			return fmt.Errorf("beam %d: %s histogram: %w", beam, dmSpec.Metric, err)
		}
		snr, err := histogram.Build(beams[beam], snrSpec)
		if err != nil {
			return fmt.Errorf("beam %d: %s histogram: %w", beam, snrSpec.Metric, err)
		}
		b.DMHistograms[beam] = dm
		b.SNRHistograms[beam] = snr
		logger.Debugw("built beam histograms", "beam", beam, "candidates", len(beams[beam]),
			"dm_bins", len(dm.Bins), "snr_bins", len(snr.Bins))
		return nil
	}

	if opts.Workers <= 1 {
		for beam := range beams {
			if err := ctx.Err(); err != nil {
				return Bundle{}, err
			}
			if err := build(beam); err != nil {
				return Bundle{}, err
			}
		}
		return b, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for beam := range beams {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return build(beam)
		})
	}
	if err := g.Wait(); err != nil {
		return Bundle{}, err
	}

	return b, nil
}

// splitBeams buckets cands by beam index in one pass. Records whose beam
// is outside [0, nbeams) belong to no beam.
func splitBeams(cands candidate.Table, nbeams int) []candidate.Table {
	beams := make([]candidate.Table, nbeams)
	for _, c := range cands {
		if c.Beam >= 0 && c.Beam < nbeams {
			beams[c.Beam] = append(beams[c.Beam], c)
		}
	}
	return beams
}

package overview

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chrissnell/candoverview/internal/candidate"
	"github.com/chrissnell/candoverview/internal/classify"
	"github.com/chrissnell/candoverview/internal/histogram"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig() classify.Config {
	cfg := classify.DefaultConfig()
	cfg.SNRCut = 7
	return cfg
}

func randomTable(n int, seed int64) candidate.Table {
	rng := rand.New(rand.NewSource(seed))
	cands := make(candidate.Table, n)
	for i := range cands {
		beam := rng.Intn(13)
		cands[i] = candidate.Candidate{
			SNR:      6 + rng.ExpFloat64()*3,
			Time:     rng.Float64() * 600,
			Filter:   rng.Intn(14),
			DM:       rng.Float64() * 2000,
			Members:  rng.Intn(10),
			Beam:     beam,
			PrimBeam: beam,
			BeamMask: 1 << uint(beam),
		}
	}
	return cands
}

func TestAggregate(t *testing.T) {
	cands := candidate.Table{
		{SNR: 8, Members: 4, Filter: 5, DM: 2.0, Beam: 0, PrimBeam: 0, BeamMask: 0b1},
		{SNR: 9, Members: 4, Filter: 5, DM: 300, Beam: 2, PrimBeam: 2, BeamMask: 0b111},
		{SNR: 3, Members: 4, Filter: 11, DM: 0.0, Beam: 2, PrimBeam: 2, BeamMask: 0b100},
	}

	b, err := Aggregate(cands, testConfig())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if b.RunID == "" {
		t.Error("expected a run id")
	}
	if len(b.DMHistograms) != 13 || len(b.SNRHistograms) != 13 {
		t.Fatalf("got %d dm and %d snr histograms, expected 13 each", len(b.DMHistograms), len(b.SNRHistograms))
	}

	wantAssign := []classify.Category{classify.Valid, classify.Coinc, classify.Hidden}
	if diff := cmp.Diff(wantAssign, b.Partition.Assignment); diff != "" {
		t.Errorf("assignment mismatch (-want +got):\n%s", diff)
	}

	// Histograms see the raw per-beam table, hidden candidates included.
	// The third candidate has filter 11: above the DM ceiling, under the S/N one.
	tests := []struct {
		beam     int
		dmTotal  int
		snrTotal int
		dmBins   int
	}{
		{beam: 0, dmTotal: 1, snrTotal: 1, dmBins: 30},
		{beam: 1, dmTotal: 0, snrTotal: 0, dmBins: 30},
		{beam: 2, dmTotal: 1, snrTotal: 2, dmBins: 30},
	}
	for _, tt := range tests {
		dm, snr := b.DMHistograms[tt.beam], b.SNRHistograms[tt.beam]
		if dm.Total() != tt.dmTotal {
			t.Errorf("beam %d dm total = %d, expected %d", tt.beam, dm.Total(), tt.dmTotal)
		}
		if snr.Total() != tt.snrTotal {
			t.Errorf("beam %d snr total = %d, expected %d", tt.beam, snr.Total(), tt.snrTotal)
		}
		if len(dm.Bins) != tt.dmBins {
			t.Errorf("beam %d dm bins = %d, expected %d", tt.beam, len(dm.Bins), tt.dmBins)
		}
		if len(snr.Bins) != histogram.SNRSpec.MinBins {
			t.Errorf("beam %d snr bins = %d, expected %d", tt.beam, len(snr.Bins), histogram.SNRSpec.MinBins)
		}
	}

	if got := b.Summary.Count(classify.Valid); got != 1 {
		t.Errorf("summary valid count = %d, expected 1", got)
	}
}

func TestAggregateEmpty(t *testing.T) {
	b, err := Aggregate(nil, testConfig())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	for beam := 0; beam < 13; beam++ {
		if n := len(b.DMHistograms[beam].Bins); n != histogram.DMSpec.MinBins {
			t.Errorf("beam %d: %d dm bins, expected %d", beam, n, histogram.DMSpec.MinBins)
		}
		if b.DMHistograms[beam].Total() != 0 || b.SNRHistograms[beam].Total() != 0 {
			t.Errorf("beam %d: expected empty histograms", beam)
		}
	}
	if b.Summary.Total != 0 {
		t.Errorf("summary total = %d, expected 0", b.Summary.Total)
	}
}

func TestAggregateConfigurationError(t *testing.T) {
	_, err := Aggregate(randomTable(10, 1), classify.DefaultConfig())
	var cerr *classify.ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *classify.ConfigurationError, got %v", err)
	}
	if cerr.Field != "snr_cut" {
		t.Errorf("Field = %q, expected snr_cut", cerr.Field)
	}
}

func TestAggregateBadHistogramSpec(t *testing.T) {
	bad := histogram.Spec{Metric: histogram.DM, Min: 0, Max: 10, MinBins: 10}
	_, err := AggregateWithOptions(context.Background(), randomTable(10, 1), testConfig(), Options{DM: &bad, Workers: 4})
	if err == nil {
		t.Fatal("expected error for a non-positive histogram minimum")
	}
}

func TestAggregateWorkersMatchSequential(t *testing.T) {
	cands := randomTable(4000, 99)

	seq, err := Aggregate(cands, testConfig())
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	par, err := AggregateWithOptions(context.Background(), cands, testConfig(), Options{Workers: 4})
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}

	if diff := cmp.Diff(seq, par, cmpopts.IgnoreFields(Bundle{}, "RunID")); diff != "" {
		t.Errorf("parallel bundle differs (-seq +par):\n%s", diff)
	}
	if seq.RunID == par.RunID {
		t.Error("expected distinct run ids")
	}
}

func TestAggregateHistogramCoverage(t *testing.T) {
	cands := randomTable(2000, 3)
	b, err := Aggregate(cands, testConfig())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	for beam := 0; beam < 13; beam++ {
		dmWant, snrWant := 0, 0
		for _, c := range cands.Beam(beam) {
			if c.Filter <= histogram.DMSpec.FilterCeiling {
				dmWant++
			}
			if c.Filter <= histogram.SNRSpec.FilterCeiling {
				snrWant++
			}
		}
		if got := b.DMHistograms[beam].Total(); got != dmWant {
			t.Errorf("beam %d dm total = %d, expected %d", beam, got, dmWant)
		}
		if got := b.SNRHistograms[beam].Total(); got != snrWant {
			t.Errorf("beam %d snr total = %d, expected %d", beam, got, snrWant)
		}
	}
}

func TestAggregateLogsMalformed(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cands := candidate.Table{
		{SNR: 8, Members: 4, DM: 20, Beam: 20, PrimBeam: 20, BeamMask: 1},
		{SNR: 9, Members: 4, DM: 30, Beam: 1, PrimBeam: 1, BeamMask: 2, Filter: -1},
		{SNR: 9, Members: 4, DM: 30, Beam: 1, PrimBeam: 1, BeamMask: 2},
	}

	b, err := AggregateWithOptions(context.Background(), cands, testConfig(), Options{Logger: zap.New(core).Sugar()})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if b.Partition.Assignment[0] != classify.Hidden || b.Partition.Assignment[1] != classify.Hidden {
		t.Errorf("malformed candidates classified %v, expected hidden", b.Partition.Assignment[:2])
	}

	warnings := logs.FilterLevelExact(zap.WarnLevel).All()
	if len(warnings) != 1 {
		t.Fatalf("expected 1 folded malformed warning, got %d", len(warnings))
	}
	ctx := warnings[0].ContextMap()
	if count := ctx["count"]; count != int64(2) {
		t.Errorf("logged count = %v, expected 2", count)
	}
	msg, _ := ctx["error"].(string)
	for _, want := range []string{"candidate 0: beam=20", "candidate 1: filter=-1"} {
		if !strings.Contains(msg, want) {
			t.Errorf("folded error %q does not mention %q", msg, want)
		}
	}

	records := logs.FilterMessage("malformed candidate").All()
	if len(records) != 2 {
		t.Fatalf("expected 2 per-record debug entries, got %d", len(records))
	}
	if field := records[0].ContextMap()["field"]; field != "beam" {
		t.Errorf("logged field = %v, expected beam", field)
	}
}

func TestAggregateNoMalformedWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	if _, err := AggregateWithOptions(context.Background(), randomTable(200, 3), testConfig(), Options{Logger: zap.New(core).Sugar()}); err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if n := logs.Len(); n != 0 {
		t.Errorf("got %d warnings for a clean table, expected 0", n)
	}
}

func TestAggregateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{0, 4} {
		_, err := AggregateWithOptions(ctx, randomTable(100, 5), testConfig(), Options{Workers: workers})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: err = %v, expected context.Canceled", workers, err)
		}
	}
}

func TestSummarize(t *testing.T) {
	p, err := classify.Classify(candidate.Table{
		{SNR: 8, Members: 4, Filter: 1, DM: 100, Beam: 0, PrimBeam: 0, BeamMask: 1},
		{SNR: 12, Members: 4, Filter: 1, DM: 300, Beam: 1, PrimBeam: 1, BeamMask: 2},
		{SNR: 20, Members: 1, Filter: 1, DM: 300, Beam: 1, PrimBeam: 1, BeamMask: 2},
	}, testConfig())
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	s := Summarize(p)
	if s.Total != 3 {
		t.Errorf("Total = %d, expected 3", s.Total)
	}
	if len(s.Categories) != len(classify.Categories) {
		t.Fatalf("got %d category stats, expected %d", len(s.Categories), len(classify.Categories))
	}

	want := map[classify.Category]CategoryStats{
		classify.Valid: {Category: classify.Valid, Count: 2, MeanSNR: 10, MeanDM: 200, MaxSNR: 12},
		classify.Noise: {Category: classify.Noise, Count: 1, MeanSNR: 20, MeanDM: 300, MaxSNR: 20},
		classify.Fat:   {Category: classify.Fat},
	}
	for _, cs := range s.Categories {
		w, ok := want[cs.Category]
		if !ok {
			continue
		}
		if diff := cmp.Diff(w, cs); diff != "" {
			t.Errorf("%s stats mismatch (-want +got):\n%s", cs.Category, diff)
		}
	}
}

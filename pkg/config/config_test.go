package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chrissnell/candoverview/internal/classify"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func maskPtr(v uint64) *uint64 { return &v }

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestYAMLProvider(t *testing.T) {
	path := writeFile(t, "overview.yaml", `
nbeams: 4
snr_cut: 6.5
beam_mask: 11
nbeams_cut: 1
min_bins: 40
`)

	provider := NewYAMLProvider(path)
	defer provider.Close()

	got, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := &ConfigData{
		NBeams:    intPtr(4),
		SNRCut:    floatPtr(6.5),
		BeamMask:  maskPtr(0b1011),
		NBeamsCut: intPtr(1),
		MinBins:   intPtr(40),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadConfig mismatch (-want +got):\n%s", diff)
	}
	if !provider.IsReadOnly() {
		t.Error("YAML provider should be read-only")
	}
}

func TestYAMLProviderEmptyFile(t *testing.T) {
	got, err := NewYAMLProvider(writeFile(t, "empty.yaml", "")).LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if diff := cmp.Diff(&ConfigData{}, got); diff != "" {
		t.Errorf("expected empty layer (-want +got):\n%s", diff)
	}
}

func TestYAMLProviderRejectsUnknownKeys(t *testing.T) {
	_, err := NewYAMLProvider(writeFile(t, "typo.yaml", "snr_cutt: 7\n")).LoadConfig()
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestSQLiteProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overview.db")

	provider, err := NewSQLiteProvider(path)
	if err != nil {
		t.Fatalf("NewSQLiteProvider: %v", err)
	}
	defer provider.Close()

	if _, err := provider.LoadConfig(); err == nil {
		t.Fatal("expected error before any profile is saved")
	}

	saved := &ConfigData{
		NBeams:    intPtr(13),
		SNRCut:    floatPtr(7),
		BeamMask:  maskPtr(1<<13 - 1),
		DMCut:     floatPtr(2.5),
		FilterMax: intPtr(11),
	}
	if err := provider.SaveConfig(saved); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	saved.DMCut = floatPtr(3)
	if err := provider.SaveConfig(saved); err != nil {
		t.Fatalf("SaveConfig update: %v", err)
	}

	got, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if diff := cmp.Diff(saved, got); diff != "" {
		t.Errorf("LoadConfig mismatch (-want +got):\n%s", diff)
	}

	if _, err := provider.WithProfile("survey").LoadConfig(); err == nil {
		t.Error("expected error for a missing profile")
	}
}

func TestSQLiteProviderSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overview.db")

	for i := 0; i < 2; i++ {
		provider, err := NewSQLiteProvider(path)
		if err != nil {
			t.Fatalf("NewSQLiteProvider (open %d): %v", i, err)
		}
		version, err := Migrations(provider.db, nil).GetCurrentVersion()
		provider.Close()
		if err != nil {
			t.Fatalf("GetCurrentVersion: %v", err)
		}
		if version != 2 {
			t.Errorf("schema version = %d, expected 2", version)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvSNRCut, "8.5")
	t.Setenv(EnvBeamMask, "3")
	t.Setenv(EnvMinBins, "60")

	cfg := &ConfigData{SNRCut: floatPtr(6), NBeams: intPtr(2)}
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}

	want := &ConfigData{
		SNRCut:   floatPtr(8.5),
		NBeams:   intPtr(2),
		BeamMask: maskPtr(3),
		MinBins:  intPtr(60),
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("ApplyEnv mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyEnvBadValue(t *testing.T) {
	t.Setenv(EnvNBeams, "thirteen")
	if err := ApplyEnv(&ConfigData{}); err == nil {
		t.Error("expected parse error")
	}
}

func TestClassifyConfig(t *testing.T) {
	t.Run("missing snr cut", func(t *testing.T) {
		_, err := (&ConfigData{NBeams: intPtr(13)}).ClassifyConfig()
		var cerr *classify.ConfigurationError
		if !errors.As(err, &cerr) || cerr.Field != "snr_cut" {
			t.Fatalf("expected snr_cut ConfigurationError, got %v", err)
		}
	})

	t.Run("defaults fill the gaps", func(t *testing.T) {
		got, err := (&ConfigData{SNRCut: floatPtr(7), NBeamsCut: intPtr(1)}).ClassifyConfig()
		if err != nil {
			t.Fatalf("ClassifyConfig: %v", err)
		}
		want := classify.DefaultConfig()
		want.SNRCut = 7
		want.NBeamsCut = 1
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ClassifyConfig mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("out of range value", func(t *testing.T) {
		_, err := (&ConfigData{SNRCut: floatPtr(7), MembersCut: intPtr(-1)}).ClassifyConfig()
		var cerr *classify.ConfigurationError
		if !errors.As(err, &cerr) || cerr.Field != "members_cut" {
			t.Fatalf("expected members_cut ConfigurationError, got %v", err)
		}
	})
}

func TestMergeLayers(t *testing.T) {
	base := &ConfigData{SNRCut: floatPtr(6), DMCut: floatPtr(1.5), MinBins: intPtr(30)}
	over := &ConfigData{SNRCut: floatPtr(9), FilterCut: intPtr(10)}

	base.Merge(over)
	base.Merge(nil)

	want := &ConfigData{SNRCut: floatPtr(9), DMCut: floatPtr(1.5), MinBins: intPtr(30), FilterCut: intPtr(10)}
	if diff := cmp.Diff(want, base); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}

	*over.SNRCut = 12
	if *base.SNRCut != 9 {
		t.Error("Merge must copy values, not alias the overriding layer")
	}
}

func TestDMHistogramSpec(t *testing.T) {
	spec, err := (&ConfigData{MinBins: intPtr(45)}).DMHistogramSpec()
	if err != nil {
		t.Fatalf("DMHistogramSpec: %v", err)
	}
	if spec.MinBins != 45 || spec.FilterCeiling != 10 {
		t.Errorf("spec = %+v", spec)
	}

	if _, err := (&ConfigData{MinBins: intPtr(0)}).DMHistogramSpec(); err == nil {
		t.Error("expected error for min_bins 0")
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/chrissnell/candoverview/internal/candidate"
	"github.com/chrissnell/candoverview/internal/classify"
	"github.com/chrissnell/candoverview/internal/log"
	"github.com/chrissnell/candoverview/internal/overview"
	"github.com/chrissnell/candoverview/pkg/config"
	"github.com/chrissnell/candoverview/pkg/outputformat"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	defaults := classify.DefaultConfig()

	candFile := flag.String("f", "candidates_all.cand", "Heimdall candidate file to classify")
	cfgFile := flag.String("config", "", "Optional configuration source: YAML file or SQLite database")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' or 'sqlite'")
	output := flag.String("o", "overview.json", "Where to write the overview bundle")
	format := flag.String("format", "", "Bundle encoding: json or msgpack (default: from -o extension)")
	workers := flag.Int("workers", 1, "Number of beams to histogram concurrently")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")

	// Cut flags only override lower layers when given on the command line.
	flag.Int("nbeams", defaults.NBeams, "Number of beams")
	flag.Float64("snr_cut", 0, "Minimum S/N for a visible candidate (required unless configured)")
	flag.Uint64("beam_mask", defaults.BeamMask, "Bitmask of beams taking part in the analysis")
	flag.Int("nbeams_cut", defaults.NBeamsCut, "Candidates seen on more beams than this are coincident RFI")
	flag.Int("members_cut", defaults.MembersCut, "Candidates with fewer members are noise")
	flag.Float64("dm_cut", defaults.DMCut, "Candidates below this DM are low-DM RFI")
	flag.Int("filter_cut", defaults.FilterCut, "Candidates with a wider filter are hidden")
	flag.Int("filter_max", defaults.FilterMax, "Candidates at or above this filter are fat RFI")
	flag.Int("min_bins", 30, "Minimum number of DM histogram bins")
	flag.Parse()

	if *showVersion {
		fmt.Printf("candoverview %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfgData, err := loadConfig(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	if err := config.ApplyEnv(cfgData); err != nil {
		log.Errorf("Failed to apply environment overrides: %v", err)
		os.Exit(1)
	}
	cfgData.Merge(flagLayer())

	cfg, err := cfgData.ClassifyConfig()
	if err != nil {
		log.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}
	dmSpec, err := cfgData.DMHistogramSpec()
	if err != nil {
		log.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	cands, err := candidate.ReadFile(*candFile)
	if err != nil {
		log.Errorf("Failed to load candidates: %v", err)
		os.Exit(1)
	}
	log.Infof("Loaded %d candidates from %s", len(cands), *candFile)

	bundle, err := overview.AggregateWithOptions(context.Background(), cands, cfg, overview.Options{
		Logger:  log.GetSugaredLogger(),
		Workers: *workers,
		DM:      &dmSpec,
	})
	if err != nil {
		log.Errorf("Overview failed: %v", err)
		os.Exit(1)
	}

	if err := writeBundle(*output, *format, bundle); err != nil {
		log.Errorf("Failed to write overview: %v", err)
		os.Exit(1)
	}
	log.Infow("wrote overview bundle", "path", *output, "run_id", bundle.RunID)
}

func loadConfig(cfgFile, cfgBackend string) (*config.ConfigData, error) {
	if cfgFile == "" {
		return &config.ConfigData{}, nil
	}
	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config %s: %w", filename, err)
	}

	return cfgData, nil
}

// flagLayer collects the cut flags set explicitly on the command line.
func flagLayer() *config.ConfigData {
	layer := &config.ConfigData{}
	flag.Visit(func(f *flag.Flag) {
		getter, ok := f.Value.(flag.Getter)
		if !ok {
			return
		}
		switch v := getter.Get().(type) {
		case int:
			switch f.Name {
			case "nbeams":
				layer.NBeams = &v
			case "nbeams_cut":
				layer.NBeamsCut = &v
			case "members_cut":
				layer.MembersCut = &v
			case "filter_cut":
				layer.FilterCut = &v
			case "filter_max":
				layer.FilterMax = &v
			case "min_bins":
				layer.MinBins = &v
			}
		case float64:
			switch f.Name {
			case "snr_cut":
				layer.SNRCut = &v
			case "dm_cut":
				layer.DMCut = &v
			}
		case uint64:
			if f.Name == "beam_mask" {
				layer.BeamMask = &v
			}
		}
	})
	return layer
}

func writeBundle(path, formatName string, bundle overview.Bundle) error {
	format := outputformat.FormatForPath(path)
	if formatName != "" {
		var err error
		if format, err = outputformat.ParseFormat(formatName); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := outputformat.NewFormatter(format, true).Write(f, bundle); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", format, err)
	}
	return f.Close()
}

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/go-cmp/cmp"

	"github.com/chrissnell/candoverview/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML run configuration file")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite configuration file")
		profile    = flag.String("profile", config.DefaultProfile, "run_configs profile to compare against")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <overview.yaml> -sqlite <overview.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Configuration Comparison Test")
	fmt.Println("===========================")

	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)
	yamlConfig, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loading SQLite configuration: %s (profile %s)\n", *sqliteFile, *profile)
	sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite provider: %v\n", err)
		os.Exit(1)
	}
	defer sqliteProvider.Close()

	sqliteConfig, err := sqliteProvider.WithProfile(*profile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading SQLite config: %v\n", err)
		sqliteProvider.Close()
		os.Exit(1)
	}

	fmt.Println("\nComparison Results:")
	fmt.Println("==================")

	if diff := cmp.Diff(yamlConfig, sqliteConfig); diff != "" {
		fmt.Printf("✗ Run configurations differ (-yaml +sqlite):\n%s", diff)
	} else {
		fmt.Println("✓ Run configurations match")
	}

	fmt.Println("\nResolved classifier configuration:")
	for _, c := range []struct {
		name string
		data *config.ConfigData
	}{{"YAML", yamlConfig}, {"SQLite", sqliteConfig}} {
		cfg, err := c.data.ClassifyConfig()
		if err != nil {
			fmt.Printf("✗ %s: %v\n", c.name, err)
			continue
		}
		fmt.Printf("✓ %s: nbeams=%d snr_cut=%g beam_mask=%#x nbeams_cut=%d members_cut=%d dm_cut=%g filter_cut=%d filter_max=%d\n",
			c.name, cfg.NBeams, cfg.SNRCut, cfg.BeamMask, cfg.NBeamsCut, cfg.MembersCut, cfg.DMCut, cfg.FilterCut, cfg.FilterMax)
	}
}

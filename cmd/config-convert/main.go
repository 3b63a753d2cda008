package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chrissnell/candoverview/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML run configuration file (required)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		profile    = flag.String("profile", config.DefaultProfile, "Name of the run_configs row to write")
		force      = flag.Bool("force", false, "Replace an existing profile of the same name")
		dryRun     = flag.Bool("dry-run", false, "Show what would be done without executing")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <overview.yaml> -sqlite <overview.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Check if YAML file exists
	if _, err := os.Stat(*yamlFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: YAML file does not exist: %s\n", *yamlFile)
		os.Exit(1)
	}

	fmt.Printf("Converting YAML run configuration to SQLite...\n")
	fmt.Printf("  Source:  %s\n", *yamlFile)
	fmt.Printf("  Target:  %s\n", *sqliteFile)
	fmt.Printf("  Profile: %s\n", *profile)

	configData, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML configuration: %v\n", err)
		os.Exit(1)
	}

	// A profile without snr_cut is legal but cannot run on its own.
	if _, err := configData.ClassifyConfig(); err != nil {
		fmt.Printf("  Warning: %v\n", err)
	}

	if *dryRun {
		printConfigSummary(configData)
		fmt.Println("DRY RUN complete - no database written")
		return
	}

	provider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening SQLite database: %v\n", err)
		os.Exit(1)
	}
	defer provider.Close()
	provider.WithProfile(*profile)

	if _, err := provider.LoadConfig(); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: profile %q already exists in %s\n", *profile, *sqliteFile)
		fmt.Fprintf(os.Stderr, "Use -force to overwrite or choose a different profile\n")
		provider.Close()
		os.Exit(1)
	}

	if err := provider.SaveConfig(configData); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving configuration: %v\n", err)
		provider.Close()
		os.Exit(1)
	}

	printConfigSummary(configData)
	fmt.Println("Conversion completed successfully!")
}

func printConfigSummary(c *config.ConfigData) {
	fmt.Println("\nConfiguration Summary:")
	show := func(name string, set bool, value any) {
		if set {
			fmt.Printf("  %-12s %v\n", name, value)
		} else {
			fmt.Printf("  %-12s (default)\n", name)
		}
	}
	deref := func(p any) any {
		switch v := p.(type) {
		case *int:
			if v != nil {
				return *v
			}
		case *float64:
			if v != nil {
				return *v
			}
		case *uint64:
			if v != nil {
				return fmt.Sprintf("%#x", *v)
			}
		}
		return nil
	}

	show("nbeams", c.NBeams != nil, deref(c.NBeams))
	show("snr_cut", c.SNRCut != nil, deref(c.SNRCut))
	show("beam_mask", c.BeamMask != nil, deref(c.BeamMask))
	show("nbeams_cut", c.NBeamsCut != nil, deref(c.NBeamsCut))
	show("members_cut", c.MembersCut != nil, deref(c.MembersCut))
	show("dm_cut", c.DMCut != nil, deref(c.DMCut))
	show("filter_cut", c.FilterCut != nil, deref(c.FilterCut))
	show("filter_max", c.FilterMax != nil, deref(c.FilterMax))
	show("min_bins", c.MinBins != nil, deref(c.MinBins))
}

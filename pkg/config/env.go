package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Environment variables recognised by ApplyEnv.
const (
	EnvNBeams     = "CANDOVERVIEW_NBEAMS"
	EnvSNRCut     = "CANDOVERVIEW_SNR_CUT"
	EnvBeamMask   = "CANDOVERVIEW_BEAM_MASK"
	EnvNBeamsCut  = "CANDOVERVIEW_NBEAMS_CUT"
	EnvMembersCut = "CANDOVERVIEW_MEMBERS_CUT"
	EnvDMCut      = "CANDOVERVIEW_DM_CUT"
	EnvFilterCut  = "CANDOVERVIEW_FILTER_CUT"
	EnvFilterMax  = "CANDOVERVIEW_FILTER_MAX"
	EnvMinBins    = "CANDOVERVIEW_MIN_BINS"
)

type envConfig struct {
	NBeams     int     `env:"CANDOVERVIEW_NBEAMS"`
	SNRCut     float64 `env:"CANDOVERVIEW_SNR_CUT"`
	BeamMask   uint64  `env:"CANDOVERVIEW_BEAM_MASK"`
	NBeamsCut  int     `env:"CANDOVERVIEW_NBEAMS_CUT"`
	MembersCut int     `env:"CANDOVERVIEW_MEMBERS_CUT"`
	DMCut      float64 `env:"CANDOVERVIEW_DM_CUT"`
	FilterCut  int     `env:"CANDOVERVIEW_FILTER_CUT"`
	FilterMax  int     `env:"CANDOVERVIEW_FILTER_MAX"`
	MinBins    int     `env:"CANDOVERVIEW_MIN_BINS"`
}

// ApplyEnv overrides fields of c with any CANDOVERVIEW_* variables present
// in the environment.
func ApplyEnv(c *ConfigData) error {
	var e envConfig
	present := make(map[string]bool)
	opts := env.Options{
		OnSet: func(tag string, value interface{}, isDefault bool) {
			if !isDefault && fmt.Sprint(value) != "" {
				present[tag] = true
			}
		},
	}
	if err := env.ParseWithOptions(&e, opts); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	over := &ConfigData{}
	if present[EnvNBeams] {
		over.NBeams = &e.NBeams
	}
	if present[EnvSNRCut] {
		over.SNRCut = &e.SNRCut
	}
	if present[EnvBeamMask] {
		over.BeamMask = &e.BeamMask
	}
	if present[EnvNBeamsCut] {
		over.NBeamsCut = &e.NBeamsCut
	}
	if present[EnvMembersCut] {
		over.MembersCut = &e.MembersCut
	}
	if present[EnvDMCut] {
		over.DMCut = &e.DMCut
	}
	if present[EnvFilterCut] {
		over.FilterCut = &e.FilterCut
	}
	if present[EnvFilterMax] {
		over.FilterMax = &e.FilterMax
	}
	if present[EnvMinBins] {
		over.MinBins = &e.MinBins
	}

	c.Merge(over)
	return nil
}

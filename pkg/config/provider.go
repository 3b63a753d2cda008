// Package config loads run configuration for the candidate overview from a
// YAML file or a SQLite database, with environment and flag overrides
// layered on top.
package config

import (
	"github.com/chrissnell/candoverview/internal/classify"
	"github.com/chrissnell/candoverview/internal/histogram"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData is one layer of run configuration. A nil field means the
// layer does not set it and the value from a lower layer (or the default)
// applies.
type ConfigData struct {
	NBeams     *int     `json:"nbeams,omitempty" yaml:"nbeams,omitempty"`
	SNRCut     *float64 `json:"snr_cut,omitempty" yaml:"snr_cut,omitempty"`
	BeamMask   *uint64  `json:"beam_mask,omitempty" yaml:"beam_mask,omitempty"`
	NBeamsCut  *int     `json:"nbeams_cut,omitempty" yaml:"nbeams_cut,omitempty"`
	MembersCut *int     `json:"members_cut,omitempty" yaml:"members_cut,omitempty"`
	DMCut      *float64 `json:"dm_cut,omitempty" yaml:"dm_cut,omitempty"`
	FilterCut  *int     `json:"filter_cut,omitempty" yaml:"filter_cut,omitempty"`
	FilterMax  *int     `json:"filter_max,omitempty" yaml:"filter_max,omitempty"`
	// MinBins overrides the DM histogram's minimum bin count.
	MinBins *int `json:"min_bins,omitempty" yaml:"min_bins,omitempty"`
}

// Merge copies every field set in over onto c.
func (c *ConfigData) Merge(over *ConfigData) {
	if over == nil {
		return
	}
	setInt := func(dst **int, src *int) {
		if src != nil {
			v := *src
			*dst = &v
		}
	}
	setFloat := func(dst **float64, src *float64) {
		if src != nil {
			v := *src
			*dst = &v
		}
	}

	setInt(&c.NBeams, over.NBeams)
	setFloat(&c.SNRCut, over.SNRCut)
	if over.BeamMask != nil {
		v := *over.BeamMask
		c.BeamMask = &v
	}
	setInt(&c.NBeamsCut, over.NBeamsCut)
	setInt(&c.MembersCut, over.MembersCut)
	setFloat(&c.DMCut, over.DMCut)
	setInt(&c.FilterCut, over.FilterCut)
	setInt(&c.FilterMax, over.FilterMax)
	setInt(&c.MinBins, over.MinBins)
}

// ClassifyConfig resolves the layer against the stock defaults and
// validates the result. snr_cut has no default and must be set.
func (c *ConfigData) ClassifyConfig() (classify.Config, error) {
	cfg := classify.DefaultConfig()
	if c.SNRCut == nil {
		return classify.Config{}, &classify.ConfigurationError{Field: "snr_cut", Value: "<unset>", Reason: "required"}
	}

	cfg.SNRCut = *c.SNRCut
	if c.NBeams != nil {
		cfg.NBeams = *c.NBeams
	}
	if c.BeamMask != nil {
		cfg.BeamMask = *c.BeamMask
	}
	if c.NBeamsCut != nil {
		cfg.NBeamsCut = *c.NBeamsCut
	}
	if c.MembersCut != nil {
		cfg.MembersCut = *c.MembersCut
	}
	if c.DMCut != nil {
		cfg.DMCut = *c.DMCut
	}
	if c.FilterCut != nil {
		cfg.FilterCut = *c.FilterCut
	}
	if c.FilterMax != nil {
		cfg.FilterMax = *c.FilterMax
	}

	if err := cfg.Validate(); err != nil {
		return classify.Config{}, err
	}
	return cfg, nil
}

// DMHistogramSpec returns the DM histogram spec with MinBins applied.
func (c *ConfigData) DMHistogramSpec() (histogram.Spec, error) {
	spec := histogram.DMSpec
	if c.MinBins != nil {
		spec.MinBins = *c.MinBins
	}
	if err := spec.Validate(); err != nil {
		return histogram.Spec{}, &classify.ConfigurationError{Field: "min_bins", Value: spec.MinBins, Reason: err.Error()}
	}
	return spec, nil
}

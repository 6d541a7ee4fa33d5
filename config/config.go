// Package config loads and validates the YAML run configuration (detct
// spec §6), grounded on github.com/nishad/srake/internal/config's
// Load/Validate split over gopkg.in/yaml.v3.
package config

import (
	"os"

	"github.com/grailbio/detct/detcterrors"
	"github.com/grailbio/detct/sample"
	"gopkg.in/yaml.v3"
)

// maxNameLength is the configured run name's length ceiling (spec §6).
const maxNameLength = 128

// Ensembl holds the optional remote-annotation connection used as a
// sequence-retrieval fallback when no local FASTA covers a reference (spec
// §6 "ensembl_*", §4.3 C3's RemoteSource).
type Ensembl struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Species  string `yaml:"species"`
}

// SampleConfig is one row of the on-disk "samples" list (spec §6).
type SampleConfig struct {
	Name      string   `yaml:"name"`
	BamFile   string   `yaml:"bam_file"`
	Tag       string   `yaml:"tag"`
	Condition string   `yaml:"condition"`
	Groups    []string `yaml:"groups"`
}

// Config is the full on-disk run configuration (spec §6).
type Config struct {
	Name              string         `yaml:"name"`
	ChunkTotal        int            `yaml:"chunk_total"`
	RefFasta          string         `yaml:"ref_fasta"`
	MismatchThreshold int            `yaml:"mismatch_threshold"`
	BinSize           int            `yaml:"bin_size"`
	PeakBufferWidth   int            `yaml:"peak_buffer_width"`
	HMMSigLevel       float64        `yaml:"hmm_sig_level"`
	Read2Length       int            `yaml:"read2_length"`
	HMMBinary         string         `yaml:"hmm_binary"`
	Ensembl           *Ensembl       `yaml:"ensembl,omitempty"`
	TestChunk         int            `yaml:"test_chunk,omitempty"`
	SkipSequences     []string       `yaml:"skip_sequences,omitempty"`
	Samples           []SampleConfig `yaml:"samples"`
}

// Load reads and parses the YAML configuration at path. It does not
// validate -- callers must call Validate (spec §6, §7 ConfigInvalid).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, detcterrors.IOf("reading config %q: %v", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, detcterrors.Configf("parsing config %q: %v", path, err)
	}
	return &c, nil
}

// Validate checks every recognized option against spec §6 and §7's
// ConfigInvalid invariants, in the flat-predicate style of
// github.com/grailbio/bio/markduplicates's Opts validation.
func (c *Config) Validate() error {
	if len(c.Name) == 0 {
		return detcterrors.Configf("name: must not be empty")
	}
	if isBlank(c.Name) {
		return detcterrors.Configf("name: must not be blank")
	}
	if len(c.Name) > maxNameLength {
		return detcterrors.Configf("name: %d characters exceeds limit of %d", len(c.Name), maxNameLength)
	}
	if c.ChunkTotal <= 0 {
		return detcterrors.Configf("chunk_total: must be positive, got %d", c.ChunkTotal)
	}
	if c.MismatchThreshold < 0 {
		return detcterrors.Configf("mismatch_threshold: must be non-negative, got %d", c.MismatchThreshold)
	}
	if c.BinSize <= 0 {
		return detcterrors.Configf("bin_size: must be positive, got %d", c.BinSize)
	}
	if c.PeakBufferWidth < 0 {
		return detcterrors.Configf("peak_buffer_width: must be non-negative, got %d", c.PeakBufferWidth)
	}
	if c.Read2Length <= 0 {
		return detcterrors.Configf("read2_length: must be positive, got %d", c.Read2Length)
	}
	if c.RefFasta == "" {
		return detcterrors.Configf("ref_fasta: must not be empty")
	}
	if f, err := os.Open(c.RefFasta); err != nil {
		return detcterrors.Configf("ref_fasta: %v", err)
	} else {
		f.Close()
	}
	if c.Ensembl != nil {
		if c.Ensembl.Port < 0 || c.Ensembl.Port > 65535 {
			return detcterrors.Configf("ensembl_port: invalid port %d", c.Ensembl.Port)
		}
	}
	if c.TestChunk < 0 {
		return detcterrors.Configf("test_chunk: must be a positive 1-based ordinal, got %d", c.TestChunk)
	}
	skip := map[string]bool{}
	for _, s := range c.SkipSequences {
		if skip[s] {
			return detcterrors.Configf("skip_sequences: duplicate entry %q", s)
		}
		skip[s] = true
	}
	return c.validateSamples()
}

func (c *Config) validateSamples() error {
	if len(c.Samples) == 0 {
		return detcterrors.Configf("samples: at least one sample is required")
	}
	return sample.Validate(c.ToSamples())
}

// ToSamples converts the on-disk sample rows to the sample package's model.
func (c *Config) ToSamples() []sample.Sample {
	out := make([]sample.Sample, len(c.Samples))
	for i, s := range c.Samples {
		out[i] = sample.Sample{
			Name:      s.Name,
			BamFile:   s.BamFile,
			Barcode:   s.Tag,
			Condition: s.Condition,
			Groups:    s.Groups,
		}
	}
	return out
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' {
			return false
		}
	}
	return true
}

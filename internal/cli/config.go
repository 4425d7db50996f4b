package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zlobste/ipsetgen/ipgen"
)

// Config is the set of generation parameters. It can be read from a YAML
// file; flags given on the command line take precedence over file values.
type Config struct {
	Version int     `yaml:"version" json:"version"`
	Size    *int    `yaml:"size,omitempty" json:"size,omitempty"`
	Length  *int    `yaml:"length,omitempty" json:"length,omitempty"`
	Seed    *uint64 `yaml:"seed,omitempty" json:"seed,omitempty"`
	Mode    string  `yaml:"mode,omitempty" json:"mode,omitempty"`
	Output  string  `yaml:"output,omitempty" json:"output,omitempty"`
	Quiet   bool    `yaml:"quiet,omitempty" json:"quiet,omitempty"`
}

func loadConfig(path string) (Config, error) {
	cfg := Config{Version: 4}
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", errConfiguration, err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %s: %v", errConfiguration, path, err)
	}
	return cfg, nil
}

// merge overlays the flags the user set explicitly onto the file values.
func merge(cmd *cobra.Command, opts *options) (Config, error) {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("version") {
		cfg.Version = opts.version
	}
	if flags.Changed("length") {
		cfg.Length = &opts.length
	}
	if flags.Changed("output") || cfg.Output == "" {
		cfg.Output = opts.format
	}
	switch outputFormat(cfg.Output) {
	case outHuman, outJSON, outYAML:
	default:
		return Config{}, fmt.Errorf("%w: unknown output format %q", errConfiguration, cfg.Output)
	}
	if _, err := ipgen.ParseFamily(cfg.Version); err != nil {
		return Config{}, fmt.Errorf("%w: version number must be 4 or 6", errConfiguration)
	}
	return cfg, nil
}

func checkLength(cfg Config) error {
	fam, _ := ipgen.ParseFamily(cfg.Version)
	if *cfg.Length < 0 || *cfg.Length > fam.Bits() {
		return fmt.Errorf("%w: length must be a value between 0 and %d for %s addresses",
			errConfiguration, fam.Bits(), fam)
	}
	return nil
}

// resolve builds and validates the parameters of a generation run.
func resolve(cmd *cobra.Command, opts *options) (Config, error) {
	cfg, err := merge(cmd, opts)
	if err != nil {
		return Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("size") {
		cfg.Size = &opts.size
	}
	if flags.Changed("seed") {
		cfg.Seed = &opts.seed
	}
	if flags.Changed("mode") || cfg.Mode == "" {
		cfg.Mode = opts.mode
	}
	if flags.Changed("quiet") {
		cfg.Quiet = opts.quiet
	}

	if cfg.Length == nil || cfg.Size == nil {
		return Config{}, fmt.Errorf("%w: length and size must be specified", errConfiguration)
	}
	if err := checkLength(cfg); err != nil {
		return Config{}, err
	}
	if *cfg.Size < 1 {
		return Config{}, fmt.Errorf("%w: size must be an integer value greater than 0", errConfiguration)
	}
	if _, err := ipgen.ParseMode(cfg.Mode); err != nil {
		return Config{}, fmt.Errorf("%w: %v", errConfiguration, err)
	}
	return cfg, nil
}

func resolveRange(cmd *cobra.Command, opts *options) (Config, error) {
	cfg, err := merge(cmd, opts)
	if err != nil {
		return Config{}, err
	}
	if cfg.Length == nil {
		return Config{}, fmt.Errorf("%w: length must be specified", errConfiguration)
	}
	if err := checkLength(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

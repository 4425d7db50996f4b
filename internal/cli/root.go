package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zlobste/ipsetgen/ipgen"
)

type outputFormat string

const (
	outHuman outputFormat = "human"
	outJSON  outputFormat = "json"
	outYAML  outputFormat = "yaml"
)

var errConfiguration = errors.New("invalid configuration")

// options holds the flag values of one command tree.
type options struct {
	configPath string
	format     string
	version    int
	length     int
	size       int
	seed       uint64
	mode       string
	quiet      bool
}

// Execute runs the root command tree.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "ipsetgen -s SAMPLE_SIZE -l BIT_LENGTH [-v VERSION]",
		Short: "Generate random IP addresses inside a prefixed range",
		Long: "ipsetgen writes SAMPLE_SIZE pseudo-random IPv4 or IPv6 addresses, one per line, " +
			"drawn from the range implied by BIT_LENGTH. A description of the range is written to stderr.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolve(cmd, opts)
			if err != nil {
				return err
			}
			return generate(cmd, cfg)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.format, "output", "o", string(outHuman), "output format: human|json|yaml")
	pf.StringVar(&opts.configPath, "config", "", "YAML file with default parameters")
	pf.IntVarP(&opts.version, "version", "v", 4, "IP version number: 4 or 6")
	pf.IntVarP(&opts.length, "length", "l", 0, "bit mask length used for the range")

	f := root.Flags()
	f.IntVarP(&opts.size, "size", "s", 0, "number of IP addresses produced")
	f.Uint64Var(&opts.seed, "seed", 0, "random seed (default: random)")
	f.StringVar(&opts.mode, "mode", ipgen.ModePerOctet.String(), "IPv6 sampling mode: per-octet|uniform")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "do not write the range description to stderr")

	root.AddCommand(newRangeCmd(opts))
	return root
}

func generate(cmd *cobra.Command, cfg Config) error {
	fam, _ := ipgen.ParseFamily(cfg.Version)
	mode, _ := ipgen.ParseMode(cfg.Mode)
	bounds, err := ipgen.RangeBounds(fam, *cfg.Length)
	if err != nil {
		return fmt.Errorf("%w: %v", errConfiguration, err)
	}

	seed := rand.Uint64()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	sampler := ipgen.NewSeededSampler(seed, ipgen.WithMode(mode))

	if !cfg.Quiet {
		stderr := cmd.ErrOrStderr()
		fmt.Fprintf(stderr, "version = %d\nsize = %d\nlength = %d\n", cfg.Version, *cfg.Size, *cfg.Length)
		fmt.Fprintf(stderr, "Generating addresses in the range\n%s\n", bounds)
	}

	if outputFormat(cfg.Output) != outHuman {
		addrs, err := sampler.Sample(bounds, *cfg.Size)
		if err != nil {
			return err
		}
		list := make([]string, len(addrs))
		for i, a := range addrs {
			list[i] = a.String()
		}
		return render(cmd.OutOrStdout(), cfg.Output, list)
	}

	it, err := sampler.Iterator(bounds, *cfg.Size)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(cmd.OutOrStdout())
	for a, ok := it.Next(); ok; a, ok = it.Next() {
		if _, err := fmt.Fprintln(w, a); err != nil {
			return err
		}
	}
	return w.Flush()
}

func render(w io.Writer, format string, v any) error {
	switch outputFormat(format) {
	case outHuman:
		switch t := v.(type) {
		case []string:
			for _, s := range t {
				fmt.Fprintln(w, s)
			}
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "%s: %v\n", k, t[k])
			}
		default:
			fmt.Fprintln(w, v)
		}
	case outJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return errors.New("unknown output format")
	}
	return nil
}

func newRangeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "range -l BIT_LENGTH [-v VERSION]",
		Short: "Show the bounds addresses would be drawn from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveRange(cmd, opts)
			if err != nil {
				return err
			}
			fam, _ := ipgen.ParseFamily(cfg.Version)
			b, err := ipgen.RangeBounds(fam, *cfg.Length)
			if err != nil {
				return fmt.Errorf("%w: %v", errConfiguration, err)
			}
			prefixes := make([]string, 0)
			for _, p := range b.Prefixes() {
				prefixes = append(prefixes, p.String())
			}
			out := map[string]any{
				"family":        fam.String(),
				"prefix_length": b.Prefix,
				"low":           b.Low.String(),
				"high":          b.High.String(),
				"span":          b.Span().String(),
				"cidrs":         prefixes,
			}
			return render(cmd.OutOrStdout(), cfg.Output, out)
		},
	}
}

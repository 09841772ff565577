package cliapp

import (
	"github.com/spf13/cobra"

	"rf2boot/internal/engine/rf2"
)

const versionString = "1.0.0"
const defaultConfigPath = "./rf2boot.toml"

type cliOptions struct {
	configPath  string
	envFiles    []string
	profile     string
	workers     int
	sequential  bool
	verbose     bool
	ledger      bool
	metricsAddr string
	modules     []string
	ancestors   []string
	pathTo      string
	stated      bool
	withDelta   bool
}

// newRootCmd builds the command tree. run is called by every load
// subcommand with the mode it selects.
func newRootCmd(run func(cmd *cobra.Command, opts *cliOptions, mode rf2.Mode, effective bool, dirs []string) error) *cobra.Command {
	opts := &cliOptions{}
	root := &cobra.Command{
		Use:           "rf2boot",
		Short:         "Load RF2 terminology releases into an in-memory concept graph",
		Version:       versionString,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	pf.StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "Dotenv files loaded before the environment is read")
	pf.StringVar(&opts.profile, "profile", "", "Loading profile preset: light or complete")
	pf.IntVar(&opts.workers, "workers", 0, "Number of file groups read in parallel")
	pf.BoolVar(&opts.sequential, "sequential", false, "Read every file group on one goroutine")
	pf.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	pf.BoolVar(&opts.ledger, "ledger", false, "Skip content already imported and record what this run imports")
	pf.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address during the load")
	pf.StringSliceVar(&opts.modules, "module", nil, "Only load rows of these module ids")
	pf.StringSliceVar(&opts.ancestors, "ancestors", nil, "Print the ancestors of these concept ids after loading")
	pf.StringVar(&opts.pathTo, "path-to", "", "Also print the shortest is-a path from each --ancestors id up to this concept")
	pf.BoolVar(&opts.stated, "stated", false, "Use the stated form for --ancestors")

	load := func(use, short string, mode rf2.Mode) *cobra.Command {
		return &cobra.Command{
			Use:   use + " [release-dir...]",
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, opts, mode, false, args)
			},
		}
	}
	root.AddCommand(
		load("snapshot", "Load the snapshot files of one or more releases", rf2.ModeSnapshot),
		load("delta", "Load the delta files of a release", rf2.ModeDelta),
		load("full", "Replay a full release version by version", rf2.ModeFull),
	)

	effective := &cobra.Command{
		Use:   "effective [release-dir...]",
		Short: "Load overlapping snapshots keeping only the latest version of each component",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := rf2.ModeSnapshot
			if opts.withDelta {
				mode = rf2.ModeSnapshotAndDelta
			}
			return run(cmd, opts, mode, true, args)
		},
	}
	effective.Flags().BoolVar(&opts.withDelta, "with-delta", false, "Also load the delta files of every directory")
	root.AddCommand(effective)
	return root
}

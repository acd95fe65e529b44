package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/unhoist/unhoist/pkg/buildinfo"
)

// Execute runs the unhoist CLI and returns an error if any command fails.
// This is the main entry point for the CLI application.
//
// The function sets up the root command with all subcommands (resolve,
// export, browse, serve, cache), configures logging based on the --verbose
// flag, and executes the command tree. The logger carries a short per-run id
// so interleaved output from parallel invocations can be told apart, and is
// attached to the context for all commands via loggerFromContext.
func Execute(ctx context.Context) error {
	var (
		verbose    bool
		configFile string
	)

	root := &cobra.Command{
		Use:          "unhoist",
		Short:        "unhoist reconstructs full dependency trees from deduplicated yarn listings",
		Long:         `unhoist undoes the subtree deduplication in yarn's listing output, rebuilding the complete cycle-safe dependency tree and enriching packages with cached registry metadata.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			logger := newLogger(os.Stderr, level).With("run", uuid.NewString()[:8])
			ctx := withLogger(cmd.Context(), logger)
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.config/unhoist/config.toml)")

	root.AddCommand(newResolveCmd(&configFile))
	root.AddCommand(newExportCmd())
	root.AddCommand(newBrowseCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newCacheCmd(&configFile))

	return root.ExecuteContext(ctx)
}

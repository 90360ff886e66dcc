// Package cmd provides the CLI commands for linkmap.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/linkmap/internal/logging"
	"github.com/Aman-CERP/linkmap/internal/profiling"
	"github.com/Aman-CERP/linkmap/pkg/version"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configDir  string
	dbPath     string
	jsonOutput bool
	noColor    bool
	debug      bool
	profile    profiling.Options

	session        *profiling.Session
	loggingCleanup func()
}

// NewRootCmd creates the root command for the linkmap CLI.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "linkmap",
		Short: "Topic clusters, link suggestions and link-graph metrics for a site",
		Long: `linkmap analyzes the pages of a website for internal linking.

It stores pages with their embeddings per domain, groups them into topic
clusters with k-means, names each cluster by its distinctive terms, suggests
internal links between similar pages, and scores the link graph with
PageRank and HITS.

Every analysis is also available to AI assistants through 'linkmap serve'.`,
		Example: `  linkmap doctor
  linkmap ingest pages.jsonl --domain example.com --embed
  linkmap clusters preview --domain example.com -k 12
  linkmap clusters commit --domain example.com -k 12
  linkmap topics --domain example.com
  linkmap links --domain example.com --per-item 5
  linkmap graph --domain example.com --top 20`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: g.start,
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return g.stop()
		},
	}
	cmd.SetVersionTemplate("linkmap version {{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVar(&g.configDir, "config-dir", ".", "Directory searched for .linkmap.yaml")
	flags.StringVar(&g.dbPath, "db", "", "Path of the page store (overrides store.db_path)")
	flags.BoolVar(&g.jsonOutput, "json", false, "Output results as JSON")
	flags.BoolVar(&g.noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&g.debug, "debug", false, "Enable debug logging to ~/.linkmap/logs/")
	flags.StringVar(&g.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	flags.StringVar(&g.profile.Heap, "profile-mem", "", "Write memory profile to file")
	flags.StringVar(&g.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.AddCommand(newIngestCmd(g))
	cmd.AddCommand(newDomainsCmd(g))
	cmd.AddCommand(newClustersCmd(g))
	cmd.AddCommand(newTopicsCmd(g))
	cmd.AddCommand(newLinksCmd(g))
	cmd.AddCommand(newGraphCmd(g))
	cmd.AddCommand(newServeCmd(g))
	cmd.AddCommand(newDoctorCmd(g))
	cmd.AddCommand(newConfigCmd(g))
	cmd.AddCommand(newVersionCmd(g))

	return cmd
}

// start enables debug logging and profiling when requested. serve sets up
// its own file logging.
func (g *globalOptions) start(cmd *cobra.Command, _ []string) error {
	if g.debug && cmd.Name() != "serve" {
		logger, cleanup, err := logging.Setup(logging.DebugConfig())
		if err != nil {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		g.loggingCleanup = cleanup
		slog.SetDefault(logger)
		slog.Debug("debug_logging_enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("command", cmd.CommandPath()),
			slog.String("version", version.Version))
	}

	if g.profile.Enabled() {
		session, err := profiling.Start(g.profile)
		if err != nil {
			return err
		}
		g.session = session
	}
	return nil
}

func (g *globalOptions) stop() error {
	err := g.session.Stop()
	g.session = nil
	if g.loggingCleanup != nil {
		g.loggingCleanup()
		g.loggingCleanup = nil
	}
	return err
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

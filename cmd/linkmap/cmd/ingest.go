package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
	"github.com/Aman-CERP/linkmap/internal/service"
	"github.com/Aman-CERP/linkmap/internal/ui"
)

func newIngestCmd(g *globalOptions) *cobra.Command {
	var (
		domain        string
		embedMissing  bool
		externalLinks bool
	)

	cmd := &cobra.Command{
		Use:   "ingest FILE",
		Short: "Store crawled pages for a domain",
		Long: `Store crawled pages from a JSON Lines file, one page per line:

  {"id": "p1", "url": "https://example.com/a", "title": "...", "content": "...",
   "embedding": [0.1, 0.2], "html": "<a href=\"/b\">b</a>"}

Pages are upserted by id. With --embed, pages without an embedding are
embedded with the configured provider. Links found in "html" replace the
page's previously stored links. Use "-" to read from stdin.`,
		Example: `  linkmap ingest pages.jsonl --domain example.com
  crawl | linkmap ingest - --domain example.com --embed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, g, args[0], domain, embedMissing, externalLinks)
		},
	}

	domainFlag(cmd, &domain)
	cmd.Flags().BoolVar(&embedMissing, "embed", false, "Embed pages that have no embedding")
	cmd.Flags().BoolVar(&externalLinks, "external-links", false, "Also store links that leave the domain")

	return cmd
}

func runIngest(cmd *cobra.Command, g *globalOptions, path, domain string, embedMissing, externalLinks bool) error {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return lmerrors.New(lmerrors.ErrCodeFileNotFound, fmt.Sprintf("cannot open %s", path), err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	records, err := service.ReadRecords(r)
	if err != nil {
		return err
	}

	a, err := g.open()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	opts := service.DefaultIngestOptions()
	opts.Embed = embedMissing
	opts.ExternalLinks = externalLinks

	res, err := a.svc.Ingest(cmd.Context(), domain, records, opts)
	if err != nil {
		return err
	}
	return g.emit(cmd, res, func(r *ui.Renderer) { r.Ingest(res) })
}

func newDomainsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List the domains with stored pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			domains, err := a.svc.Domains(cmd.Context())
			if err != nil {
				return err
			}
			if g.jsonOutput {
				if domains == nil {
					domains = []string{}
				}
				return ui.WriteJSON(cmd.OutOrStdout(), domains)
			}
			for _, d := range domains {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}
}

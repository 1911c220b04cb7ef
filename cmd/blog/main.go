package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/docgen"
	"github.com/spf13/cobra"

	"github.com/MyNameIsWhaaat/blog/internal/config"
	"github.com/MyNameIsWhaaat/blog/internal/di"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "blog",
		Short:         "Blog API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a config file (yaml, json or toml)")

	load := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API, metrics endpoint and feed scheduler",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := load()
				if err != nil {
					return err
				}
				a, cleanup, err := di.InitializeApp(cfg)
				if err != nil {
					return err
				}
				defer cleanup()

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return a.Run(ctx)
			},
		},
		&cobra.Command{
			Use:   "ingest",
			Short: "Import configured RSS feeds once and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := load()
				if err != nil {
					return err
				}
				ing, cleanup, err := di.InitializeIngester(cfg)
				if err != nil {
					return err
				}
				defer cleanup()

				n, err := ing.Run(cmd.Context())
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d posts\n", n)
				return err
			},
		},
		&cobra.Command{
			Use:   "routes",
			Short: "Print the API route documentation as markdown",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := load()
				if err != nil {
					return err
				}
				cfg.DatabaseURL = ""
				cfg.RedisAddr = ""
				cfg.UploadDir = os.TempDir()
				cfg.LogLevel = "error"

				a, cleanup, err := di.InitializeApp(cfg)
				if err != nil {
					return err
				}
				defer cleanup()

				fmt.Fprintln(cmd.OutOrStdout(), docgen.MarkdownRoutesDoc(a.Router(), docgen.MarkdownOpts{
					ProjectPath: "github.com/MyNameIsWhaaat/blog",
					Intro:       "Routes served by the blog API.",
				}))
				return nil
			},
		},
	)

	return root
}

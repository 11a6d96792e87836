package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"seoscope/api"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "seoscope",
		Short:        "Crawl a website and produce a rule-based and AI-assisted SEO report",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newCrawlCmd(&configPath),
		newAnalyzeCmd(&configPath),
		newSavedCmd(&configPath),
	)
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, wireOptions{generation: true})
			if err != nil {
				return err
			}
			defer a.Close()

			server := api.NewServer(a.service, a.cfg.AppPort, a.logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				a.logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}
}

func newCrawlCmd(configPath *string) *cobra.Command {
	var (
		save      bool
		summarise bool
	)
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl a site and print the extracted pages as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, wireOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			pages, err := a.service.CrawlOnly(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var savedTo string
			if save {
				if savedTo, err = a.service.SaveCrawl(cmd.Context(), args[0], pages); err != nil {
					return err
				}
			}

			if summarise {
				return printJSON(cmd, api.CrawlResponse{Status: "success", PagesCrawled: len(pages), SavedTo: savedTo})
			}
			return printJSON(cmd, pages)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "persist the crawl to the crawl database")
	cmd.Flags().BoolVar(&summarise, "summary", false, "print only the page count and save location")
	return cmd
}

func newAnalyzeCmd(configPath *string) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Crawl a site and print the full SEO report as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, wireOptions{generation: true})
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.service.Analyze(cmd.Context(), args[0], query)
			if err != nil {
				a.logger.Error("analysis failed", zap.Error(err))
				return err
			}
			return printJSON(cmd, api.AnalyzeResponse{
				Status:       "success",
				PagesCrawled: rep.PagesAnalyzed,
				Report:       rep,
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "question to ask about the site (defaults to a full audit)")
	return cmd
}

func newSavedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "saved [domain]",
		Short: "List saved crawls, or print the saved crawl of a domain",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, wireOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if a.crawls == nil {
				return errors.New("crawl persistence is disabled (PERSIST_CRAWLS=false)")
			}
			if len(args) == 0 {
				domains, err := a.crawls.Domains(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, domains)
			}

			doc, err := a.crawls.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, doc)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

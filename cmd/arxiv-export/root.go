package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Epistemic-Technology/arxiv-export/arxiv"
	"github.com/Epistemic-Technology/arxiv-export/internal/cache"
	"github.com/Epistemic-Technology/arxiv-export/internal/config"
	"github.com/Epistemic-Technology/arxiv-export/internal/exporter"
	"github.com/Epistemic-Technology/arxiv-export/internal/logging"
	"github.com/Epistemic-Technology/arxiv-export/internal/shell"
)

// app holds the persistent flags and the state built from them before a
// command runs.
type app struct {
	configFile string
	logLevel   string
	logFormat  string
	noCache    bool

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "arxiv-export",
		Short: "Export arXiv search results as RIS, BibTeX or EndNote files",
		Long: `arxiv-export turns an arXiv search results URL into a citation file.

Run without a subcommand for the interactive prompts, or use the
subcommands for scripted exports:

  arxiv-export export --url 'https://arxiv.org/search/?query=diffusion&searchtype=title' -f bibtex -n 200
  arxiv-export count --url '...'
  arxiv-export translate --url '...' --output yaml

Settings come from config.yaml (working directory or
$XDG_CONFIG_HOME/arxiv-export), ARXIV_EXPORT_* environment variables and
a .env file.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Version:           Version,
		PersistentPreRunE: a.setup,
		RunE:              a.runShell,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default ./config.yaml or $XDG_CONFIG_HOME/arxiv-export/config.yaml)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: console or json")
	pf.BoolVar(&a.noCache, "no-cache", false, "bypass the response cache")

	root.AddCommand(
		a.newExportCmd(),
		a.newCountCmd(),
		a.newTranslateCmd(),
		a.newSearchCmd(),
		a.newCacheCmd(),
	)
	return root
}

// setup loads configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load(a.configFile, a.applyFlags)
	if err != nil {
		return usageError{err}
	}
	a.cfg = cfg

	logCfg := cfg.Log.Logging()
	logCfg.Output = cmd.ErrOrStderr()
	a.logger = logging.New(logCfg)
	return nil
}

// applyFlags lets persistent flags win over file and environment settings.
func (a *app) applyFlags(cfg *config.Config) {
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.noCache {
		cfg.Cache.Enabled = false
	}
}

// newClient builds the API client with logging and, when enabled, the
// response cache. The returned func releases the cache.
func (a *app) newClient(cmd *cobra.Command, extra ...arxiv.Interceptor) (*arxiv.Client, func()) {
	interceptors := []arxiv.Interceptor{arxiv.LoggingInterceptor(a.logger)}
	interceptors = append(interceptors, extra...)
	release := func() {}

	if a.cfg.Cache.Enabled {
		c, err := cache.Open(a.cfg.Cache.Path, cache.WithLogger(a.logger))
		if err != nil {
			a.logger.Warn().Err(err).Str("path", a.cfg.Cache.Path).Msg("cache unavailable, continuing without it")
		} else {
			if n, err := c.Purge(cmd.Context()); err == nil && n > 0 {
				a.logger.Debug().Int64("pages", n).Msg("purged expired cache pages")
			}
			interceptors = append(interceptors, c.Interceptor(a.cfg.API.BaseURL, a.cfg.Cache.TTL))
			release = func() { c.Close() }
		}
	}

	opts := append(a.cfg.API.ClientOptions(), arxiv.WithInterceptor(interceptors...))
	return arxiv.NewClient(opts...), release
}

func (a *app) newExporter(client *arxiv.Client) *exporter.Exporter {
	return exporter.New(client,
		exporter.WithPageSize(a.cfg.API.PageSize),
		exporter.WithMaxResults(a.cfg.Export.MaxResults),
		exporter.WithLogger(a.logger),
		exporter.WithClock(time.Now),
	)
}

func (a *app) runShell(cmd *cobra.Command, args []string) error {
	client, release := a.newClient(cmd)
	defer release()

	sh := shell.New(a.newExporter(client), cmd.InOrStdin(), cmd.OutOrStdout(),
		shell.WithDefaultDir(a.cfg.Export.OutputDir),
		shell.WithLogger(a.logger),
	)
	if err := sh.Run(cmd.Context()); err != nil {
		if errors.Is(err, shell.ErrAborted) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		}
		return reportedError{err}
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/autolysis/internal/analysis"
	"github.com/KaramelBytes/autolysis/internal/cluster"
	cfgpkg "github.com/KaramelBytes/autolysis/internal/config"
	"github.com/KaramelBytes/autolysis/internal/dataset"
	"github.com/KaramelBytes/autolysis/internal/logging"
	"github.com/KaramelBytes/autolysis/internal/narrative"
	"github.com/KaramelBytes/autolysis/internal/pipeline"
	"github.com/KaramelBytes/autolysis/internal/viz"
)

var (
	cfgFile string
	debug   bool
	// Overrides applied on top of the loaded configuration
	flagOutputDir        string
	flagModel            string
	flagProvider         string
	flagSheet            string
	flagLogFormat        string
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagBoxplots         bool
	flagHTML             bool

	// Loaded configuration
	cfg     *cfgpkg.Global
	cfgErr  error
	success = color.New(color.FgGreen).SprintFunc()
	warn    = color.New(color.FgYellow).SprintFunc()
	failure = color.New(color.FgRed).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "autolysis [flags] <dataset>",
	Short: "Profile a dataset, chart it and write an AI-narrated report",
	Long: `autolysis loads a CSV, TSV or XLSX file, profiles every column, renders the
charts each column's type calls for (plus a correlation heatmap and k-means
cluster view when there are enough numeric columns) and asks a language model
to narrate the findings. Everything lands in README.md inside the output
directory, which defaults to the dataset's file name without extension.`,
	Example: `  AIPROXY_TOKEN=... autolysis media.csv
  autolysis --provider ollama --model llama3.1:8b --html goodreads.csv`,
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	RunE:          runAnalysis,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, failure("✗ Error:"), err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ~/.autolysis/config.yaml)")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	pf.StringVar(&flagLogFormat, "log-format", "", "log format: text or json (overrides config)")

	f := rootCmd.Flags()
	f.StringVarP(&flagOutputDir, "output-dir", "o", "", "directory for charts and README.md (default: dataset file stem)")
	f.StringVar(&flagModel, "model", "", "model used for the narrative (overrides config)")
	f.StringVar(&flagProvider, "provider", "", "narrative provider: openai, anthropic or ollama (overrides config)")
	f.StringVar(&flagSheet, "sheet", "", "worksheet to read from an .xlsx file (default: first)")
	f.IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "narrative request timeout in seconds (overrides config)")
	f.IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max attempts for the narrative request on 429/5xx (overrides config)")
	f.BoolVar(&flagBoxplots, "boxplots", false, "also render a boxplot of all numeric columns")
	f.BoolVar(&flagHTML, "html", false, "also write README.html")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		cfg, cfgErr = nil, err
		return
	}
	cfg, cfgErr = c, nil

	// Apply CLI overrides if provided
	f := rootCmd.Flags()
	if f.Changed("model") && flagModel != "" {
		cfg.Model = flagModel
	}
	if f.Changed("provider") && flagProvider != "" {
		cfg.Provider = flagProvider
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("boxplots") {
		cfg.Boxplots = flagBoxplots
	}
	if f.Changed("html") {
		cfg.HTMLReport = flagHTML
	}
	if rootCmd.PersistentFlags().Changed("log-format") && flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
}

func newLogger(w io.Writer) *slog.Logger {
	level := "info"
	if debug {
		level = "debug"
	}
	format := "text"
	if cfg != nil && cfg.LogFormat != "" {
		format = cfg.LogFormat
	}
	return logging.New(logging.Config{Level: level, Format: format, Writer: w})
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	if cfgErr != nil {
		return fmt.Errorf("load config: %w", cfgErr)
	}
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}
	out := cmd.OutOrStdout()
	log := newLogger(cmd.ErrOrStderr())

	timeout := time.Duration(cfg.HTTPTimeoutSec) * time.Second
	clusterOpt := cluster.DefaultOptions()
	if cfg.ClusterK > 0 {
		clusterOpt.K = cfg.ClusterK
	}
	clusterOpt.Seed = cfg.ClusterSeed
	charts := viz.DefaultOptions()
	charts.Boxplots = cfg.Boxplots
	charts.Cluster = clusterOpt

	opt := pipeline.Options{
		DatasetPath: args[0],
		OutputDir:   flagOutputDir,
		Load:        dataset.LoadOptions{Sheet: flagSheet},
		Classify:    analysis.ClassifyOptions{MaxCategories: cfg.MaxCategories},
		Charts:      charts,
		HTML:        cfg.HTMLReport,
		Narrative: narrative.Config{
			Provider:    cfg.Provider,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			OllamaHost:  cfg.OllamaHost,
			Timeout:     timeout,
			RetryMax:    cfg.RetryMaxAttempts,
			BaseDelay:   time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
			MaxDelay:    time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		},
		Credential: func() (string, error) { return cfg.Credential(cfg.Provider) },
		Log:        log,
	}

	res, err := pipeline.Run(context.Background(), opt)
	if err != nil {
		return err
	}
	for _, d := range res.Diagnostics {
		fmt.Fprintf(out, "%s %s chart for %q skipped: %v\n", warn("⚠"), d.Kind, d.Column, d.Err)
	}
	if res.NarrativeErr != nil {
		fmt.Fprintf(out, "%s Narrative generation failed, placeholder used: %v\n", warn("⚠"), res.NarrativeErr)
	}
	if res.Truncated {
		fmt.Fprintf(out, "%s Analysis summary was truncated to fit %s's context window\n", warn("⚠"), cfg.Model)
	}
	fmt.Fprintf(out, "%s Analysis complete: %d charts, report at %s\n", success("✓"), len(res.Artifacts), res.ReportPath)
	if res.HTMLPath != "" {
		fmt.Fprintf(out, "%s HTML report at %s\n", success("✓"), res.HTMLPath)
	}
	return nil
}

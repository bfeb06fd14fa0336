package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/airframesio/parquet-compare/cmd/formatters"
	"github.com/airframesio/parquet-compare/cmd/tables"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Process exit codes
const (
	exitOK        = 0
	exitFailure   = 1
	exitCancelled = 130
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare the two latest snapshots of a table",
	Long: `Load the parameter record, list the snapshots stored under the table's schema
prefix in the destination bucket, and compare the two most recent ones: schema
parity always, and a random sample of settled rows when --compare-data is "true".`,
	Run: func(_ *cobra.Command, _ []string) {
		if code := runCompare(); code != exitOK {
			os.Exit(code)
		}
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)

	flags := compareCmd.Flags()
	flags.String("params-s3-uri", "", "URI of the JSON parameter record: s3://bucket/key, file://path or a local path (required)")
	flags.String("destination-s3-bucket", "", "bucket holding the table snapshots (required unless the run is skipped)")
	flags.String("compare-data", "false", "sample rows and compare data when set to \"true\"")

	flags.String("s3-endpoint", "", "S3-compatible endpoint URL (default: AWS)")
	flags.String("s3-region", "", "S3 region (default: from AWS config)")
	flags.String("s3-access-key", "", "S3 access key (default: AWS credential chain)")
	flags.String("s3-secret-key", "", "S3 secret key")

	flags.String("engine", tables.EngineNative, "table engine: native, duckdb")
	flags.Int("sample-size", defaultSampleSize, "maximum number of distinct keys to sample")
	flags.Int("lookback-days", defaultLookbackDays, "only sample rows older than this many days")

	flags.String("output-format", outputFormatText, "output format: text, json")
	flags.String("sample-format", formatters.FormatTable, "format for differing sample rows: table, csv, jsonl")
	flags.String("output-file", "", "output file path (default: stdout)")
	flags.String("temp-dir", "", "directory for downloaded snapshots (default: system temp dir)")
	flags.Bool("progress", false, "show a progress spinner on stderr")

	// Note: We don't use MarkFlagRequired because it checks before viper loads the config file.
	// Instead, validation happens in CompareConfig.Validate() and Comparer.Run().
	bindings := map[string]string{
		"params_s3_uri":         "params-s3-uri",
		"destination_s3_bucket": "destination-s3-bucket",
		"compare_data":          "compare-data",
		"s3.endpoint":           "s3-endpoint",
		"s3.region":             "s3-region",
		"s3.access_key":         "s3-access-key",
		"s3.secret_key":         "s3-secret-key",
		"engine":                "engine",
		"sample_size":           "sample-size",
		"lookback_days":         "lookback-days",
		"output_format":         "output-format",
		"sample_format":         "sample-format",
		"output_file":           "output-file",
		"temp_dir":              "temp-dir",
		"progress":              "progress",
	}
	for key, flag := range bindings {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

// loadCompareConfig reads the comparison settings from viper, which merges
// flags, config file and environment
func loadCompareConfig() *CompareConfig {
	return &CompareConfig{
		Debug:       viper.GetBool("debug"),
		LogFormat:   viper.GetString("log_format"),
		ParamsURI:   viper.GetString("params_s3_uri"),
		Bucket:      viper.GetString("destination_s3_bucket"),
		CompareData: viper.GetString("compare_data"),
		S3: S3Config{
			Endpoint:  viper.GetString("s3.endpoint"),
			Region:    viper.GetString("s3.region"),
			AccessKey: viper.GetString("s3.access_key"),
			SecretKey: viper.GetString("s3.secret_key"),
		},
		Engine:       viper.GetString("engine"),
		SampleSize:   viper.GetInt("sample_size"),
		LookbackDays: viper.GetInt("lookback_days"),
		OutputFormat: viper.GetString("output_format"),
		SampleFormat: viper.GetString("sample_format"),
		OutputFile:   viper.GetString("output_file"),
		TempDir:      viper.GetString("temp_dir"),
		Progress:     viper.GetBool("progress"),
	}
}

func runCompare() int {
	// Add panic recovery to catch any unexpected crashes
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n❌ PANIC: %v\n", r)
			os.Exit(exitFailure)
		}
	}()

	config := loadCompareConfig()
	initLogger(config.Debug, config.LogFormat)

	logger.Debug(fmt.Sprintf("🔍 Parquet Compare v%s", Version))

	logger.Debug("Validating configuration...")
	if err := config.Validate(); err != nil {
		logger.Error(fmt.Sprintf("❌ Configuration error: %s", err.Error()))
		return exitFailure
	}

	ctx := signalContext
	if ctx == nil {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
	}

	store, err := NewS3Store(config.S3)
	if err != nil {
		logger.Error(fmt.Sprintf("❌ %s", err.Error()))
		return exitFailure
	}

	source, err := tables.NewSource(ctx, config.Engine)
	if err != nil {
		logger.Error(fmt.Sprintf("❌ Failed to start %s engine: %s", config.Engine, err.Error()))
		return exitFailure
	}
	defer source.Close()

	var out io.Writer = os.Stdout
	if config.OutputFile != "" {
		file, err := os.Create(config.OutputFile)
		if err != nil {
			logger.Error(fmt.Sprintf("❌ Failed to create output file: %s", err.Error()))
			return exitFailure
		}
		defer file.Close()
		out = file
	}

	return executeCompare(ctx, config, store, source, out)
}

// executeCompare runs the comparison, writes the report and maps the
// outcome to a process exit code
func executeCompare(ctx context.Context, config *CompareConfig, store ObjectStore, source tables.Source, out io.Writer) int {
	reporter, err := NewReporter(config.OutputFormat, config.SampleFormat)
	if err != nil {
		logger.Error(fmt.Sprintf("❌ Configuration error: %s", err.Error()))
		return exitFailure
	}

	comparer := NewComparer(config, store, source, logger)

	var view *progressView
	if config.Progress {
		view = startProgressView(os.Stderr)
		comparer.OnStage(view.Stage)
	}

	result, err := comparer.Run(ctx)
	if view != nil {
		view.Stop()
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("⚠️  Comparison cancelled by user")
			return exitCancelled
		}
		if errors.Is(err, ErrConfiguration) {
			logger.Error(fmt.Sprintf("❌ Configuration error: %s", err.Error()))
			return exitFailure
		}
		logger.Error(fmt.Sprintf("❌ Comparison failed: %s", err.Error()))
		return exitFailure
	}

	if err := reporter.Write(out, result); err != nil {
		logger.Error(fmt.Sprintf("❌ Failed to write report: %s", err.Error()))
		return exitFailure
	}

	logger.Debug(fmt.Sprintf("✅ Comparison finished: %s", result.Kind))
	return exitOK
}

package cmd

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/airframesio/parquet-compare/cmd/formatters"
	"github.com/airframesio/parquet-compare/cmd/tables"
)

// ErrConfiguration is the parent of every configuration error
var ErrConfiguration = errors.New("configuration error")

// Static errors for configuration validation
var (
	ErrParamsURIRequired         = fmt.Errorf("%w: params S3 URI is required", ErrConfiguration)
	ErrParamsURIInvalid          = fmt.Errorf("%w: params URI must be s3://bucket/key, file://path or a local path", ErrConfiguration)
	ErrDestinationBucketRequired = fmt.Errorf("%w: destination S3 bucket is required", ErrConfiguration)
	ErrTableNameInvalid          = fmt.Errorf("%w: full table name must have the form catalog.schema.table", ErrConfiguration)
	ErrS3RegionInvalid           = fmt.Errorf("%w: S3 region contains invalid characters or is too long", ErrConfiguration)
	ErrS3CredentialsIncomplete   = fmt.Errorf("%w: S3 access key and secret key must be set together", ErrConfiguration)
	ErrEngineInvalid             = fmt.Errorf("%w: engine must be one of: native, duckdb", ErrConfiguration)
	ErrOutputFormatInvalid       = fmt.Errorf("%w: output format must be one of: text, json", ErrConfiguration)
	ErrSampleFormatInvalid       = fmt.Errorf("%w: sample format must be one of: table, csv, jsonl", ErrConfiguration)
	ErrSampleSizeInvalid         = fmt.Errorf("%w: sample size must be between 1 and 100000", ErrConfiguration)
	ErrLookbackDaysInvalid       = fmt.Errorf("%w: lookback days must be >= 0", ErrConfiguration)
	ErrLogFormatInvalid          = fmt.Errorf("%w: log format must be one of: text, logfmt, json", ErrConfiguration)
)

const (
	regionAuto = "auto"

	outputFormatText = "text"
	outputFormatJSON = "json"

	compareDataEnabled = "true"

	defaultSampleSize   = 1000
	maxSampleSize       = 100000
	defaultLookbackDays = 31
)

// CompareConfig holds everything a comparison run needs besides the
// parameter record itself
type CompareConfig struct {
	Debug        bool
	LogFormat    string
	ParamsURI    string
	Bucket       string
	CompareData  string // only the literal "true" enables sampling
	S3           S3Config
	Engine       string
	SampleSize   int
	LookbackDays int
	OutputFormat string
	SampleFormat string
	OutputFile   string
	TempDir      string
	Progress     bool
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
}

// SamplingEnabled reports whether the data sampler should run
func (c *CompareConfig) SamplingEnabled() bool {
	return c.CompareData == compareDataEnabled
}

var validRegion = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// isValidRegion validates that an S3 region is reasonable
func isValidRegion(region string) bool {
	if region == "" || len(region) > 50 {
		return false
	}
	return validRegion.MatchString(region)
}

func isValidEngine(engine string) bool {
	validEngines := map[string]bool{
		tables.EngineNative: true,
		tables.EngineDuckDB: true,
	}
	return validEngines[engine]
}

func isValidOutputFormat(format string) bool {
	return format == outputFormatText || format == outputFormatJSON
}

func isValidSampleFormat(format string) bool {
	validFormats := map[string]bool{
		formatters.FormatTable: true,
		formatters.FormatCSV:   true,
		formatters.FormatJSONL: true,
	}
	return validFormats[format]
}

func isValidLogFormat(format string) bool {
	validFormats := map[string]bool{
		"text":   true,
		"logfmt": true,
		"json":   true,
	}
	return validFormats[format]
}

// Validate checks the settings that can be verified before the parameter
// record is read. The destination bucket is checked later, since a skipped
// run never touches it.
func (c *CompareConfig) Validate() error {
	if c.ParamsURI == "" {
		return ErrParamsURIRequired
	}
	if _, err := ParseObjectURI(c.ParamsURI); err != nil {
		return err
	}

	if c.S3.Region != "" && c.S3.Region != regionAuto {
		if !isValidRegion(c.S3.Region) {
			return fmt.Errorf("%w: %s", ErrS3RegionInvalid, c.S3.Region)
		}
	}
	if (c.S3.AccessKey == "") != (c.S3.SecretKey == "") {
		return ErrS3CredentialsIncomplete
	}

	if !isValidEngine(c.Engine) {
		return fmt.Errorf("%w, got '%s'", ErrEngineInvalid, c.Engine)
	}

	if c.SampleSize < 1 || c.SampleSize > maxSampleSize {
		return fmt.Errorf("%w, got %d", ErrSampleSizeInvalid, c.SampleSize)
	}
	if c.LookbackDays < 0 {
		return fmt.Errorf("%w, got %d", ErrLookbackDaysInvalid, c.LookbackDays)
	}

	if !isValidOutputFormat(c.OutputFormat) {
		return fmt.Errorf("%w, got '%s'", ErrOutputFormatInvalid, c.OutputFormat)
	}
	if !isValidSampleFormat(c.SampleFormat) {
		return fmt.Errorf("%w, got '%s'", ErrSampleFormatInvalid, c.SampleFormat)
	}
	if c.LogFormat != "" && !isValidLogFormat(c.LogFormat) {
		return fmt.Errorf("%w, got '%s'", ErrLogFormatInvalid, c.LogFormat)
	}

	return nil
}

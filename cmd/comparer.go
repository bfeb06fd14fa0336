package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/airframesio/parquet-compare/cmd/tables"
)

// ResultKind tags how a comparison run ended
type ResultKind string

const (
	ResultSkipped          ResultKind = "skipped"
	ResultInsufficientData ResultKind = "insufficient_data"
	ResultCompleted        ResultKind = "completed"
)

// SkipPayload is emitted when the convergence file is disabled
type SkipPayload struct {
	ConvergenceS3URI string `json:"convergence_s3_uri"`
}

// Result is the outcome of Comparer.Run. Exactly one variant is populated:
// Skip for skipped runs, Message/ObjectCount when there were not enough
// snapshots, and the snapshot pair with its diffs when completed.
type Result struct {
	Kind ResultKind `json:"kind"`

	Skip *SkipPayload `json:"skip,omitempty"`

	Message     string `json:"message,omitempty"`
	ObjectCount int    `json:"object_count,omitempty"`

	Prefix     string      `json:"prefix,omitempty"`
	Newest     *Object     `json:"newest,omitempty"`
	Previous   *Object     `json:"previous,omitempty"`
	Schema     *SchemaDiff `json:"schema,omitempty"`
	SampleData *SampleDiff `json:"sample,omitempty"`
}

// Stage names a step of the comparison pipeline
type Stage string

const (
	StageLoadingParams Stage = "Loading parameters"
	StageListing       Stage = "Listing snapshots"
	StageDownloading   Stage = "Downloading snapshots"
	StageSchema        Stage = "Comparing schemas"
	StageSampling      Stage = "Sampling data"
)

// Comparer runs the snapshot comparison pipeline
type Comparer struct {
	config  *CompareConfig
	store   ObjectStore
	source  tables.Source
	logger  *slog.Logger
	now     func() time.Time
	onStage func(Stage)
}

// NewComparer creates a new Comparer instance
func NewComparer(config *CompareConfig, store ObjectStore, source tables.Source, logger *slog.Logger) *Comparer {
	return &Comparer{
		config:  config,
		store:   store,
		source:  source,
		logger:  logger,
		now:     time.Now,
		onStage: func(Stage) {},
	}
}

// WithClock overrides the time source used for the sampling cutoff
func (c *Comparer) WithClock(now func() time.Time) *Comparer {
	c.now = now
	return c
}

// OnStage registers a callback invoked when the pipeline enters a stage
func (c *Comparer) OnStage(fn func(Stage)) *Comparer {
	c.onStage = fn
	return c
}

func (c *Comparer) stage(s Stage) {
	c.logger.Debug(string(s) + "...")
	c.onStage(s)
}

// Run executes the comparison
func (c *Comparer) Run(ctx context.Context) (*Result, error) {
	c.stage(StageLoadingParams)
	if c.config.ParamsURI == "" {
		return nil, ErrParamsURIRequired
	}

	params, err := LoadParams(ctx, c.store, c.config.ParamsURI)
	if err != nil {
		return nil, err
	}
	c.logger.Debug(fmt.Sprintf("Parameters: org_id=%d table=%s save_convergence_file=%t",
		params.OrgID, params.FullTableName, params.SaveConvergenceFile))

	if !params.SaveConvergenceFile {
		c.logger.Info("Convergence file disabled, nothing to compare")
		return &Result{
			Kind: ResultSkipped,
			Skip: &SkipPayload{ConvergenceS3URI: ""},
		}, nil
	}

	if c.config.Bucket == "" {
		return nil, ErrDestinationBucketRequired
	}

	prefix, err := SchemaSegment(params.FullTableName)
	if err != nil {
		return nil, err
	}

	c.stage(StageListing)
	listing, err := c.store.ListObjects(ctx, c.config.Bucket, prefix)
	if err != nil {
		return nil, err
	}
	if listing.Truncated {
		c.logger.Warn(fmt.Sprintf("Listing of s3://%s/%s was truncated, only %d objects considered",
			c.config.Bucket, prefix, len(listing.Objects)))
	}

	newest, previous, ok := SelectLatest(listing.Objects)
	if !ok {
		msg := fmt.Sprintf("Only %d files found in the bucket for %s. Expected at least 2 files.", len(listing.Objects), prefix)
		c.logger.Warn(msg)
		return &Result{
			Kind:        ResultInsufficientData,
			Message:     msg,
			ObjectCount: len(listing.Objects),
			Prefix:      prefix,
		}, nil
	}
	c.logger.Info(fmt.Sprintf("Using %s and %s", newest.Key, previous.Key))

	result := &Result{
		Kind:     ResultCompleted,
		Prefix:   prefix,
		Newest:   &newest,
		Previous: &previous,
	}
	if err := c.compareSnapshots(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// compareSnapshots loads both selected snapshots and fills in the diffs
func (c *Comparer) compareSnapshots(ctx context.Context, result *Result) error {
	workDir, err := os.MkdirTemp(c.config.TempDir, "parquet-compare-*")
	if err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			c.logger.Warn(fmt.Sprintf("Failed to remove %s: %v", workDir, err))
		}
	}()

	loader := NewSnapshotLoader(c.store, c.source, workDir, c.logger)

	c.stage(StageDownloading)
	newTable, err := loader.Load(ctx, c.config.Bucket, *result.Newest)
	if err != nil {
		return err
	}
	defer newTable.Close()

	oldTable, err := loader.Load(ctx, c.config.Bucket, *result.Previous)
	if err != nil {
		return err
	}
	defer oldTable.Close()

	c.stage(StageSchema)
	schemaDiff, err := CompareSchemas(ctx, newTable, oldTable)
	if err != nil {
		return err
	}
	result.Schema = schemaDiff

	if !c.config.SamplingEnabled() {
		c.logger.Debug("Data comparison disabled")
		return nil
	}

	c.stage(StageSampling)
	cutoff := Cutoff(c.now(), c.config.LookbackDays)
	c.logger.Info(fmt.Sprintf("Comparing data until %s to avoid false positives.", cutoff.Format("2006-01-02")))

	sampleDiff, err := CompareSamples(ctx, newTable, oldTable, cutoff, c.config.SampleSize)
	if err != nil {
		return err
	}
	result.SampleData = sampleDiff
	return nil
}

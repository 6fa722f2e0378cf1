package activities

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/burqi/orderflow/internal/extract"
	"github.com/burqi/orderflow/internal/handoff"
	"github.com/burqi/orderflow/internal/pipeline"
	"github.com/burqi/orderflow/internal/stagingstore"
	"github.com/burqi/orderflow/internal/transform"
	"github.com/burqi/orderflow/internal/warehouse"
)

// Fetcher retrieves a dataset archive and expands it into local files.
type Fetcher interface {
	Fetch(ctx context.Context, dataset, destDir string) ([]string, error)
}

// Mirror archives raw source files to object storage.
type Mirror interface {
	Store(ctx context.Context, runID, path string) (string, error)
}

// Deps wires the pipeline backends into the activities.
type Deps struct {
	Fetcher     Fetcher
	Mirror      Mirror // optional
	Staging     stagingstore.Store
	Destination warehouse.Destination
	Rules       *transform.RuleSet
}

// Activities holds the five pipeline task entry points.
type Activities struct {
	deps Deps
}

// NewActivities creates an Activities instance over the given backends.
func NewActivities(deps Deps) *Activities {
	if deps.Rules == nil {
		deps.Rules = transform.DefaultRules()
	}
	return &Activities{deps: deps}
}

// =============================================================================
// TASK 1: DownloadDataset
// =============================================================================

// DownloadDataset fetches the dataset archive from the provider and
// expands it into the download directory.
func (a *Activities) DownloadDataset(ctx context.Context, req DownloadRequest) (*DownloadResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("downloading dataset", "runId", req.RunID, "dataset", req.Dataset)

	files, err := a.deps.Fetcher.Fetch(ctx, req.Dataset, req.DownloadDir)
	if err != nil {
		return nil, taskError(err)
	}

	var keys []string
	if a.deps.Mirror != nil {
		for _, file := range files {
			key, err := a.deps.Mirror.Store(ctx, req.RunID, file)
			if err != nil {
				// The mirror is an audit convenience, never fatal.
				logger.Warn("raw archive mirror failed", "file", file, "error", err)
				continue
			}
			keys = append(keys, key)
		}
	}

	logger.Info("download complete", "files", len(files))

	return &DownloadResult{Files: files, ArchiveKeys: keys}, nil
}

// =============================================================================
// TASK 2: ExtractRows
// =============================================================================

// ExtractRows parses the downloaded file into raw rows and stages them
// for the next task.
func (a *Activities) ExtractRows(ctx context.Context, req ExtractRequest) (*ExtractResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("extracting rows", "runId", req.RunID, "file", req.FilePath)

	rows, err := extract.ReadFile(req.FilePath)
	if err != nil {
		return nil, taskError(err)
	}

	recordsPath, err := handoff.StageJSON(rows, fmt.Sprintf("orderflow-raw-%s", req.RunID))
	if err != nil {
		return nil, fmt.Errorf("failed to stage rows: %w", err)
	}

	logger.Info("extraction complete", "rows", len(rows))

	return &ExtractResult{RecordsPath: recordsPath, RowCount: len(rows)}, nil
}

// =============================================================================
// TASK 3: LoadStaging
// =============================================================================

// LoadStaging appends extracted rows to the staging table, skipping order
// numbers that are already staged.
func (a *Activities) LoadStaging(ctx context.Context, req StageRequest) (*StageResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("loading staging", "runId", req.RunID)

	rows, err := handoff.LoadRawRows(req.RecordsPath)
	if err != nil {
		handoff.Cleanup(req.RecordsPath)
		return nil, fmt.Errorf("failed to load staged rows: %w", err)
	}

	inserted, err := stagingstore.Load(ctx, a.deps.Staging, rows)
	if err != nil {
		return nil, failTask(req.RecordsPath, err)
	}
	handoff.Cleanup(req.RecordsPath)

	logger.Info("staging load complete", "inserted", inserted, "skipped", len(rows)-inserted)

	return &StageResult{Inserted: inserted, Skipped: len(rows) - inserted}, nil
}

// =============================================================================
// TASK 4: TransformOrders
// =============================================================================

// TransformOrders reads the full staging contents, applies the cleaning
// rules, and stages the cleaned records for the final load.
func (a *Activities) TransformOrders(ctx context.Context, req TransformRequest) (*TransformResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("transforming staged rows", "runId", req.RunID)

	staged, err := a.deps.Staging.FetchAll(ctx)
	if err != nil {
		return nil, taskError(&pipeline.TransformError{
			Code:      pipeline.CodeStagingUnreadable,
			Retryable: retryableRead(err),
			Err:       fmt.Errorf("staging unreadable: %w", err),
		})
	}

	recs, err := transform.Clean(staged, a.deps.Rules)
	if err != nil {
		return nil, taskError(err)
	}

	recordsPath, err := handoff.StageJSON(recs, fmt.Sprintf("orderflow-clean-%s", req.RunID))
	if err != nil {
		return nil, fmt.Errorf("failed to stage cleaned records: %w", err)
	}

	logger.Info("transform complete", "rows", len(recs), "dropped", len(staged)-len(recs))

	return &TransformResult{
		RecordsPath: recordsPath,
		RowCount:    len(recs),
		Dropped:     len(staged) - len(recs),
	}, nil
}

// =============================================================================
// TASK 5: LoadDestination
// =============================================================================

// LoadDestination replaces the destination table contents with the
// cleaned records.
func (a *Activities) LoadDestination(ctx context.Context, req LoadRequest) (*LoadResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("loading destination", "runId", req.RunID)

	recs, err := handoff.LoadOrders(req.RecordsPath)
	if err != nil {
		handoff.Cleanup(req.RecordsPath)
		return nil, fmt.Errorf("failed to load cleaned records: %w", err)
	}

	if err := a.deps.Destination.Replace(ctx, recs); err != nil {
		return nil, failTask(req.RecordsPath, err)
	}
	handoff.Cleanup(req.RecordsPath)

	logger.Info("destination load complete", "rows", len(recs))

	return &LoadResult{RowCount: len(recs)}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// taskError converts a pipeline error into a typed application error so
// the scheduler's run history shows the error kind per task, and so
// non-retryable failures stop the retry policy immediately. The chain is
// walked outermost-first: a kind that wraps another kind keeps its own
// name, since the outer kind is the one the failing task raised.
func taskError(err error) error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch kind := e.(type) {
		case *pipeline.FetchError:
			return appError("FetchError", kind.Retryable, err)
		case *pipeline.ParseError:
			return appError("ParseError", false, err)
		case *pipeline.LoadError:
			return appError("LoadError", kind.Retryable, err)
		case *pipeline.TransformError:
			return appError("TransformError", kind.Retryable, err)
		}
	}
	return err
}

// failTask converts err for the scheduler and, when the failure will not
// be retried, removes the handoff file no retry will read again.
func failTask(recordsPath string, err error) error {
	converted := taskError(err)
	var appErr *temporal.ApplicationError
	if errors.As(converted, &appErr) && appErr.NonRetryable() {
		handoff.Cleanup(recordsPath)
	}
	return converted
}

// retryableRead reports whether a staging read failure is transient.
func retryableRead(err error) bool {
	var loadErr *pipeline.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Retryable
	}
	return false
}

func appError(kind string, retryable bool, err error) error {
	if !retryable {
		return temporal.NewNonRetryableApplicationError(err.Error(), kind, err)
	}
	return temporal.NewApplicationErrorWithCause(err.Error(), kind, err)
}

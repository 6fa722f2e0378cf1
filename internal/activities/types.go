// Package activities implements the pipeline's Temporal activities: the
// five task entry points the scheduler sequences per run.
package activities

// DownloadRequest is the input for DownloadDataset.
type DownloadRequest struct {
	RunID       string `json:"runId"`
	Dataset     string `json:"dataset"`
	DownloadDir string `json:"downloadDir"`
}

// DownloadResult reports the expanded local files and, when the raw
// mirror is configured, the archived object keys.
type DownloadResult struct {
	Files       []string `json:"files"`
	ArchiveKeys []string `json:"archiveKeys,omitempty"`
}

// ExtractRequest is the input for ExtractRows.
type ExtractRequest struct {
	RunID    string `json:"runId"`
	FilePath string `json:"filePath"`
}

// ExtractResult points at the handoff file holding the parsed raw rows.
type ExtractResult struct {
	RecordsPath string `json:"recordsPath"`
	RowCount    int    `json:"rowCount"`
}

// StageRequest is the input for LoadStaging.
type StageRequest struct {
	RunID       string `json:"runId"`
	RecordsPath string `json:"recordsPath"`
}

// StageResult reports how many rows were appended vs. skipped as
// already-staged duplicates.
type StageResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// TransformRequest is the input for TransformOrders.
type TransformRequest struct {
	RunID string `json:"runId"`
}

// TransformResult points at the handoff file holding the cleaned records.
type TransformResult struct {
	RecordsPath string `json:"recordsPath"`
	RowCount    int    `json:"rowCount"`
	Dropped     int    `json:"dropped"`
}

// LoadRequest is the input for LoadDestination.
type LoadRequest struct {
	RunID       string `json:"runId"`
	RecordsPath string `json:"recordsPath"`
}

// LoadResult reports the destination row count after the replace.
type LoadResult struct {
	RowCount int `json:"rowCount"`
}

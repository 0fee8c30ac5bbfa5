package types

import "time"

// SearchMode selects which parts of a record a search looks at
type SearchMode string

const (
	ModeMetadata SearchMode = "metadata" // indexed fields via the full-text index
	ModeContent  SearchMode = "content"  // line scan over record bodies
	ModeBoth     SearchMode = "both"
)

// ValidSearchMode reports whether m is a known mode
func ValidSearchMode(m SearchMode) bool {
	switch m {
	case ModeMetadata, ModeContent, ModeBoth:
		return true
	}
	return false
}

// ContentMatch is one matching line found by content search
type ContentMatch struct {
	Line    int      `json:"line"`
	Column  int      `json:"column"`
	Text    string   `json:"text"`
	Terms   []string `json:"terms"`
	Context []string `json:"context,omitempty"`
}

// ScoredRecord is a record annotated with its relevance score
type ScoredRecord struct {
	Record  *Record        `json:"record"`
	Score   float64        `json:"score"`
	Matches []ContentMatch `json:"matches,omitempty"`
}

// SearchResult is the ranked output of a search
type SearchResult struct {
	Results       []ScoredRecord `json:"results"`
	TotalCount    int            `json:"totalCount"`
	ExecutionTime time.Duration  `json:"executionTime"`
	Mode          SearchMode     `json:"mode"`
	CacheHit      bool           `json:"cacheHit,omitempty"`
}

// SyncResult reports the outcome of reconciling one file
type SyncResult struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
}

// Add accumulates another result into r
func (r *SyncResult) Add(o SyncResult) {
	r.Added += o.Added
	r.Updated += o.Updated
	r.Unchanged += o.Unchanged
	r.Removed += o.Removed
}

// ItemError records the failure of a single item in a batch
type ItemError struct {
	Index    int    `json:"index"`
	Identity string `json:"identity"`
	Message  string `json:"message"`
}

// IngestResult reports a batch ingestion
type IngestResult struct {
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Errors    []ItemError `json:"errors,omitempty"`
}

// FileError records the failure of a single file during reconciliation
type FileError struct {
	FilePath string `json:"filePath"`
	Message  string `json:"message"`
}

// DeepSyncResult aggregates the per-file results of a full reconciliation
type DeepSyncResult struct {
	Files int `json:"files"`
	SyncResult
	Errors   []FileError   `json:"errors,omitempty"`
	Duration time.Duration `json:"duration"`
}

// CleanupResult reports a bulk cleanup of deleted files
type CleanupResult struct {
	FilesScanned   int      `json:"filesScanned"`
	FilesRemoved   int      `json:"filesRemoved"`
	RecordsRemoved int      `json:"recordsRemoved"`
	RemovedFiles   []string `json:"removedFiles,omitempty"`
}

// IndexStats reports a directory indexing run
type IndexStats struct {
	FilesIndexed    int           `json:"filesIndexed"`
	FilesSkipped    int           `json:"filesSkipped"`
	FilesFailed     int           `json:"filesFailed"`
	FilesRemoved    int           `json:"filesRemoved"`
	EntitiesIndexed int           `json:"entitiesIndexed"`
	Changes         SyncResult    `json:"changes"`
	Duration        time.Duration `json:"duration"`
	ErrorMessages   []string      `json:"errorMessages,omitempty"`
}

package model

// Error markers recorded on a Row when a file's pipeline fails.
const (
	ErrMarkerRead      = "read_error"
	ErrMarkerFormat    = "format_error"
	ErrMarkerMalformed = "malformed_score"
)

// Row is one corpus file's result. Values is keyed by metric name and
// is nil when Err is set.
type Row struct {
	Path     string             `json:"path"`
	Values   map[string]float64 `json:"values,omitempty"`
	Warnings int                `json:"warnings"`
	Err      string             `json:"error,omitempty"`
}

// ResultSet is the batch runner's output: one Row per input file, in
// input order regardless of completion order.
type ResultSet struct {
	RunID   string   `json:"run_id"`
	Metrics []string `json:"metrics"`
	Rows    []Row    `json:"rows"`
}

// ScoreMetadata is optional per-file metadata fetched from the
// metadata store.
type ScoreMetadata struct {
	Artist  string `json:"artist"`
	Title   string `json:"title"`
	Release string `json:"release"`
	Year    uint   `json:"year"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}

package models

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Script document formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Script is a named, persisted action document. The raw document is
// stored as written; only the forward parse is contractual, so nothing
// is re-serialized from parsed Actions.
type Script struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Format      string    `json:"format"`
	Document    []byte    `json:"document"`
	Delay       int       `json:"delay,omitempty"` // seconds between actions during playback
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Actions parses the stored document according to its format.
func (s *Script) Actions() ([]Action, error) {
	switch s.Format {
	case FormatJSON:
		return ParseJSON(s.Document)
	case FormatYAML:
		return ParseYAML(s.Document)
	default:
		return nil, errors.Errorf("unknown script format: %s", s.Format)
	}
}

func (s *Script) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

func (s *Script) FromJSON(data []byte) error {
	return json.Unmarshal(data, s)
}

// Execution statuses.
const (
	ExecutionSucceeded = "succeeded"
	ExecutionFailed    = "failed"
)

// ScriptExecution records one playback of a stored script.
type ScriptExecution struct {
	ID         string    `json:"id"`
	ScriptID   string    `json:"script_id"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// DownloadedFile describes a completed file in the download directory.
type DownloadedFile struct {
	FileName     string    `json:"file_name"`
	FilePath     string    `json:"file_path"`
	MimeType     string    `json:"mime_type,omitempty"`
	Size         int64     `json:"size"`
	DownloadTime time.Time `json:"download_time"`
}

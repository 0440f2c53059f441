package domain

import "time"

// BuildInfo records the fingerprints of the last successful build of one output artifact.
type BuildInfo struct {
	Key          string    `json:"key,omitzero"`
	InputHash    string    `json:"input_hash,omitzero"`
	OutputHash   string    `json:"output_hash,omitzero"`
	MetadataHash string    `json:"metadata_hash,omitzero"`
	ClassCount   int       `json:"class_count,omitzero"`
	Timestamp    time.Time `json:"timestamp,omitzero"`
}

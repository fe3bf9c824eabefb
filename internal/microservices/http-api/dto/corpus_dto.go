package dto

import "time"

type RevisionResponse struct {
	Version    int64     `json:"version"`
	Checksum   string    `json:"checksum"`
	Categories int       `json:"categories"`
	Templates  int       `json:"templates"`
	SizeBytes  int       `json:"size_bytes"`
	Malformed  bool      `json:"malformed"`
	CreatedAt  time.Time `json:"created_at"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	Subscribers   int    `json:"subscribers"`
	CorpusVersion int64  `json:"corpus_version"`
}

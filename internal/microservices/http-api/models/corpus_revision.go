package models

import "time"

// CorpusRevision records one published version of the death text corpus.
type CorpusRevision struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Version    int64     `gorm:"not null;uniqueIndex" json:"version"`
	Checksum   string    `gorm:"size:64;not null" json:"checksum"` // sha256 of the raw source
	Categories int       `gorm:"not null" json:"categories"`
	Templates  int       `gorm:"not null" json:"templates"`
	SizeBytes  int       `gorm:"not null" json:"size_bytes"`
	Malformed  bool      `gorm:"default:false" json:"malformed"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (CorpusRevision) TableName() string {
	return "corpus_revisions"
}

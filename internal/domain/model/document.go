package model

import "time"

// Document is a generated resume artifact persisted for download.
// Data holds the rendered bytes; ExpiresAt bounds how long the download URL
// stays valid before the sweeper removes the row.
type Document struct {
	ID          string    `json:"id"           db:"id"`
	JobID       string    `json:"job_id"       db:"job_id"`
	TemplateID  string    `json:"template_id"  db:"template_id"`
	FileName    string    `json:"file_name"    db:"file_name"`
	ContentType string    `json:"content_type" db:"content_type"`
	Data        []byte    `json:"-"            db:"data"`
	FileSize    int64     `json:"file_size"    db:"file_size"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"   db:"expires_at"`
}

// Expired reports whether the document is past its download window.
func (d *Document) Expired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}

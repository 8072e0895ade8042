package domain

import "time"

// ImageReference points at a promotional image previously uploaded through
// the transport. The newest UploadedAt wins; older rows are kept.
type ImageReference struct {
	FileID     string    `bson:"file_id" json:"file_id"`
	UploadedBy int64     `bson:"uploaded_by" json:"uploaded_by"`
	UploadedAt time.Time `bson:"uploaded_at" json:"uploaded_at"`
}

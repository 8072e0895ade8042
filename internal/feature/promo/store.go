// Package promo keeps the promotional coffee image shown with the donation
// message.
package promo

import (
	"context"
	"time"
)

// Upload describes a newly received admin photo.
type Upload struct {
	FileID     string
	UploadedBy int64
	UploadedAt time.Time
}

// Image is the current promotional image. Either FileID (a transport handle)
// or Data (local bytes) is set.
type Image struct {
	FileID   string `json:"file_id,omitempty"`
	Filename string `json:"filename,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// Store persists uploads and resolves the image to attach to donation
// messages. Latest reports false when nothing was ever uploaded.
type Store interface {
	Save(ctx context.Context, upload Upload) error
	Latest(ctx context.Context) (Image, bool, error)
}

var (
	_ Store = (*ReferenceStore)(nil)
	_ Store = (*FileStore)(nil)
	_ Store = (*CachedStore)(nil)
)

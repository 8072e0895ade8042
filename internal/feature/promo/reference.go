package promo

import (
	"context"
	"errors"
	"fmt"

	"coffee_bot/internal/domain"
)

type imageRepository interface {
	Insert(ctx context.Context, ref domain.ImageReference) (domain.ImageReference, error)
	Latest(ctx context.Context) (domain.ImageReference, error)
}

// ReferenceStore keeps transport file handles in MongoDB. Every upload is
// kept; the newest one wins.
type ReferenceStore struct {
	images imageRepository
}

// NewReferenceStore constructs a ReferenceStore.
func NewReferenceStore(images imageRepository) *ReferenceStore {
	return &ReferenceStore{images: images}
}

func (s *ReferenceStore) Save(ctx context.Context, upload Upload) error {
	if s == nil || s.images == nil {
		return errors.New("reference store is not initialized")
	}

	_, err := s.images.Insert(ctx, domain.ImageReference{
		FileID:     upload.FileID,
		UploadedBy: upload.UploadedBy,
		UploadedAt: upload.UploadedAt,
	})
	if err != nil {
		return fmt.Errorf("save image reference: %w", err)
	}

	return nil
}

func (s *ReferenceStore) Latest(ctx context.Context) (Image, bool, error) {
	if s == nil || s.images == nil {
		return Image{}, false, errors.New("reference store is not initialized")
	}

	ref, err := s.images.Latest(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Image{}, false, nil
		}
		return Image{}, false, fmt.Errorf("latest image reference: %w", err)
	}

	return Image{FileID: ref.FileID}, true, nil
}

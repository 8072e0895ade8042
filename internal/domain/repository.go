package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when a lookup matches no document.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when an insert collides with the unique
	// user_id index.
	ErrAlreadyExists = errors.New("already exists")
)

type userCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// UserRepository persists and retrieves user records in MongoDB.
type UserRepository struct {
	collection userCollection
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(collection userCollection) *UserRepository {
	return &UserRepository{collection: collection}
}

// Create inserts a new user record. Missing timestamps are filled with the
// current time, keeping first_seen and last_active equal on insert.
func (r *UserRepository) Create(ctx context.Context, user User) (User, error) {
	if r == nil || r.collection == nil {
		return User{}, errors.New("user repository is not initialized")
	}
	if ctx == nil {
		return User{}, errors.New("context is required")
	}
	if user.UserID == 0 {
		return User{}, errors.New("user_id is required")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if user.FirstSeen.IsZero() {
		user.FirstSeen = now
	}
	if user.LastActive.IsZero() {
		user.LastActive = user.FirstSeen
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = user.FirstSeen
	}
	user.UpdatedAt = user.CreatedAt

	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return User{}, fmt.Errorf("insert user %d: %w", user.UserID, ErrAlreadyExists)
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

// GetByID fetches a user by Telegram user_id. It returns ErrNotFound when the
// user has never been tracked.
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (User, error) {
	if r == nil || r.collection == nil {
		return User{}, errors.New("user repository is not initialized")
	}
	if ctx == nil {
		return User{}, errors.New("context is required")
	}
	if userID == 0 {
		return User{}, errors.New("user_id is required")
	}

	result := r.collection.FindOne(ctx, bson.M{"user_id": userID})
	if result == nil {
		return User{}, errors.New("find user returned no result")
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, fmt.Errorf("find user %d: %w", userID, ErrNotFound)
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}

	var user User
	if err := result.Decode(&user); err != nil {
		return User{}, fmt.Errorf("decode user: %w", err)
	}

	return user, nil
}

// Update writes the mutable profile fields and counters of an existing user.
// user_id, first_seen, is_bot and created_at are never touched.
func (r *UserRepository) Update(ctx context.Context, user User) error {
	if r == nil || r.collection == nil {
		return errors.New("user repository is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if user.UserID == 0 {
		return errors.New("user_id is required")
	}

	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"user_id": user.UserID},
		bson.M{"$set": bson.M{
			"username":           user.Username,
			"first_name":         user.FirstName,
			"last_name":          user.LastName,
			"language_code":      user.LanguageCode,
			"is_premium":         user.IsPremium,
			"last_active":        user.LastActive,
			"total_interactions": user.TotalInteractions,
			"donate_views":       user.DonateViews,
			"updated_at":         user.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if result != nil && result.MatchedCount == 0 {
		return fmt.Errorf("update user %d: %w", user.UserID, ErrNotFound)
	}

	return nil
}

// Count returns the number of tracked users.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	if r == nil || r.collection == nil {
		return 0, errors.New("user repository is not initialized")
	}
	if ctx == nil {
		return 0, errors.New("context is required")
	}

	count, err := r.collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return count, nil
}

// ListNewestFirst returns up to limit users ordered by first_seen descending,
// skipping the first skip records.
func (r *UserRepository) ListNewestFirst(ctx context.Context, skip, limit int64) ([]User, error) {
	if r == nil || r.collection == nil {
		return nil, errors.New("user repository is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if skip < 0 || limit <= 0 {
		return nil, fmt.Errorf("invalid window skip=%d limit=%d", skip, limit)
	}

	cursor, err := r.collection.Find(ctx, bson.D{},
		options.Find().
			SetSort(bson.D{{Key: "first_seen", Value: -1}}).
			SetSkip(skip).
			SetLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	users := make([]User, 0, limit)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	return users, nil
}

type imageCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
}

// ImageRepository persists coffee image references in MongoDB.
type ImageRepository struct {
	collection imageCollection
}

// NewImageRepository constructs an ImageRepository.
func NewImageRepository(collection imageCollection) *ImageRepository {
	return &ImageRepository{collection: collection}
}

// Insert appends a new image reference.
func (r *ImageRepository) Insert(ctx context.Context, ref ImageReference) (ImageReference, error) {
	if r == nil || r.collection == nil {
		return ImageReference{}, errors.New("image repository is not initialized")
	}
	if ctx == nil {
		return ImageReference{}, errors.New("context is required")
	}
	if strings.TrimSpace(ref.FileID) == "" {
		return ImageReference{}, errors.New("file_id is required")
	}
	if ref.UploadedAt.IsZero() {
		ref.UploadedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	if _, err := r.collection.InsertOne(ctx, ref); err != nil {
		return ImageReference{}, fmt.Errorf("insert image reference: %w", err)
	}

	return ref, nil
}

// Latest returns the most recently uploaded reference, or ErrNotFound when no
// image was ever uploaded.
func (r *ImageRepository) Latest(ctx context.Context) (ImageReference, error) {
	if r == nil || r.collection == nil {
		return ImageReference{}, errors.New("image repository is not initialized")
	}
	if ctx == nil {
		return ImageReference{}, errors.New("context is required")
	}

	result := r.collection.FindOne(ctx, bson.D{},
		options.FindOne().SetSort(bson.D{{Key: "uploaded_at", Value: -1}}),
	)
	if result == nil {
		return ImageReference{}, errors.New("find image reference returned no result")
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ImageReference{}, fmt.Errorf("latest image reference: %w", ErrNotFound)
		}
		return ImageReference{}, fmt.Errorf("find image reference: %w", err)
	}

	var ref ImageReference
	if err := result.Decode(&ref); err != nil {
		return ImageReference{}, fmt.Errorf("decode image reference: %w", err)
	}

	return ref, nil
}

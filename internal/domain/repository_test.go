package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestUserRepositoryCreateAndGet(t *testing.T) {
	coll := newFakeUserCollection(t)
	repo := NewUserRepository(coll)

	ctx := context.Background()
	input := User{
		UserID:            111,
		Username:          "coffee_fan",
		FirstName:         "Ada",
		IsPremium:         true,
		TotalInteractions: 1,
	}

	created, err := repo.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if created.FirstSeen.IsZero() || !created.FirstSeen.Equal(created.LastActive) {
		t.Fatalf("expected first_seen == last_active on insert, got %v and %v", created.FirstSeen, created.LastActive)
	}
	if !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("expected created_at and updated_at to match on insert, got %v and %v", created.CreatedAt, created.UpdatedAt)
	}

	doc := coll.docFor(t, input.UserID)
	assertIntField(t, doc, "user_id", input.UserID)
	assertIntField(t, doc, "total_interactions", 1)
	assertIntField(t, doc, "donate_views", 0)
	assertStringField(t, doc, "username", "coffee_fan")
	assertTimeFieldSet(t, doc, "first_seen")
	assertTimeFieldSet(t, doc, "last_active")

	found, err := repo.GetByID(ctx, input.UserID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}

	if found.UserID != input.UserID || found.Username != input.Username || !found.IsPremium {
		t.Fatalf("unexpected user returned: %+v", found)
	}
	if !found.FirstSeen.Equal(created.FirstSeen) {
		t.Fatalf("expected first_seen %v, got %v", created.FirstSeen, found.FirstSeen)
	}
}

func TestUserRepositoryGetByIDNotFound(t *testing.T) {
	repo := NewUserRepository(newFakeUserCollection(t))

	_, err := repo.GetByID(context.Background(), 404)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepositoryCreateMapsDuplicateKey(t *testing.T) {
	coll := newFakeUserCollection(t)
	coll.insertErr = mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "duplicate key"}}}
	repo := NewUserRepository(coll)

	_, err := repo.Create(context.Background(), User{UserID: 5})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestUserRepositoryUpdateKeepsImmutableFields(t *testing.T) {
	coll := newFakeUserCollection(t)
	repo := NewUserRepository(coll)
	ctx := context.Background()

	firstSeen := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	created, err := repo.Create(ctx, User{UserID: 77, IsBot: true, FirstSeen: firstSeen, TotalInteractions: 1})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	updated := created
	updated.Username = "renamed"
	updated.FirstSeen = time.Now()
	updated.IsBot = false
	updated.LastActive = firstSeen.Add(time.Hour)
	updated.TotalInteractions = 2
	updated.DonateViews = 1

	if err := repo.Update(ctx, updated); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	call := coll.updateCalls[0]
	setDoc := call.update.(bson.M)["$set"].(bson.M)
	for _, immutable := range []string{"user_id", "first_seen", "is_bot", "created_at"} {
		if _, ok := setDoc[immutable]; ok {
			t.Fatalf("expected %s to be excluded from update, got %v", immutable, setDoc)
		}
	}

	found, err := repo.GetByID(ctx, 77)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if !found.FirstSeen.Equal(firstSeen) || !found.IsBot {
		t.Fatalf("expected first_seen and is_bot untouched, got %+v", found)
	}
	if found.Username != "renamed" || found.TotalInteractions != 2 || found.DonateViews != 1 {
		t.Fatalf("expected mutable fields updated, got %+v", found)
	}
}

func TestUserRepositoryUpdateMissingUser(t *testing.T) {
	repo := NewUserRepository(newFakeUserCollection(t))

	err := repo.Update(context.Background(), User{UserID: 9})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepositoryListNewestFirstPages(t *testing.T) {
	coll := newFakeUserCollection(t)
	repo := NewUserRepository(coll)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 25; i++ {
		if _, err := repo.Create(ctx, User{UserID: i, FirstSeen: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	count, err := repo.Count(ctx)
	if err != nil || count != 25 {
		t.Fatalf("expected 25 users, got %d (err=%v)", count, err)
	}

	page, err := repo.ListNewestFirst(ctx, 20, 20)
	if err != nil {
		t.Fatalf("ListNewestFirst returned error: %v", err)
	}
	if len(page) != 5 {
		t.Fatalf("expected 5 users on second page, got %d", len(page))
	}
	if page[0].UserID != 5 || page[4].UserID != 1 {
		t.Fatalf("expected users 5..1 newest first, got first=%d last=%d", page[0].UserID, page[4].UserID)
	}

	empty, err := repo.ListNewestFirst(ctx, 40, 20)
	if err != nil {
		t.Fatalf("ListNewestFirst returned error: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no users past the end, got %d", len(empty))
	}

	if _, err := repo.ListNewestFirst(ctx, -1, 20); err == nil {
		t.Fatalf("expected negative skip to error")
	}
}

func TestImageRepositoryLatestWins(t *testing.T) {
	coll := &fakeImageCollection{}
	repo := NewImageRepository(coll)
	ctx := context.Background()

	if _, err := repo.Latest(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty collection, got %v", err)
	}

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	uploads := []ImageReference{
		{FileID: "old", UploadedBy: 1, UploadedAt: base},
		{FileID: "newest", UploadedBy: 2, UploadedAt: base.Add(2 * time.Hour)},
		{FileID: "middle", UploadedBy: 3, UploadedAt: base.Add(time.Hour)},
	}
	for _, ref := range uploads {
		if _, err := repo.Insert(ctx, ref); err != nil {
			t.Fatalf("Insert returned error: %v", err)
		}
	}

	latest, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if latest.FileID != "newest" || latest.UploadedBy != 2 {
		t.Fatalf("expected newest reference, got %+v", latest)
	}
	if len(coll.docs) != 3 {
		t.Fatalf("expected history to be kept, got %d docs", len(coll.docs))
	}
}

func TestImageRepositoryInsertValidates(t *testing.T) {
	repo := NewImageRepository(&fakeImageCollection{})

	if _, err := repo.Insert(context.Background(), ImageReference{FileID: "  "}); err == nil {
		t.Fatalf("expected blank file id to error")
	}

	var nilRepo *ImageRepository
	if _, err := nilRepo.Latest(context.Background()); err == nil {
		t.Fatalf("expected nil repository to error")
	}
}

type updateCall struct {
	filter interface{}
	update interface{}
}

type fakeUserCollection struct {
	t           *testing.T
	docs        map[int64]bson.M
	insertErr   error
	updateCalls []updateCall
}

func newFakeUserCollection(t *testing.T) *fakeUserCollection {
	t.Helper()
	return &fakeUserCollection{
		t:    t,
		docs: make(map[int64]bson.M),
	}
}

func (f *fakeUserCollection) InsertOne(_ context.Context, document interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}

	doc := marshalDoc(f.t, document)
	userID, ok := doc["user_id"].(int64)
	if !ok {
		return nil, fmt.Errorf("missing user_id in %v", doc)
	}

	f.docs[userID] = doc
	return &mongo.InsertOneResult{InsertedID: userID}, nil
}

func (f *fakeUserCollection) FindOne(_ context.Context, filter interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
	filterDoc, ok := filter.(bson.M)
	if !ok {
		return mongo.NewSingleResultFromDocument(nil, fmt.Errorf("unexpected filter type %T", filter), nil)
	}

	doc, found := f.docs[filterDoc["user_id"].(int64)]
	if !found {
		return mongo.NewSingleResultFromDocument(nil, mongo.ErrNoDocuments, nil)
	}

	return mongo.NewSingleResultFromDocument(doc, nil, nil)
}

func (f *fakeUserCollection) UpdateOne(_ context.Context, filter interface{}, update interface{}, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	f.updateCalls = append(f.updateCalls, updateCall{filter: filter, update: update})

	userID := filter.(bson.M)["user_id"].(int64)
	doc, found := f.docs[userID]
	if !found {
		return &mongo.UpdateResult{}, nil
	}

	setDoc := marshalDoc(f.t, update.(bson.M)["$set"])
	for k, v := range setDoc {
		doc[k] = v
	}

	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (f *fakeUserCollection) Find(_ context.Context, _ interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	docs := make([]bson.M, 0, len(f.docs))
	for _, doc := range f.docs {
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		return parseTime(f.t, docs[i]["first_seen"]).After(parseTime(f.t, docs[j]["first_seen"]))
	})

	var skip, limit int64
	if len(opts) > 0 && opts[0] != nil {
		if opts[0].Skip != nil {
			skip = *opts[0].Skip
		}
		if opts[0].Limit != nil {
			limit = *opts[0].Limit
		}
	}

	out := make([]interface{}, 0)
	for i := skip; i < int64(len(docs)) && (limit == 0 || i < skip+limit); i++ {
		out = append(out, docs[i])
	}

	return mongo.NewCursorFromDocuments(out, nil, nil)
}

func (f *fakeUserCollection) CountDocuments(context.Context, interface{}, ...*options.CountOptions) (int64, error) {
	return int64(len(f.docs)), nil
}

func (f *fakeUserCollection) docFor(t *testing.T, userID int64) bson.M {
	t.Helper()

	doc, ok := f.docs[userID]
	if !ok {
		t.Fatalf("no document stored for user_id=%d", userID)
	}

	return doc
}

type fakeImageCollection struct {
	docs []bson.M
}

func (f *fakeImageCollection) InsertOne(_ context.Context, document interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	raw, err := bson.Marshal(document)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	f.docs = append(f.docs, doc)
	return &mongo.InsertOneResult{InsertedID: len(f.docs)}, nil
}

func (f *fakeImageCollection) FindOne(_ context.Context, _ interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
	if len(f.docs) == 0 {
		return mongo.NewSingleResultFromDocument(nil, mongo.ErrNoDocuments, nil)
	}

	latest := f.docs[0]
	for _, doc := range f.docs[1:] {
		if doc["uploaded_at"].(primitive.DateTime) > latest["uploaded_at"].(primitive.DateTime) {
			latest = doc
		}
	}

	return mongo.NewSingleResultFromDocument(latest, nil, nil)
}

func marshalDoc(t *testing.T, document interface{}) bson.M {
	t.Helper()

	raw, err := bson.Marshal(document)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	return out
}

func assertStringField(t *testing.T, doc bson.M, field, expected string) {
	t.Helper()
	value, ok := doc[field]
	if !ok {
		t.Fatalf("expected %s field to be set", field)
	}
	if value != expected {
		t.Fatalf("expected %s=%s, got %v", field, expected, value)
	}
}

func assertIntField(t *testing.T, doc bson.M, field string, expected int64) {
	t.Helper()
	value, ok := doc[field]
	if !ok {
		t.Fatalf("expected %s field to be set", field)
	}

	intVal, ok := value.(int64)
	if !ok {
		t.Fatalf("expected %s to be int64, got %T", field, value)
	}

	if intVal != expected {
		t.Fatalf("expected %s=%d, got %d", field, expected, intVal)
	}
}

func assertTimeFieldSet(t *testing.T, doc bson.M, field string) {
	t.Helper()
	value, ok := doc[field]
	if !ok {
		t.Fatalf("expected %s field to be set", field)
	}

	parsed := parseTime(t, value)
	if parsed.IsZero() {
		t.Fatalf("expected %s to be non-zero", field)
	}
}

func parseTime(t *testing.T, value interface{}) time.Time {
	t.Helper()

	switch v := value.(type) {
	case primitive.DateTime:
		return v.Time()
	case time.Time:
		return v
	default:
		t.Fatalf("expected time value, got %T", value)
		return time.Time{}
	}
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type statsCollection interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
}

// Stats is the aggregate snapshot rendered by the admin /stats command.
type Stats struct {
	TotalUsers   int64
	NewToday     int64
	NewThisWeek  int64
	PremiumUsers int64
	DonateViews  int64
	GeneratedAt  time.Time
}

// StatsProvider computes aggregate user statistics without leaking MongoDB
// internals to callers.
type StatsProvider struct {
	users statsCollection
}

// NewStatsProvider constructs a StatsProvider backed by the users collection.
func NewStatsProvider(users statsCollection) *StatsProvider {
	return &StatsProvider{users: users}
}

// Collect gathers the statistics relative to now. "Today" starts at local
// midnight of now's location; "this week" is the trailing seven days.
func (p *StatsProvider) Collect(ctx context.Context, now time.Time) (Stats, error) {
	if ctx == nil {
		return Stats{}, errors.New("context is required")
	}
	if p == nil || p.users == nil {
		return Stats{}, errors.New("stats provider is not initialized")
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -7)

	stats := Stats{GeneratedAt: now}

	counts := []struct {
		name   string
		filter bson.M
		dst    *int64
	}{
		{name: "total users", filter: bson.M{}, dst: &stats.TotalUsers},
		{name: "new users today", filter: bson.M{"first_seen": bson.M{"$gte": midnight}}, dst: &stats.NewToday},
		{name: "new users this week", filter: bson.M{"first_seen": bson.M{"$gte": weekAgo}}, dst: &stats.NewThisWeek},
		{name: "premium users", filter: bson.M{"is_premium": true}, dst: &stats.PremiumUsers},
	}

	for _, c := range counts {
		count, err := p.users.CountDocuments(ctx, c.filter)
		if err != nil {
			return Stats{}, fmt.Errorf("count %s: %w", c.name, err)
		}
		*c.dst = count
	}

	views, err := p.sumDonateViews(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.DonateViews = views

	return stats, nil
}

func (p *StatsProvider) sumDonateViews(ctx context.Context) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$donate_views"}}},
		}}},
	}

	cursor, err := p.users.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("aggregate donate views: %w", err)
	}

	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("decode donate views: %w", err)
	}

	// No users means no group row.
	if len(rows) == 0 {
		return 0, nil
	}

	return rows[0].Total, nil
}

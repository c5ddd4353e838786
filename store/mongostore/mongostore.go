// Package mongostore implements the persistence interfaces on MongoDB, the
// platform's document database. Points use server-side arithmetic so
// concurrent deltas never lose updates; badge awards use a conditional push
// so at most one award per user persists under concurrent evaluation.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vaifllc/youyesyou-core/moderation"
	"github.com/vaifllc/youyesyou-core/store"
)

const (
	collUsers   = "users"
	collContent = "content"
	collBadges  = "badges"
)

type MongoStore struct {
	db *mongo.Database
}

var _ store.Store = (*MongoStore)(nil)

func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	opts := options.Client().ApplyURI(uri).SetMaxPoolSize(20)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}
	return &MongoStore{db: client.Database(dbName)}, nil
}

func (s *MongoStore) users() *mongo.Collection   { return s.db.Collection(collUsers) }
func (s *MongoStore) content() *mongo.Collection { return s.db.Collection(collContent) }
func (s *MongoStore) badges() *mongo.Collection  { return s.db.Collection(collBadges) }

func (s *MongoStore) GetUser(ctx context.Context, id string) (*store.User, error) {
	var u store.User
	err := s.users().FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *MongoStore) PutUser(ctx context.Context, u *store.User) error {
	if u.ID == "" {
		u.ID = primitive.NewObjectID().Hex()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	opts := options.Replace().SetUpsert(true)
	_, err := s.users().ReplaceOne(ctx, bson.M{"_id": u.ID}, u, opts)
	return err
}

// AddPoints applies the delta server-side relative to the persisted value,
// clamping at zero, and appends the history entry in the same update.
func (s *MongoStore) AddPoints(ctx context.Context, id string, delta int, entry store.PointsEntry) (int, error) {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"points": bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{"$points", delta}}}},
			"pointsHistory": bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$pointsHistory", bson.A{}}},
				bson.A{bson.M{"$literal": entry}},
			}},
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u store.User
	err := s.users().FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, store.ErrNotFound
	} else if err != nil {
		return 0, err
	}
	return u.Points, nil
}

// SetLevel matches on the points total the level was derived from, so a
// write racing a concurrent delta silently loses to the fresher one.
func (s *MongoStore) SetLevel(ctx context.Context, id string, level string, forPoints int) error {
	_, err := s.users().UpdateOne(ctx,
		bson.M{"_id": id, "points": forPoints},
		bson.M{"$set": bson.M{"level": level}},
	)
	return err
}

func (s *MongoStore) AddWarning(ctx context.Context, id string, w store.Warning) error {
	return s.updateUser(ctx, id, bson.M{"$push": bson.M{"warnings": w}})
}

func (s *MongoStore) SetWarnings(ctx context.Context, id string, ws []store.Warning) error {
	return s.updateUser(ctx, id, bson.M{"$set": bson.M{"warnings": ws}})
}

func (s *MongoStore) AppendAchievement(ctx context.Context, id string, a store.Achievement) error {
	return s.updateUser(ctx, id, bson.M{"$push": bson.M{"achievements": a}})
}

func (s *MongoStore) IncrementStat(ctx context.Context, id string, stat string, delta int) error {
	switch stat {
	case store.StatPosts, store.StatComments, store.StatCourses, store.StatEvents:
	default:
		return fmt.Errorf("unknown stat field: %s", stat)
	}
	return s.updateUser(ctx, id, bson.M{"$inc": bson.M{"stats." + stat: delta}})
}

func (s *MongoStore) SetLoginStats(ctx context.Context, id string, day string, streak, longest int) error {
	return s.updateUser(ctx, id, bson.M{"$set": bson.M{
		"stats.lastLoginDay":  day,
		"stats.loginStreak":   streak,
		"stats.longestStreak": longest,
	}})
}

func (s *MongoStore) updateUser(ctx context.Context, id string, update interface{}) error {
	res, err := s.users().UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateContent(ctx context.Context, c *store.Content) error {
	if c.ID == "" {
		c.ID = primitive.NewObjectID().Hex()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.content().InsertOne(ctx, c)
	return err
}

func (s *MongoStore) GetContent(ctx context.Context, id string) (*store.Content, error) {
	var c store.Content
	err := s.content().FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *MongoStore) SetModeration(ctx context.Context, id string, body string, rec moderation.Record) error {
	res, err := s.content().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"body":       body,
		"moderation": rec,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateBadge(ctx context.Context, b *store.Badge) error {
	if b.ID == "" {
		b.ID = primitive.NewObjectID().Hex()
	}
	_, err := s.badges().InsertOne(ctx, b)
	return err
}

func (s *MongoStore) GetBadge(ctx context.Context, id string) (*store.Badge, error) {
	var b store.Badge
	err := s.badges().FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *MongoStore) ListActiveBadges(ctx context.Context) ([]*store.Badge, error) {
	cur, err := s.badges().Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*store.Badge
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddEarner pushes the award only when the user is absent from the earned
// set. Matching on both _id and the negated membership makes the write
// conditional server-side, so concurrent attempts cannot double-award.
func (s *MongoStore) AddEarner(ctx context.Context, badgeID, userID string, at time.Time) (bool, error) {
	earner := store.BadgeEarner{UserID: userID, EarnedAt: at}
	res, err := s.badges().UpdateOne(ctx,
		bson.M{"_id": badgeID, "earnedBy.user": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"earnedBy": earner}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	// matched nothing: either already earned, or no such badge
	n, err := s.badges().CountDocuments(ctx, bson.M{"_id": badgeID})
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, store.ErrNotFound
	}
	return false, nil
}

package tokenstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var _ Store = (*MongoStore)(nil)

const tokenColl = "refresh_tokens"

type mongoToken struct {
	Token     string    `bson:"token"`
	UserID    string    `bson:"userId"`
	ExpiresAt time.Time `bson:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt"`
}

// MongoStore expires documents through a TTL index on expiresAt. The TTL
// monitor runs about once a minute, so reads also filter on expiry.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(tokenColl)}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	if err != nil {
		return unavailable("ensure indexes", err)
	}
	return nil
}

func (s *MongoStore) Save(ctx context.Context, userID, token string, expiresAt time.Time) error {
	doc := mongoToken{Token: HashToken(token), UserID: userID, ExpiresAt: expiresAt.UTC(), CreatedAt: time.Now().UTC()}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return unavailable("save", err)
	}
	return nil
}

func (s *MongoStore) FindByToken(ctx context.Context, token string) (*Record, error) {
	var doc mongoToken
	filter := bson.D{
		{Key: "token", Value: HashToken(token)},
		{Key: "expiresAt", Value: bson.D{{Key: "$gt", Value: time.Now().UTC()}}},
	}
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("find", err)
	}
	return &Record{TokenHash: doc.Token, UserID: doc.UserID, ExpiresAt: doc.ExpiresAt, CreatedAt: doc.CreatedAt}, nil
}

func (s *MongoStore) DeleteByToken(ctx context.Context, token string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "token", Value: HashToken(token)}})
	if err != nil {
		return false, unavailable("delete", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) DeleteAllForUser(ctx context.Context, userID string) error {
	if _, err := s.coll.DeleteMany(ctx, bson.D{{Key: "userId", Value: userID}}); err != nil {
		return unavailable("delete all", err)
	}
	return nil
}

// Rotate rewrites the old document in place. Only one caller can match
// the old hash, and a failed update leaves the old session untouched.
func (s *MongoStore) Rotate(ctx context.Context, oldToken, userID, newToken string, expiresAt time.Time) (bool, error) {
	filter := bson.D{
		{Key: "token", Value: HashToken(oldToken)},
		{Key: "userId", Value: userID},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "token", Value: HashToken(newToken)},
		{Key: "expiresAt", Value: expiresAt.UTC()},
		{Key: "createdAt", Value: time.Now().UTC()},
	}}}
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, unavailable("rotate", err)
	}
	return res.MatchedCount == 1, nil
}

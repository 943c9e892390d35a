package source

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps one document per place in a collection.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) Load(ctx context.Context, place string) (*Entry, error) {
	e := &Entry{}
	err := s.coll.FindOne(ctx, bson.M{"place": place}).Decode(e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *MongoStore) Save(ctx context.Context, e *Entry) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"place": e.Place}, e, options.Replace().SetUpsert(true))
	return err
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cyrogem/nodedialogue/pkg/asset"
)

// Mongo defaults.
const (
	DefaultMongoDatabase   = "nodedialogue"
	DefaultMongoCollection = "dialogues"
)

// MongoConfig configures [DialMongoStore].
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MongoStore keeps one document per dialogue, keyed by name.
type MongoStore struct {
	client *mongo.Client // set when the store dialed it
	coll   *mongo.Collection
}

// mongoDialogue is the stored document.
type mongoDialogue struct {
	Name      string      `bson:"_id"`
	Asset     asset.Asset `bson:"asset"`
	UpdatedAt time.Time   `bson:"updatedAt"`
}

// DialMongoStore connects to cfg.URI and pings the primary.
func DialMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Database == "" {
		cfg.Database = DefaultMongoDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultMongoCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	s := NewMongoStore(client.Database(cfg.Database).Collection(cfg.Collection))
	s.client = client
	return s, nil
}

// NewMongoStore wraps an existing collection. Close leaves its client
// connected.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) Kind() string { return "mongo" }

func (s *MongoStore) Create(ctx context.Context, name string, a *asset.Asset) (bool, error) {
	_, err := s.coll.InsertOne(ctx, mongoDialogue{Name: name, Asset: *a, UpdatedAt: time.Now().UTC()})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("mongo insert: %w", err)
	}
	return true, nil
}

func (s *MongoStore) Put(ctx context.Context, name string, a *asset.Asset) error {
	doc := mongoDialogue{Name: name, Asset: *a, UpdatedAt: time.Now().UTC()}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": name}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo replace: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, name string) (*asset.Asset, error) {
	var doc mongoDialogue
	err := s.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	return &doc.Asset, nil
}

func (s *MongoStore) List(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	defer cur.Close(ctx)

	var names []string
	for cur.Next(ctx) {
		var row struct {
			Name string `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("mongo decode: %w", err)
		}
		names = append(names, row.Name)
	}
	return names, cur.Err()
}

func (s *MongoStore) Delete(ctx context.Context, name string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return fmt.Errorf("mongo delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return notFound(name)
	}
	return nil
}

func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Backend = (*MongoStore)(nil)

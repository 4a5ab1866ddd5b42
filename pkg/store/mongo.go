package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/network"
)

// Collection is the default collection for research records.
const Collection = "research"

// MongoOptions configures a MongoStore.
type MongoOptions struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // default "netlens"
	Collection string // default "research"
}

// MongoStore keeps records in a MongoDB collection, keyed by _id = record id.
// Records are stored as the relaxed extended-JSON form of their wire JSON, so
// node attributes netlens does not model survive a round trip.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if opts.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "mongo URI is required")
	}
	if opts.Database == "" {
		opts.Database = "netlens"
	}
	if opts.Collection == "" {
		opts.Collection = Collection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongo")
	}
	return &MongoStore{client: client, coll: client.Database(opts.Database).Collection(opts.Collection)}, nil
}

// NewMongoStoreFromCollection wraps an existing collection. Close does not
// disconnect the caller's client.
func NewMongoStoreFromCollection(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) Get(ctx context.Context, id string) (*network.Research, error) {
	if err := errors.ValidateID(id); err != nil {
		return nil, err
	}
	raw, err := s.coll.FindOne(ctx, bson.M{"_id": id}).Raw()
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound(id)
		}
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "find research %s", id)
	}
	return fromDocument(raw)
}

func (s *MongoStore) Put(ctx context.Context, r *network.Research) error {
	if err := prepare(r); err != nil {
		return err
	}
	doc, err := toDocument(r)
	if err != nil {
		return err
	}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": r.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "save research %s", r.ID)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context) ([]*network.Research, error) {
	cur, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "list research")
	}
	defer cur.Close(ctx)

	var out []*network.Research
	for cur.Next(ctx) {
		r, err := fromDocument(cur.Current)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "list research")
	}
	sortNewest(out)
	return out, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "delete research %s", id)
	}
	return nil
}

func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

// =============================================================================
// Document Conversion
// =============================================================================

func toDocument(r *network.Research) (bson.D, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal research: %w", err)
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "convert research %s", r.ID)
	}
	return append(bson.D{{Key: "_id", Value: r.ID}}, doc...), nil
}

func fromDocument(raw bson.Raw) (*network.Research, error) {
	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "convert research document")
	}
	var r network.Research
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse research document")
	}
	return &r, nil
}

var _ Store = (*MongoStore)(nil)

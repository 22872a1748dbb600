package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/moltis-ai/moltis/internal/llm/model"
)

const (
	defaultMessagesCollection = "session_messages"
	defaultMetadataCollection = "session_metadata"
	defaultOpTimeout          = 5 * time.Second
)

// MongoOptions configures the Mongo-backed Store.
type MongoOptions struct {
	Client             *mongodriver.Client
	Database           string
	MessagesCollection string
	MetadataCollection string
	Timeout            time.Duration
}

// MongoStore persists one document per message, keyed by session key and a
// monotonically increasing sequence number, plus a metadata index document
// per session (label, model, message count, timestamps).
type MongoStore struct {
	messages *mongodriver.Collection
	metadata *mongodriver.Collection
	timeout  time.Duration

	keyLocks sync.Map // session key -> *sync.Mutex, serializes Append/ReplaceHistory per key
}

func (s *MongoStore) lockFor(key string) *sync.Mutex {
	v, _ := s.keyLocks.LoadOrStore(key, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// NewMongoStore constructs a MongoStore and ensures its indexes exist.
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if opts.Client == nil {
		return nil, errors.New("sessionstore: mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("sessionstore: database name is required")
	}
	messagesCollection := opts.MessagesCollection
	if messagesCollection == "" {
		messagesCollection = defaultMessagesCollection
	}
	metadataCollection := opts.MetadataCollection
	if metadataCollection == "" {
		metadataCollection = defaultMetadataCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}

	db := opts.Client.Database(opts.Database)
	s := &MongoStore{
		messages: db.Collection(messagesCollection),
		metadata: db.Collection(metadataCollection),
		timeout:  timeout,
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	messageIndex := mongodriver.IndexModel{
		Keys:    bson.D{{Key: "session_key", Value: 1}, {Key: "seq", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := s.messages.Indexes().CreateOne(ctx, messageIndex); err != nil {
		return fmt.Errorf("sessionstore: create message index: %w", err)
	}
	metadataIndex := mongodriver.IndexModel{
		Keys:    bson.D{{Key: "session_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := s.metadata.Indexes().CreateOne(ctx, metadataIndex); err != nil {
		return fmt.Errorf("sessionstore: create metadata index: %w", err)
	}
	return nil
}

type messageDocument struct {
	SessionKey string `bson:"session_key"`
	Seq        int64  `bson:"seq"`
	Payload    []byte `bson:"payload"`
}

func (s *MongoStore) Append(ctx context.Context, key string, msg *model.Message) error {
	payload, err := msg.MarshalJSON()
	if err != nil {
		return fmt.Errorf("sessionstore: encode message: %w", err)
	}

	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	seq, err := s.nextSeq(ctx, key)
	if err != nil {
		return err
	}
	doc := messageDocument{SessionKey: key, Seq: seq, Payload: payload}
	if _, err := s.messages.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("sessionstore: insert message: %w", err)
	}
	return s.bumpMetadata(ctx, key)
}

func (s *MongoStore) nextSeq(ctx context.Context, key string) (int64, error) {
	n, err := s.messages.CountDocuments(ctx, bson.M{"session_key": key})
	if err != nil {
		return 0, fmt.Errorf("sessionstore: count messages: %w", err)
	}
	return n, nil
}

func (s *MongoStore) Read(ctx context.Context, key string) ([]*model.Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.messages.Find(ctx, bson.M{"session_key": key}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("sessionstore: find messages: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []*model.Message
	for cur.Next(ctx) {
		var doc messageDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("sessionstore: decode message: %w", err)
		}
		var msg model.Message
		if err := msg.UnmarshalJSON(doc.Payload); err != nil {
			return nil, fmt.Errorf("sessionstore: decode payload: %w", err)
		}
		out = append(out, &msg)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("sessionstore: cursor: %w", err)
	}
	return out, nil
}

func (s *MongoStore) Count(ctx context.Context, key string) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := s.messages.CountDocuments(ctx, bson.M{"session_key": key})
	if err != nil {
		return 0, fmt.Errorf("sessionstore: count messages: %w", err)
	}
	return int(n), nil
}

func (s *MongoStore) Clear(ctx context.Context, key string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.messages.DeleteMany(ctx, bson.M{"session_key": key}); err != nil {
		return fmt.Errorf("sessionstore: delete messages: %w", err)
	}
	if _, err := s.metadata.DeleteOne(ctx, bson.M{"session_key": key}); err != nil && !errors.Is(err, mongodriver.ErrNoDocuments) {
		return fmt.Errorf("sessionstore: delete metadata: %w", err)
	}
	return nil
}

func (s *MongoStore) ReplaceHistory(ctx context.Context, key string, msgs []*model.Message) error {
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.messages.DeleteMany(ctx, bson.M{"session_key": key}); err != nil {
		return fmt.Errorf("sessionstore: delete messages: %w", err)
	}
	if len(msgs) == 0 {
		return s.bumpMetadata(ctx, key)
	}
	docs := make([]any, len(msgs))
	for i, msg := range msgs {
		payload, err := msg.MarshalJSON()
		if err != nil {
			return fmt.Errorf("sessionstore: encode message: %w", err)
		}
		docs[i] = messageDocument{SessionKey: key, Seq: int64(i), Payload: payload}
	}
	if _, err := s.messages.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("sessionstore: insert messages: %w", err)
	}
	return s.bumpMetadata(ctx, key)
}

func (s *MongoStore) bumpMetadata(ctx context.Context, key string) error {
	count, err := s.messages.CountDocuments(ctx, bson.M{"session_key": key})
	if err != nil {
		return fmt.Errorf("sessionstore: count messages: %w", err)
	}
	now := time.Now().UTC()
	filter := bson.M{"session_key": key}
	update := bson.M{
		"$set": bson.M{
			"message_count": count,
			"updated_at_ms": now.UnixMilli(),
		},
		"$setOnInsert": bson.M{
			"session_key":   key,
			"created_at_ms": now.UnixMilli(),
		},
	}
	_, err = s.metadata.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("sessionstore: upsert metadata: %w", err)
	}
	return nil
}

type metadataDocument struct {
	SessionKey   string `bson:"session_key"`
	Label        string `bson:"label,omitempty"`
	Model        string `bson:"model,omitempty"`
	Provider     string `bson:"provider,omitempty"`
	MessageCount int64  `bson:"message_count"`
	CreatedAtMs  int64  `bson:"created_at_ms"`
	UpdatedAtMs  int64  `bson:"updated_at_ms"`
}

func (s *MongoStore) UpsertMetadata(ctx context.Context, meta Metadata) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"session_key": meta.Key}
	update := bson.M{
		"$set": bson.M{
			"label":    meta.Label,
			"model":    meta.Model,
			"provider": meta.Provider,
		},
	}
	_, err := s.metadata.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("sessionstore: upsert metadata: %w", err)
	}
	return nil
}

func (s *MongoStore) LoadMetadata(ctx context.Context, key string) (Metadata, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var doc metadataDocument
	err := s.metadata.FindOne(ctx, bson.M{"session_key": key}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return Metadata{}, false, nil
	}
	if err != nil {
		return Metadata{}, false, fmt.Errorf("sessionstore: load metadata: %w", err)
	}
	return Metadata{
		Key:          doc.SessionKey,
		Label:        doc.Label,
		Model:        doc.Model,
		Provider:     doc.Provider,
		MessageCount: int(doc.MessageCount),
		CreatedAtMs:  doc.CreatedAtMs,
		UpdatedAtMs:  doc.UpdatedAtMs,
	}, true, nil
}

var _ Store = (*MongoStore)(nil)
var _ MetadataStore = (*MongoStore)(nil)

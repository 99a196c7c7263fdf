package docstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect dials MongoDB at the given URI and verifies the connection with a
// ping. The returned client is shared by all stores built on top of it; the
// caller owns it and must Disconnect it on shutdown.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("docstore: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("docstore: ping: %w", err)
	}
	return client, nil
}

// splitNamespace parses a "database.collection" namespace string. When the
// namespace carries no database part, fallbackDB is used.
func splitNamespace(ns, fallbackDB string) (db, coll string, err error) {
	parts := strings.SplitN(ns, ".", 2)
	switch {
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		return parts[0], parts[1], nil
	case len(parts) == 1 && parts[0] != "" && fallbackDB != "":
		return fallbackDB, parts[0], nil
	default:
		return "", "", fmt.Errorf("docstore: invalid namespace %q — want \"database.collection\"", ns)
	}
}

// MongoLog is a ConversationLog backed by a MongoDB collection.
type MongoLog struct {
	// client is the shared connection; not owned, Close does not disconnect it.
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoLog builds a conversation log over the given client. The namespace
// is "database.collection"; fallbackDB fills the database part when the
// namespace carries only a collection name.
func NewMongoLog(client *mongo.Client, namespace, fallbackDB string) (*MongoLog, error) {
	db, coll, err := splitNamespace(namespace, fallbackDB)
	if err != nil {
		return nil, err
	}
	return &MongoLog{client: client, coll: client.Database(db).Collection(coll)}, nil
}

// Insert persists a single log record.
func (l *MongoLog) Insert(ctx context.Context, rec LogRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, err := l.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("docstore: insert log: %w", err)
	}
	return nil
}

// Close is a no-op: the underlying client is shared and owned by the caller.
func (l *MongoLog) Close(ctx context.Context) error {
	return nil
}

// MongoMerchants is a MerchantStore backed by a MongoDB collection.
type MongoMerchants struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoMerchants builds a merchant store over the given client. Namespace
// semantics match NewMongoLog.
func NewMongoMerchants(client *mongo.Client, namespace, fallbackDB string) (*MongoMerchants, error) {
	db, coll, err := splitNamespace(namespace, fallbackDB)
	if err != nil {
		return nil, err
	}
	return &MongoMerchants{client: client, coll: client.Database(db).Collection(coll)}, nil
}

// ReplaceAll deletes every existing merchant record, then inserts the batch.
// Deletion only happens once the batch has been validated as non-empty, so a
// bad source file cannot wipe the collection.
func (m *MongoMerchants) ReplaceAll(ctx context.Context, recs []MerchantRecord) error {
	if len(recs) == 0 {
		return fmt.Errorf("docstore: replace merchants: empty batch")
	}

	if _, err := m.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("docstore: clear merchants: %w", err)
	}

	docs := make([]interface{}, len(recs))
	for i, r := range recs {
		docs[i] = r
	}
	if _, err := m.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("docstore: insert merchants: %w", err)
	}
	return nil
}

// Search returns records whose name, code, or type match the query,
// case-insensitively. An empty query returns the full record set.
func (m *MongoMerchants) Search(ctx context.Context, query string) ([]MerchantRecord, error) {
	filter := bson.M{}
	if query != "" {
		rx := bson.M{"$regex": query, "$options": "i"}
		filter = bson.M{"$or": bson.A{
			bson.M{"name": rx},
			bson.M{"mcc": rx},
			bson.M{"type": rx},
		}}
	}

	cur, err := m.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("docstore: search merchants: %w", err)
	}
	defer cur.Close(ctx)

	var recs []MerchantRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("docstore: decode merchants: %w", err)
	}
	return recs, nil
}

// Close is a no-op: the underlying client is shared and owned by the caller.
func (m *MongoMerchants) Close(ctx context.Context) error {
	return nil
}

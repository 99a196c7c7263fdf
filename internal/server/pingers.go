package server

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
// It satisfies the Pinger interface and is used by GET /api/ready.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
// Returns nil if Qdrant is reachable, or a descriptive error otherwise.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	_, err := p.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// MongoPinger probes a MongoDB deployment with a primary-preferred ping.
// It satisfies the Pinger interface and is used by GET /api/ready.
type MongoPinger struct {
	// client is the shared Mongo client to probe.
	client *mongo.Client
}

// NewMongoPinger constructs a MongoPinger for the given client.
func NewMongoPinger(client *mongo.Client) *MongoPinger {
	return &MongoPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *MongoPinger) Name() string { return "mongodb" }

// Ping issues a ping against the primary.
// Returns nil if MongoDB is reachable, or a descriptive error otherwise.
func (p *MongoPinger) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

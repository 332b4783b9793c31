package mongodb

import (
	"context"
	"log/slog"

	"github.com/shiptrack-platform/tracking-service/pkg/resilience"
	"go.mongodb.org/mongo-driver/mongo"
)

// GuardedClient wraps Client with circuit breaker protection for transaction
// and health-check calls. Plain collection reads and writes go through the
// driver's own pool; the guard covers the operations that touch the primary.
type GuardedClient struct {
	client         *Client
	circuitBreaker *resilience.CircuitBreaker
}

// NewGuardedClient creates a circuit breaker protected MongoDB client
func NewGuardedClient(client *Client, logger *slog.Logger) *GuardedClient {
	config := resilience.DefaultCircuitBreakerConfig("mongodb")
	return &GuardedClient{
		client:         client,
		circuitBreaker: resilience.NewCircuitBreaker(config, logger),
	}
}

// Database returns the underlying database handle
func (g *GuardedClient) Database() *mongo.Database {
	return g.client.Database()
}

// Collection returns a collection handle
func (g *GuardedClient) Collection(name string) *mongo.Collection {
	return g.client.Collection(name)
}

// Close disconnects the client
func (g *GuardedClient) Close(ctx context.Context) error {
	return g.client.Close(ctx)
}

// HealthCheck performs a health check with circuit breaker protection
func (g *GuardedClient) HealthCheck(ctx context.Context) error {
	_, err := g.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return nil, g.client.HealthCheck(ctx)
	})
	return err
}

// WithTransaction executes a function within a transaction with circuit
// breaker protection
func (g *GuardedClient) WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error {
	_, err := g.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return nil, g.client.WithTransaction(ctx, fn)
	})
	return err
}

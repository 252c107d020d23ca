package storefront

import (
	"context"
	"fmt"

	"github.com/RobertEarleCodes/Scrittle/internal/cart"
	"github.com/RobertEarleCodes/Scrittle/pkg/database"
)

// OpenCart returns the cart store for the configured backend. The returned
// close function releases any connection it opened.
func OpenCart(ctx context.Context, cfg *Config) (*cart.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.CartBackend {
	case CartBackendMemory:
		return cart.NewStore(cart.NewMemoryBlob()), noop, nil
	case CartBackendRedis:
		client, err := database.NewRedisClient(ctx, cfg.RedisConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("open redis cart: %w", err)
		}
		return cart.NewStore(cart.NewRedisBlob(client, cfg.CartRedisKey)), client.Close, nil
	default:
		return cart.NewStore(cart.NewFileBlob(cfg.CartPath())), noop, nil
	}
}

package store

import (
	"context"
	"strings"
)

// NewStore builds a postgres-backed repository when databaseURL is set,
// otherwise the in-memory fallback — absence of the optional DATABASE_URL
// disables durability rather than failing startup, per spec §6.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}

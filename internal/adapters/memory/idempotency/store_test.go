package idempotency_test

import (
	"testing"

	"github.com/groupventure/booking-api/internal/adapters/contracttest"
	memidempotency "github.com/groupventure/booking-api/internal/adapters/memory/idempotency"
	idempotencyport "github.com/groupventure/booking-api/internal/ports/out/idempotency"
)

func TestMemoryIdempotencyStore_Contract(t *testing.T) {
	t.Parallel()
	contracttest.RunIdempotencyStore(t, func(t *testing.T) (idempotencyport.Store, contracttest.CleanupFunc) {
		return memidempotency.NewStore(), nil
	})
}

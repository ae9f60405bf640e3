package triprepo_test

import (
	"testing"

	memtriprepo "github.com/groupventure/booking-api/internal/adapters/memory/triprepo"
	"github.com/groupventure/booking-api/internal/adapters/contracttest"
	triprepoport "github.com/groupventure/booking-api/internal/ports/out/triprepo"
)

func factory(t *testing.T) (triprepoport.Repository, contracttest.CleanupFunc) {
	return memtriprepo.NewRepo(), nil
}

func TestMemoryTripRepo_Contract(t *testing.T) {
	t.Parallel()
	contracttest.RunTripRepo(t, factory)
}

func TestMemoryTripRepo_ConcurrentReserve(t *testing.T) {
	t.Parallel()
	contracttest.RunTripRepoConcurrentReserve(t, factory)
}

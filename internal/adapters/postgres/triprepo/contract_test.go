package triprepo

import (
	"testing"

	"github.com/groupventure/booking-api/internal/adapters/contracttest"
	"github.com/groupventure/booking-api/internal/adapters/postgres/testutil"
	triprepoport "github.com/groupventure/booking-api/internal/ports/out/triprepo"
)

func TestContract_PostgresTripRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	factory := func(t *testing.T) (triprepoport.Repository, contracttest.CleanupFunc) {
		t.Helper()
		return NewRepo(pool), nil
	}
	contracttest.RunTripRepo(t, factory)
	contracttest.RunTripRepoConcurrentReserve(t, factory)
}

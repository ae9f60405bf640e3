package bookingrepo_test

import (
	"testing"

	membookingrepo "github.com/groupventure/booking-api/internal/adapters/memory/bookingrepo"
	"github.com/groupventure/booking-api/internal/adapters/contracttest"
	bookingrepoport "github.com/groupventure/booking-api/internal/ports/out/bookingrepo"
)

func TestMemoryBookingRepo_Contract(t *testing.T) {
	t.Parallel()
	contracttest.RunBookingRepo(t, func(t *testing.T) (bookingrepoport.Repository, contracttest.CleanupFunc) {
		return membookingrepo.NewRepo(), nil
	})
}

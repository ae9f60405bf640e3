package paymentrepo_test

import (
	"testing"

	mempaymentrepo "github.com/groupventure/booking-api/internal/adapters/memory/paymentrepo"
	"github.com/groupventure/booking-api/internal/adapters/contracttest"
	paymentrepoport "github.com/groupventure/booking-api/internal/ports/out/paymentrepo"
)

func TestMemoryPaymentRepo_Contract(t *testing.T) {
	t.Parallel()
	contracttest.RunPaymentRepo(t, func(t *testing.T) (paymentrepoport.Repository, contracttest.CleanupFunc) {
		return mempaymentrepo.NewRepo(), nil
	})
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/groupventure/booking-api/internal/adapters/amqp"
	"github.com/groupventure/booking-api/internal/adapters/httpapi"
	membookingrepo "github.com/groupventure/booking-api/internal/adapters/memory/bookingrepo"
	memevents "github.com/groupventure/booking-api/internal/adapters/memory/events"
	memidempotency "github.com/groupventure/booking-api/internal/adapters/memory/idempotency"
	mempaymentrepo "github.com/groupventure/booking-api/internal/adapters/memory/paymentrepo"
	memprocessor "github.com/groupventure/booking-api/internal/adapters/memory/processor"
	memtriprepo "github.com/groupventure/booking-api/internal/adapters/memory/triprepo"
	"github.com/groupventure/booking-api/internal/adapters/postgres"
	pgbookingrepo "github.com/groupventure/booking-api/internal/adapters/postgres/bookingrepo"
	pgidempotency "github.com/groupventure/booking-api/internal/adapters/postgres/idempotency"
	pgpaymentrepo "github.com/groupventure/booking-api/internal/adapters/postgres/paymentrepo"
	pgtriprepo "github.com/groupventure/booking-api/internal/adapters/postgres/triprepo"
	"github.com/groupventure/booking-api/internal/adapters/stripe"
	"github.com/groupventure/booking-api/internal/app/bookings"
	"github.com/groupventure/booking-api/internal/app/payments"
	"github.com/groupventure/booking-api/internal/app/trips"
	"github.com/groupventure/booking-api/internal/platform/auth/tokenverifier"
	platformclock "github.com/groupventure/booking-api/internal/platform/clock"
	"github.com/groupventure/booking-api/internal/platform/config"
	bookingrepoport "github.com/groupventure/booking-api/internal/ports/out/bookingrepo"
	eventsport "github.com/groupventure/booking-api/internal/ports/out/events"
	idempotencyport "github.com/groupventure/booking-api/internal/ports/out/idempotency"
	paymentrepoport "github.com/groupventure/booking-api/internal/ports/out/paymentrepo"
	processorport "github.com/groupventure/booking-api/internal/ports/out/processor"
	triprepoport "github.com/groupventure/booking-api/internal/ports/out/triprepo"
)

func main() {
	srvCfg := config.LoadServerConfigFromEnv()

	// Auth configuration:
	// - Production: require AUTH_JWT_* env vars and enforce bearer auth
	// - Local dev: set AUTH_MODE=dev to bypass JWT verification and use X-Debug-User
	authMode := getenv("AUTH_MODE", "jwt")
	var authMW func(http.Handler) http.Handler
	switch authMode {
	case "dev":
		authMW = httpapi.NewDevAuthMiddleware(getenv("DEV_USER", "dev|local"))
	default:
		authCfg, err := config.LoadAuthConfigFromEnv()
		if err != nil {
			log.Fatalf("invalid auth config: %v", err)
		}
		authMW = httpapi.NewAuthMiddleware(tokenverifier.New(authCfg))
	}

	clk := platformclock.NewSystemClock()

	var (
		tripRepo    triprepoport.Repository
		bookingRepo bookingrepoport.Repository
		paymentRepo paymentrepoport.Repository
		idemStore   idempotencyport.Store
		cleanup     func()
	)

	if srvCfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(context.Background(), srvCfg.DatabaseURL)
		if err != nil {
			log.Fatalf("invalid postgres config: %v", err)
		}
		cleanup = pool.Close

		tripRepo = pgtriprepo.NewRepo(pool)
		bookingRepo = pgbookingrepo.NewRepo(pool)
		paymentRepo = pgpaymentrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	} else {
		log.Printf("DATABASE_URL not set, using in-memory storage")
		tripRepo = memtriprepo.NewRepo()
		bookingRepo = membookingrepo.NewRepo()
		paymentRepo = mempaymentrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	}

	if cleanup != nil {
		defer cleanup()
	}

	procCfg, err := config.LoadProcessorConfigFromEnv()
	if err != nil {
		log.Fatalf("invalid processor config: %v", err)
	}
	var proc processorport.Processor
	if procCfg.StripeSecretKey != "" {
		proc = stripe.New(procCfg.StripeSecretKey)
	} else {
		log.Printf("STRIPE_SECRET_KEY not set, using in-memory processor fake")
		proc = memprocessor.New()
	}

	var pub eventsport.Publisher
	amqpCfg := config.LoadAMQPConfigFromEnv()
	if amqpCfg.URL != "" {
		p, err := amqp.NewPublisher(amqpCfg.URL, amqpCfg.Exchange)
		if err != nil {
			log.Fatalf("amqp connect: %v", err)
		}
		defer p.Close()
		pub = p
	} else {
		log.Printf("AMQP_URL not set, events stay in process")
		pub = memevents.NewPublisher()
	}

	tripSvc := trips.NewService(tripRepo, pub, clk)
	bookingSvc := bookings.NewService(bookingRepo, tripRepo, clk)
	paymentSvc := payments.NewService(tripRepo, bookingRepo, paymentRepo, proc, pub, clk, payments.Options{
		Currency: procCfg.Currency,
		HoldTTL:  procCfg.HoldTTL,
	})

	api := httpapi.NewServer(tripSvc, bookingSvc, paymentSvc, idemStore)
	handler := httpapi.NewRouter(api, authMW)

	srv := &http.Server{
		Addr:              srvCfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Expiry sweep for holds that were opened but never confirmed.
	go func() {
		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := paymentSvc.ExpireStaleHolds(ctx)
				if err != nil {
					log.Printf("expire stale holds: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("expired %d stale holds", n)
				}
			}
		}
	}()

	go func() {
		log.Printf("api listening on %s", srvCfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

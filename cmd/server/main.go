package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"wrkledger/internal/apiauth"
	authzservice "wrkledger/internal/authz/service"
	authzmem "wrkledger/internal/authz/store/memory"
	authzpg "wrkledger/internal/authz/store/postgres"
	distservice "wrkledger/internal/distribution/service"
	ledgermetrics "wrkledger/internal/ledger/metrics"
	ledgermodels "wrkledger/internal/ledger/models"
	ledgerservice "wrkledger/internal/ledger/service"
	ledgermem "wrkledger/internal/ledger/store/memory"
	ledgerpg "wrkledger/internal/ledger/store/postgres"
	"wrkledger/internal/platform/config"
	"wrkledger/internal/platform/httpserver"
	"wrkledger/internal/platform/logger"
	redisplatform "wrkledger/internal/platform/redis"
	presignedservice "wrkledger/internal/presigned/service"
	presignedmem "wrkledger/internal/presigned/store/memory"
	presignedpg "wrkledger/internal/presigned/store/postgres"
	presignedredis "wrkledger/internal/presigned/store/redis"
	salemetrics "wrkledger/internal/sale/metrics"
	salemodels "wrkledger/internal/sale/models"
	saleservice "wrkledger/internal/sale/service"
	salemem "wrkledger/internal/sale/store/memory"
	salepg "wrkledger/internal/sale/store/postgres"
	httptransport "wrkledger/internal/transport/http"
	"wrkledger/pkg/domain"
	"wrkledger/pkg/platform/journal"
	journalkafka "wrkledger/pkg/platform/journal/kafka"
	"wrkledger/pkg/platform/journal/publisher"
	journalmem "wrkledger/pkg/platform/journal/store/memory"
	journalpg "wrkledger/pkg/platform/journal/store/postgres"
	"wrkledger/pkg/platform/journal/worker"
	"wrkledger/pkg/platform/sentinel"
	"wrkledger/pkg/platform/tx"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		for _, schema := range []string{
			ledgerpg.Schema, authzpg.Schema, presignedpg.Schema, salepg.Schema, journalpg.Schema,
		} {
			if _, err := db.ExecContext(ctx, schema); err != nil {
				return err
			}
		}
	}

	redisClient, err := redisplatform.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Journal: the store is the source of truth; the inbox streams
	// committed entries to Kafka when brokers are configured.
	var journalStore journal.Store
	var journalReader httptransport.JournalReader
	if db != nil {
		store := journalpg.New(db)
		journalStore, journalReader = store, store
	} else {
		store := journalmem.New()
		journalStore, journalReader = store, store
	}

	publisherOpts := []publisher.Option{publisher.WithLogger(log)}
	var inbox chan journal.Entry
	group, groupCtx := errgroup.WithContext(ctx)
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := journalkafka.New(ctx, cfg.KafkaBrokers, cfg.JournalTopic)
		if err != nil {
			return err
		}
		defer sink.Close()
		inbox = make(chan journal.Entry, 1024)
		publisherOpts = append(publisherOpts, publisher.WithInbox(inbox))
		group.Go(func() error {
			return worker.New(sink, inbox, log).Run(groupCtx)
		})
	}
	pub := publisher.New(journalStore, publisherOpts...)

	// Authorization registry, admin seeded on first start.
	var authzStore authzservice.Store
	if db != nil {
		store := authzpg.New(db)
		if _, err := store.Admin(ctx); errors.Is(err, sql.ErrNoRows) || errors.Is(err, sentinel.ErrNotFound) {
			if err := store.SetAdmin(ctx, cfg.Admin); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		authzStore = store
	} else {
		authzStore = authzmem.New(cfg.Admin)
	}
	authz := authzservice.New(authzStore, authzservice.WithLogger(log))

	// Ledger.
	var ledgerStore ledgerservice.Store
	ledgerOpts := []ledgerservice.Option{
		ledgerservice.WithLogger(log),
		ledgerservice.WithJournal(pub),
		ledgerservice.WithMetrics(ledgermetrics.New()),
	}
	if db != nil {
		ledgerStore = ledgerpg.New(db)
		ledgerOpts = append(ledgerOpts, ledgerservice.WithTxRunner(tx.NewRunner(db)))
	} else {
		ledgerStore = ledgermem.New()
	}
	ledger, err := ledgerservice.New(ledgerStore, ledgermodels.TaxPolicy{
		FeeAccount: cfg.Tax.FeeAccount,
		FeeRate:    cfg.Tax.FeeRate,
		FeeScale:   cfg.Tax.FeeScale,
	}, ledgerOpts...)
	if err != nil {
		return err
	}
	if err := seedGenesis(ctx, ledgerStore, cfg.Genesis, log); err != nil {
		return err
	}

	// Replay protection: shared Redis set when configured, otherwise the
	// database, otherwise process-local.
	var consumed presignedservice.ConsumedStore
	switch {
	case redisClient != nil:
		consumed = presignedredis.New(redisClient.Client)
	case db != nil:
		consumed = presignedpg.New(db)
	default:
		consumed = presignedmem.New()
	}
	presignedOpts := []presignedservice.Option{
		presignedservice.WithLogger(log),
		presignedservice.WithJournal(pub),
	}
	if db != nil {
		presignedOpts = append(presignedOpts, presignedservice.WithTxRunner(tx.NewRunner(db)))
	}
	presigned := presignedservice.New(cfg.LedgerID, cfg.Pool.FeeSink, authz, ledger, consumed, presignedOpts...)

	distribution, err := distservice.New(distservice.Pools{
		Distribution:  cfg.Pool.DistributionPool,
		InAppPurchase: cfg.Pool.InAppPurchase,
		FeeSink:       cfg.Pool.FeeSink,
	}, authz, ledger, distservice.WithLogger(log))
	if err != nil {
		return err
	}

	// Sale.
	saleState := salemodels.SaleState{
		Cap:             cfg.Sale.Cap,
		WeiRaised:       cfg.Sale.WeiRaised,
		OpeningTime:     cfg.Sale.OpeningTime,
		ClosingTime:     cfg.Sale.ClosingTime,
		Rate:            cfg.Sale.Rate,
		SalesWallet:     cfg.Sale.SalesWallet,
		PoolWallet:      cfg.Sale.PoolWallet,
		AvailableInSale: cfg.Sale.AvailableInSale,
	}
	if err := saleState.Validate(); err != nil {
		return err
	}
	var saleStore saleservice.Store
	saleOpts := []saleservice.Option{
		saleservice.WithLogger(log),
		saleservice.WithJournal(pub),
		saleservice.WithMetrics(salemetrics.New()),
		saleservice.WithPaymentForwarder(logForwarder{log: log}),
	}
	if db != nil {
		store := salepg.New(db)
		if err := store.Init(ctx, saleState); err != nil {
			return err
		}
		saleStore = store
		saleOpts = append(saleOpts, saleservice.WithTxRunner(tx.NewRunner(db)))
	} else {
		saleStore = salemem.New(saleState)
	}
	sale := saleservice.New(saleStore, ledger, authz, saleOpts...)

	jwtSvc := apiauth.NewJWT(cfg.JWTSigningKey, "wrkledger")
	creds := make([]apiauth.Credential, 0, len(cfg.Credentials))
	for _, c := range cfg.Credentials {
		creds = append(creds, apiauth.Credential{KeyID: c.KeyID, SecretHash: c.SecretHash, Address: c.Address})
	}
	authSvc := apiauth.New(jwtSvc, creds, cfg.TokenTTL, apiauth.WithLogger(log))

	router := httptransport.NewRouter(httptransport.Services{
		Logger:       log,
		Validator:    jwtSvc,
		Auth:         authSvc,
		Authz:        authz,
		Ledger:       ledger,
		Presigned:    presigned,
		Distribution: distribution,
		Sale:         sale,
		Journal:      journalReader,
	})

	srv := httpserver.New(cfg.Addr, router)
	group.Go(func() error {
		log.Info("starting wrkledger", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// seedGenesis mints the configured allocations exactly once: a ledger
// that already has supply keeps it.
func seedGenesis(ctx context.Context, store ledgerservice.Store, allocs []config.Allocation, log *slog.Logger) error {
	if len(allocs) == 0 {
		return nil
	}
	supply, err := store.TotalSupply(ctx)
	if err != nil {
		return err
	}
	if supply > 0 {
		return nil
	}
	var total uint64
	for _, a := range allocs {
		if err := store.Mint(ctx, a.Account, a.Amount); err != nil {
			return err
		}
		total += a.Amount
	}
	log.Info("genesis allocations minted", "accounts", len(allocs), "total", total)
	return nil
}

// logForwarder records forwarded payments; real settlement happens in
// the payment system, outside the ledger.
type logForwarder struct {
	log *slog.Logger
}

func (f logForwarder) Forward(ctx context.Context, wallet domain.Address, amount uint64) error {
	f.log.InfoContext(ctx, "payment forwarded to sales wallet", "wallet", wallet, "amount", amount)
	return nil
}

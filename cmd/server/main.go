// Command server wires the complaint-transfer and officer-lifecycle services
// behind the HTTP transport. Stores are in-memory by default and postgres
// when a DSN is configured; business logic lives in the internal service
// packages either way.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kgo"

	"suvidha/internal/audit"
	"suvidha/internal/auditor"
	complaintstore "suvidha/internal/complaint/store"
	"suvidha/internal/directory"
	"suvidha/internal/integrity"
	officerservice "suvidha/internal/officer/service"
	officerstore "suvidha/internal/officer/store"
	"suvidha/internal/platform/config"
	"suvidha/internal/platform/httpserver"
	"suvidha/internal/platform/logger"
	"suvidha/internal/platform/metrics"
	platformredis "suvidha/internal/platform/redis"
	transferservice "suvidha/internal/transfer/service"
	transferstore "suvidha/internal/transfer/store"
	httptransport "suvidha/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		if err := db.Ping(); err != nil {
			log.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	// Store selection: everything persistent when postgres is configured,
	// everything in-memory otherwise. The two sets are never mixed; the
	// transactional boundaries assume one backing store.
	var (
		directoryStore directory.Store
		officers       officerservice.Store
		complaints     complaintstore.Store
		transfers      transferstore.TransferStore
		connections    transferstore.ConnectionStore
		auditStore     audit.Store
		officerTx      officerservice.StoreTx
		transferTx     transferservice.StoreTx
		cleanupTx      auditor.StoreTx
	)
	if db != nil {
		directoryStore = directory.NewPostgres(db)
		officers = officerstore.NewPostgres(db)
		complaints = complaintstore.NewPostgres(db)
		transfers = transferstore.NewPostgresTransfers(db)
		connections = transferstore.NewPostgresConnections(db)
		auditStore = audit.NewPostgres(db)
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		directoryStore = directory.NewInMemoryStore()
		officers = officerstore.NewInMemory()
		complaints = complaintstore.NewInMemory()
		transfers = transferstore.NewInMemoryTransfers()
		connections = transferstore.NewInMemoryConnections()
		auditStore = audit.NewInMemoryStore()
	}

	auditPublisher := audit.NewPublisher(auditStore)

	transferStores := transferservice.Stores{
		Transfers:   transfers,
		Complaints:  complaints,
		Connections: connections,
	}
	auditorStores := auditor.Stores{
		Directory:  directoryStore,
		Officers:   officers,
		Complaints: complaints,
	}
	if db != nil {
		officerTx = &officerPostgresTx{db: db, store: officers}
		transferTx = &transferPostgresTx{db: db, stores: transferStores}
		cleanupTx = &cleanupPostgresTx{db: db, stores: auditorStores}
	} else {
		officerTx = officerservice.NewLockedTx(officers)
		transferTx = transferservice.NewShardedTx(transferStores)
		cleanupTx = auditor.NewLockedTx(auditorStores)
	}

	// Directory lookups go through redis when configured; cache errors fall
	// through to the store.
	var directoryReader directory.Reader = directoryStore
	redisClient, err := platformredis.New(cfg.Redis())
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		directoryReader = directory.NewCachedReader(directoryStore, redisClient.Client, config.DirectoryCacheTTL, log)
		defer redisClient.Close()
	}

	validator := integrity.NewValidator(directoryReader, officers)

	officerSvc := officerservice.New(officerTx, officers, validator, auditPublisher,
		officerservice.WithLogger(log),
		officerservice.WithMetrics(m))
	transferSvc := transferservice.New(transferTx, transferStores, validator, officers, auditPublisher,
		transferservice.WithLogger(log),
		transferservice.WithMetrics(m))
	auditorSvc := auditor.New(cleanupTx, auditorStores, auditPublisher,
		auditor.WithLogger(log),
		auditor.WithMetrics(m))

	handler := httptransport.NewHandler(officerSvc, transferSvc, auditorSvc, log)
	router := httptransport.NewRouter(handler, cfg.JWTSigningKey)
	srv := httpserver.New(cfg.Addr, router)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The audit outbox drains to Kafka only in postgres mode; the in-memory
	// store has no outbox to drain.
	if db != nil && len(cfg.KafkaBrokers) > 0 {
		kafkaClient, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.KafkaBrokers...),
			kgo.DefaultProduceTopic(cfg.AuditTopic),
		)
		if err != nil {
			log.Error("kafka client failed", "error", err)
			os.Exit(1)
		}
		defer kafkaClient.Close()

		worker := audit.NewOutboxWorker(audit.NewPostgres(db), kafkaClient, cfg.AuditTopic, log)
		go func() {
			if err := worker.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit outbox worker stopped", "error", err)
			}
		}()
	}

	go func() {
		log.Info("server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

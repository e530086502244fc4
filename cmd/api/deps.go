package main

import (
	"database/sql"
	"time"

	"telecrm/internal/audit"
	"telecrm/internal/calls"
	"telecrm/internal/config"
	"telecrm/internal/devices"
	"telecrm/internal/httpapi"
	"telecrm/internal/ingest"
	"telecrm/internal/orders"
	"telecrm/internal/reporting"
	"telecrm/internal/storage"
	"telecrm/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const (
	uploadSlotPrefix = "telecrm:uploads:"
	// uploadSlotTTL frees slots leaked by a crashed process.
	uploadSlotTTL = 10 * time.Minute
)

// buildDeps constructs services explicitly; nothing is shared through globals.
func buildDeps(cfg config.Config, db *sql.DB, rdb *redis.Client, store storage.ObjectStore) httpapi.Handlers {
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	registry := devices.NewRegistry(devices.NewPostgresRepo(db), auditSvc)
	callRepo := calls.NewPostgresRepo(db)

	limiter := utils.NewSlotLimiter(rdb, uploadSlotPrefix, cfg.Ingest.MaxConcurrentUploads, uploadSlotTTL)
	ingestSvc := ingest.NewService(registry, callRepo, store, limiter, ingest.Options{
		MaxRecordingBytes: cfg.Ingest.MaxRecordingBytes,
	})

	reports := reporting.NewService(callRepo, registry, orders.NewPostgresRepo(db), reporting.Options{
		Location: cfg.Report.Location,
		Cache:    reporting.NewRedisCache(rdb),
		CacheTTL: cfg.Report.DashboardCacheTTL,
	})

	return httpapi.Handlers{
		Devices:           registry,
		Ingest:            ingestSvc,
		Reports:           reports,
		MaxRecordingBytes: cfg.Ingest.MaxRecordingBytes,
	}
}

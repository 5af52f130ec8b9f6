package cmd

import (
	"time"

	"lending/core"
	"lending/pkg/client"
	"lending/pkg/metrics"
	obligationservice "lending/service/obligation"
	"lending/service/oracle"
	reserveservice "lending/service/reserve"
	"lending/service/slot"
	"lending/store/obligation"
	"lending/store/price"
	"lending/store/reserve"
	"lending/store/transaction"
	"lending/worker/auditor"

	"github.com/fox-one/pkg/property"
	"github.com/fox-one/pkg/store/db"
	propertystore "github.com/fox-one/pkg/store/property"
)

func provideDatabase() *db.DB {
	return db.MustOpen(cfg.DB)
}

func provideConfig() *core.Config {
	return &cfg
}

func provideMetrics() *metrics.Metrics {
	return metrics.New("lending")
}

func provideClient() *client.Client {
	endpoint := _flag.endpoint
	if endpoint == "" {
		endpoint = cfg.Server.Endpoint
	}

	c := client.New(endpoint)
	if _flag.admin != "" {
		c = c.WithAdmin(_flag.admin)
	}

	return c
}

// ---------------store-----------------------------------------

func providePropertyStore(db *db.DB) property.Store {
	return propertystore.New(db)
}

func provideReserveStore(db *db.DB) core.IReserveStore {
	return reserve.New(db)
}

// provideCachedReserveStore read only paths, mutations always read through
func provideCachedReserveStore(reserves core.IReserveStore) core.IReserveStore {
	return reserve.Cache(reserves, time.Second)
}

func provideObligationStore(db *db.DB) core.IObligationStore {
	return obligation.New(db)
}

func providePriceStore(db *db.DB) core.IPriceStore {
	return price.New(db)
}

func provideTransactionStore(db *db.DB) core.TransactionStore {
	return transaction.New(db)
}

// ------------------service------------------------------------

func provideSlotService() core.ISlotService {
	return slot.New(provideConfig())
}

func provideOracleService(db *db.DB, prices core.IPriceStore, slots core.ISlotService) core.IPriceOracleService {
	return oracle.New(db, prices, slots)
}

func provideReserveService(
	db *db.DB,
	reserves core.IReserveStore,
	transactions core.TransactionStore,
	oracle core.IPriceOracleService,
	slots core.ISlotService,
	metrics *metrics.Metrics,
) core.IReserveService {
	return reserveservice.New(db, reserves, transactions, oracle, slots, metrics)
}

func provideObligationService(
	db *db.DB,
	obligations core.IObligationStore,
	reserves core.IReserveStore,
	transactions core.TransactionStore,
	oracle core.IPriceOracleService,
	slots core.ISlotService,
	metrics *metrics.Metrics,
) core.IObligationService {
	return obligationservice.New(db, obligations, reserves, transactions, oracle, slots, metrics)
}

func provideAuditor(reserves core.IReserveStore, obligations core.IObligationStore, metrics *metrics.Metrics) *auditor.Auditor {
	return auditor.New(cfg.Worker.AuditInterval, reserves, obligations, metrics)
}

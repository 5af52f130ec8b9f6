package cmd

import (
	"context"
	"net/http"
	"sync"

	"lending/worker"
	"lending/worker/refresher"

	"github.com/drone/signal"
	"github.com/fox-one/pkg/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "run lending background workers",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := signal.WithContext(cmd.Context())
		log := logger.FromContext(ctx)
		ctx = logger.WithContext(ctx, log)

		database := provideDatabase()
		defer database.Close()

		metrics := provideMetrics()
		slots := provideSlotService()
		propertyStore := providePropertyStore(database)
		reserves := provideReserveStore(database)
		obligations := provideObligationStore(database)
		prices := providePriceStore(database)
		transactions := provideTransactionStore(database)
		oracle := provideOracleService(database, prices, slots)

		reserveService := provideReserveService(database, reserves, transactions, oracle, slots, metrics)
		obligationService := provideObligationService(database, obligations, reserves, transactions, oracle, slots, metrics)

		workers := []worker.Worker{
			refresher.New(refresher.Config{
				Interval:       cfg.Worker.RefreshInterval,
				PriceRetention: cfg.Worker.PriceRetention,
				Concurrency:    8,
			}, reserves, obligations, prices, reserveService, obligationService, slots, propertyStore),
			provideAuditor(reserves, obligations, metrics),
		}

		if addr, _ := cmd.Flags().GetString("metrics"); addr != "" {
			go func() {
				if err := http.ListenAndServe(addr, metrics.Handler()); err != nil {
					logrus.WithError(err).Errorln("metrics server aborted")
				}
			}()
		}

		wg := sync.WaitGroup{}
		for _, w := range workers {
			wg.Add(1)

			go func(w worker.Worker) {
				defer wg.Done()
				if err := w.Run(ctx); err != nil && err != context.Canceled {
					log.WithError(err).Errorln("worker stopped")
				}
			}(w)
		}

		wg.Wait()
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().String("metrics", ":7779", "metrics listen address, empty to disable")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/config"
	"github.com/mamadbah2/kitchenledger/internal/events"
	"github.com/mamadbah2/kitchenledger/internal/repository/memory"
	"github.com/mamadbah2/kitchenledger/internal/repository/mongodb"
	"github.com/mamadbah2/kitchenledger/internal/repository/sheets"
	"github.com/mamadbah2/kitchenledger/internal/scheduler"
	"github.com/mamadbah2/kitchenledger/internal/server/handlers"
	"github.com/mamadbah2/kitchenledger/internal/server/router"
	commandsvc "github.com/mamadbah2/kitchenledger/internal/service/commands"
	"github.com/mamadbah2/kitchenledger/internal/service/inventory"
	"github.com/mamadbah2/kitchenledger/internal/service/production"
	"github.com/mamadbah2/kitchenledger/internal/service/products"
	"github.com/mamadbah2/kitchenledger/internal/service/recipes"
	reportingsvc "github.com/mamadbah2/kitchenledger/internal/service/reporting"
	"github.com/mamadbah2/kitchenledger/internal/service/sales"
	whatsappsvc "github.com/mamadbah2/kitchenledger/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/kitchenledger/pkg/clients/whatsapp"
	"github.com/mamadbah2/kitchenledger/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Logger.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)
	decimal.MarshalJSONWithoutQuotes = true

	loc, err := cfg.Ledger.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled() && cfg.Kafka.EventsTopic != "" {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, baseLogger.Named("events"))
		baseLogger.Info("ledger events enabled", zap.String("topic", cfg.Kafka.EventsTopic))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			baseLogger.Error("failed to close event publisher", zap.Error(err))
		}
	}()

	locks := memory.NewLocker(cfg.Ledger.LockTimeout)
	inventorySvc := inventory.NewService(locks, baseLogger.Named("svc.inventory"))
	recipeSvc := recipes.NewService(inventorySvc, locks, baseLogger.Named("svc.recipes"))
	productSvc := products.NewService(recipeSvc, locks, baseLogger.Named("svc.products"))
	inventorySvc.SetRecipeIndex(recipeSvc)
	recipeSvc.SetProductIndex(productSvc)
	productionSvc := production.NewService(inventorySvc, recipeSvc, productSvc, locks, publisher, baseLogger.Named("svc.production"))
	salesSvc := sales.NewService(productSvc, recipeSvc, locks, publisher, baseLogger.Named("svc.sales"))
	productSvc.SetSalesIndex(salesSvc)

	reportingSvc := reportingsvc.NewService(salesSvc, inventorySvc, productionSvc, reportingsvc.Options{
		Location:    loc,
		TopProducts: cfg.Ledger.TopProducts,
	}, baseLogger.Named("svc.reporting"))

	var (
		archive   reportingsvc.Archive
		lister    handlers.ReportArchive
		exporter  reportingsvc.Exporter
		notifier  reportingsvc.Notifier
		chatH     *handlers.ChatHandler
		managerID string
	)

	if cfg.MongoDB.Enabled() {
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		mongoRepo, err := mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		cancel()
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		archive, lister = mongoRepo, mongoRepo
	}

	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		exporter = sheetsRepo
	}

	if cfg.WhatsApp.Enabled() {
		commandDispatcher := commandsvc.NewService(commandsvc.Deps{
			Inventory:  inventorySvc,
			Recipes:    recipeSvc,
			Products:   productSvc,
			Production: productionSvc,
			Sales:      salesSvc,
			Reports:    reportingSvc,
		}, baseLogger.Named("svc.commands"))

		whatsClient := whatsappclient.NewClient(cfg.WhatsApp, baseLogger.Named("client.whatsapp"))
		messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, commandDispatcher, baseLogger.Named("svc.whatsapp"))
		chatH = handlers.NewChatHandler(messagingSvc, baseLogger.Named("handlers.whatsapp"))
		notifier, managerID = messagingSvc, cfg.WhatsApp.ManagerID
	}

	if cfg.Kafka.Enabled() && cfg.Kafka.SalesTopic != "" {
		listener := sales.NewListener(
			sales.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.SalesTopic, cfg.Kafka.GroupID),
			salesSvc,
			baseLogger.Named("listener.sales"),
		)
		go listener.Start(ctx)
		defer func() {
			if err := listener.Close(); err != nil {
				baseLogger.Error("failed to close sales feed reader", zap.Error(err))
			}
		}()
	}

	dailyClose := reportingsvc.NewDailyClose(reportingSvc, archive, exporter, notifier, managerID, baseLogger.Named("job.daily_close"))
	sched := scheduler.NewScheduler(cfg.Reporting.CronSchedule, loc, dailyClose, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	engine := router.New(router.Handlers{
		Inventory:   handlers.NewInventoryHandler(inventorySvc, baseLogger.Named("handlers.inventory")),
		Recipes:     handlers.NewRecipeHandler(recipeSvc, productionSvc, baseLogger.Named("handlers.recipes")),
		Products:    handlers.NewProductHandler(productSvc, baseLogger.Named("handlers.products")),
		Sales:       handlers.NewSalesHandler(salesSvc, reportingSvc, lister, baseLogger.Named("handlers.sales")),
		Chat:        chatH,
		WithArchive: lister != nil,
	}, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

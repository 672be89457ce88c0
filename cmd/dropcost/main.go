package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jariassh/dropcost-master/app/controllers"
	"github.com/jariassh/dropcost-master/app/repository"
	"github.com/jariassh/dropcost-master/internal/pkg/audit"
	"github.com/jariassh/dropcost-master/internal/pkg/billing"
	"github.com/jariassh/dropcost-master/internal/pkg/cache"
	"github.com/jariassh/dropcost-master/internal/pkg/constants"
	"github.com/jariassh/dropcost-master/internal/pkg/database"
	"github.com/jariassh/dropcost-master/internal/pkg/env"
	"github.com/jariassh/dropcost-master/internal/pkg/fxrate"
	"github.com/jariassh/dropcost-master/internal/pkg/jobqueue"
	"github.com/jariassh/dropcost-master/internal/pkg/mail"
	"github.com/jariassh/dropcost-master/internal/pkg/metrics/counter"
	"github.com/jariassh/dropcost-master/internal/pkg/notify"
	"github.com/jariassh/dropcost-master/internal/pkg/router"
	"github.com/jariassh/dropcost-master/internal/pkg/s3archive"
)

func main() {
	app, shutdown := NewApplication()

	go func() {
		if err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))); err != nil {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("[Server] shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Errorf("[Server] shutdown: %v", err)
	}
	shutdown()
}

// NewApplication wires the billing stack and returns the app together with a
// function that drains background work and closes connections.
func NewApplication() (*fiber.App, func()) {
	env.SetupEnvFile()
	if err := database.SetupDatabase(); err != nil {
		log.Fatalf("[Server] database: %v", err)
	}
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()
	counters := counter.Default()

	manager := jobqueue.GetManager()
	queue := manager.GetQueue()
	queue.RegisterHandler(jobqueue.JobTypeSendNotification, jobqueue.NewNotificationHandler(&mail.EventMailer{
		Sender: mail.NewSMTPMailer(mail.LoadConfig()),
		Users:  repos.User,
	}))

	var archiver billing.Archiver
	s3cfg, err := s3archive.LoadConfig()
	if err != nil {
		log.Fatalf("[Server] s3 archive config: %v", err)
	}
	if s3cfg.IsEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		store, err := s3archive.NewClient(ctx, s3cfg)
		cancel()
		if err != nil {
			log.Fatalf("[Server] s3 archive: %v", err)
		}
		queue.RegisterHandler(jobqueue.JobTypeArchivePayment, jobqueue.NewArchiveHandler(store))
		archiver = &jobqueue.PaymentArchiver{Queue: queue}
		log.Infof("[Server] archiving settled payments to bucket %s", s3cfg.BucketName)
	}
	manager.Start()

	dispatcher := notify.NewDispatcher(queue, counters)
	gateway := billing.NewMercadoPagoClientFromEnv()
	if !gateway.Configured() {
		log.Warn("[Server] MP_ACCESS_TOKEN is not set, payment endpoints will fail")
	}

	svc := billing.NewServiceFromDB(db, billing.Dependencies{
		Gateway:        gateway,
		Rates:          fxrate.NewClientFromEnv(),
		Audit:          audit.NewLogger(db),
		Notifier:       dispatcher,
		Archiver:       archiver,
		Metrics:        counters,
		WebhookSecret:  gateway.WebhookSecret,
		GatewayTimeout: env.GetDurationSeconds("GATEWAY_TIMEOUT_SECONDS", 0),
	})
	billingController := controllers.NewBillingController(svc, repos.Wallet, counters, queue)

	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get(constants.MetricsRoute, basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "change-me"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: constants.DocsBasePath,
		FilePath: findDocs(),
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, billingController)

	shutdown := func() {
		dispatcher.Wait()
		manager.Stop()
		if err := database.Close(); err != nil {
			log.Errorf("[Server] closing database: %v", err)
		}
		if err := cache.Close(); err != nil {
			log.Errorf("[Server] closing cache: %v", err)
		}
	}
	return app, shutdown
}

func findDocs() string {
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/dropcost to project root
		"../../../", // Fallback
	}
	for _, path := range basePaths {
		file := path + constants.OpenAPIV1File
		if _, err := os.Stat(file); err == nil {
			return file
		}
	}
	log.Fatalf("[Server] could not find %s", constants.OpenAPIV1File)
	return ""
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Akshit568/Robot-Navigation-System/config"
	"github.com/Akshit568/Robot-Navigation-System/handlers"
	"github.com/Akshit568/Robot-Navigation-System/logging"
	"github.com/Akshit568/Robot-Navigation-System/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	log := logging.New(cfg.Logging)
	if err != nil {
		log.Error(context.Background(), "invalid configuration", logging.Err(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server stopped", logging.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log logging.Logger) error {
	if !cfg.EnvFileLoaded {
		log.Warn(ctx, ".env file not found, using process environment")
	}

	shutdownTracing, err := services.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer services.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	metrics, err := services.NewMetrics(nil)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	// run log: events are buffered and written in batches
	db, err := services.OpenDatabase(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	runLog := services.NewRunLogger(db, cfg.FlushSize, cfg.FlushInterval, log)
	runLog.Start()
	defer runLog.Stop()

	manager := handlers.NewMessageManager(metrics, log)
	feed := services.NewEventFeed(manager.BroadcastMessage, cfg.EventCooldown, log)
	feed.Start()
	defer feed.Stop()

	sim, err := services.NewSimulator(cfg.Simulation,
		services.WithPublisher(manager),
		services.WithEventSink(feed),
		services.WithEventSink(runLog),
		services.WithResultRecorder(runLog),
		services.WithMetrics(metrics),
		services.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("create simulator: %w", err)
	}
	simDone := make(chan struct{})
	go func() {
		defer close(simDone)
		sim.Run(ctx)
	}()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Robot navigation simulation server is running.")
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api")
	handlers.NewSimulationAPI(sim, manager, log).Register(api)
	handlers.NewLogsAPI(runLog).Register(api)
	api.Post("/pathfinding", handlers.HandlePathfinding)
	api.Get("/schema/snapshot", handlers.HandleSnapshotSchema)

	observers := handlers.NewObserverHandler(sim, manager, cfg.ObserverBuffer, log)
	app.Use("/websocket", handlers.RequireUpgrade)
	app.Get("/websocket/observer", websocket.New(observers.Serve))

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Warn(context.Background(), "http shutdown", logging.Err(err))
		}
	}()

	log.Info(ctx, "server starting",
		logging.String("addr", ":"+cfg.Port),
		logging.String("observer", "ws://localhost:"+cfg.Port+"/websocket/observer"),
		logging.Int("grid", cfg.Simulation.GridSize),
		logging.Duration("tick", cfg.Simulation.TickInterval),
		logging.String("db", cfg.Database.Driver),
	)
	if err := app.Listen(":" + cfg.Port); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	<-simDone
	log.Info(context.Background(), "server stopped cleanly")
	return nil
}

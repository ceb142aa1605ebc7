package main

import (
	"context"
	"log"
	"os"

	"github.com/example/collab-room-server/config"
	"github.com/example/collab-room-server/modules/api"
	"github.com/example/collab-room-server/modules/broadcast"
	"github.com/example/collab-room-server/modules/metrics"
	"github.com/example/collab-room-server/modules/room"
	"github.com/example/collab-room-server/modules/uploads"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
)

func main() {
	cfg := config.Load()

	log.Println("=== Collaboration Room Server ===")
	log.Printf("HTTP Port: %d", cfg.Port)
	log.Printf("Storage Path: %s", cfg.StoragePath)

	logLevel := mono.LogLevelInfo
	if cfg.LogLevel == "error" {
		logLevel = mono.LogLevelError
	}

	// Create mono application with embedded NATS JetStream
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithJetStreamStorageDir(cfg.StoragePath),
		mono.WithNATSPort(cfg.NATSPort),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Shared documents are kept in a JetStream object store bucket
	storagePlugin, err := fsjetstream.New(fsjetstream.Config{
		Buckets: []fsjetstream.BucketConfig{
			{
				Name:        uploads.BucketName,
				Description: "Documents shared into rooms",
				MaxBytes:    1024 * 1024 * 1024, // 1GB max storage
				Storage:     fsjetstream.FileStorage,
				Compression: true,
			},
		},
	})
	if err != nil {
		log.Fatalf("Failed to create storage plugin: %v", err)
	}
	if err := app.RegisterPlugin(storagePlugin, "storage"); err != nil {
		log.Fatalf("Failed to register storage plugin: %v", err)
	}

	// Create modules
	roomModule := room.NewModule(cfg.HistorySize, app.Logger())
	broadcastModule := broadcast.NewModule(app.Logger())
	uploadsModule := uploads.NewModule(cfg.UploadMaxBytes, app.Logger())
	metricsModule := metrics.NewModule(app.Logger())
	apiModule := api.NewModule(api.Settings{
		Port:              cfg.Port,
		AllowedOrigins:    cfg.AllowedOrigins,
		QueryTimeout:      cfg.QueryTimeout,
		MessagesPerSecond: cfg.MessagesPerSecond,
		MessageBurst:      cfg.MessageBurst,
		SendBuffer:        cfg.SendBuffer,
		AccessLog:         cfg.LogLevel == "debug",
	}, app.Logger())

	// Room effects are delivered through the hub; the API feeds the engine
	// and reads through the room module's services.
	hub := broadcastModule.GetHub()
	hub.SetObserver(metrics.FanoutObserver{})
	roomModule.SetDeliverer(hub)
	apiModule.SetGateway(roomModule.Engine())
	apiModule.SetHub(hub)
	apiModule.SetDocuments(uploadsModule)

	// Register modules with the framework.
	// - room: coordination core (ServiceProviderModule + EventEmitterModule)
	// - broadcast: websocket hub delivering room effects
	// - uploads: document storage on the fs-jetstream plugin
	// - metrics: Prometheus counters (EventConsumerModule)
	// - api: Fiber HTTP/WebSocket server, depends on room
	app.Register(roomModule)
	app.Register(broadcastModule)
	app.Register(uploadsModule)
	app.Register(metricsModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("HTTP Endpoints (http://localhost:%d):", cfg.Port)
	log.Println("  GET    /health                    - Health check")
	log.Println("  GET    /rooms                     - List active rooms")
	log.Println("  GET    /rooms/:roomId/exists      - Check a room before joining")
	log.Println("  POST   /api/upload                - Upload a PDF, PPTX or DOCX document")
	log.Println("  GET    /api/uploads/:id           - Download an uploaded document")
	log.Println("  GET    /metrics                   - Prometheus metrics")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%d/ws):", cfg.Port)
	log.Println("  Frames: {\"type\": \"join-room\", \"payload\": {...}}")
	log.Println("  Events: join-room, leave-room, chat-message, custom-message,")
	log.Println("          document-update, share-document, cursor-update,")
	log.Println("          typing-start, typing-stop, writing-update")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}

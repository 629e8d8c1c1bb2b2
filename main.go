package main

import (
	"context"
	"log"
	"net/http"
	_ "net/http/pprof"
	"time"

	"gounlearn/internal"
	"gounlearn/internal/config"
	"gounlearn/internal/container"
	"gounlearn/ui"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewLogger("Main", internal.ParseLogLevel(appConfig.LogLevel))
	gin.SetMode(appConfig.Server.GinMode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create container: %v", err)
	}
	if err := c.Init(ctx); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer c.Shutdown(context.Background())

	ds, err := c.LoadDataset(ctx)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}

	server, err := ui.NewServer(c.Coordinator, c.Datasets)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}
	defer server.Close()

	// Start pprof server for performance profiling
	if appConfig.Profiling.Enabled {
		go func() {
			logger.Info("Profiling server starting on :%s", appConfig.Profiling.Port)
			if err := http.ListenAndServe(":"+appConfig.Profiling.Port, nil); err != nil {
				logger.Error("pprof server failed: %v", err)
			}
		}()
	}

	logger.Info("Serving %q on port %s", ds.Name, appConfig.Server.Port)
	log.Fatal(server.Start(":" + appConfig.Server.Port))
}

package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/phardev/phardata/internal/analytics"
	"github.com/phardev/phardata/internal/db"
	"github.com/phardev/phardata/internal/handlers"
	"github.com/phardev/phardata/internal/ingest"
)

func main() {
	// Load .env file if it exists (local dev)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx := context.Background()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	// Run migrations
	if err := db.RunMigrations(databaseURL); err != nil {
		log.Fatalf("Could not run migrations: %v", err)
	}
	log.Println("Migrations completed")

	// Connect to database
	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	// Setup Echo
	e := echo.New()
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				log.Printf("%d %s", v.Status, v.URI)
			} else {
				log.Printf("%d %s - %v", v.Status, v.URI, v.Error)
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	repo := db.NewRepository(pool)
	engine := analytics.NewEngine(repo, repo)

	h := handlers.New(repo)
	analysisHandler := handlers.NewAnalysisHandler(engine)

	// Routes
	e.GET("/health", h.Health)
	e.GET("/api/pharmacies", h.ListPharmacies)
	e.GET("/api/products", h.SearchProducts)

	api := e.Group("/api/analysis")
	api.GET("/universe/:universe", analysisHandler.AnalyzeUniverse)
	api.GET("/category/:universe/:category", analysisHandler.AnalyzeCategory)
	api.GET("/family/:universe/:category/:family", analysisHandler.AnalyzeFamily)
	api.GET("/segment/:id", analysisHandler.AnalyzeSegment)
	api.GET("/evolution", analysisHandler.AnalyzeEvolution)

	// Admin routes for feed ingestion (requires FEED_API_KEY)
	feedAPIKey := os.Getenv("FEED_API_KEY")
	if feedAPIKey != "" {
		feedBaseURL := os.Getenv("FEED_BASE_URL")
		if feedBaseURL == "" {
			feedBaseURL = "https://feed.phardata.example/api/v1/datatables"
		}
		ingestClient := ingest.NewClient(feedBaseURL, feedAPIKey)
		ingestHandler := handlers.NewIngestHandler(ingestClient, repo)

		admin := e.Group("/admin")
		admin.GET("/ingest/status", ingestHandler.IngestStatus)
		admin.GET("/ingest/test", ingestHandler.IngestTest)
		admin.POST("/ingest/pharmacies", ingestHandler.IngestPharmacies)
		admin.POST("/ingest/catalog", ingestHandler.IngestCatalog)
		admin.POST("/ingest/sales", ingestHandler.IngestSales)
		admin.POST("/ingest/snapshots", ingestHandler.IngestSnapshots)
		log.Println("Ingestion endpoints registered")
	} else {
		log.Println("Warning: FEED_API_KEY not set, ingestion endpoints disabled")
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on :%s", port)
	if err := e.Start(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

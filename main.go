package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/openphotolab/enhancebackend/config"
	"github.com/openphotolab/enhancebackend/database"
	"github.com/openphotolab/enhancebackend/enhance"
	"github.com/openphotolab/enhancebackend/handlers"
	"github.com/openphotolab/enhancebackend/media"
	"github.com/openphotolab/enhancebackend/repository"
	"github.com/openphotolab/enhancebackend/utils"
	"github.com/openphotolab/enhancebackend/workers"
)

func main() {
	batchDir := flag.String("dir", "", "enhance all images under this directory and exit")
	flag.Parse()

	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	storagePaths := []string{cfg.EnhancedPath, cfg.OriginalsPath, filepath.Dir(cfg.DatabasePath)}
	for _, p := range storagePaths {
		log.Printf("Ensuring storage directory exists: %s", p)
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create storage directory %s: %v", p, err)
		}
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}

	mediaSubDirs := map[media.AssetType]string{
		media.AssetTypeEnhanced: filepath.Base(cfg.EnhancedPath),
		media.AssetTypeOriginal: filepath.Base(cfg.OriginalsPath),
	}
	mediaStore, err := media.NewLocalStorage(cfg.MediaStoragePath, mediaSubDirs)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize media store: %v", err)
	}

	enhancementRepo := repository.NewEnhancementRepository(db)

	log.Printf("Initializing enhancement worker pool (Workers: %d, Queue Size: %d)...", cfg.NumEnhanceWorkers, cfg.EnhanceQueueSize)
	pool := workers.NewEnhanceProcessor(cfg, mediaStore, enhancementRepo, cfg.EnhanceQueueSize, cfg.NumEnhanceWorkers)

	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Storing enhanced images in: %s", cfg.EnhancedPath)
	log.Printf("JPEG quality: %d", cfg.JpegQuality)

	if *batchDir != "" {
		runBatch(*batchDir, enhancementRepo, pool)
		return
	}

	// the inline processor serves synchronous API requests; it owns its own
	// detector, separate from the pool's per-worker detectors
	detector := enhance.NewCascadeDetector(cfg.FaceCascadePath)
	defer detector.Close()
	pipeline := enhance.NewPipeline(enhance.DefaultTunables(), cfg.Style, detector)
	inlineProcessor := media.NewProcessor(mediaStore, pipeline, cfg.JpegQuality)

	enhanceHandler := handlers.NewEnhanceHandler(enhancementRepo, mediaStore, inlineProcessor, pool)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-Enhancement-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/enhance", enhanceHandler.UploadAndEnhance)
		r.Route("/enhancements", func(r chi.Router) {
			r.Get("/", enhanceHandler.ListEnhancements)
			r.Get("/{id}", enhanceHandler.GetEnhancement)
		})

		enhancedSubDir := filepath.Base(cfg.EnhancedPath)
		r.Get(fmt.Sprintf("/%s/*", enhancedSubDir), handlers.AssetServer(cfg.MediaStoragePath, enhancedSubDir))
		log.Printf("Registered enhanced asset server at /api/%s/*", enhancedSubDir)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	fmt.Printf("Server starting on http://localhost:%s\n", port)
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}

// runBatch enhances every image under dir through the worker pool and waits
// for the queue to drain before exiting.
func runBatch(dir string, repo *repository.EnhancementRepository, pool *workers.EnhanceProcessor) {
	paths, err := utils.ListImageFiles(dir)
	if err != nil {
		log.Fatalf("FATAL: Failed to scan batch directory: %v", err)
	}
	log.Printf("Batch mode: found %d image(s) under %s", len(paths), dir)

	queued := 0
	for _, path := range paths {
		record, err := repo.Create(filepath.Base(path))
		if err != nil {
			log.Printf("Batch: ERROR creating record for %s: %v", path, err)
			continue
		}
		if pool.QueueJobBlocking(workers.EnhanceJob{RecordID: record.ID, SourceName: filepath.Base(path), Path: path}) {
			queued++
		}
	}

	log.Printf("Batch mode: queued %d job(s), waiting for completion...", queued)
	close(pool.JobQueue)
	pool.Wg.Wait()
	log.Printf("Batch mode: done")
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"TC-CERT/internal"
	"TC-CERT/internal/config"
	"TC-CERT/internal/handlers"
	"TC-CERT/internal/services"
	"TC-CERT/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	if err := internal.InitDB(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize storage client based on configuration
	ctx := context.Background()
	var storageClient storage.StorageClient
	var localStorageClient *storage.LocalStorageClient

	switch cfg.Storage.Type {
	case "local":
		log.Printf("Initializing local storage at: %s", cfg.Storage.LocalPath)
		client, err := storage.NewLocalStorageClient(cfg.Storage.LocalPath, cfg.Storage.LocalURL, cfg.Storage.SecretKey)
		if err != nil {
			log.Fatalf("Failed to initialize local storage client: %v", err)
		}
		storageClient = client
		localStorageClient = client
		log.Printf("Local storage initialized with base URL: %s", cfg.Storage.LocalURL)
	case "gcs":
		fallthrough
	default:
		log.Printf("Initializing GCS storage with bucket: %s", cfg.GCS.BucketName)
		client, err := storage.NewGCSClient(ctx, cfg.GCS.BucketName, cfg.GCS.ProjectID, cfg.GCS.CredentialsPath)
		if err != nil {
			log.Fatalf("Failed to initialize GCS client: %v", err)
		}
		storageClient = client
		log.Printf("GCS storage initialized")
	}
	defer storageClient.Close()

	// Initialize PDF service with configurable timeout. Issuance works
	// without it; PDFs are generated later via regenerate.
	pdfService, err := services.NewPDFService(cfg.Gotenberg.URL, cfg.Gotenberg.Timeout)
	if err != nil {
		log.Printf("Warning: Failed to initialize PDF service: %v", err)
		pdfService = nil
	} else {
		log.Printf("PDF service initialized with URL: %s, timeout: %s", cfg.Gotenberg.URL, cfg.Gotenberg.Timeout)
	}

	// Initialize services
	templateService := services.NewTemplateService(storageClient)
	editorService := services.NewEditorService(templateService)
	numberingService := services.NewNumberingService()
	statisticsService := services.NewStatisticsService()
	activityLogService := services.NewActivityLogService()
	courseTypeService := services.NewCourseTypeService()
	subjectService := services.NewSubjectService()

	// Seed the course type catalogue if none exist
	if err := courseTypeService.InitializeDefaultCourseTypes(); err != nil {
		log.Printf("Warning: Failed to initialize default course types: %v", err)
	}

	var renderer services.CertificateRenderer
	if pdfService != nil {
		renderer = pdfService
	}
	certificateService := services.NewCertificateService(storageClient, numberingService, renderer, statisticsService)

	// Initialize handlers
	courseTypeHandler := handlers.NewCourseTypeHandler(courseTypeService)
	templateHandler := handlers.NewTemplateHandler(templateService, editorService)
	certificateHandler := handlers.NewCertificateHandler(certificateService, storageClient)
	subjectHandler := handlers.NewSubjectHandler(subjectService)
	statisticsHandler := handlers.NewStatisticsHandler(statisticsService, activityLogService)

	// Initialize Gin router
	r := gin.Default()

	// CORS for the portal frontend
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	// Activity logging middleware
	r.Use(activityLogService.LoggingMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   "1.0.0",
			"storage":   cfg.Storage.Type,
		})
	})

	// Local file server endpoint (only for local storage with public URL configured)
	if localStorageClient != nil && cfg.Storage.LocalURL != "" && cfg.Storage.LocalURL != "internal://storage" {
		r.GET("/files/*filepath", func(c *gin.Context) {
			filePath := c.Param("filepath")
			if filePath == "" || filePath == "/" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "file path required"})
				return
			}
			if filePath[0] == '/' {
				filePath = filePath[1:]
			}

			// Reject path traversal attempts
			cleanPath := filepath.Clean(filePath)
			if strings.Contains(cleanPath, "..") || strings.HasPrefix(cleanPath, "/") || strings.HasPrefix(cleanPath, "\\") {
				c.JSON(http.StatusForbidden, gin.H{"error": "invalid file path"})
				return
			}

			// Always require signed URLs for file access
			expiresStr := c.Query("expires")
			signature := c.Query("signature")
			if signature == "" || expiresStr == "" {
				c.JSON(http.StatusForbidden, gin.H{"error": "signed URL required"})
				return
			}

			var expiresAt int64
			if _, err := fmt.Sscanf(expiresStr, "%d", &expiresAt); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expires parameter"})
				return
			}

			if !localStorageClient.VerifySignedURL(cleanPath, expiresAt, signature) {
				c.JSON(http.StatusForbidden, gin.H{"error": "invalid or expired signature"})
				return
			}

			// Verify the resolved path is within the storage directory
			fullPath := localStorageClient.GetFilePath(cleanPath)
			absPath, err := filepath.Abs(fullPath)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve path"})
				return
			}
			basePath, err := filepath.Abs(localStorageClient.GetBasePath())
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve base path"})
				return
			}
			if !strings.HasPrefix(absPath, basePath+string(filepath.Separator)) {
				c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
				return
			}

			c.File(fullPath)
		})
		log.Printf("Local file server enabled at /files/*")
	} else if localStorageClient != nil {
		log.Printf("Local storage in internal-only mode - files served via /certificates/:id/download")
	}

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Course type catalogue
		v1.POST("/course-types", courseTypeHandler.CreateCourseType)
		v1.GET("/course-types", courseTypeHandler.GetAllCourseTypes)
		v1.GET("/course-types/:id", courseTypeHandler.GetCourseType)
		v1.PUT("/course-types/:id", courseTypeHandler.UpdateCourseType)
		v1.DELETE("/course-types/:id", courseTypeHandler.DeleteCourseType)

		// Certificate templates
		v1.POST("/templates", templateHandler.CreateTemplate)
		v1.GET("/templates", templateHandler.GetAllTemplates)
		v1.GET("/templates/:id", templateHandler.GetTemplate)
		v1.PUT("/templates/:id", templateHandler.UpdateTemplate)
		v1.DELETE("/templates/:id", templateHandler.DeleteTemplate)
		v1.PUT("/templates/:id/fields", templateHandler.SaveTemplateFields)
		v1.POST("/templates/:id/background", templateHandler.UploadBackground)

		// Layout editor sessions
		v1.POST("/templates/:id/editor", templateHandler.OpenEditor)
		v1.POST("/templates/:id/editor/events", templateHandler.ApplyEditorEvents)
		v1.POST("/templates/:id/editor/fields", templateHandler.AddEditorField)
		v1.POST("/templates/:id/editor/fields/missing", templateHandler.AddMissingEditorFields)
		v1.DELETE("/templates/:id/editor/fields/:fieldId", templateHandler.RemoveEditorField)
		v1.POST("/templates/:id/editor/commit", templateHandler.CommitEditor)
		v1.POST("/templates/:id/editor/discard", templateHandler.DiscardEditor)

		// Certificate lifecycle
		v1.POST("/certificates", certificateHandler.IssueCertificate)
		v1.POST("/certificates/issue-all", certificateHandler.IssueAll)
		v1.POST("/certificates/regenerate-all", certificateHandler.RegenerateAll)
		v1.GET("/certificates", certificateHandler.GetAllCertificates)
		v1.GET("/certificates/:id", certificateHandler.GetCertificate)
		v1.GET("/certificates/:id/download", certificateHandler.DownloadCertificate)
		v1.POST("/certificates/:id/revoke", certificateHandler.RevokeCertificate)
		v1.POST("/certificates/:id/regenerate", certificateHandler.RegeneratePDF)

		// Subjects
		v1.POST("/delegates", subjectHandler.CreateDelegate)
		v1.GET("/delegates", subjectHandler.GetDelegates)
		v1.PUT("/delegates/:id/values", subjectHandler.UpdateDelegateValues)
		v1.POST("/candidates", subjectHandler.CreateCandidate)
		v1.GET("/candidates", subjectHandler.GetCandidates)
		v1.PUT("/candidates/:id/values", subjectHandler.UpdateCandidateValues)

		// Statistics and audit trail
		v1.GET("/statistics/summary", statisticsHandler.GetSummary)
		v1.GET("/statistics/course-types", statisticsHandler.GetCourseTypeStats)
		v1.GET("/statistics/timeseries", statisticsHandler.GetTimeSeries)
		v1.GET("/logs", statisticsHandler.GetActivityLogs)
	}

	// Create HTTP server with generous timeouts for PDF conversion
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s (environment: %s)", cfg.Server.Port, cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if err := internal.CloseDB(); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	if pdfService != nil {
		if err := pdfService.Close(); err != nil {
			log.Printf("Error closing PDF service: %v", err)
		}
	}

	log.Println("Server exited")
}

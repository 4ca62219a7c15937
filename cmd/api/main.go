package main

import (
	"log"
	"os"
	"strconv"

	_ "sitekhata/api/swagger" // swagger docs
	"sitekhata/internal/cache"
	"sitekhata/internal/database"
	"sitekhata/internal/handler"
	"sitekhata/internal/middleware"
	"sitekhata/internal/repository"
	"sitekhata/internal/service"
	"sitekhata/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Site Khata API
// @version         1.0
// @description     Approval-gated construction ledger: projects, cost-code ledgers, transactions, receivables/payables, materials, and worker attendance.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Statement cache: redis when configured, in-process otherwise
	var statementCache cache.Cache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
		redisCache, err := cache.OpenRedis(addr, redisDB)
		if err != nil {
			log.Fatalf("Redis connection failed: %v", err)
		}
		statementCache = redisCache
		log.Println("Connected to Redis successfully.")
	} else {
		statementCache = cache.NewMemory()
		log.Println("REDIS_ADDR not set, using in-process statement cache.")
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)

	userService := service.NewUserService(userRepo)
	ledgerService := service.NewLedgerService(db)
	registry := service.NewRegistry(ledgerService)
	stagingService := service.NewStagingService(db, txManager, registry, statementCache)
	approvalService := service.NewApprovalService(db, txManager, registry, wsHub, statementCache)
	statementService := service.NewStatementService(db, statementCache)
	hajariService := service.NewHajariService(db, stagingService)
	accountService := service.NewAccountService(db, statementCache)
	journalService := service.NewJournalService(db, statementCache)
	projectService := service.NewProjectService(db, txManager)
	auditService := service.NewAuditService(db)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	entityHandler := handler.NewEntityHandler(stagingService)
	approvalHandler := handler.NewApprovalHandler(approvalService, registry)
	statementHandler := handler.NewStatementHandler(statementService)
	hajariHandler := handler.NewHajariHandler(hajariService)
	accountHandler := handler.NewAccountHandler(accountService)
	journalHandler := handler.NewJournalHandler(journalService)
	projectHandler := handler.NewProjectHandler(projectService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	entityHandler.RegisterRoutes(router.Group(""))
	approvalHandler.RegisterRoutes(router.Group(""))
	statementHandler.RegisterRoutes(router.Group(""))
	hajariHandler.RegisterRoutes(router.Group(""))
	accountHandler.RegisterRoutes(router.Group(""))
	journalHandler.RegisterRoutes(router.Group(""))
	projectHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

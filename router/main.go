package router

import (
	"log"
	"time"

	"github.com/furnirent/furnirent-api/config"
	"github.com/furnirent/furnirent-api/database"
	"github.com/furnirent/furnirent-api/handlers"
	auth_handlers "github.com/furnirent/furnirent-api/handlers/auth"
	furniture_handlers "github.com/furnirent/furnirent-api/handlers/furniture"
	payment_handlers "github.com/furnirent/furnirent-api/handlers/payment"
	rental_handlers "github.com/furnirent/furnirent-api/handlers/rental"
	"github.com/furnirent/furnirent-api/services"
	"github.com/furnirent/furnirent-api/services/khalti"
	"github.com/furnirent/furnirent-api/services/spaces"
	"github.com/furnirent/furnirent-api/utils/auth"
	"github.com/furnirent/furnirent-api/utils/cache"
	"github.com/furnirent/furnirent-api/utils/middleware"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, store database.Storage) {
	env, err := config.Get()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	if env.JWT_SECRET == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := env.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "furnirent-api"
	}

	jwtConfig := auth.JWTConfig{
		Secret:        env.JWT_SECRET,
		Expiry:        24 * time.Hour,     // Access token expires in 24 hours
		RefreshExpiry: 7 * 24 * time.Hour, // Refresh token expires in 7 days
		Issuer:        jwtIssuer,
	}
	jwtManager := auth.NewJWTManager(jwtConfig)

	// Get DB instance (type assert from interface)
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// Redis cache backs brute force protection on login
	redisURL := env.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Brute force protection will be disabled.", err)
	}

	var bruteForceProtection *middleware.BruteForceProtection
	if redisCache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(redisCache)
	}

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	// Spaces client for furniture images; optional in development
	var spacesClient *spaces.Client
	if env.DO_SPACES_ACCESS_KEY != "" {
		spacesClient, err = spaces.NewClient(spaces.Config{
			AccessKey: env.DO_SPACES_ACCESS_KEY,
			SecretKey: env.DO_SPACES_SECRET_KEY,
			Bucket:    env.DO_SPACES_BUCKET,
			Region:    env.DO_SPACES_REGION,
			Endpoint:  env.DO_SPACES_ENDPOINT,
			CDNURL:    env.DO_SPACES_CDN_URL,
		})
		if err != nil {
			log.Printf("Warning: Failed to create Spaces client: %v. Image uploads will be disabled.", err)
		}
	}

	// Khalti gateway and the services built on it
	gateway := khalti.NewHTTPClient(env.KHALTI_BASE_URL, env.KHALTI_SECRET_KEY)
	rentalStore := database.NewRentalStore(db)
	checkoutService := services.NewCheckoutService(rentalStore, gateway, env.WEBSITE_URL)
	paymentService := services.NewPaymentService(rentalStore, gateway)

	// Handlers
	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, bruteForceProtection)
	furnitureHandler := furniture_handlers.NewFurnitureHandler(db, spacesClient)
	rentalHandler := rental_handlers.NewRentalHandler(db, checkoutService)
	khaltiHandler := payment_handlers.NewKhaltiHandler(checkoutService, paymentService)

	// Apply security middleware
	allowedOrigins := env.ALLOWED_ORIGINS
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	// Health check endpoint (public)
	app.Get("/ping", func(c *fiber.Ctx) error {
		return handlers.HandleCheckHealth(c, store)
	})

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)

	// Login with brute force protection
	if bruteForceProtection != nil {
		authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}

	authGroup.Post("/refresh", authHandler.RefreshToken)

	// Protected auth routes
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Post("/change-password", authMiddleware.Required(), authHandler.ChangePassword)
	authGroup.Get("/profile", authMiddleware.Required(), authHandler.Profile)
	authGroup.Put("/profile", authMiddleware.Required(), authHandler.UpdateProfile)

	// Furniture catalog (public reads, admin writes)
	furnitureGroup := api.Group("/furniture")
	furnitureGroup.Get("/", furnitureHandler.ListFurniture)
	furnitureGroup.Get("/:id", furnitureHandler.GetFurniture)
	furnitureGroup.Post("/", authMiddleware.Required(), middleware.RequireAdmin(), furnitureHandler.CreateFurniture)
	furnitureGroup.Put("/:id", authMiddleware.Required(), middleware.RequireAdmin(), furnitureHandler.UpdateFurniture)
	furnitureGroup.Delete("/:id", authMiddleware.Required(), middleware.RequireAdmin(), furnitureHandler.DeleteFurniture)
	furnitureGroup.Post("/:id/images", authMiddleware.Required(), middleware.RequireAdmin(), furnitureHandler.UploadImage)
	furnitureGroup.Delete("/:id/images/:imageId", authMiddleware.Required(), middleware.RequireAdmin(), furnitureHandler.DeleteImage)

	// Rental checkout and order management (customers)
	rentalGroup := api.Group("/rental", authMiddleware.Required())
	rentalGroup.Post("/place", rentalHandler.PlaceOrder)
	rentalGroup.Get("/my", rentalHandler.MyRentals)
	rentalGroup.Get("/:id", rentalHandler.GetOrder)
	rentalGroup.Post("/:id/cancel", rentalHandler.CancelOrder)

	// Khalti payment flow (customers)
	khaltiGroup := api.Group("/khalti", authMiddleware.Required())
	khaltiGroup.Post("/initiate", khaltiHandler.Initiate)
	khaltiGroup.Get("/verify", khaltiHandler.Verify)

	// Back-office (admin)
	adminGroup := api.Group("/admin", authMiddleware.Required(), middleware.RequireAdmin())
	adminGroup.Get("/rentals", rentalHandler.ListOrders)
	adminGroup.Patch("/rentals/lines/:id", rentalHandler.UpdateLineStatus)

	// 404 fallback with the standard error envelope
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Route not found",
		})
	})
}

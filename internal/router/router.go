package router

import (
	"database/sql"
	"net/http"
	"time"

	"gymcore_backend/internal/database"
	"gymcore_backend/internal/handlers"
	"gymcore_backend/internal/middleware"
	"gymcore_backend/internal/repositories"
	"gymcore_backend/internal/services"
	"gymcore_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Services is the wired service layer shared by the HTTP routes and the
// background workers.
type Services struct {
	Auth        services.AuthService
	Users       services.UserService
	Clients     services.ClientService
	Plans       services.PlanService
	Memberships services.MembershipService
	Attendance  services.AttendanceService
	Products    services.ProductService
	Sales       services.SaleService
	Finance     services.FinanceService
	Assets      services.AssetService
	Audit       services.AuditService
}

// NewServices builds every repository and service on top of db.
func NewServices(db *sql.DB, cal services.Calendar, jwt *utils.JWTManager) *Services {
	// Initialize Repositories
	userRepo := repositories.NewUserRepository(db)
	clientRepo := repositories.NewClientRepository(db)
	planRepo := repositories.NewPlanRepository(db)
	membershipRepo := repositories.NewMembershipRepository(db)
	attendanceRepo := repositories.NewAttendanceRepository(db)
	productRepo := repositories.NewProductRepository(db)
	movementRepo := repositories.NewStockMovementRepository(db)
	saleRepo := repositories.NewSaleRepository(db)
	financeRepo := repositories.NewFinanceRepository(db)
	cashRepo := repositories.NewCashRegisterRepository(db)
	assetRepo := repositories.NewAssetRepository(db)
	auditRepo := repositories.NewAuditRepository(db)
	tx := database.NewTxManager(db)

	// Initialize Services
	userService := services.NewUserService(userRepo)
	membershipService := services.NewMembershipService(membershipRepo, planRepo, clientRepo, tx, cal)

	return &Services{
		Auth:        services.NewAuthService(userRepo, jwt),
		Users:       userService,
		Clients:     services.NewClientService(clientRepo, membershipRepo, attendanceRepo, cal),
		Plans:       services.NewPlanService(planRepo),
		Memberships: membershipService,
		Attendance:  services.NewAttendanceService(attendanceRepo, clientRepo, membershipService, userService, cal),
		Products:    services.NewProductService(productRepo, movementRepo, tx),
		Sales:       services.NewSaleService(saleRepo, productRepo, movementRepo, tx, cal),
		Finance:     services.NewFinanceService(financeRepo, saleRepo, cashRepo, cal),
		Assets:      services.NewAssetService(assetRepo, cal),
		Audit:       services.NewAuditService(auditRepo, cal),
	}
}

// Dependencies carries what Setup needs beyond the services.
type Dependencies struct {
	Services          *Services
	JWT               *utils.JWTManager
	Location          *time.Location
	ScanRatePerMinute int
}

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, deps Dependencies) {
	svc := deps.Services

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(svc.Auth)
	userHandler := handlers.NewUserHandler(svc.Users)
	clientHandler := handlers.NewClientHandler(svc.Clients)
	membershipHandler := handlers.NewMembershipHandler(svc.Plans, svc.Memberships)
	attendanceHandler := handlers.NewAttendanceHandler(svc.Attendance, deps.Location)
	productHandler := handlers.NewProductHandler(svc.Products)
	saleHandler := handlers.NewSaleHandler(svc.Sales, deps.Location)
	financeHandler := handlers.NewFinanceHandler(svc.Finance, deps.Location)
	assetHandler := handlers.NewAssetHandler(svc.Assets)
	auditHandler := handlers.NewAuditHandler(svc.Audit, deps.Location)

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := engine.Group("/api/v1")

	// Public routes
	SetupPublicAuthRoutes(apiV1.Group("/auth"), authHandler)
	SetupScanRoutes(apiV1.Group("/attendance"), attendanceHandler, middleware.NewIPRateLimiter(deps.ScanRatePerMinute), svc.Audit)

	// Authenticated routes
	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware(deps.JWT), middleware.AuditMiddleware(svc.Audit))
	{
		SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), authHandler)
		SetupUserRoutes(authenticated, userHandler)
		SetupClientRoutes(authenticated, clientHandler)
		SetupPlanRoutes(authenticated, membershipHandler)
		SetupMembershipRoutes(authenticated, membershipHandler)
		SetupAttendanceRoutes(authenticated, attendanceHandler)
		SetupProductRoutes(authenticated, productHandler)
		SetupSaleRoutes(authenticated, saleHandler)
		SetupFinanceRoutes(authenticated, financeHandler)
		SetupAssetRoutes(authenticated, assetHandler)
		SetupAuditRoutes(authenticated, auditHandler)
	}
}

// SetupPublicAuthRoutes registers the routes reachable without a token.
func SetupPublicAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/login", authHandler.LoginUser)
}

// SetupAuthenticatedAuthRoutes registers the token-protected auth routes.
func SetupAuthenticatedAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.GET("/me", authHandler.GetCurrentUser)
	group.POST("/register", middleware.RoleAuthMiddleware(managementRoles...), authHandler.RegisterUser)
}

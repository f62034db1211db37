package router

import (
	"gymcore_backend/internal/handlers"
	"gymcore_backend/internal/middleware"
	"gymcore_backend/internal/models"
	"gymcore_backend/internal/services"

	"github.com/gin-gonic/gin"
)

var (
	managementRoles = []string{models.RoleAdmin, models.RoleOwner}
	frontDeskRoles  = []string{models.RoleAdmin, models.RoleOwner, models.RoleReceptionist}
	floorRoles      = []string{models.RoleAdmin, models.RoleOwner, models.RoleReceptionist, models.RoleTrainer}
)

// SetupUserRoutes sets up the staff account routes.
func SetupUserRoutes(authenticatedGroup *gin.RouterGroup, userHandler *handlers.UserHandler) {
	userRoutes := authenticatedGroup.Group("/users")
	userRoutes.Use(middleware.RoleAuthMiddleware(managementRoles...))
	{
		userRoutes.GET("", userHandler.GetUsers)
		userRoutes.GET("/:id", userHandler.GetUserByID)
		userRoutes.PATCH("/:id", userHandler.UpdateUser)
		userRoutes.DELETE("/:id", userHandler.DeactivateUser)
	}
}

// SetupClientRoutes sets up the client routes.
func SetupClientRoutes(authenticatedGroup *gin.RouterGroup, clientHandler *handlers.ClientHandler) {
	clientRoutes := authenticatedGroup.Group("/clients")
	clientRoutes.Use(middleware.RoleAuthMiddleware(frontDeskRoles...))
	{
		clientRoutes.POST("", clientHandler.CreateClient)
		clientRoutes.GET("", clientHandler.GetClients)
		clientRoutes.GET("/qr/:qrCode", clientHandler.GetClientByQRCode)
		clientRoutes.GET("/:id", clientHandler.GetClientByID)
		clientRoutes.GET("/:id/card", clientHandler.GetClientCard)
		clientRoutes.PATCH("/:id", clientHandler.UpdateClient)
		clientRoutes.PATCH("/:id/medical-notes", clientHandler.UpdateMedicalNotes)
		clientRoutes.DELETE("/:id", clientHandler.DeleteClient)
	}
}

// SetupPlanRoutes sets up the membership plan catalog routes.
func SetupPlanRoutes(authenticatedGroup *gin.RouterGroup, membershipHandler *handlers.MembershipHandler) {
	planRoutes := authenticatedGroup.Group("/membership-plans")
	planRoutes.Use(middleware.RoleAuthMiddleware(frontDeskRoles...))
	{
		planRoutes.GET("", membershipHandler.GetPlans)
		planRoutes.GET("/:id", membershipHandler.GetPlanByID)

		managed := planRoutes.Group("")
		managed.Use(middleware.RoleAuthMiddleware(managementRoles...))
		{
			managed.POST("", membershipHandler.CreatePlan)
			managed.PATCH("/:id", membershipHandler.UpdatePlan)
			managed.DELETE("/:id", membershipHandler.DeletePlan)
		}
	}
}

// SetupMembershipRoutes sets up the membership lifecycle routes.
func SetupMembershipRoutes(authenticatedGroup *gin.RouterGroup, membershipHandler *handlers.MembershipHandler) {
	membershipRoutes := authenticatedGroup.Group("/memberships")
	membershipRoutes.Use(middleware.RoleAuthMiddleware(frontDeskRoles...))
	{
		membershipRoutes.POST("", membershipHandler.AssignMembership)
		membershipRoutes.GET("/expiring", membershipHandler.GetExpiring)
		membershipRoutes.GET("/client/:clientId", membershipHandler.GetClientMemberships)
		membershipRoutes.PATCH("/:id/freeze", membershipHandler.FreezeMembership)
		membershipRoutes.PATCH("/:id/unfreeze", membershipHandler.UnfreezeMembership)
		membershipRoutes.PATCH("/:id/cancel", membershipHandler.CancelMembership)
	}
}

// SetupScanRoutes sets up the unauthenticated, rate-limited scanner route.
// Scans are audited without a user.
func SetupScanRoutes(group *gin.RouterGroup, attendanceHandler *handlers.AttendanceHandler, limiter *middleware.IPRateLimiter, audit services.AuditService) {
	group.POST("/scan", middleware.RateLimitMiddleware(limiter), middleware.AuditMiddleware(audit), attendanceHandler.Scan)
}

// SetupAttendanceRoutes sets up the check-in and visit history routes.
func SetupAttendanceRoutes(authenticatedGroup *gin.RouterGroup, attendanceHandler *handlers.AttendanceHandler) {
	attendanceRoutes := authenticatedGroup.Group("/attendance")
	{
		attendanceRoutes.POST("/mobile-check-in", middleware.RoleAuthMiddleware(floorRoles...), attendanceHandler.MobileCheckIn)
		attendanceRoutes.POST("/auto-checkout", middleware.RoleAuthMiddleware(managementRoles...), attendanceHandler.AutoCheckOut)

		desk := attendanceRoutes.Group("")
		desk.Use(middleware.RoleAuthMiddleware(frontDeskRoles...))
		{
			desk.POST("/check-in", attendanceHandler.CheckIn)
			desk.POST("/check-out/:clientId", attendanceHandler.CheckOut)
			desk.GET("/today", attendanceHandler.GetToday)
			desk.GET("/history", attendanceHandler.GetHistory)
			desk.GET("/client-stats/:clientId", attendanceHandler.GetClientStats)
		}
	}
}

// SetupProductRoutes sets up the retail catalog routes.
func SetupProductRoutes(authenticatedGroup *gin.RouterGroup, productHandler *handlers.ProductHandler) {
	productRoutes := authenticatedGroup.Group("/products")
	productRoutes.Use(middleware.RoleAuthMiddleware(frontDeskRoles...))
	{
		productRoutes.POST("", productHandler.CreateProduct)
		productRoutes.GET("", productHandler.GetProducts)
		productRoutes.GET("/low-stock", productHandler.GetLowStock)
		productRoutes.GET("/barcode/:barcode", productHandler.GetProductByBarcode)
		productRoutes.GET("/:id", productHandler.GetProductByID)
		productRoutes.GET("/:id/movements", productHandler.GetStockMovements)
		productRoutes.PATCH("/:id", productHandler.UpdateProduct)
		productRoutes.PATCH("/:id/stock", productHandler.AdjustStock)
		productRoutes.DELETE("/:id", productHandler.DeleteProduct)
	}
}

// SetupSaleRoutes sets up the point-of-sale routes.
func SetupSaleRoutes(authenticatedGroup *gin.RouterGroup, saleHandler *handlers.SaleHandler) {
	saleRoutes := authenticatedGroup.Group("/sales")
	saleRoutes.Use(middleware.RoleAuthMiddleware(frontDeskRoles...))
	{
		saleRoutes.POST("", saleHandler.CreateSale)
		saleRoutes.GET("", saleHandler.GetSales)
		saleRoutes.GET("/:id", saleHandler.GetSaleByID)
	}
}

// SetupFinanceRoutes sets up the reporting and cash register routes.
func SetupFinanceRoutes(authenticatedGroup *gin.RouterGroup, financeHandler *handlers.FinanceHandler) {
	financeRoutes := authenticatedGroup.Group("/finance")
	{
		reports := financeRoutes.Group("")
		reports.Use(middleware.RoleAuthMiddleware(managementRoles...))
		{
			reports.GET("/dashboard", financeHandler.GetDashboard)
			reports.GET("/daily", financeHandler.GetDailyReport)
			reports.GET("/sales-report", financeHandler.GetSalesReport)
			reports.GET("/income-chart", financeHandler.GetIncomeChart)
		}

		register := financeRoutes.Group("/cash-register")
		register.Use(middleware.RoleAuthMiddleware(frontDeskRoles...))
		{
			register.POST("/open", financeHandler.OpenCashRegister)
			register.POST("/:id/close", financeHandler.CloseCashRegister)
		}
	}
}

// SetupAssetRoutes sets up the equipment registry routes.
func SetupAssetRoutes(authenticatedGroup *gin.RouterGroup, assetHandler *handlers.AssetHandler) {
	assetRoutes := authenticatedGroup.Group("/assets")
	assetRoutes.Use(middleware.RoleAuthMiddleware(managementRoles...))
	{
		assetRoutes.POST("", assetHandler.CreateAsset)
		assetRoutes.GET("", assetHandler.GetAssets)
		assetRoutes.GET("/:id", assetHandler.GetAssetByID)
		assetRoutes.PATCH("/:id", assetHandler.UpdateAsset)
		assetRoutes.DELETE("/:id", assetHandler.RetireAsset)
	}
}

// SetupAuditRoutes sets up the audit trail route.
func SetupAuditRoutes(authenticatedGroup *gin.RouterGroup, auditHandler *handlers.AuditHandler) {
	auditRoutes := authenticatedGroup.Group("/audit")
	auditRoutes.Use(middleware.RoleAuthMiddleware(managementRoles...))
	{
		auditRoutes.GET("", auditHandler.GetAuditLogs)
	}
}

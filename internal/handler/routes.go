package handler

import (
	"github.com/dcanales/billetera-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, authHandler *AuthHandler, ledgerHandler *LedgerHandler, settingsHandler *SettingsHandler, wsHandler *WebSocketHandler) {
	// API version 1
	api := e.Group("/api/v1")

	// Auth routes (credential endpoints are rate limited per client IP)
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register, middleware.RateLimitMiddleware(rateLimiter))
	auth.POST("/login", authHandler.Login, middleware.RateLimitMiddleware(rateLimiter))
	auth.POST("/logout", authHandler.Logout, authMiddleware.Authenticate())

	// Ledger routes (protected)
	ledger := api.Group("/ledger")
	ledger.Use(authMiddleware.Authenticate())
	ledger.GET("", ledgerHandler.GetLedger)
	ledger.GET("/summary", ledgerHandler.GetSummary)
	ledger.POST("/reset", ledgerHandler.Reset)

	// Transaction routes (protected)
	transactions := api.Group("/transactions")
	transactions.Use(authMiddleware.Authenticate())
	transactions.GET("", ledgerHandler.GetTransactions)
	transactions.POST("", ledgerHandler.CreateTransaction)
	transactions.PUT("/:id", ledgerHandler.UpdateTransaction)
	transactions.POST("/:id/delete-request", ledgerHandler.RequestDeleteTransaction)

	// Acquisition deletion shares the two-phase flow with transactions
	acquisitions := api.Group("/acquisitions")
	acquisitions.Use(authMiddleware.Authenticate())
	acquisitions.POST("/:id/delete-request", ledgerHandler.RequestDeleteAcquisition)

	// Pending deletion (protected)
	deletion := api.Group("/deletion")
	deletion.Use(authMiddleware.Authenticate())
	deletion.POST("/confirm", ledgerHandler.ConfirmDelete)
	deletion.POST("/cancel", ledgerHandler.CancelDelete)

	// Settings routes (protected)
	settings := api.Group("/settings")
	settings.Use(authMiddleware.Authenticate())
	settings.PUT("/profile", settingsHandler.UpdateProfile)
	settings.PUT("/categories", settingsHandler.UpdateCategories)
	settings.PUT("/cards", settingsHandler.UpdateCards)
	settings.PUT("/wishlist", settingsHandler.UpdateWishlist)
	settings.PUT("/acquisitions", settingsHandler.UpdateAcquisitions)
	settings.PUT("/cards/:id/paid-months/:year/:month", settingsHandler.SetPaidMonth)

	// Report routes (protected)
	reports := api.Group("/reports")
	reports.Use(authMiddleware.Authenticate())
	reports.GET("/categories/:type", ledgerHandler.GetCategoryReport)
	reports.GET("/cards/usage", ledgerHandler.GetCardUsage)
	reports.GET("/cards/:id/payments", ledgerHandler.GetCardPaymentStatus)

	// WebSocket event feed (token via query parameter)
	e.GET("/ws", wsHandler.HandleWS)
}

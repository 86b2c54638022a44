package main

import (
	"strings"

	"vendorsales-backend/internal/audit"
	"vendorsales-backend/internal/auth"
	"vendorsales-backend/internal/cache"
	"vendorsales-backend/internal/commission"
	"vendorsales-backend/internal/config"
	"vendorsales-backend/internal/dashboard"
	"vendorsales-backend/internal/database"
	"vendorsales-backend/internal/export"
	"vendorsales-backend/internal/httpx"
	"vendorsales-backend/internal/inventory"
	"vendorsales-backend/internal/logger"
	"vendorsales-backend/internal/models"
	"vendorsales-backend/internal/payout"
	"vendorsales-backend/internal/product"
	"vendorsales-backend/internal/risk"
	"vendorsales-backend/internal/sale"
	"vendorsales-backend/internal/seq"
	"vendorsales-backend/internal/vendor"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

func main() {
	cfg := config.Load()
	log := logger.Init(cfg.Log)
	db := database.Init(cfg)
	rdb, locker := cache.Connect(cfg)

	codes := seq.New(cfg.Timezone)
	lookup := inventory.NewCachedLookup(
		inventory.NewClient(cfg.InventoryURL, cfg.InventoryTimeout),
		rdb, cfg.InventoryCacheTTL, log,
	)
	scorer := risk.NewScorer(sale.NewHistory(db), cfg.Risk.FailOpen, log)

	sales := sale.NewService(db, scorer, lookup, codes, cfg.IMEI.RequireChecksum, log)
	ledger := commission.NewLedger(db)
	payouts := payout.NewService(db, codes, locker, log)
	vendors := vendor.NewService(db, codes, log)
	catalog := product.NewCatalog(db)
	exporter := export.NewExporter(db, ledger, sales, cfg.Timezone)

	app := fiber.New(fiber.Config{
		ErrorHandler: httpx.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(db))
	api.Post("/auth/login", auth.LoginHandler(cfg, db))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler(db))

	// Sales (vendors see their own)
	protected.Post("/sales", sale.SubmitSaleHandler(sales))
	protected.Get("/sales", sale.ListSalesHandler(sales, cfg.Timezone))
	protected.Get("/sales/check-imei", sale.CheckIMEIHandler(sales))
	protected.Get("/sales/:id", sale.GetSaleHandler(sales))

	protected.Get("/products", product.ListProductsHandler(catalog))

	// Commission ledger
	protected.Get("/commissions", commission.ListCommissionsHandler(ledger, cfg.Timezone))
	protected.Get("/commissions/summary", commission.CommissionSummaryHandler(ledger))

	protected.Get("/dashboard/sales-chart", dashboard.SalesChartHandler(db, cfg.Timezone))

	protected.Get("/exports/commissions", export.ExportCommissionsHandler(exporter))
	protected.Get("/exports/sales", export.ExportSalesHandler(exporter))

	// Admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Get("/dashboard/overview", dashboard.OverviewHandler(db))

	// Sale review
	adminRoutes.Post("/sales/:id/approve", sale.ApproveSaleHandler(sales))
	adminRoutes.Post("/sales/:id/reject", sale.RejectSaleHandler(sales))
	adminRoutes.Post("/sales/:id/rescore", sale.RescoreSaleHandler(sales))

	// Settlement
	adminRoutes.Get("/commissions/unclaimed", commission.UnclaimedCommissionsHandler(ledger))
	adminRoutes.Post("/commissions/recalculate", payout.RecalculateHandler(payouts))
	adminRoutes.Post("/payment-batches", payout.CreateBatchHandler(payouts, cfg.Timezone))
	adminRoutes.Get("/payment-batches", payout.ListBatchesHandler(payouts))
	adminRoutes.Get("/payment-batches/:id", payout.GetBatchHandler(payouts))
	adminRoutes.Post("/payment-batches/:id/process", payout.MarkProcessingHandler(payouts))
	adminRoutes.Post("/payment-batches/:id/complete", payout.CompleteBatchHandler(payouts))
	adminRoutes.Post("/payment-batches/:id/fail", payout.FailBatchHandler(payouts))

	// Vendors
	adminRoutes.Post("/vendors", vendor.CreateVendorHandler(vendors))
	adminRoutes.Get("/vendors", vendor.ListVendorsHandler(vendors))
	adminRoutes.Get("/vendors/:id", vendor.GetVendorHandler(vendors))
	adminRoutes.Put("/vendors/:id", vendor.UpdateVendorHandler(vendors))
	adminRoutes.Post("/vendors/:id/users", vendor.CreateVendorUserHandler(vendors))
	adminRoutes.Post("/vendors/:id/bank-accounts", vendor.CreateBankAccountHandler(vendors))
	adminRoutes.Get("/vendors/:id/bank-accounts", vendor.ListBankAccountsHandler(vendors))

	// Products
	adminRoutes.Post("/products", product.CreateProductHandler(catalog))
	adminRoutes.Put("/products/:id", product.UpdateProductHandler(catalog))

	// Audit logs
	adminRoutes.Get("/audit-logs", audit.ListAuditLogsHandler(db))

	log.Infof("server listening on port %s", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}

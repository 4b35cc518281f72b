package main

import (
	"log"
	"strings"

	"logis-backoffice/internal/auth"
	"logis-backoffice/internal/config"
	"logis-backoffice/internal/database"
	"logis-backoffice/internal/inspection"
	"logis-backoffice/internal/inventory"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)
	defer database.Close()

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // 엑셀 업로드 여유분
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"success": false,
					"message": e.Message,
				})
			}
			log.Println("[ERROR] 처리되지 않은 오류:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "서버 오류가 발생했습니다.",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register", auth.RegisterHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())
	protected.Get("/auth/users", auth.ListUsersHandler())
	protected.Post("/auth/users/:id/approve", auth.ApproveUserHandler())

	// 검수 (바코드 스캔)
	protected.Post("/inspection/upload", inspection.UploadHandler(cfg))
	protected.Get("/inspection/orders", inspection.OrdersStatusHandler())
	protected.Get("/inspection/orders/export", inspection.ExportOrdersHandler())
	protected.Get("/inspection/orders/:tracking_number", inspection.GetOrderHandler())
	protected.Post("/inspection/scan/product", inspection.ScanProductHandler(cfg))
	protected.Post("/inspection/scan/complete", inspection.CompleteHandler(cfg))
	protected.Get("/inspection/logs", inspection.LogsHandler())
	protected.Get("/inspection/batches", inspection.ListBatchesHandler())
	protected.Delete("/inspection/batches/:id", inspection.DeleteBatchHandler())

	// 재고조사
	protected.Post("/inventory/sessions", inventory.StartSessionHandler())
	protected.Get("/inventory/sessions", inventory.ListSessionsHandler())
	protected.Get("/inventory/sessions/active", inventory.ActiveSessionHandler())
	protected.Post("/inventory/sessions/:id/end", inventory.EndSessionHandler())
	protected.Get("/inventory/sessions/:id/records", inventory.ListRecordsHandler())
	protected.Get("/inventory/locations/:id/records", inventory.LocationRecordsHandler())
	protected.Post("/inventory/scan/location", inventory.ScanLocationHandler())
	protected.Post("/inventory/scan/product", inventory.ScanProductCountHandler())
	protected.Delete("/inventory/records/:id", inventory.DeleteRecordHandler())

	// 상품 마스터
	protected.Get("/catalog/products", inventory.ListProductsHandler())
	protected.Post("/catalog/products", inventory.SaveProductHandler())
	protected.Delete("/catalog/products/:id", inventory.DeleteProductHandler())
	protected.Post("/catalog/products/import", inventory.ImportProductsHandler())

	log.Println("서버 시작 port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}

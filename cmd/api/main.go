package main

import (
	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	"app/internal/infra/identity"
	"app/internal/infra/midtrans"
	"app/internal/infra/rajaongkir"
	infraRepo "app/internal/infra/repository"
	"app/internal/logger"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	//.envはローカル用。無くても環境変数から読む
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.GoEnv)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.AuditLog{},
		&model.InventoryAdjustment{},
	); err != nil {
		log.Fatal("migrate failed", zap.Error(err))
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//外部サービス
	verifier := identity.NewJWKSVerifier(cfg.IdentityJWKSURL, cfg.IdentityIssuer)
	rajaClient := rajaongkir.NewClient(cfg.RajaOngkirBaseURL, cfg.RajaOngkirAPIKey, log)
	snapClient := midtrans.NewClient(cfg.MidtransServerKey, cfg.MidtransProduction, log)

	//Usecase生成
	authUC := usecase.NewAuthUsecase(verifier, userRepo, cfg.AdminEmails, log)
	productUC := usecase.NewProductUsecase(productRepo, categoryRepo, inventoryRepo, auditRepo)
	cartUC := usecase.NewCartUsecase(cartRepo, cartItemRepo, productRepo)
	orderUC := usecase.NewOrderUsecase(txManager)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager)
	trackingUC := usecase.NewTrackingUsecase(orderRepo, orderItemRepo, rajaClient, log)
	shippingUC := usecase.NewShippingUsecase(rajaClient, cfg.ShippingOriginID, log)
	paymentUC := usecase.NewPaymentUsecase(snapClient, cartRepo, cartItemRepo, productRepo, log)
	reportUC := usecase.NewReportUsecase(orderRepo, orderItemRepo)

	//Echo起動
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	auth := middleware.RequireUser(verifier, userRepo)

	handler.NewAuthHandler(authUC).RegisterRoutes(e)
	handler.NewProductHandler(productUC).RegisterRoutes(e)
	handler.NewCartHandler(cartUC).RegisterRoutes(e, auth)
	handler.NewOrderHandler(orderUC, trackingUC).RegisterRoutes(e, auth)
	handler.NewShippingHandler(shippingUC).RegisterRoutes(e, auth)
	handler.NewPaymentHandler(paymentUC).RegisterRoutes(e, auth)
	handler.NewAdminOrderHandler(adminOrderUC, trackingUC, reportUC).RegisterRoutes(e, auth)
	handler.NewAdminProductHandler(productUC).RegisterRoutes(e, auth)

	addr := ":" + cfg.Port
	log.Info("server starting", zap.String("addr", addr))
	if err := e.Start(addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

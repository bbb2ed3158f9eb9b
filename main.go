// Package main ChargeGhar settlement API.
//
// @title           ChargeGhar Settlement API
// @version         1.0
// @description     Power-bank rental backend: payment intents, webhook settlement, wallet ledger, rental lifecycle.
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/itzmejanak/ChargeGhar-sub001/app/echoServer"
	paymentctrl "github.com/itzmejanak/ChargeGhar-sub001/app/echoServer/controller/payment"
	rentalctrl "github.com/itzmejanak/ChargeGhar-sub001/app/echoServer/controller/rental"
	walletctrl "github.com/itzmejanak/ChargeGhar-sub001/app/echoServer/controller/wallet"
	webhookctrl "github.com/itzmejanak/ChargeGhar-sub001/app/echoServer/controller/webhook"
	"github.com/itzmejanak/ChargeGhar-sub001/app/echoServer/validation"
	"github.com/itzmejanak/ChargeGhar-sub001/config"
	gatewayrepo "github.com/itzmejanak/ChargeGhar-sub001/repository/gateway"
	intentrepo "github.com/itzmejanak/ChargeGhar-sub001/repository/intent"
	queuerepo "github.com/itzmejanak/ChargeGhar-sub001/repository/queue"
	rentalrepo "github.com/itzmejanak/ChargeGhar-sub001/repository/rental"
	settingsrepo "github.com/itzmejanak/ChargeGhar-sub001/repository/settings"
	stationrepo "github.com/itzmejanak/ChargeGhar-sub001/repository/station"
	walletrepo "github.com/itzmejanak/ChargeGhar-sub001/repository/wallet"
	allocsvc "github.com/itzmejanak/ChargeGhar-sub001/service/allocation"
	paymentsvc "github.com/itzmejanak/ChargeGhar-sub001/service/payment"
	rentalsvc "github.com/itzmejanak/ChargeGhar-sub001/service/rental"
	settingssvc "github.com/itzmejanak/ChargeGhar-sub001/service/settings"
	walletsvc "github.com/itzmejanak/ChargeGhar-sub001/service/wallet"
	webhooksvc "github.com/itzmejanak/ChargeGhar-sub001/service/webhook"
	"github.com/itzmejanak/ChargeGhar-sub001/util/database"
)

func main() {

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	// DB: *sql.DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// repos
	ir := intentrepo.New(db)
	wr := walletrepo.New(db)
	rr := rentalrepo.New(db)
	str := stationrepo.New(db)
	setr := settingsrepo.New(db)
	qr := queuerepo.New(db)
	gates := gatewayrepo.NewRegistry(
		gatewayrepo.NewKhalti(cfg.KhaltiKey),
		gatewayrepo.NewEsewa(cfg.EsewaCode, cfg.EsewaKey),
	)

	// services
	sets := settingssvc.New(setr)
	ws := walletsvc.New(wr)
	rs := rentalsvc.New(db, rr, str, wr, sets, log)
	ps := paymentsvc.New(ir, gates, sets, cfg.CallbackBase, log)
	alloc := allocsvc.New(wr, rr, rs, sets)
	rec := webhooksvc.NewReconciler(db, ir, wr, gates, rs, log)

	// controllers
	v := validator.New()
	paymentC := &paymentctrl.Controller{Svc: ps, Alloc: alloc, V: v, Log: log}
	walletC := &walletctrl.Controller{Svc: ws, Log: log}
	rentalC := &rentalctrl.Controller{Svc: rs, Log: log}
	webhookC := &webhookctrl.Controller{Queue: qr, Gateways: gates, Log: log}

	// workers
	webhooksvc.NewWorker(qr, rec, log, 2*time.Second).Start(ctx)
	paymentsvc.NewSweeper(ps, log, time.Minute).Start(ctx)

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		pending, _ := qr.CountByStatus(c.Request().Context(), queuerepo.JobPending)
		dead, _ := qr.CountByStatus(c.Request().Context(), queuerepo.JobDead)
		return c.JSON(200, map[string]any{
			"status":               "ok",
			"webhook_jobs_pending": pending,
			"webhook_jobs_dead":    dead,
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Payment: paymentC,
		Wallet:  walletC,
		Rental:  rentalC,
		Webhook: webhookC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}
	if port == "" {
		port = "8080"
	}

	go func() {
		slog.Info("starting server", "port", port, "env", cfg.Env)
		if err := e.Start(":" + port); err != nil {
			slog.Error("server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "err", err)
	}
}

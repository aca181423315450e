// Package main library API.
//
// @title           Library Service API
// @version         1.0
// @description     Library borrowing service (books, borrowings, payments, users).
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

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/NataliiaPodoroha/library-service/app/echoServer"
	authctrl "github.com/NataliiaPodoroha/library-service/app/echoServer/controller/auth"
	bookctrl "github.com/NataliiaPodoroha/library-service/app/echoServer/controller/book"
	borrowingctrl "github.com/NataliiaPodoroha/library-service/app/echoServer/controller/borrowing"
	paymentctrl "github.com/NataliiaPodoroha/library-service/app/echoServer/controller/payment"
	"github.com/NataliiaPodoroha/library-service/app/echoServer/validation"
	"github.com/NataliiaPodoroha/library-service/config"
	bookrepo "github.com/NataliiaPodoroha/library-service/repository/book"
	borrowingrepo "github.com/NataliiaPodoroha/library-service/repository/borrowing"
	paymentrepo "github.com/NataliiaPodoroha/library-service/repository/payment"
	striperepo "github.com/NataliiaPodoroha/library-service/repository/stripe"
	userrepo "github.com/NataliiaPodoroha/library-service/repository/user"
	authsvc "github.com/NataliiaPodoroha/library-service/service/auth"
	booksvc "github.com/NataliiaPodoroha/library-service/service/book"
	borrowingsvc "github.com/NataliiaPodoroha/library-service/service/borrowing"
	paymentsvc "github.com/NataliiaPodoroha/library-service/service/payment"
	"github.com/NataliiaPodoroha/library-service/util/database"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB: *sql.DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	txm := database.NewTxManager(db)

	// repos
	ur := userrepo.New(db)
	br := bookrepo.New(db)
	rr := borrowingrepo.New(db)
	pr := paymentrepo.New(db)
	gw := striperepo.NewHTTP(cfg.StripeAPIKey)

	// services
	as := authsvc.New(ur, cfg.JWTSecret)
	bs := booksvc.New(br)
	rs := borrowingsvc.New(txm, rr, pr, gw, cfg.BaseURL)
	ps := paymentsvc.New(pr, gw)

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	borrowingC := &borrowingctrl.Controller{Svc: rs, V: v, Log: log}
	paymentC := &paymentctrl.Controller{Svc: ps, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:      authC,
		Book:      bookC,
		Borrowing: borrowingC,
		Payment:   paymentC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	slog.Info("starting server", "port", port, "env", cfg.Env)

	e.Logger.Fatal(e.Start(":" + port))
}

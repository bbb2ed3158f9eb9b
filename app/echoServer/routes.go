package echoServer

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/itzmejanak/ChargeGhar-sub001/app/echoServer/controller/payment"
	"github.com/itzmejanak/ChargeGhar-sub001/app/echoServer/controller/rental"
	"github.com/itzmejanak/ChargeGhar-sub001/app/echoServer/controller/wallet"
	"github.com/itzmejanak/ChargeGhar-sub001/app/echoServer/controller/webhook"
)

type C struct {
	Payment *payment.Controller
	Wallet  *wallet.Controller
	Rental  *rental.Controller
	Webhook *webhook.Controller

	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public: provider callbacks.
	e.POST("/webhooks/:provider", c.Webhook.Handle)

	// Auth
	auth := e.Group("/v1")
	auth.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(c.JWTSecret),

		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	// user_id extraction from the sub claim
	auth.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			tokenObj := ctx.Get("user")
			if tokenObj == nil {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			token, ok := tokenObj.(*jwt.Token)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			sub, ok := claims["sub"].(float64)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			ctx.Set("user_id", int64(sub))
			return next(ctx)
		}
	})

	// Payments
	auth.POST("/payments/:purpose/intent", c.Payment.CreateIntent)
	auth.GET("/payments/status/:intent_id", c.Payment.Status)
	auth.POST("/payments/calculate-options", c.Payment.CalculateOptions)

	// Wallet
	auth.GET("/wallet/balance", c.Wallet.Balance)
	auth.GET("/wallet/ledger", c.Wallet.Ledger)

	// Rentals
	auth.GET("/rentals/my", c.Rental.MyHistory)
	auth.GET("/rentals/:id", c.Rental.Detail)
	auth.POST("/rentals/:id/cancel", c.Rental.Cancel)
	auth.GET("/packages", c.Rental.ListPackages)
}

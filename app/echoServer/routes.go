package echoServer

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/NataliiaPodoroha/library-service/app/echoServer/controller/auth"
	"github.com/NataliiaPodoroha/library-service/app/echoServer/controller/book"
	"github.com/NataliiaPodoroha/library-service/app/echoServer/controller/borrowing"
	"github.com/NataliiaPodoroha/library-service/app/echoServer/controller/payment"
	"github.com/NataliiaPodoroha/library-service/app/echoServer/jwtx"
)

type C struct {
	Auth      *auth.Controller
	Book      *book.Controller
	Borrowing *borrowing.Controller
	Payment   *payment.Controller
	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)

	// Catalog reads are open to anonymous callers.
	pub.GET("/books", c.Book.List)
	pub.GET("/books/:id", c.Book.Detail)

	// Auth
	authG := e.Group("/v1")
	authG.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		},
	}))
	authG.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			uid, err := jwtx.UserIDFromContext(ctx)
			if err != nil {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			ctx.Set("user_id", uid)
			ctx.Set("is_staff", jwtx.IsStaffFromContext(ctx))
			return next(ctx)
		}
	})

	// Books (staff-gated in the controller)
	authG.POST("/books", c.Book.Create)
	authG.PUT("/books/:id", c.Book.Update)
	authG.DELETE("/books/:id", c.Book.Delete)

	// Borrowings
	authG.POST("/borrowings", c.Borrowing.Create)
	authG.GET("/borrowings", c.Borrowing.List)
	authG.GET("/borrowings/:id", c.Borrowing.Detail)
	authG.POST("/borrowings/:id/return", c.Borrowing.Return)

	// Payments
	authG.GET("/payments", c.Payment.List)
	authG.GET("/payments/:id", c.Payment.Detail)
	authG.GET("/payments/:id/success", c.Payment.Success)
	authG.GET("/payments/:id/cancel", c.Payment.Cancel)
}

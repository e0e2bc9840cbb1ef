package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vpetrenko/courtbooking/api"
	"github.com/vpetrenko/courtbooking/config"
	"github.com/vpetrenko/courtbooking/internal/auth"
	"github.com/vpetrenko/courtbooking/internal/service/account"
	"github.com/vpetrenko/courtbooking/internal/service/admin"
	"github.com/vpetrenko/courtbooking/internal/service/booking"
	"github.com/vpetrenko/courtbooking/internal/service/payment"
)

// Services bundles the use cases the HTTP surface exposes.
type Services struct {
	Accounts account.AccountUseCase
	Bookings booking.BookingUseCase
	Payments payment.PaymentUseCase
	Admins   admin.AdminUseCase
	Tokens   *auth.Tokens
}

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func Run(ctx context.Context, cfg *config.Config, svc Services) error {
	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: newRouter(svc),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newRouter(svc Services) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := api.NewAuthHandler(svc.Accounts, svc.Tokens)
	courtHandler := api.NewCourtHandler(svc.Bookings)
	reservationHandler := api.NewReservationHandler(svc.Bookings, svc.Payments)
	adminHandler := api.NewAdminHandler(svc.Admins)

	authHandler.Register(engine.Group("/auth"))
	courtHandler.Register(engine.Group("/courts"))

	authed := engine.Group("/", api.Authenticated(svc.Tokens))
	reservationHandler.Register(authed.Group("/reservations"))

	adminGroup := authed.Group("/admin", api.RequireAdmin())
	authHandler.RegisterValidation(adminGroup)
	adminHandler.Register(adminGroup)
	reservationHandler.RegisterAdmin(adminGroup.Group("/reservations"))

	return engine
}

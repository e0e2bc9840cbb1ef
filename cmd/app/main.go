package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vpetrenko/courtbooking/config"
	"github.com/vpetrenko/courtbooking/internal/auth"
	"github.com/vpetrenko/courtbooking/internal/bootstrap"
	"github.com/vpetrenko/courtbooking/internal/cache"
	"github.com/vpetrenko/courtbooking/internal/domain"
	"github.com/vpetrenko/courtbooking/internal/gateway"
	"github.com/vpetrenko/courtbooking/internal/kafka"
	"github.com/vpetrenko/courtbooking/internal/membership"
	"github.com/vpetrenko/courtbooking/internal/notify"
	"github.com/vpetrenko/courtbooking/internal/repository"
	"github.com/vpetrenko/courtbooking/internal/service/account"
	"github.com/vpetrenko/courtbooking/internal/service/admin"
	"github.com/vpetrenko/courtbooking/internal/service/booking"
	"github.com/vpetrenko/courtbooking/internal/service/payment"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	store := repository.NewPGStore(pool)
	if err := seed(ctx, store, cfg); err != nil {
		log.Fatal().Err(err).Msg("seed database")
	}

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.CourtsCacheTTL)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	dispatcher := notify.NewDispatcher(store, producer, cfg.Kafka.NotificationsTopic)

	var lookup account.MembershipLookup = membership.ParityLookup{}
	if cfg.Membership.RegistryURL != "" {
		lookup = membership.NewClient(cfg.Membership.RegistryURL, time.Duration(cfg.Membership.TimeoutSeconds)*time.Second)
	}

	gatewayClient := gateway.NewClient(cfg.Gateway.URL, cfg.Gateway.APIKey, time.Duration(cfg.Gateway.TimeoutSeconds)*time.Second)
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMin)*time.Minute)

	accountService := account.NewAccountService(store, lookup, redisCache, dispatcher)
	bookingService := booking.NewBookingService(store, redisCache, dispatcher)
	paymentService := payment.NewPaymentService(store, gatewayClient, payment.NewStoreAuthorizer(store), dispatcher)
	adminService := admin.NewAdminService(store, bookingService, paymentService, redisCache)

	if err := bootstrap.Run(ctx, cfg, bootstrap.Services{
		Accounts: accountService,
		Bookings: bookingService,
		Payments: paymentService,
		Admins:   adminService,
		Tokens:   tokens,
	}); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

// seed provisions the config singleton and the configured courts; reruns are
// no-ops.
func seed(ctx context.Context, store *repository.PGStore, cfg *config.Config) error {
	err := store.EnsureConfig(ctx, domain.Config{
		RequireEmailValidation: cfg.Booking.RequireEmailValidation,
		RequirePhoneValidation: cfg.Booking.RequirePhoneValidation,
		MemberPrice:            cfg.Booking.MemberPrice,
		NonMemberPrice:         cfg.Booking.NonMemberPrice,
		Currency:               cfg.Booking.Currency,
	})
	if err != nil {
		return err
	}

	for _, id := range cfg.Booking.Courts {
		court := &domain.Court{ID: id, Name: id, Active: true}
		if err := store.CreateCourt(ctx, court); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
	}
	return nil
}

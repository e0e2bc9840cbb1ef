package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vpetrenko/courtbooking/config"
	"github.com/vpetrenko/courtbooking/internal/email"
	"github.com/vpetrenko/courtbooking/internal/kafka"
	"github.com/vpetrenko/courtbooking/internal/notify"
	"github.com/vpetrenko/courtbooking/internal/sms"
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

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()
	smsSender := sms.NewSender()

	err = consumer.Consume(ctx, func(ctx context.Context, event notify.Event) error {
		for _, channel := range event.Channels {
			var sendErr error
			switch channel {
			case "sms":
				sendErr = smsSender.Send(ctx, event)
			default:
				sendErr = emailSender.Send(ctx, event)
			}
			if sendErr != nil {
				log.Error().Err(sendErr).Str("channel", channel).Str("event", string(event.Type)).Msg("send notification")
			}
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("consumer stopped")
	}
}

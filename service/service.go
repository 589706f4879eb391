package service

import (
	"context"
	"fmt"

	"github.com/apex/log"

	"github.com/DamianoLaRosa/Participium/config"
	"github.com/DamianoLaRosa/Participium/database"
	"github.com/DamianoLaRosa/Participium/events"
	"github.com/DamianoLaRosa/Participium/rabbitmq"
	"github.com/DamianoLaRosa/Participium/websocket"
)

// Service is the realtime core: it owns the lifecycle, chat and
// notification operations, and the fan-out path from committed writes to
// connected clients.
type Service struct {
	cfg       *config.Config
	db        *database.Database
	bus       *events.Bus
	hub       *websocket.Hub
	publisher *rabbitmq.Publisher
}

// New wires the service together. The RabbitMQ mirror is optional: with no
// AMQP_URL configured, events are delivered to WebSocket clients only.
func New(cfg *config.Config, db *database.Database) *Service {
	s := &Service{
		cfg: cfg,
		db:  db,
		bus: events.NewBus(),
		hub: websocket.NewHub(),
	}
	s.bindDelivery()

	if cfg.AMQPURL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.WithError(err).Warn("rabbitmq unavailable, continuing without event mirror")
		} else {
			s.publisher = publisher
			s.bindPublisher()
			log.WithField("exchange", cfg.AMQPExchange).Info("rabbitmq event mirror enabled")
		}
	}
	return s
}

// Start ensures the schema and runs the hub loop.
func (s *Service) Start(ctx context.Context) error {
	if err := s.db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	go s.hub.Run()
	return nil
}

// Stop releases the service's external connections.
func (s *Service) Stop() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.WithError(err).Error("failed to close rabbitmq publisher")
		}
	}
	if err := s.db.Close(); err != nil {
		log.WithError(err).Error("failed to close database")
	}
}

//go:build integration

package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"price_tracker/internal/domain"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) TestNotifier_Connection() {
	cfg := RabbitMQConfig{
		URL:        s.amqpURL,
		Exchange:   "test-exchange",
		RoutingKey: "test-routing-key",
		QueueName:  "test-queue",
	}

	notifier, err := NewRabbitMQ(cfg, s.logger)
	s.NoError(err)
	s.NotNil(notifier)

	err = notifier.Close()
	s.NoError(err)
}

func (s *RabbitMQIntegrationSuite) TestNotifier_AlertMessageFormat() {
	cfg := RabbitMQConfig{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-alert",
		RoutingKey: "test-routing-key-alert",
		QueueName:  "test-queue-alert",
	}

	notifier, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer notifier.Close()

	alert := &domain.AlertRequest{
		Recipient:    "user-1",
		ProductName:  "Apple iPhone 13 (Refurbished)",
		CurrentPrice: 28000,
		AlertPrice:   30000,
		ProductURL:   "https://www.cashify.in/buy-refurbished-mobile-phones/apple-iphone-13",
		ImageURL:     "https://img.example/i13.jpg",
	}

	err = notifier.Notify(s.ctx, alert)
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.NotNil(msg)

	s.Equal("application/json", msg.ContentType)
	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)

	var received AlertMessage
	err = json.Unmarshal(msg.Body, &received)
	s.NoError(err)
	s.Equal("user-1", received.Alert.Recipient)
	s.Equal("Apple iPhone 13 (Refurbished)", received.Alert.ProductName)
	s.Equal(int64(28000), received.Alert.CurrentPrice)
	s.Equal(int64(30000), received.Alert.AlertPrice)
	s.False(received.Timestamp.IsZero())
}

func (s *RabbitMQIntegrationSuite) consumeMessage(cfg RabbitMQConfig) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for message")
		return nil
	}
}

package services

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const expansionQueue = "campaign_expansion"

// expansionMessage is the payload carried on the expansion queue
type expansionMessage struct {
	CampaignID string `json:"campaign_id"`
}

// RabbitMQService publishes and consumes campaign expansion jobs
type RabbitMQService struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewRabbitMQService() (*RabbitMQService, error) {
	host := getEnv("RABBITMQ_HOST", "localhost")
	port := getEnv("RABBITMQ_PORT", "5672")
	user := getEnv("RABBITMQ_USER", "guest")
	pass := getEnv("RABBITMQ_PASS", "guest")

	url := fmt.Sprintf("amqp://%s:%s@%s:%s/", user, pass, host, port)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = channel.QueueDeclare(
		expansionQueue, // name
		true,           // durable
		false,          // delete when unused
		false,          // exclusive
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	logrus.Info("RabbitMQ service initialized successfully")
	return &RabbitMQService{conn: conn, channel: channel}, nil
}

// PublishExpansion enqueues an expansion job for a campaign
func (s *RabbitMQService) PublishExpansion(campaignID string) error {
	body, err := json.Marshal(expansionMessage{CampaignID: campaignID})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = s.channel.Publish(
		"",             // exchange
		expansionQueue, // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logrus.Infof("Expansion job published for campaign %s", campaignID)
	return nil
}

// StartExpansionConsumer runs the expansion worker loop in a goroutine.
// Each delivery is acked after processing; a failed expansion already
// marked the campaign failed, so the message is never requeued.
func (s *RabbitMQService) StartExpansionConsumer(expander *ExpanderService) error {
	deliveries, err := s.channel.Consume(
		expansionQueue, // queue
		"",             // consumer
		false,          // auto-ack
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,            // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	go func() {
		for d := range deliveries {
			var msg expansionMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				logrus.Errorf("Discarding malformed expansion message: %v", err)
				d.Ack(false)
				continue
			}
			if err := expander.Expand(msg.CampaignID); err != nil {
				logrus.Errorf("Expansion of campaign %s failed: %v", msg.CampaignID, err)
			}
			d.Ack(false)
		}
		logrus.Warn("Expansion consumer channel closed")
	}()

	logrus.Info("Expansion consumer started")
	return nil
}

// Close closes the RabbitMQ connection
func (s *RabbitMQService) Close() error {
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			logrus.Errorf("Error closing channel: %v", err)
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			logrus.Errorf("Error closing connection: %v", err)
		}
	}
	return nil
}

// InProcessPublisher runs expansions on a local goroutine when no broker is
// available. Used as a fallback so a missing RabbitMQ never blocks
// campaign creation in development.
type InProcessPublisher struct {
	expander *ExpanderService
}

func NewInProcessPublisher(expander *ExpanderService) *InProcessPublisher {
	return &InProcessPublisher{expander: expander}
}

func (p *InProcessPublisher) PublishExpansion(campaignID string) error {
	go func() {
		if err := p.expander.Expand(campaignID); err != nil {
			logrus.Errorf("Expansion of campaign %s failed: %v", campaignID, err)
		}
	}()
	return nil
}

// getEnv gets environment variable with fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

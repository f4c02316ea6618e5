package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"client-signal-tracker/models"
	"client-signal-tracker/utils"

	"github.com/segmentio/kafka-go"
)

// ClientEvent mirrors the envelope the handlers publish on the client
// change stream.
type ClientEvent struct {
	Event string        `json:"event"`
	Data  models.Client `json:"data"`
}

// ClientConsumer projects client change events into the elasticsearch
// search index and drops the stale list cache. The store itself is the
// source of truth; this consumer only maintains derived views.
type ClientConsumer struct {
	cache    utils.RedisClient
	es       utils.ElasticsearchClient
	reader   *kafka.Reader
	shutdown chan struct{}
}

func NewClientConsumer(cache utils.RedisClient, es utils.ElasticsearchClient) *ClientConsumer {
	return &ClientConsumer{
		cache: cache,
		es:    es,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: []string{os.Getenv("KAFKA_BROKER")},
			Topic:   utils.ClientEventsTopic,
			GroupID: "client-signal-group",
			MaxWait: 10 * time.Second,
		}),
		shutdown: make(chan struct{}),
	}
}

func (c *ClientConsumer) Start(ctx context.Context) {
	log.Println("Starting Kafka consumer...")

	go func() {
		for {
			select {
			case <-c.shutdown:
				return
			default:
				c.processMessages(ctx)
			}
		}
	}()
}

func (c *ClientConsumer) Stop() {
	close(c.shutdown)
	if err := c.reader.Close(); err != nil {
		log.Printf("Error closing Kafka reader: %v", err)
	}
}

func (c *ClientConsumer) processMessages(ctx context.Context) {
	msg, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if err == context.Canceled {
			return
		}
		log.Printf("Kafka read error: %v (will retry)", err)
		time.Sleep(5 * time.Second)
		return
	}

	var event ClientEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Printf("Failed to unmarshal Kafka message: %v", err)
		return
	}

	switch event.Event {
	case "client_created", "client_updated":
		c.handleClientUpserted(ctx, event.Data)
	case "client_deleted":
		c.handleClientDeleted(ctx, event.Data.ID)
	default:
		log.Printf("Unknown event type: %s", event.Event)
	}
}

func (c *ClientConsumer) handleClientUpserted(ctx context.Context, client models.Client) {
	if c.es != nil {
		if err := c.es.IndexClient(ctx, fmt.Sprintf("%d", client.ID), client); err != nil {
			log.Printf("Failed to index client in Elasticsearch: %v", err)
		}
	}

	c.dropListCache(ctx)

	log.Printf("Projected upsert for client ID %d", client.ID)
}

func (c *ClientConsumer) handleClientDeleted(ctx context.Context, clientID uint) {
	if c.es != nil {
		if err := c.es.DeleteClient(ctx, fmt.Sprintf("%d", clientID)); err != nil {
			log.Printf("Failed to delete client from Elasticsearch: %v", err)
		}
	}

	c.dropListCache(ctx)

	log.Printf("Projected delete for client ID %d", clientID)
}

func (c *ClientConsumer) dropListCache(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.DeleteFromCache(ctx, "clients:all"); err != nil {
		log.Printf("Failed to drop list cache: %v", err)
	}
}

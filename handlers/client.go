package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"client-signal-tracker/models"
	"client-signal-tracker/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	listCacheKey = "clients:all"
	listCacheTTL = 30 * time.Second
)

// ClientHandler maps the HTTP surface onto the record store. The
// cache, kafka and search collaborators are optional; a nil value
// simply disables that integration.
type ClientHandler struct {
	repo  models.Repository
	cache utils.RedisClient
	kafka utils.KafkaProducer
	es    utils.ElasticsearchClient
}

func NewClientHandler(repo models.Repository, cache utils.RedisClient, kafka utils.KafkaProducer, es utils.ElasticsearchClient) *ClientHandler {
	return &ClientHandler{
		repo:  repo,
		cache: cache,
		kafka: kafka,
		es:    es,
	}
}

// ListClients returns every record, newest first. When a cache is
// attached the serialized list is served from it until a write
// invalidates the key.
func (h *ClientHandler) ListClients(c *gin.Context) {
	if h.cache != nil {
		cached, err := h.cache.GetFromCache(c.Request.Context(), listCacheKey)
		if err == nil {
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
			return
		}
		if !errors.Is(err, redis.Nil) {
			log.Printf("List cache read failed: %v", err)
		}
	}

	clients, err := h.repo.ListClients()
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if h.cache != nil {
		if body, err := json.Marshal(clients); err == nil {
			if err := h.cache.SetToCache(c.Request.Context(), listCacheKey, string(body), listCacheTTL); err != nil {
				log.Printf("List cache write failed: %v", err)
			}
		}
	}

	c.JSON(http.StatusOK, clients)
}

func (h *ClientHandler) CreateClient(c *gin.Context) {
	var payload models.ClientPayload
	// A malformed body normalizes to an empty payload and fails
	// validation with field-level messages instead of a decode error.
	_ = c.ShouldBindJSON(&payload)

	fields := payload.Normalize()
	if errs := fields.Validate(); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return
	}

	client := &models.Client{}
	fields.Apply(client)

	if err := h.repo.CreateClient(client); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.invalidateListCache(c.Request.Context())
	if h.kafka != nil {
		go h.sendClientEvent("client_created", client)
	}

	c.JSON(http.StatusCreated, client)
}

func (h *ClientHandler) UpdateClient(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID format"})
		return
	}

	var payload models.ClientPayload
	_ = c.ShouldBindJSON(&payload)

	fields := payload.Normalize()
	if errs := fields.Validate(); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return
	}

	client, err := h.repo.GetClientByID(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Full replacement of the mutable fields: anything the payload
	// omitted was normalized to nil (or the default status) and lands
	// in storage that way.
	fields.Apply(client)

	if err := h.repo.UpdateClient(client); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.invalidateListCache(c.Request.Context())
	if h.kafka != nil {
		go h.sendClientEvent("client_updated", client)
	}

	c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) DeleteClient(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID format"})
		return
	}

	if err := h.repo.DeleteClient(id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.invalidateListCache(c.Request.Context())
	if h.kafka != nil {
		go h.sendClientEvent("client_deleted", &models.Client{ID: id})
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// ResetDB clears every record in one statement.
func (h *ClientHandler) ResetDB(c *gin.Context) {
	if err := h.repo.ClearClients(); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not reset database: " + err.Error()})
		return
	}

	h.invalidateListCache(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{"reset": true})
}

// SearchClients serves full-text search from the elasticsearch
// projection maintained by the event consumer.
func (h *ClientHandler) SearchClients(c *gin.Context) {
	if h.es == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not available"})
		return
	}

	term := c.Query("q")
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	results, err := h.es.SearchClients(c.Request.Context(), term)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// Helpers

func (h *ClientHandler) invalidateListCache(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.DeleteFromCache(ctx, listCacheKey); err != nil {
		log.Printf("List cache invalidation failed: %v", err)
	}
}

func (h *ClientHandler) sendClientEvent(eventType string, client *models.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := ClientEvent{
		Event: eventType,
		Data:  *client,
	}
	jsonData, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal Kafka event: %v", err)
		return
	}

	if err := h.kafka.SendMessage(ctx, utils.ClientEventsTopic, nil, jsonData); err != nil {
		log.Printf("Failed to send Kafka message: %v", err)
	}
}

// ClientEvent is the envelope published on the client change stream.
type ClientEvent struct {
	Event string        `json:"event"`
	Data  models.Client `json:"data"`
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

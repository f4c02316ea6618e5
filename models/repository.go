package models

import (
	"errors"
	"fmt"

	"client-signal-tracker/monitoring"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("record not found")

type Repository interface {
	ListClients() ([]Client, error)
	CreateClient(client *Client) error
	GetClientByID(id uint) (*Client, error)
	UpdateClient(client *Client) error
	DeleteClient(id uint) error
	ClearClients() error
	Ping() error
	Close() error
}

type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository opens (or creates) the database file at path and
// ensures the clients table exists. Safe to call on every start.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&Client{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// ListClients returns every record, newest first, id descending on
// created_at ties.
func (r *SQLiteRepository) ListClients() ([]Client, error) {
	monitoring.DatabaseQueries.Inc()
	clients := make([]Client, 0)
	if err := r.db.Order("created_at DESC, id DESC").Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

func (r *SQLiteRepository) CreateClient(client *Client) error {
	monitoring.DatabaseQueries.Inc()
	if err := r.db.Create(client).Error; err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetClientByID(id uint) (*Client, error) {
	monitoring.DatabaseQueries.Inc()
	var client Client
	if err := r.db.First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &client, nil
}

// UpdateClient replaces every mutable column of an existing record.
func (r *SQLiteRepository) UpdateClient(client *Client) error {
	monitoring.DatabaseQueries.Inc()
	result := r.db.Model(client).Select(
		"full_name", "company", "email", "phone", "status",
		"go_factors", "no_go_factors", "notes",
	).Updates(client)
	if result.Error != nil {
		return fmt.Errorf("failed to update client: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteClient(id uint) error {
	monitoring.DatabaseQueries.Inc()
	result := r.db.Delete(&Client{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete client: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearClients removes all records in a single statement. Clearing
// rows instead of deleting the file avoids file locks on Windows.
func (r *SQLiteRepository) ClearClients() error {
	monitoring.DatabaseQueries.Inc()
	if err := r.db.Exec("DELETE FROM clients").Error; err != nil {
		return fmt.Errorf("failed to clear clients: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Ping() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (r *SQLiteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

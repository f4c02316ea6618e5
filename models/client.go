package models

import "time"

// ClientStatus is the go/no-go pipeline stage of a client.
type ClientStatus string

const (
	StatusProspect  ClientStatus = "prospect"
	StatusActive    ClientStatus = "active"
	StatusClosed    ClientStatus = "closed"
	StatusChurnRisk ClientStatus = "churn_risk"
)

// DefaultStatus is filled in whenever a payload omits the status field.
const DefaultStatus = StatusProspect

func (s ClientStatus) Valid() bool {
	switch s {
	case StatusProspect, StatusActive, StatusClosed, StatusChurnRisk:
		return true
	}
	return false
}

// Client is the single persisted entity: a prospective or existing
// customer plus free-text sales-signal notes. Optional columns are
// pointers so an absent value stays NULL in storage and null in JSON.
type Client struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	FullName    string       `gorm:"not null" json:"full_name"`
	Company     *string      `json:"company"`
	Email       *string      `json:"email"`
	Phone       *string      `json:"phone"`
	Status      ClientStatus `gorm:"not null;default:prospect" json:"status"`
	GoFactors   *string      `json:"go_factors"`
	NoGoFactors *string      `json:"no_go_factors"`
	Notes       *string      `json:"notes"`
	CreatedAt   time.Time    `json:"created_at"`
}

package model

import (
	"time"
)

// Table and column names of the laptop request relation.
const (
	LaptopRequestsTable = "laptop_requests"
	AdminsTable         = "admins"

	ColumnID                = "id"
	ColumnDestinationID     = "destination_id"
	ColumnCustomerName      = "customer_name"
	ColumnCustomerEmail     = "customer_email"
	ColumnCustomerPhone     = "customer_phone"
	ColumnLaptopModel       = "laptop_model"
	ColumnLaptopSerial      = "laptop_serial"
	ColumnPowerRequirements = "power_requirements"
	ColumnSeatingPreference = "seating_preference"
	ColumnNotes             = "notes"
	ColumnCreatedAt         = "created_at"
)

// LaptopRequestColumns lists every column of laptop_requests in table order.
var LaptopRequestColumns = []string{
	ColumnID,
	ColumnDestinationID,
	ColumnCustomerName,
	ColumnCustomerEmail,
	ColumnCustomerPhone,
	ColumnLaptopModel,
	ColumnLaptopSerial,
	ColumnPowerRequirements,
	ColumnSeatingPreference,
	ColumnNotes,
	ColumnCreatedAt,
}

// IsLaptopRequestColumn reports whether name is a known laptop_requests column.
func IsLaptopRequestColumn(name string) bool {
	for _, c := range LaptopRequestColumns {
		if c == name {
			return true
		}
	}
	return false
}

// LaptopRequest represents a laptop rental request attached to a destination.
type LaptopRequest struct {
	ID                int64     `json:"id"`
	DestinationID     *int64    `json:"destination_id"`
	CustomerName      string    `json:"customer_name"`
	CustomerEmail     *string   `json:"customer_email"`
	CustomerPhone     *string   `json:"customer_phone"`
	LaptopModel       *string   `json:"laptop_model"`
	LaptopSerial      *string   `json:"laptop_serial"`
	PowerRequirements *string   `json:"power_requirements"`
	SeatingPreference *string   `json:"seating_preference"`
	Notes             *string   `json:"notes"`
	CreatedAt         time.Time `json:"created_at"`
}

// ToRow converts r to its column-keyed form. Unset optional columns become nil.
func (r LaptopRequest) ToRow() Row {
	row := Row{
		ColumnID:           r.ID,
		ColumnCustomerName: r.CustomerName,
		ColumnCreatedAt:    r.CreatedAt,
	}
	if r.DestinationID != nil {
		row[ColumnDestinationID] = *r.DestinationID
	} else {
		row[ColumnDestinationID] = nil
	}
	optional := map[string]*string{
		ColumnCustomerEmail:     r.CustomerEmail,
		ColumnCustomerPhone:     r.CustomerPhone,
		ColumnLaptopModel:       r.LaptopModel,
		ColumnLaptopSerial:      r.LaptopSerial,
		ColumnPowerRequirements: r.PowerRequirements,
		ColumnSeatingPreference: r.SeatingPreference,
		ColumnNotes:             r.Notes,
	}
	for column, v := range optional {
		if v != nil {
			row[column] = *v
		} else {
			row[column] = nil
		}
	}
	return row
}

// Row is a laptop request keyed by column name, as exchanged with the backend.
// Values keep their JSON form so columns the service does not know about pass
// through untouched.
type Row map[string]any

// Subject is an authenticated caller as reported by the identity provider.
type Subject struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

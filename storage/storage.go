// Package storage persists customers and bookings.
package storage

import (
	"context"
	"time"
)

type Customer struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// Booking is a stored appointment joined with its customer.
type Booking struct {
	ID           int64
	CustomerID   int64
	CustomerName string
	Email        string
	Phone        string
	Service      string
	Date         string
	Time         string
	Status       string
	CreatedAt    time.Time
}

// Filter narrows a booking listing. Zero value lists everything.
type Filter struct {
	// Search matches customer name or email, case-insensitive substring.
	Search string
	// Email matches the customer email exactly (case-insensitive).
	Email string
	// Phone matches on digits only; separators are ignored on both sides.
	Phone string
}

// Update carries the mutable booking fields; nil members are left unchanged.
type Update struct {
	Service *string
	Date    *string
	Time    *string
	Status  *string
}

// BookingStore is the structured storage collaborator.
type BookingStore interface {
	// GetOrCreateCustomer is idempotent per unique email: repeated calls
	// with the same email return the same customer id.
	GetOrCreateCustomer(ctx context.Context, name, email, phone string) (int64, error)
	CreateBooking(ctx context.Context, customerID int64, service, date, timeOfDay string) (int64, error)
	ListBookings(ctx context.Context, filter Filter) ([]Booking, error)
	BookingByID(ctx context.Context, id int64) (*Booking, error)
	UpdateBooking(ctx context.Context, id int64, update Update) error
	CancelBooking(ctx context.Context, id int64) error
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	return pool, nil
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the customer and booking tables.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			customer_id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			phone TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id BIGSERIAL PRIMARY KEY,
			customer_id BIGINT NOT NULL REFERENCES customers(customer_id),
			booking_type TEXT NOT NULL,
			date DATE NOT NULL,
			time TIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'confirmed',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		"CREATE INDEX IF NOT EXISTS idx_customers_email ON customers(email)",
		"CREATE INDEX IF NOT EXISTS idx_bookings_date ON bookings(date)",
		"CREATE INDEX IF NOT EXISTS idx_bookings_customer ON bookings(customer_id)",
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) GetOrCreateCustomer(ctx context.Context, name, email, phone string) (int64, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var id int64
	err := s.pool.QueryRow(ctx, "SELECT customer_id FROM customers WHERE email = $1", email).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("query customer: %w", err)
	}

	// ON CONFLICT keeps the call idempotent if two turns race on the same
	// email between the select and the insert.
	err = s.pool.QueryRow(ctx, `
		INSERT INTO customers (name, email, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING customer_id
	`, name, email, phone).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert customer: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) CreateBooking(ctx context.Context, customerID int64, service, date, timeOfDay string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO bookings (customer_id, booking_type, date, time, status)
		VALUES ($1, $2, $3::date, $4::time, 'confirmed')
		RETURNING id
	`, customerID, service, date, timeOfDay).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert booking: %w", err)
	}
	return id, nil
}

const bookingColumns = `
	b.id, b.customer_id, c.name, c.email, c.phone, b.booking_type,
	to_char(b.date, 'YYYY-MM-DD'), to_char(b.time, 'HH24:MI'), b.status, b.created_at
`

func (s *PostgresStore) ListBookings(ctx context.Context, filter Filter) ([]Booking, error) {
	query := "SELECT " + bookingColumns + `
		FROM bookings b
		JOIN customers c ON c.customer_id = b.customer_id`

	conditions := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(c.name ILIKE $%d OR c.email ILIKE $%d)", len(args), len(args)))
	}
	if filter.Email != "" {
		args = append(args, strings.ToLower(strings.TrimSpace(filter.Email)))
		conditions = append(conditions, fmt.Sprintf("LOWER(c.email) = $%d", len(args)))
	}
	if filter.Phone != "" {
		args = append(args, digitsOnly(filter.Phone))
		conditions = append(conditions, fmt.Sprintf(`regexp_replace(c.phone, '\D', '', 'g') = $%d`, len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY b.created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return bookings, nil
}

func (s *PostgresStore) BookingByID(ctx context.Context, id int64) (*Booking, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+bookingColumns+`
		FROM bookings b
		JOIN customers c ON c.customer_id = b.customer_id
		WHERE b.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query booking: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return nil, rows.Err()
		}
		return nil, nil
	}
	booking, err := scanBooking(rows)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (s *PostgresStore) UpdateBooking(ctx context.Context, id int64, update Update) error {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)

	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		switch column {
		case "date":
			sets = append(sets, fmt.Sprintf("date = $%d::date", len(args)))
		case "time":
			sets = append(sets, fmt.Sprintf("time = $%d::time", len(args)))
		default:
			sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}
	add("booking_type", update.Service)
	add("date", update.Date)
	add("time", update.Time)
	add("status", update.Status)

	if len(sets) == 0 {
		return fmt.Errorf("no booking fields to update")
	}

	args = append(args, id)
	tag, err := s.pool.Exec(ctx, fmt.Sprintf("UPDATE bookings SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args)), args...)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking %d not found", id)
	}
	return nil
}

func (s *PostgresStore) CancelBooking(ctx context.Context, id int64) error {
	status := "cancelled"
	return s.UpdateBooking(ctx, id, Update{Status: &status})
}

func scanBooking(rows pgx.Rows) (Booking, error) {
	var b Booking
	if err := rows.Scan(&b.ID, &b.CustomerID, &b.CustomerName, &b.Email, &b.Phone, &b.Service, &b.Date, &b.Time, &b.Status, &b.CreatedAt); err != nil {
		return Booking{}, fmt.Errorf("scan booking: %w", err)
	}
	return b, nil
}

func digitsOnly(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

var _ BookingStore = (*PostgresStore)(nil)

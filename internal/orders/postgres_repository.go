package orders

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

func (c Credentials) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.DBName)
}

const orderColumns = `id, customer_id, customer_name, customer_email, items, subtotal, shipping, total,
	currency, status, order_date, shipping_address, tracking_number, payment_id`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(cred Credentials) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", cred.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func scanOrder(row interface{ Scan(...any) error }) (domain.Order, error) {
	var (
		o         domain.Order
		itemsJSON []byte
		status    string
	)
	err := row.Scan(
		&o.ID,
		&o.CustomerID,
		&o.CustomerName,
		&o.CustomerEmail,
		&itemsJSON,
		&o.Subtotal,
		&o.Shipping,
		&o.Total,
		&o.Currency,
		&status,
		&o.OrderDate,
		&o.ShippingAddress,
		&o.TrackingNumber,
		&o.PaymentID,
	)
	if err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	o.OrderDate = o.OrderDate.UTC()
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return domain.Order{}, fmt.Errorf("unmarshal order items: %w", err)
	}
	return o, nil
}

// Create takes the id from order_number_seq. An order that already carries
// an ORD-NNN id keeps it and the sequence is moved past it.
func (r *PostgresRepository) Create(ctx context.Context, o *domain.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	if o.OrderDate.IsZero() {
		o.OrderDate = time.Now().UTC()
	}
	if o.Status == "" {
		o.Status = domain.OrderStatusPending
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var n int64
	if n = parseID(o.ID); n > 0 {
		if _, err := tx.ExecContext(ctx, `SELECT setval('order_number_seq', GREATEST($1, (SELECT last_value FROM order_number_seq)))`, n); err != nil {
			return fmt.Errorf("advance order sequence: %w", err)
		}
	} else if err := tx.QueryRowContext(ctx, `SELECT nextval('order_number_seq')`).Scan(&n); err != nil {
		return fmt.Errorf("next order number: %w", err)
	}
	id := FormatID(n)

	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err = tx.ExecContext(ctx, query,
		id,
		o.CustomerID,
		o.CustomerName,
		o.CustomerEmail,
		itemsJSON,
		o.Subtotal,
		o.Shipping,
		o.Total,
		o.Currency,
		string(o.Status),
		o.OrderDate,
		o.ShippingAddress,
		o.TrackingNumber,
		o.PaymentID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	o.ID = id
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("query order by id: %w", err)
	}
	return o, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]domain.Order, error) {
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY order_date DESC, id DESC`)
}

func (r *PostgresRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY order_date DESC, id DESC`, customerID)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, tracking string) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, ErrInvalidStatus
	}

	query := `UPDATE orders
	          SET status = $2,
	              tracking_number = CASE WHEN $3 = '' THEN tracking_number ELSE $3 END,
	              updated_at = NOW()
	          WHERE id = $1
	          RETURNING ` + orderColumns
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, id, string(status), tracking))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order status: %w", err)
	}
	return o, nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

package catalog

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
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const productColumns = `id, name, description, price, original_price, image, images, category,
	stock, is_customizable, is_new, features, colors, sizes, created_at`

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dbPath (":memory:" works for tests).
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// one connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

// RunMigrations creates the schema and seeds the demo catalog.
func (s *SQLiteStore) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p                        domain.Product
		priceStr                 string
		originalPrice            sql.NullString
		images, features, colors string
		sizes                    string
		isCustomizable, isNew    bool
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&priceStr,
		&originalPrice,
		&p.Image,
		&images,
		&p.Category,
		&p.Stock,
		&isCustomizable,
		&isNew,
		&features,
		&colors,
		&sizes,
		&p.CreatedAt,
	)
	if err != nil {
		return domain.Product{}, err
	}

	p.IsCustomizable = isCustomizable
	p.IsNew = isNew
	if p.Price, err = decimal.NewFromString(priceStr); err != nil {
		return domain.Product{}, fmt.Errorf("parse price of product %d: %w", p.ID, err)
	}
	if originalPrice.Valid {
		op, err := decimal.NewFromString(originalPrice.String)
		if err != nil {
			return domain.Product{}, fmt.Errorf("parse original price of product %d: %w", p.ID, err)
		}
		p.OriginalPrice = &op
	}
	for _, f := range []struct {
		raw string
		dst *[]string
	}{{images, &p.Images}, {features, &p.Features}, {colors, &p.Colors}, {sizes, &p.Sizes}} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return domain.Product{}, fmt.Errorf("unmarshal list of product %d: %w", p.ID, err)
		}
		if len(*f.dst) == 0 {
			*f.dst = nil
		}
	}
	return p, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func listJSON(v []string) string {
	if v == nil {
		return "[]"
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func nullablePrice(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func (s *SQLiteStore) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := Validate(p); err != nil {
		return domain.Product{}, err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, price, original_price, image, images, category,
			stock, is_customizable, is_new, features, colors, sizes, created_at)
		VALUES ((SELECT COALESCE(MAX(id), 0) + 1 FROM products), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.Price.String(), nullablePrice(p.OriginalPrice), p.Image, listJSON(p.Images),
		p.Category, p.Stock, p.IsCustomizable, p.IsNew, listJSON(p.Features), listJSON(p.Colors),
		listJSON(p.Sizes), p.CreatedAt)
	if err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Product{}, fmt.Errorf("read product id: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *SQLiteStore) Update(ctx context.Context, id int64, patch domain.ProductPatch) (domain.Product, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	p := patch.Apply(current)
	if err := Validate(p); err != nil {
		return domain.Product{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE products SET name = ?, description = ?, price = ?, original_price = ?, image = ?, images = ?,
			category = ?, stock = ?, is_customizable = ?, is_new = ?, features = ?, colors = ?, sizes = ?
		WHERE id = ?`,
		p.Name, p.Description, p.Price.String(), nullablePrice(p.OriginalPrice), p.Image, listJSON(p.Images),
		p.Category, p.Stock, p.IsCustomizable, p.IsNew, listJSON(p.Features), listJSON(p.Colors),
		listJSON(p.Sizes), id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (s *SQLiteStore) Deduct(ctx context.Context, changes []StockChange) error {
	need := make(map[int64]int, len(changes))
	for _, c := range changes {
		need[c.ProductID] += c.Quantity
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin stock tx: %w", err)
	}
	defer tx.Rollback()

	for id, qty := range need {
		var stock int
		err := tx.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = ?`, id).Scan(&stock)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		if err != nil {
			return fmt.Errorf("read stock: %w", err)
		}
		if stock < qty {
			return ErrInsufficientStock
		}
		if _, err := tx.ExecContext(ctx, `UPDATE products SET stock = stock - ? WHERE id = ?`, qty, id); err != nil {
			return fmt.Errorf("deduct stock: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stock tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Restock(ctx context.Context, changes []StockChange) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin stock tx: %w", err)
	}
	defer tx.Rollback()

	for _, c := range changes {
		res, err := tx.ExecContext(ctx, `UPDATE products SET stock = stock + ? WHERE id = ?`, c.Quantity, c.ProductID)
		if err != nil {
			return fmt.Errorf("restock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrProductNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stock tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/quantiva/customers-api/internal/domain"
	"github.com/quantiva/customers-api/internal/repository/ports"
)

const customerColumns = `id_uuid, nombres, apellidos, email, telefono, direccion, password_hash, verified,
        verification_code, verification_expires, reset_token_hash, reset_token_expires, created_at, updated_at`

type CustomerRepository struct {
	db *sqlx.DB
}

func NewCustomerRepo(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(ctx context.Context, params ports.CreateCustomerParams) (*domain.Customer, error) {
	const query = `
        INSERT INTO clientes (nombres, apellidos, email, password_hash, verification_code, verified, verification_expires)
        VALUES ($1, $2, $3, $4, $5, FALSE, $6)
        RETURNING ` + customerColumns

	row := r.db.QueryRowxContext(ctx, query,
		params.Nombres, params.Apellidos, params.Email, params.PasswordHash, params.VerificationCode, params.VerificationExpires)
	var customer domain.Customer
	if err := row.StructScan(&customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	const query = `
        SELECT ` + customerColumns + `
        FROM clientes
        WHERE LOWER(email) = LOWER($1)
    `
	var customer domain.Customer
	if err := r.db.GetContext(ctx, &customer, query, email); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	const query = `
        SELECT ` + customerColumns + `
        FROM clientes
        WHERE id_uuid = $1
    `
	var customer domain.Customer
	if err := r.db.GetContext(ctx, &customer, query, id); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *CustomerRepository) FindByResetTokenHash(ctx context.Context, tokenHash string) (*domain.Customer, error) {
	const query = `
        SELECT ` + customerColumns + `
        FROM clientes
        WHERE reset_token_hash = $1
        LIMIT 1
    `
	var customer domain.Customer
	if err := r.db.GetContext(ctx, &customer, query, tokenHash); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *CustomerRepository) MarkVerified(ctx context.Context, email string) (*domain.Customer, error) {
	const query = `
        UPDATE clientes
        SET verified = TRUE,
            verification_code = NULL,
            verification_expires = NULL,
            updated_at = NOW()
        WHERE LOWER(email) = LOWER($1)
        RETURNING ` + customerColumns

	row := r.db.QueryRowxContext(ctx, query, email)
	var customer domain.Customer
	if err := row.StructScan(&customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// SaveResetToken overwrites any outstanding token for the customer.
func (r *CustomerRepository) SaveResetToken(ctx context.Context, email, tokenHash string, expiresAt time.Time) error {
	const query = `
        UPDATE clientes
        SET reset_token_hash = $1,
            reset_token_expires = $2,
            updated_at = NOW()
        WHERE LOWER(email) = LOWER($3)
    `
	return execAffectingOne(ctx, r.db, query, tokenHash, expiresAt, email)
}

// UpdatePassword sets the new hash and clears the reset token in one statement.
func (r *CustomerRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	const query = `
        UPDATE clientes
        SET password_hash = $1,
            reset_token_hash = NULL,
            reset_token_expires = NULL,
            updated_at = NOW()
        WHERE id_uuid = $2
    `
	return execAffectingOne(ctx, r.db, query, passwordHash, id)
}

func (r *CustomerRepository) ConsumeResetToken(ctx context.Context, id uuid.UUID, tokenHash, passwordHash string) error {
	const query = `
        UPDATE clientes
        SET password_hash = $1,
            reset_token_hash = NULL,
            reset_token_expires = NULL,
            updated_at = NOW()
        WHERE id_uuid = $2 AND reset_token_hash = $3
    `
	return execAffectingOne(ctx, r.db, query, passwordHash, id, tokenHash)
}

func (r *CustomerRepository) ListAll(ctx context.Context) ([]domain.Customer, error) {
	const query = `
        SELECT ` + customerColumns + `
        FROM clientes
        ORDER BY created_at ASC, id_uuid ASC
    `
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0)
	for rows.Next() {
		var customer domain.Customer
		if err := rows.StructScan(&customer); err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func execAffectingOne(ctx context.Context, db *sqlx.DB, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

var _ ports.CustomerRepository = (*CustomerRepository)(nil)

// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/farmmarket/api/internal/platform/apperr"
	"github.com/farmmarket/api/internal/platform/validate"
	"github.com/farmmarket/api/pkg/slug"
)

// # Repository Implementation

// querier is the subset of the pgx pool API the store uses. It lets the
// tests substitute a mock connection.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements [Store] using pgx.
//
// # Schema Table Mapping
//   - profiles: Base account record, keyed by the provider user ID.
//   - farmer_profiles: 1:1 producer extension.
//   - customer_profiles: 1:1 buyer extension.
type PostgresStore struct {
	db querier
}

// NewPostgresStore creates a Postgres implementation of the profile store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

// uniqueViolation is the Postgres error code for unique-constraint failures.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// # Store Methods

/*
InsertProfile creates the base profile row.

Parameters:
  - context: context.Context
  - record: *Profile

Returns:
  - error: apperr.ValidationError on a malformed record, apperr.Conflict on
    duplicate ID or email, or execution failures
*/
func (store *PostgresStore) InsertProfile(context context.Context, record *Profile) error {
	validator := &validate.Validator{}
	if err := validator.
		Required("id", record.ID).
		Required("email", record.Email).
		Required("full_name", record.FullName).
		OneOf("role", string(record.Role), string(RoleFarmer), string(RoleCustomer)).
		Err(); err != nil {
		return err
	}

	query := `
		INSERT INTO profiles (id, email, full_name, phone, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`

	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err := store.db.Exec(context, query,
		record.ID,
		record.Email,
		record.FullName,
		record.Phone,
		record.Role,
		now,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("Profile already exists")
		}
		return fmt.Errorf("postgres_profile_store_insert_failed: %w", err)
	}

	return nil
}

/*
InsertFarmerProfile creates the producer extension row.

Description: Product types are normalized into URL-safe tags before
storage ("Qarabağ üzümü" becomes "qarabag-uzumu") so listings can filter
on them without locale-sensitive comparison.

Parameters:
  - context: context.Context
  - record: *FarmerProfile

Returns:
  - error: apperr.ValidationError on a malformed record, apperr.Conflict on
    duplicate user, or execution failures
*/
func (store *PostgresStore) InsertFarmerProfile(context context.Context, record *FarmerProfile) error {
	validator := &validate.Validator{}
	if err := validator.
		Required("user_id", record.UserID).
		Required("farm_name", record.FarmName).
		Required("farm_location", record.FarmLocation).
		Err(); err != nil {
		return err
	}

	query := `
		INSERT INTO farmer_profiles (user_id, farm_name, farm_location, farm_size, product_types)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := store.db.Exec(context, query,
		record.UserID,
		record.FarmName,
		record.FarmLocation,
		record.FarmSize,
		slug.FromAll(record.ProductTypes),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("Farmer profile already exists")
		}
		return fmt.Errorf("postgres_profile_store_insert_farmer_failed: %w", err)
	}

	return nil
}

/*
InsertCustomerProfile creates the buyer extension row.

Parameters:
  - context: context.Context
  - record: *CustomerProfile

Returns:
  - error: apperr.ValidationError on a malformed record, apperr.Conflict on
    duplicate user, or execution failures
*/
func (store *PostgresStore) InsertCustomerProfile(context context.Context, record *CustomerProfile) error {
	validator := &validate.Validator{}
	if err := validator.Required("user_id", record.UserID).Err(); err != nil {
		return err
	}

	query := `
		INSERT INTO customer_profiles (user_id, delivery_address, city)
		VALUES ($1, $2, $3)`

	_, err := store.db.Exec(context, query,
		record.UserID,
		record.DeliveryAddress,
		record.City,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("Customer profile already exists")
		}
		return fmt.Errorf("postgres_profile_store_insert_customer_failed: %w", err)
	}

	return nil
}

/*
GetProfile fetches the base profile by user ID.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *Profile: Hydrated profile entity
  - error: apperr.NotFound or retrieval failures
*/
func (store *PostgresStore) GetProfile(context context.Context, userID string) (*Profile, error) {
	query := `
		SELECT id, email, full_name, phone, role, created_at, updated_at
		FROM profiles
		WHERE id = $1`

	record := &Profile{}
	err := store.db.QueryRow(context, query, userID).Scan(
		&record.ID,
		&record.Email,
		&record.FullName,
		&record.Phone,
		&record.Role,
		&record.CreatedAt,
		&record.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Profile")
		}
		return nil, fmt.Errorf("postgres_profile_store_get_failed: %w", err)
	}

	return record, nil
}

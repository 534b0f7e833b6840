// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

/*
Package profile holds the marketplace-side account records that accompany
an identity-provider account.

Every account has a base [Profile] row keyed by the provider user ID.
Depending on the chosen account type it is extended by exactly one of
[FarmerProfile] or [CustomerProfile].

The rows are created in a strict sequence right after signup; a partially
created cascade is parked on the [PendingQueue] and finished later by the
[Reconciler].
*/
package profile

import (
	"context"
	"time"
)

// # Entities

// Profile is the base account record shared by all account types.
type Profile struct {
	// ID equals the identity-provider user ID.
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Phone     *string   `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FarmerProfile extends a Profile for producer accounts.
type FarmerProfile struct {
	UserID       string   `json:"user_id"`
	FarmName     string   `json:"farm_name"`
	FarmLocation string   `json:"farm_location"`
	FarmSize     *string  `json:"farm_size,omitempty"`
	ProductTypes []string `json:"product_types,omitempty"`
}

// CustomerProfile extends a Profile for buyer accounts.
type CustomerProfile struct {
	UserID          string  `json:"user_id"`
	DeliveryAddress *string `json:"delivery_address,omitempty"`
	City            *string `json:"city,omitempty"`
}

// # Store Contract

// Store persists account profiles.
type Store interface {

	/*
		InsertProfile creates the base profile row.

		Parameters:
		  - context: context.Context
		  - record: *Profile

		Returns:
		  - error: Conflict when the ID or email already exists
	*/
	InsertProfile(context context.Context, record *Profile) error

	/*
		InsertFarmerProfile creates the producer extension row.

		Parameters:
		  - context: context.Context
		  - record: *FarmerProfile

		Returns:
		  - error: Conflict when a row for the user already exists
	*/
	InsertFarmerProfile(context context.Context, record *FarmerProfile) error

	/*
		InsertCustomerProfile creates the buyer extension row.

		Parameters:
		  - context: context.Context
		  - record: *CustomerProfile

		Returns:
		  - error: Conflict when a row for the user already exists
	*/
	InsertCustomerProfile(context context.Context, record *CustomerProfile) error

	/*
		GetProfile fetches the base profile by user ID.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - *Profile: The record
		  - error: NotFound when no row exists
	*/
	GetProfile(context context.Context, userID string) (*Profile, error)
}

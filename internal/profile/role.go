// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

package profile

// Role is the account type chosen at registration.
type Role string

const (
	// RoleFarmer marks a producer account that lists products for sale.
	RoleFarmer Role = "farmer"

	// RoleCustomer marks a buyer account.
	RoleCustomer Role = "customer"
)

// Valid reports whether the role is one of the known account types.
func (r Role) Valid() bool {
	return r == RoleFarmer || r == RoleCustomer
}

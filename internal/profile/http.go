// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

package profile

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/farmmarket/api/internal/platform/request"
	"github.com/farmmarket/api/internal/platform/respond"
	"github.com/farmmarket/api/internal/platform/validate"
)

// # HTTP Surface

// Handler implements the profile read endpoints.
type Handler struct {
	store Store
}

// NewHandler constructs a new [Handler].
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Routes returns a [chi.Router] configured with the profile routes.
//
// # Endpoints
//   - GET /{userID} : Fetches the base profile for a user.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/{userID}", handler.getProfile)

	return router
}

/*
GetProfile fetches the base profile for a user.

GET /api/v1/profiles/{userID}

Description: The user ID is the identity provider's UUID, which is also the
profile primary key.

Response:
  - 200: Profile
  - 400: Malformed user ID
  - 404: No profile for this user
*/
func (handler *Handler) getProfile(writer http.ResponseWriter, request *http.Request) {
	userID := requestutil.Param(request, "userID")

	validator := &validate.Validator{}
	if err := validator.Required("user_id", userID).UUID("user_id", userID).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	record, err := handler.store.GetProfile(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, record)
}

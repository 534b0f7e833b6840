// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

package profile

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmmarket/api/pkg/pointer"
)

const testUserID = "0191e4a4-7d31-7c7e-9b6a-1f2a3b4c5d6e"

func doGet(t *testing.T, handler *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	request := httptest.NewRequest(http.MethodGet, path, nil)
	recorder := httptest.NewRecorder()
	handler.Routes().ServeHTTP(recorder, request)
	return recorder
}

func TestHandler_GetProfile(t *testing.T) {
	t.Run("returns the profile", func(t *testing.T) {
		store := &fakeStore{record: &Profile{
			ID:       testUserID,
			Email:    "leyla@example.com",
			FullName: "Leyla Mammadova",
			Phone:    pointer.To("+994501234567"),
			Role:     RoleCustomer,
		}}
		handler := NewHandler(store)

		recorder := doGet(t, handler, "/"+testUserID)

		assert.Equal(t, http.StatusOK, recorder.Code)
		var envelope struct {
			Data Profile `json:"data"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
		assert.Equal(t, "leyla@example.com", envelope.Data.Email)
		assert.Equal(t, RoleCustomer, envelope.Data.Role)
	})

	t.Run("unknown user answers 404", func(t *testing.T) {
		handler := NewHandler(&fakeStore{})

		recorder := doGet(t, handler, "/"+testUserID)

		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("malformed user ID answers 400 without a store call", func(t *testing.T) {
		store := &fakeStore{record: &Profile{ID: "not-a-uuid"}}
		handler := NewHandler(store)

		recorder := doGet(t, handler, "/not-a-uuid")

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		var envelope struct {
			Code string `json:"code"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
		assert.Equal(t, "VALIDATION_ERROR", envelope.Code)
	})
}

// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

package authflow

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farmmarket/api/internal/identity/session"
	requestutil "github.com/farmmarket/api/internal/platform/request"
	"github.com/farmmarket/api/internal/platform/respond"
	"github.com/farmmarket/api/internal/platform/validate"
)

// # Definitions & Constructors

// StateSource exposes the authentication state for the session endpoint.
type StateSource interface {
	Snapshot() session.State
}

// Handler implements the authentication HTTP endpoints.
//
// This layer is strictly responsible for transport concerns (status codes,
// JSON); all flow rules live in [Controller].
type Handler struct {
	controller *Controller
	state      StateSource
}

// NewHandler constructs a new [Handler].
func NewHandler(controller *Controller, state StateSource) *Handler {
	return &Handler{controller: controller, state: state}
}

// Routes returns a [chi.Router] configured with the authentication routes.
//
// # Endpoints
//   - POST /signin  : Authenticates with email and password.
//   - POST /signup  : Registers a farmer or customer account.
//   - POST /signout : Terminates the current session.
//   - GET  /session : Reports the current authentication state.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/signin", handler.signIn)
	router.Post("/signup", handler.signUp)
	router.Post("/signout", handler.signOut)
	router.Get("/session", handler.session)

	return router
}

// statusFor maps a submission outcome onto an HTTP status.
func statusFor(outcome Outcome) int {
	if outcome.OK {
		return http.StatusOK
	}

	switch outcome.Notice.Title {
	case "Login Failed":
		return http.StatusUnauthorized
	case "Please wait":
		return http.StatusConflict
	case "Error":
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func writeOutcome(writer http.ResponseWriter, outcome Outcome) {
	respond.JSON(writer, statusFor(outcome), respond.SuccessEnvelope{Data: outcome})
}

// # Handlers

/*
SignIn authenticates with email and password.

POST /api/v1/auth/signin

Description: Runs the login flow. On success the established session is
announced internally and becomes visible on GET /session.

Request:
  - Body: LoginForm (Email, Password)

Response:
  - 200: Outcome: Signed in, or redirect for an already-authenticated caller
  - 400: Outcome: Validation failure
  - 401: Outcome: Rejected credentials
*/
func (handler *Handler) signIn(writer http.ResponseWriter, request *http.Request) {
	if handler.controller.ShouldRedirect(handler.state.Snapshot()) {
		writeOutcome(writer, redirectOutcome)
		return
	}

	var form LoginForm

	if err := requestutil.DecodeJSON(request, &form); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	handler.controller.SwitchMode(ModeLogin)
	writeOutcome(writer, handler.controller.SubmitLogin(request.Context(), form))
}

/*
SignUp registers a farmer or customer account.

POST /api/v1/auth/signup

Description: Runs the registration flow: ordered validation, account-type
check, then the provider-profile cascade.

Request:
  - Body: RegisterForm

Response:
  - 200: Outcome: Account created, or redirect for an already-authenticated caller
  - 400: Outcome: Validation failure or missing account type
*/
func (handler *Handler) signUp(writer http.ResponseWriter, request *http.Request) {
	if handler.controller.ShouldRedirect(handler.state.Snapshot()) {
		writeOutcome(writer, redirectOutcome)
		return
	}

	var form RegisterForm

	if err := requestutil.DecodeJSON(request, &form); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	handler.controller.SwitchMode(ModeRegister)
	handler.controller.SelectRole(form.Role)
	writeOutcome(writer, handler.controller.SubmitRegistration(request.Context(), &form))
}

/*
SignOut terminates the current session.

POST /api/v1/auth/signout

Description: Fire-and-forget. The local session is cleared even when the
identity provider cannot be reached, so this always answers 204.

Response:
  - 204: Session cleared
*/
func (handler *Handler) signOut(writer http.ResponseWriter, request *http.Request) {
	handler.controller.SignOut(request.Context())
	respond.NoContent(writer)
}

/*
Session reports the current authentication state.

GET /api/v1/auth/session

Response:
  - 200: session.State: User, session, and loading flag
*/
func (handler *Handler) session(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, handler.state.Snapshot())
}

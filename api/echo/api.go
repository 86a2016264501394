// Package echo wires the authorization flow into HTTP routes. The routes are
// thin: the OAuth2 engine (golang.org/x/oauth2) performs the redirect and the
// code exchange, the flow package owns every security decision.
package echo

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/appgrid/platform-connect/cache"
	"github.com/appgrid/platform-connect/domain"
	"github.com/appgrid/platform-connect/internal/flow"
	"github.com/appgrid/platform-connect/mongodb"
)

// ConnectAPI holds the dependencies for the connect endpoints.
type ConnectAPI struct {
	flow     *flow.Flow
	attempts cache.AttemptStore
}

func NewConnectAPI(f *flow.Flow, attempts cache.AttemptStore) *ConnectAPI {
	return &ConnectAPI{flow: f, attempts: attempts}
}

// RegisterRoutes registers the connect routes.
func (a *ConnectAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/connect", a.ConnectHandler)
	e.GET("/connect/callback", a.CallbackHandler)
	e.GET("/healthz", a.HealthHandler)
}

// ConnectHandler starts an authorization attempt and redirects the browser to
// the platform's authorize endpoint with a fresh state and nonce.
func (a *ConnectAPI) ConnectHandler(c echo.Context) error {
	ctx := c.Request().Context()

	attempt := a.flow.NewAttempt()
	state := uuid.NewString()

	pending := cache.PendingAttempt{Nonce: attempt.Nonce(), CreatedAt: time.Now().UTC()}
	if err := a.attempts.Put(ctx, state, pending); err != nil {
		log.Error().Err(err).Msg("failed to store pending attempt")
		return c.JSON(http.StatusInternalServerError, errorBody("server_error"))
	}

	return c.Redirect(http.StatusFound, attempt.Options().AuthCodeURL(state))
}

// CallbackHandler finishes the flow: redeem the state, exchange the code,
// hand the result to the attempt. Failures surface as a generic
// authentication failure; the cause stays in the logs.
func (a *ConnectAPI) CallbackHandler(c echo.Context) error {
	ctx := c.Request().Context()

	if errParam := c.QueryParam("error"); errParam != "" {
		log.Warn().Str("error", errParam).Msg("platform denied authorization")
		return c.JSON(http.StatusUnauthorized, errorBody("authentication_failed"))
	}

	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if code == "" || state == "" {
		return c.JSON(http.StatusBadRequest, errorBody("invalid_request"))
	}

	pending, err := a.attempts.Take(ctx, state)
	if err != nil {
		log.Warn().Err(err).Msg("callback with unknown or reused state")
		return c.JSON(http.StatusUnauthorized, errorBody("authentication_failed"))
	}

	attempt := a.flow.ResumeAttempt(pending.Nonce)

	token, err := attempt.Options().OAuth2Config().Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("authorization code exchange failed")
		return c.JSON(http.StatusUnauthorized, errorBody("authentication_failed"))
	}

	rawAssertion, _ := token.Extra("id_token").(string)
	scope, _ := token.Extra("scope").(string)

	completion, err := attempt.Complete(ctx, flow.TokenExchange{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Params: domain.TokenGrant{
			ExpiresIn: intExtra(token.Extra("expires_in")),
			Scope:     scope,
			TokenType: token.TokenType,
		},
		IDToken: rawAssertion,
	})
	if err != nil {
		logCallbackFailure(err)
		return c.JSON(http.StatusUnauthorized, errorBody("authentication_failed"))
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "connected",
		"nonce":  completion.Nonce,
	})
}

// HealthHandler reports liveness of the process and its mongo connection.
func (a *ConnectAPI) HealthHandler(c echo.Context) error {
	if err := mongodb.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func logCallbackFailure(err error) {
	switch {
	case errors.Is(err, flow.ErrNonceMismatch):
		log.Warn().Err(err).Msg("possible replay: nonce mismatch on callback")
	case errors.Is(err, flow.ErrAssertionDecode):
		log.Warn().Err(err).Msg("undecodable identity assertion on callback")
	default:
		log.Error().Err(err).Msg("authorization attempt failed")
	}
}

func errorBody(code string) map[string]string {
	return map[string]string{"error": code}
}

// intExtra coerces the engine's expires_in extra, which arrives as float64 or
// json.Number depending on the token endpoint's response encoding.
func intExtra(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int64:
		return int(n)
	case int:
		return n
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return 0
}

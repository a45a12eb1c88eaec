// Package session is the authentication manager of the dashboard client. It
// logs in, keeps the credential in a credential.Store, attaches it to every
// request made through an apiclient.Client and tears the session down when the
// server rejects it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shelfdesk/shelfadmin/apiclient"
	"github.com/shelfdesk/shelfadmin/credential"
	"github.com/shelfdesk/shelfadmin/internal/metrics"
)

// Credentials are the login form fields.
type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is the outcome of a successful login. Body is the full server
// response; Token and User are empty when the server issued no token.
type LoginResult struct {
	Token string
	User  credential.Profile
	Body  json.RawMessage
}

// Status is a snapshot of the local session.
type Status struct {
	Authenticated bool
	User          credential.Profile
	// ExpiresAt is zero when the session is not authenticated or the token
	// carries no exp claim.
	ExpiresAt time.Time
}

// Manager is the public session API. It is safe for concurrent use.
type Manager struct {
	client     *apiclient.Client
	store      *credential.Store
	inspector  *credential.Inspector
	validate   *validator.Validate
	logger     *slog.Logger
	metrics    *metrics.Metrics
	loginPath  string
	now        func() time.Time
	navigators []Navigator

	mu           sync.RWMutex
	listeners    map[uint64]func(Event)
	nextListener uint64
}

var _ Terminator = (*Manager)(nil)

// New creates a Manager and registers its request and response hooks on
// client, so every call made through client (by the Manager or anyone else)
// carries the credential and honours 401 teardown.
func New(client *apiclient.Client, store *credential.Store, opts ...Option) *Manager {
	m := &Manager{
		client:    client,
		store:     store,
		inspector: credential.NewInspector(),
		validate:  newValidator(),
		logger:    slog.Default(),
		loginPath: DefaultLoginPath,
		now:       time.Now,
		listeners: make(map[uint64]func(Event)),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, n := range m.navigators {
		m.Subscribe(func(ev Event) { n.Navigate(ev.RedirectTo) })
	}

	client.OnRequest(AttachCredential(store, m.inspector, m.logger))
	client.OnResponse(TeardownOnUnauthorized(m))
	return m
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Teardown clears the credential store and notifies subscribers. Repeated
// and concurrent calls leave the same end state as a single call.
func (m *Manager) Teardown(reason Reason) {
	if err := m.store.Clear(); err != nil {
		m.logger.Error("clearing credential store", "reason", reason, "error", err)
	}
	m.metrics.ObserveTeardown(string(reason))
	if reason == ReasonLogout {
		m.logger.Info("session ended", "reason", reason)
	} else {
		m.logger.Warn("session terminated", "reason", reason)
	}
	m.emit(Event{Reason: reason, RedirectTo: m.loginPath, At: m.now()})
}

// Logout ends the session. It never fails.
func (m *Manager) Logout() {
	m.Teardown(ReasonLogout)
}

// IsAuthenticated reports whether a non-expired token and a profile are both
// stored. Unreadable storage counts as not authenticated.
func (m *Manager) IsAuthenticated() bool {
	token, err := m.store.Token()
	if err != nil || token == "" {
		return false
	}
	if m.inspector.IsExpired(token) {
		return false
	}
	return m.CurrentUser() != nil
}

// CurrentUser returns the stored profile, or nil. A profile that cannot be
// decoded is treated as absent and triggers a full logout.
func (m *Manager) CurrentUser() credential.Profile {
	_, profile, err := m.store.Load()
	if errors.Is(err, credential.ErrCorruptProfile) {
		m.logger.Warn("stored profile is corrupt, clearing session", "error", err)
		m.Teardown(ReasonCorruptState)
		return nil
	}
	if err != nil {
		m.logger.Error("reading stored profile", "error", err)
		return nil
	}
	return profile
}

// Status summarizes the local session without contacting the server.
func (m *Manager) Status() Status {
	st := Status{Authenticated: m.IsAuthenticated()}
	if !st.Authenticated {
		return st
	}
	st.User = m.CurrentUser()
	if token, err := m.store.Token(); err == nil && token != "" {
		if exp, err := m.inspector.ExpiresAt(token); err == nil {
			st.ExpiresAt = exp
		}
	}
	return st
}

type loginResponse struct {
	Token string          `json:"token"`
	Data  json.RawMessage `json:"data"`
}

// Login posts creds to /login. When the response carries a token, the token
// and the "data" profile are persisted together.
func (m *Manager) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	if err := m.validate.Struct(creds); err != nil {
		return nil, validationError(err)
	}

	var raw json.RawMessage
	if _, err := m.client.Post(ctx, "/login", creds, &raw); err != nil {
		return nil, NormalizeError(err)
	}
	if len(raw) == 0 {
		return nil, NormalizeError(errors.New("empty login response"))
	}

	var body loginResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, NormalizeError(fmt.Errorf("decoding login response: %w", err))
	}
	result := &LoginResult{Token: body.Token, Body: raw}
	if body.Token == "" {
		return result, nil
	}

	profile := credential.Profile{}
	if data := strings.TrimSpace(string(body.Data)); data != "" && data != "null" {
		p, err := credential.ParseProfile(body.Data)
		if err != nil {
			return nil, NormalizeError(fmt.Errorf("decoding login profile: %w", err))
		}
		profile = p
	}
	if err := m.store.Save(body.Token, profile); err != nil {
		return nil, NormalizeError(fmt.Errorf("persisting session: %w", err))
	}
	m.metrics.ObservePersisted()
	m.logger.Info("logged in", "user_id", profile.ID())

	result.User = profile
	return result, nil
}

// Register creates an account via /add-account. account is sent as-is.
func (m *Manager) Register(ctx context.Context, account any) (json.RawMessage, error) {
	if account == nil {
		return nil, validationError(errors.New("account is required"))
	}
	return m.call(ctx, http.MethodPost, "/add-account", account)
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword asks the server to send reset instructions to email.
func (m *Manager) ForgotPassword(ctx context.Context, email string) (json.RawMessage, error) {
	req := forgotPasswordRequest{Email: email}
	if err := m.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	return m.call(ctx, http.MethodPost, "/forgot-password", req)
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// ResetPassword sets a new password using a reset token from the email.
func (m *Manager) ResetPassword(ctx context.Context, token, newPassword string) (json.RawMessage, error) {
	req := resetPasswordRequest{Token: token, NewPassword: newPassword}
	if err := m.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	return m.call(ctx, http.MethodPost, "/reset-password", req)
}

type changePasswordRequest struct {
	UserID      string `json:"-" validate:"required"`
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// ChangePassword replaces the password of userID.
func (m *Manager) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) (json.RawMessage, error) {
	req := changePasswordRequest{UserID: userID, OldPassword: oldPassword, NewPassword: newPassword}
	if err := m.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	var raw json.RawMessage
	if _, err := m.client.Put(ctx, "/change-password/"+url.PathEscape(userID), req, &raw); err != nil {
		return nil, NormalizeError(err)
	}
	return raw, nil
}

// GetProfile fetches the account of userID.
func (m *Manager) GetProfile(ctx context.Context, userID string) (json.RawMessage, error) {
	if userID == "" {
		return nil, validationError(errors.New("user id is required"))
	}
	return m.call(ctx, http.MethodGet, "/account/"+url.PathEscape(userID), nil)
}

// UpdateProfile posts data to the profile of userID.
func (m *Manager) UpdateProfile(ctx context.Context, userID string, data any) (json.RawMessage, error) {
	if userID == "" {
		return nil, validationError(errors.New("user id is required"))
	}
	return m.call(ctx, http.MethodPost, "/create-profile/"+url.PathEscape(userID), data)
}

// call is the shared pass-through path: any failure leaves as *Error.
func (m *Manager) call(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var raw json.RawMessage
	if _, err := m.client.Do(ctx, method, path, body, &raw); err != nil {
		return nil, NormalizeError(err)
	}
	return raw, nil
}

// Package apitest runs an in-process fake of the dashboard REST API for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// User is an account known to the fake server.
type User struct {
	ID       int
	Email    string
	Password string
	Name     string
	Extra    map[string]any
}

func (u *User) profile() map[string]any {
	p := map[string]any{"id": u.ID, "email": u.Email, "name": u.Name}
	for k, v := range u.Extra {
		p[k] = v
	}
	return p
}

// Request is a request observed by the server.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

type override struct {
	status int
	body   any
}

// Server is a fake backend. All state is guarded by mu and may be changed
// while requests are in flight.
type Server struct {
	*httptest.Server

	// TokenTTL is the lifetime of tokens issued by /login.
	TokenTTL time.Duration

	mu          sync.Mutex
	nextID      int
	users       map[int]*User
	tokens      map[string]int
	resetTokens map[string]int
	collections map[string][]map[string]any
	overrides   map[string]override
	requests    []Request
}

// NewServer starts a fake backend that is closed when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		TokenTTL:    time.Hour,
		nextID:      1,
		users:       make(map[int]*User),
		tokens:      make(map[string]int),
		resetTokens: make(map[string]int),
		collections: map[string][]map[string]any{
			"author": {},
			"book":   {},
			"image":  {},
		},
		overrides: make(map[string]override),
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record, s.applyOverrides)

	r.Post("/login", s.login)
	r.Post("/add-account", s.addAccount)
	r.Post("/forgot-password", s.forgotPassword)
	r.Post("/reset-password", s.resetPassword)

	r.Group(func(r chi.Router) {
		r.Use(s.requireBearer)
		r.Put("/change-password/{userID}", s.changePassword)
		r.Get("/account/{userID}", s.account)
		r.Post("/create-profile/{userID}", s.createProfile)
		r.Get("/author", s.collection("author"))
		r.Get("/book", s.collection("book"))
		r.Get("/image", s.collection("image"))
	})
	return r
}

// AddUser registers an account and returns it with its assigned ID.
func (s *Server) AddUser(email, password, name string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, password, name)
}

func (s *Server) addUserLocked(email, password, name string) *User {
	u := &User{ID: s.nextID, Email: email, Password: password, Name: name}
	s.nextID++
	s.users[u.ID] = u
	return u
}

// SetCollection replaces the records served for kind ("author", "book", "image").
func (s *Server) SetCollection(kind string, records []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[kind] = records
}

// IssueToken mints a token the server accepts for u.
func (s *Server) IssueToken(t testing.TB, u *User) string {
	t.Helper()
	tok := MintToken(t, time.Now().Add(s.TokenTTL), map[string]any{"sub": strconv.Itoa(u.ID)})
	s.mu.Lock()
	s.tokens[tok] = u.ID
	s.mu.Unlock()
	return tok
}

// RevokeAll makes every issued token invalid so subsequent calls get 401.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]int)
}

// Override makes every request to path answer with status and body.
func (s *Server) Override(path string, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[path] = override{status: status, body: body}
}

// ClearOverrides removes all overrides.
func (s *Server) ClearOverrides() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = make(map[string]override)
}

// ResetTokenFor returns an outstanding reset token issued for email.
func (s *Server) ResetTokenFor(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tok, id := range s.resetTokens {
		if s.users[id].Email == email {
			return tok
		}
	}
	return ""
}

// User returns the account with id, or nil.
func (s *Server) User(id int) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

// Requests returns a copy of the requests observed so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent request to path.
func (s *Server) LastRequest(path string) (Request, bool) {
	reqs := s.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return Request{}, false
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unreadable body"})
			return
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) applyOverrides(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		o, ok := s.overrides[r.URL.Path]
		s.mu.Unlock()
		if ok {
			writeJSON(w, o.status, o.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		tok, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || tok == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "missing bearer token"})
			return
		}
		s.mu.Lock()
		_, known := s.tokens[tok]
		s.mu.Unlock()
		if !known {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid or expired token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	s.mu.Lock()
	var found *User
	for _, u := range s.users {
		if u.Email == req.Email && u.Password == req.Password {
			found = u
			break
		}
	}
	s.mu.Unlock()
	if found == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid email or password"})
		return
	}
	tok, err := mint(time.Now().Add(s.TokenTTL), map[string]any{"sub": strconv.Itoa(found.ID)})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	s.mu.Lock()
	s.tokens[tok] = found.ID
	profile := found.profile()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "login successful",
		"token":   tok,
		"data":    profile,
	})
}

func (s *Server) addAccount(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	email, _ := req["email"].(string)
	password, _ := req["password"].(string)
	name, _ := req["name"].(string)
	if email == "" || password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "email and password are required"})
		return
	}
	s.mu.Lock()
	for _, u := range s.users {
		if u.Email == email {
			s.mu.Unlock()
			writeJSON(w, http.StatusConflict, map[string]any{"error": "email already registered"})
			return
		}
	}
	u := s.addUserLocked(email, password, name)
	profile := u.profile()
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"message": "account created", "data": profile})
}

func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == req.Email {
			s.resetTokens["reset-"+strconv.Itoa(u.ID)+"-"+strconv.Itoa(len(s.resetTokens))] = u.ID
			writeJSON(w, http.StatusOK, map[string]any{"message": "reset instructions sent"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "email not found"})
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.resetTokens[req.Token]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "reset token is invalid or expired"})
		return
	}
	delete(s.resetTokens, req.Token)
	s.users[id].Password = req.NewPassword
	writeJSON(w, http.StatusOK, map[string]any{"message": "password reset"})
}

func (s *Server) pathUser(w http.ResponseWriter, r *http.Request) (*User, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid user id"})
		return nil, false
	}
	u, ok := s.users[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "account not found"})
		return nil, false
	}
	return u, true
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.pathUser(w, r)
	if !ok {
		return
	}
	if u.Password != req.OldPassword {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "old password is incorrect"})
		return
	}
	u.Password = req.NewPassword
	writeJSON(w, http.StatusOK, map[string]any{"message": "password changed"})
}

func (s *Server) account(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.pathUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": u.profile()})
}

func (s *Server) createProfile(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.pathUser(w, r)
	if !ok {
		return
	}
	if u.Extra == nil {
		u.Extra = make(map[string]any)
	}
	for k, v := range req {
		switch k {
		case "id", "email":
		case "name":
			if name, ok := v.(string); ok {
				u.Name = name
			}
		default:
			u.Extra[k] = v
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "profile updated", "data": u.profile()})
}

func (s *Server) collection(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		records := append([]map[string]any{}, s.collections[kind]...)
		s.mu.Unlock()
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, records)
	}
}

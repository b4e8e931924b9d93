package sampleapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// User is the API's user resource. The password hash never leaves the store.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type storedUser struct {
	User
	passwordHash []byte
}

// userStore holds accounts and active session tokens in memory.
type userStore struct {
	byID    map[string]*storedUser
	byEmail map[string]*storedUser
	tokens  map[string]string // token -> user ID
	lock    sync.RWMutex
}

func newUserStore() *userStore {
	return &userStore{
		byID:    make(map[string]*storedUser),
		byEmail: make(map[string]*storedUser),
		tokens:  make(map[string]string),
	}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	PromoCode string `json:"promoCode"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type updateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a *App) postRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "request body was not valid JSON")
		return
	}

	var details []errorDetail
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		details = append(details, errorDetail{Field: "email", Message: "not a valid email address"})
	}
	if len(req.Password) < minPasswordLength {
		details = append(details, errorDetail{Field: "password", Message: "must be at least 8 characters"})
	}
	if req.PromoCode != "" && a.promoCodes != nil && !a.promoCodes.Valid(req.PromoCode) {
		details = append(details, errorDetail{Field: "promoCode", Message: "not a recognized promo code"})
	}
	if len(details) > 0 {
		writeError(w, http.StatusBadRequest, codeValidationError, "invalid input", details...)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternalError, "could not process password")
		return
	}

	user := &storedUser{
		User: User{
			ID:    uuid.NewString(),
			Email: req.Email,
			Name:  req.Name,
		},
		passwordHash: hash,
	}

	a.users.lock.Lock()
	if _, exists := a.users.byEmail[req.Email]; exists {
		a.users.lock.Unlock()
		writeError(w, http.StatusConflict, codeEmailExists, "an account with this email already exists")
		return
	}
	a.users.byID[user.ID] = user
	a.users.byEmail[req.Email] = user
	a.users.lock.Unlock()

	a.logger.Printf("registered user %s", user.ID)
	writeJSON(w, http.StatusCreated, user.User)
}

func (a *App) postLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "request body was not valid JSON")
		return
	}

	a.users.lock.RLock()
	user := a.users.byEmail[strings.TrimSpace(strings.ToLower(req.Email))]
	a.users.lock.RUnlock()
	if user == nil || bcrypt.CompareHashAndPassword(user.passwordHash, []byte(req.Password)) != nil {
		// Same response for unknown email and wrong password, so the endpoint
		// cannot be used to probe which addresses have accounts.
		writeError(w, http.StatusUnauthorized, codeInvalidCredentials, "email or password is incorrect")
		return
	}

	token := uuid.NewString()
	a.users.lock.Lock()
	a.users.tokens[token] = user.ID
	a.users.lock.Unlock()

	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user.User})
}

type contextKey string

const userIDContextKey contextKey = "userID"

// requireAuth verifies the bearer token and puts the authenticated user's ID
// on the request context.
func (a *App) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, codeInvalidToken, "a bearer token is required")
			return
		}
		a.users.lock.RLock()
		userID, found := a.users.tokens[token]
		a.users.lock.RUnlock()
		if !found {
			writeError(w, http.StatusUnauthorized, codeInvalidToken, "the access token is invalid or expired")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDContextKey, userID)))
	})
}

func (a *App) lookupUser(id string) *storedUser {
	a.users.lock.RLock()
	defer a.users.lock.RUnlock()
	return a.users.byID[id]
}

func (a *App) getUser(w http.ResponseWriter, r *http.Request) {
	user := a.lookupUser(chi.URLParam(r, "id"))
	if user == nil {
		writeError(w, http.StatusNotFound, codeUserNotFound, "no such user")
		return
	}
	writeJSON(w, http.StatusOK, user.User)
}

func (a *App) patchUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "request body was not valid JSON")
		return
	}

	a.users.lock.Lock()
	defer a.users.lock.Unlock()
	user := a.users.byID[chi.URLParam(r, "id")]
	if user == nil {
		writeError(w, http.StatusNotFound, codeUserNotFound, "no such user")
		return
	}
	if req.Email != "" {
		email := strings.TrimSpace(strings.ToLower(req.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			writeError(w, http.StatusBadRequest, codeValidationError, "invalid input",
				errorDetail{Field: "email", Message: "not a valid email address"})
			return
		}
		if other, exists := a.users.byEmail[email]; exists && other != user {
			writeError(w, http.StatusConflict, codeEmailExists, "an account with this email already exists")
			return
		}
		delete(a.users.byEmail, user.Email)
		user.Email = email
		a.users.byEmail[email] = user
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	writeJSON(w, http.StatusOK, user.User)
}

func (a *App) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a.users.lock.Lock()
	user := a.users.byID[id]
	if user != nil {
		delete(a.users.byID, id)
		delete(a.users.byEmail, user.Email)
		for token, userID := range a.users.tokens {
			if userID == id {
				delete(a.users.tokens, token)
			}
		}
	}
	a.users.lock.Unlock()
	if user == nil {
		writeError(w, http.StatusNotFound, codeUserNotFound, "no such user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package apiclient

import (
	"context"
	"net/http"
)

// User is the API's user resource.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// RegisterUserRequest is the body of POST /api/users/register.
type RegisterUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name,omitempty"`
	PromoCode string `json:"promoCode,omitempty"`
}

// LoginResult is the body of a successful POST /api/users/login.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// UpdateUserRequest is the body of PATCH /api/users/{id}. Empty fields are
// left unchanged.
type UpdateUserRequest struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterUser creates a new account.
func (c *Client) RegisterUser(ctx context.Context, req RegisterUserRequest) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodPost, "/api/users/register", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for a bearer token. On success the token is
// stored on the client and sent with all subsequent requests.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var result LoginResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/users/login", loginRequest{Email: email, Password: password}, &result); err != nil {
		return nil, err
	}
	c.SetAuthToken(result.Token)
	return &result, nil
}

// GetUser fetches a user by ID.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/"+userID, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser applies a partial update to a user.
func (c *Client) UpdateUser(ctx context.Context, userID string, req UpdateUserRequest) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodPatch, "/api/users/"+userID, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/users/"+userID, nil, nil)
}

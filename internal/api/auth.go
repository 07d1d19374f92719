package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"agendaconsole/internal/model"
)

type LoginResult struct {
	User model.User
	Auth Auth
}

type loginPayload struct {
	User        *model.User `json:"user"`
	Token       string      `json:"token"`
	AccessToken string      `json:"accessToken"`
}

// Login authenticates against the API. The returned Auth holds whatever the
// API hands back: a bearer token, session cookies, or both.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, errors.New("email and password are required")
	}
	body := map[string]string{"email": email, "password": password}

	data, header, err := c.send(ctx, http.MethodPost, "Auth/login", nil, body)
	if err != nil {
		return LoginResult{}, err
	}
	var p loginPayload
	if err := decodeItem(data, &p); err != nil {
		return LoginResult{}, err
	}
	if p.User == nil {
		return LoginResult{}, errors.New("login response without user")
	}

	token := p.Token
	if token == "" {
		token = p.AccessToken
	}
	return LoginResult{
		User: *p.User,
		Auth: Auth{Token: token, Cookies: cookiesFrom(header)},
	}, nil
}

// Me returns the user behind the current credentials.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var p loginPayload
	if err := c.call(ctx, http.MethodGet, "Auth/me", nil, nil, &p); err != nil {
		return model.User{}, err
	}
	if p.User == nil {
		return model.User{}, ErrUnauthorized
	}
	return *p.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "Auth/logout", nil, nil, nil)
}

func (c *Client) Register(ctx context.Context, p model.RegisterPayload) error {
	return c.call(ctx, http.MethodPost, "Auth/register", nil, p, nil)
}

func cookiesFrom(h http.Header) []*http.Cookie {
	if h == nil {
		return nil
	}
	resp := http.Response{Header: h}
	var out []*http.Cookie
	for _, ck := range resp.Cookies() {
		// Only name and value are replayed upstream.
		out = append(out, &http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	return out
}

package federation

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/spec-kit/qr-vault/internal/config"
)

const userinfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"

// ErrProfileUnusable indicates the provider response carried no subject id.
var ErrProfileUnusable = errors.New("provider profile missing subject id")

// Profile is the provider identity returned by a completed code exchange.
// Emails are ordered; the first one is canonical.
type Profile struct {
	Subject string
	Name    string
	Emails  []string
}

// PrimaryEmail returns the canonical address, or "" when none was granted.
func (p Profile) PrimaryEmail() string {
	if len(p.Emails) == 0 {
		return ""
	}
	return p.Emails[0]
}

// GoogleClient drives the authorization-code grant against Google.
type GoogleClient struct {
	oauth *oauth2.Config
}

// NewGoogleClient builds the client from the configured registration.
func NewGoogleClient(cfg config.GoogleConfig) *GoogleClient {
	return &GoogleClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"profile", "email"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthCodeURL returns the provider authorization URL for the given state.
func (g *GoogleClient) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

// Exchange trades the authorization code for tokens and extracts the profile.
// The ID token claims are preferred; the userinfo endpoint is the fallback
// when the token response carries none. The ID token arrived directly from
// the provider over TLS, so its claims are decoded without a JWKS round trip.
func (g *GoogleClient) Exchange(ctx context.Context, code string) (Profile, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return Profile{}, fmt.Errorf("code exchange: %w", err)
	}

	if idToken, ok := token.Extra("id_token").(string); ok && idToken != "" {
		if profile, err := profileFromIDToken(idToken); err == nil {
			return profile, nil
		}
	}

	return g.fetchUserinfo(ctx, token)
}

type idTokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

func profileFromIDToken(idToken string) (Profile, error) {
	var claims idTokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		return Profile{}, fmt.Errorf("decode id_token: %w", err)
	}
	if claims.Subject == "" {
		return Profile{}, ErrProfileUnusable
	}
	profile := Profile{Subject: claims.Subject, Name: claims.Name}
	if claims.Email != "" {
		profile.Emails = []string{claims.Email}
	}
	return profile, nil
}

func (g *GoogleClient) fetchUserinfo(ctx context.Context, token *oauth2.Token) (Profile, error) {
	resp, err := g.oauth.Client(ctx, token).Get(userinfoEndpoint)
	if err != nil {
		return Profile{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return Profile{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Profile{}, fmt.Errorf("read userinfo: %w", err)
	}

	var info struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return Profile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.ID == "" {
		return Profile{}, ErrProfileUnusable
	}

	profile := Profile{Subject: info.ID, Name: info.Name}
	if info.Email != "" {
		profile.Emails = []string{info.Email}
	}
	return profile, nil
}

// NewState returns an unpredictable value binding the redirect to its callback.
func NewState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

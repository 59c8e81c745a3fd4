package account

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/delordemm1/matrimony-api/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OAuthProvider runs one provider's authorization-code exchange and reduces
// the result to an OAuthIdentity. Nothing provider-specific leaks past it.
type OAuthProvider interface {
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*OAuthIdentity, error)
}

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// providersFromConfig builds the providers that have credentials configured.
func providersFromConfig(cfg *config.Config) (map[AuthProvider]OAuthProvider, error) {
	providers := make(map[AuthProvider]OAuthProvider)

	if cfg.Google.ClientID != "" {
		providers[AuthProviderGoogle] = &googleProvider{
			config: &oauth2.Config{
				ClientID:     cfg.Google.ClientID,
				ClientSecret: cfg.Google.ClientSecret,
				RedirectURL:  cfg.Google.RedirectURL,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			},
			userInfoURL: googleUserInfoURL,
		}
	}

	if cfg.Apple.ClientID != "" && cfg.Apple.PrivateKey != "" {
		key, err := parseApplePrivateKey(cfg.Apple.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse apple private key: %w", err)
		}
		providers[AuthProviderApple] = &appleProvider{
			config: &oauth2.Config{
				ClientID:    cfg.Apple.ClientID,
				RedirectURL: cfg.Apple.RedirectURL,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://appleid.apple.com/auth/authorize",
					TokenURL: "https://appleid.apple.com/auth/token",
				},
				Scopes: []string{"name", "email"},
			},
			teamID: cfg.Apple.TeamID,
			keyID:  cfg.Apple.KeyID,
			prvKey: key,
		}
	}

	return providers, nil
}

func parseApplePrivateKey(key string) (*ecdsa.PrivateKey, error) {
	// Replace the literal '\n' characters with actual newlines
	formattedKey := strings.ReplaceAll(key, "\\n", "\n")
	return jwt.ParseECPrivateKeyFromPEM([]byte(formattedKey))
}

// --- Google ---

type googleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

func (g *googleProvider) AuthCodeURL(state, verifier string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
}

func (g *googleProvider) Exchange(ctx context.Context, code, verifier string) (*OAuthIdentity, error) {
	tok, err := g.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange google code: %w", err)
	}

	resp, err := g.config.Client(ctx, tok).Get(g.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info from google: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response body: %w", err)
	}
	return parseGoogleUserInfo(body)
}

func parseGoogleUserInfo(body []byte) (*OAuthIdentity, error) {
	var info struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user info: %w", err)
	}
	if info.ID == "" {
		return nil, errors.New("google user info has no id")
	}
	return &OAuthIdentity{
		Provider:      AuthProviderGoogle,
		ProviderID:    info.ID,
		Email:         info.Email,
		EmailVerified: info.VerifiedEmail,
		Profile:       ProfileHints{DisplayName: info.Name, PictureURL: info.Picture},
	}, nil
}

// --- Apple ---

type appleProvider struct {
	config *oauth2.Config
	teamID string
	keyID  string
	prvKey *ecdsa.PrivateKey
}

func (a *appleProvider) AuthCodeURL(state, verifier string) string {
	// Apple requires response_mode=form_post when requesting name/email scopes.
	return a.config.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("response_mode", "form_post"),
		oauth2.SetAuthURLParam("response_type", "code"),
	)
}

func (a *appleProvider) Exchange(ctx context.Context, code, verifier string) (*OAuthIdentity, error) {
	secret, err := a.clientSecret(time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to generate apple client secret: %w", err)
	}
	tok, err := a.config.Exchange(ctx, code,
		oauth2.VerifierOption(verifier),
		oauth2.SetAuthURLParam("client_secret", secret),
	)
	if err != nil {
		return nil, fmt.Errorf("exchange apple code: %w", err)
	}

	// Apple's user info is not fetched from a separate endpoint; it is in the
	// id_token returned by the token exchange over TLS.
	idToken, ok := tok.Extra("id_token").(string)
	if !ok || idToken == "" {
		return nil, errors.New("id_token not found in apple oauth token")
	}
	return parseAppleIDToken(idToken)
}

// clientSecret creates the JWT used as the client_secret.
func (a *appleProvider) clientSecret(now time.Time) (string, error) {
	claims := &jwt.RegisteredClaims{
		Issuer:    a.teamID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		Audience:  jwt.ClaimStrings{"https://appleid.apple.com"},
		Subject:   a.config.ClientID,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	t.Header["kid"] = a.keyID
	return t.SignedString(a.prvKey)
}

// appleBool accepts Apple's email_verified, sent either as a bool or a string.
type appleBool bool

func (b *appleBool) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "true":
		*b = true
	case "false", "null", "":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

func parseAppleIDToken(idToken string) (*OAuthIdentity, error) {
	var claims struct {
		jwt.RegisteredClaims
		Email         string    `json:"email"`
		EmailVerified appleBool `json:"email_verified"`
	}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse apple id_token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("subject claim missing from apple id_token")
	}

	// Apple sends the name only on the first login and outside the id_token.
	return &OAuthIdentity{
		Provider:      AuthProviderApple,
		ProviderID:    claims.Subject,
		Email:         claims.Email,
		EmailVerified: bool(claims.EmailVerified),
	}, nil
}

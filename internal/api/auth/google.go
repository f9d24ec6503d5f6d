package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"soapnotes-app/internal/domain/profiles"
	"soapnotes-app/internal/store"
)

const (
	googleIssuer    = "https://accounts.google.com"
	stateCookieName = "oauth_state"
)

// GoogleSignIn holds the OAuth client and a lazily discovered OIDC verifier.
type GoogleSignIn struct {
	oauth            *oauth2.Config
	frontendRedirect string
	secureCookie     bool

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
}

func NewGoogleSignIn(clientID, clientSecret, redirectURL, frontendRedirect string, secureCookie bool) *GoogleSignIn {
	return &GoogleSignIn{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		frontendRedirect: frontendRedirect,
		secureCookie:     secureCookie,
	}
}

func (g *GoogleSignIn) idTokenVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.verifier != nil {
		return g.verifier, nil
	}
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("init google oidc provider: %w", err)
	}
	g.verifier = provider.Verifier(&oidc.Config{ClientID: g.oauth.ClientID})
	return g.verifier, nil
}

type googleIDClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

func (g *GoogleSignIn) verify(ctx context.Context, rawIDToken string) (*googleIDClaims, error) {
	verifier, err := g.idTokenVerifier(ctx)
	if err != nil {
		return nil, err
	}
	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.New("invalid id_token")
	}
	var claims googleIDClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.New("failed to decode token claims")
	}
	if claims.Email == "" || claims.Sub == "" {
		return nil, errors.New("token missing required claims")
	}
	return &claims, nil
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GET /auth/google
func (h *Handler) GoogleStart(c *gin.Context) {
	state, err := randomState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate state"})
		return
	}
	c.SetCookie(stateCookieName, state, 300, "/", "", h.google.secureCookie, true)
	c.Redirect(http.StatusFound, h.google.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// GET /auth/google/callback
func (h *Handler) GoogleCallback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code/state"})
		return
	}
	cookieState, err := c.Cookie(stateCookieName)
	if err != nil || cookieState != state {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}

	ctx := c.Request.Context()
	tok, err := h.google.oauth.Exchange(ctx, code)
	if err != nil {
		h.log.Warn("google code exchange failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "failed to exchange code"})
		return
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing id_token"})
		return
	}

	claims, err := h.google.verify(ctx, rawIDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	p, err := h.findOrCreateGoogleUser(ctx, claims)
	if err != nil {
		h.log.Error("google find-or-create", zap.String("email", claims.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	token, err := h.tokens.Issue(p.ID, p.Email, string(p.Role))
	if err != nil {
		h.log.Error("issue token", zap.String("user_id", p.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create token"})
		return
	}

	if h.google.frontendRedirect == "" {
		c.JSON(http.StatusOK, gin.H{"token": token})
		return
	}
	c.Redirect(http.StatusFound, h.google.frontendRedirect+"?token="+url.QueryEscape(token))
}

func (h *Handler) findOrCreateGoogleUser(ctx context.Context, gc *googleIDClaims) (*profiles.Profile, error) {
	p, err := h.profiles.GetProfileByGoogleSub(ctx, gc.Sub)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	email := strings.ToLower(gc.Email)
	p, err = h.profiles.GetProfileByEmail(ctx, email)
	switch {
	case err == nil:
		if p.GoogleSub == nil {
			if err := h.profiles.SetGoogleSub(ctx, p.ID, gc.Sub); err != nil {
				return nil, err
			}
			sub := gc.Sub
			p.GoogleSub = &sub
		}
		return p, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	sub := gc.Sub
	created := profiles.New("", email, profiles.ProviderGoogle)
	created.GoogleSub = &sub
	created.FirstName = firstNonEmpty(gc.GivenName, gc.Name)
	created.LastName = gc.FamilyName
	if err := h.profiles.CreateProfile(ctx, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}

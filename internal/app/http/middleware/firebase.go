package middleware

import (
	"context"

	"firebase.google.com/go/v4/auth"
)

// FirebaseVerifier accepts Firebase ID tokens minted by the client SDK.
type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(client *auth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*Claims, error) {
	tok, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims := &Claims{UserID: tok.UID}
	if email, ok := tok.Claims["email"].(string); ok {
		claims.Email = email
	}
	if role, ok := tok.Claims["role"].(string); ok {
		claims.Role = role
	}
	return claims, nil
}

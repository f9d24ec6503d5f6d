// Package firebase builds the Firebase Admin app shared by the Firestore
// store and the Firebase ID-token verifier.
package firebase

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

type Credentials struct {
	ProjectID             string
	CredentialsFile       string
	ServiceAccountJSONB64 string
}

// NewApp initializes the Admin SDK. Credentials are taken, in order, from a
// service account file, a base64 encoded service account JSON, or the
// environment's Application Default Credentials.
func NewApp(ctx context.Context, creds Credentials, log *zap.Logger) (*firebase.App, error) {
	var opts []option.ClientOption

	switch {
	case creds.CredentialsFile != "":
		if _, err := os.Stat(creds.CredentialsFile); os.IsNotExist(err) {
			log.Warn("firebase credentials file does not exist", zap.String("path", creds.CredentialsFile))
		}
		opts = append(opts, option.WithCredentialsFile(creds.CredentialsFile))
	case creds.ServiceAccountJSONB64 != "":
		decoded, err := base64.StdEncoding.DecodeString(creds.ServiceAccountJSONB64)
		if err != nil {
			return nil, fmt.Errorf("decode service account json: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(decoded))
	default:
		log.Info("initializing firebase with application default credentials")
	}

	var cfg *firebase.Config
	if creds.ProjectID != "" {
		cfg = &firebase.Config{ProjectID: creds.ProjectID}
	}

	app, err := firebase.NewApp(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	return app, nil
}

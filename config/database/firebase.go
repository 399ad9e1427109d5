package database

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"firebase.google.com/go/auth"
	"google.golang.org/api/option"
)

type Firebase struct {
	App             *firebase.App
	FirestoreClient *firestore.Client
	AuthClient      *auth.Client
}

// InitFirebase initializes both Firestore and Auth clients from base64
// encoded service account credentials.
func InitFirebase(ctx context.Context, encodedCredentials, projectID string) (*Firebase, error) {
	if encodedCredentials == "" {
		return nil, errors.New("FIREBASE_CREDENTIALS_BASE64 environment variable is missing")
	}
	if projectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID environment variable is missing")
	}

	decodedCredentials, err := base64.StdEncoding.DecodeString(encodedCredentials)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Firebase credentials: %w", err)
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, option.WithCredentialsJSON(decodedCredentials))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase: %w", err)
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to initialize Firebase Auth client: %w", err)
	}

	return &Firebase{App: app, FirestoreClient: fs, AuthClient: authClient}, nil
}

func (f *Firebase) Close() error {
	return f.FirestoreClient.Close()
}

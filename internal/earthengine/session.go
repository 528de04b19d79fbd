// Package earthengine evaluates Sentinel image products on the Earth Engine REST API.
package earthengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/forest-guardian/sentinel-prep/internal/log"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
)

const Scope = "https://www.googleapis.com/auth/earthengine"

var (
	ErrKeyFileNotFound        = errors.New("service account key file not found")
	ErrInvalidKey             = errors.New("invalid service account key")
	ErrServiceAccountMismatch = errors.New("key does not belong to the configured service account")
	ErrNoProject              = errors.New("no cloud project configured")
)

type Config struct {
	KeyPath        string
	ServiceAccount string
	Project        string
	APIURL         string
	// TokenURL overrides the token endpoint of the key.
	TokenURL string
}

// Session is an authenticated connection to one cloud project.
type Session struct {
	Project        string
	APIURL         string
	ServiceAccount string
	HTTP           *http.Client
}

type serviceAccountKey struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
	ProjectID   string `json:"project_id"`
}

// NewSession authenticates with a service account key. ctx governs token refreshes
// for the lifetime of the session.
func NewSession(ctx context.Context, cfg Config) (*Session, error) {
	data, err := os.ReadFile(cfg.KeyPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrKeyFileNotFound, cfg.KeyPath)
	}
	if err != nil {
		return nil, err
	}

	var key serviceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if key.ClientEmail == "" {
		return nil, fmt.Errorf("%w: no client_email", ErrInvalidKey)
	}
	if cfg.ServiceAccount != "" && !strings.EqualFold(cfg.ServiceAccount, key.ClientEmail) {
		return nil, fmt.Errorf("%w: key is for %s, expected %s", ErrServiceAccountMismatch, key.ClientEmail, cfg.ServiceAccount)
	}

	jwtCfg, err := google.JWTConfigFromJSON(data, Scope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if cfg.TokenURL != "" {
		jwtCfg.TokenURL = cfg.TokenURL
	}

	project := cfg.Project
	if project == "" {
		project = key.ProjectID
	}
	if project == "" {
		return nil, ErrNoProject
	}

	s := NewSessionWithClient(jwtCfg.Client(ctx), project, cfg.APIURL)
	s.ServiceAccount = key.ClientEmail
	log.Info("earth engine session ready", zap.String("project", project), zap.String("serviceAccount", key.ClientEmail))
	return s, nil
}

// NewSessionWithClient uses an already authorized client.
func NewSessionWithClient(client *http.Client, project, apiURL string) *Session {
	if apiURL == "" {
		apiURL = "https://earthengine.googleapis.com"
	}
	return &Session{Project: project, APIURL: strings.TrimRight(apiURL, "/"), HTTP: client}
}

package earthengine

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAccount = "gee-service-account@sample-project.iam.gserviceaccount.com"

func writeKey(t *testing.T, project string) string {
	t.Helper()
	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(pk)
	require.NoError(t, err)

	key, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     project,
		"private_key_id": "k1",
		"private_key":    string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"client_email":   testAccount,
		"token_uri":      "https://oauth2.googleapis.com/token",
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "gee-key.json")
	require.NoError(t, os.WriteFile(path, key, 0o600))
	return path
}

func TestNewSessionMissingKey(t *testing.T) {
	_, err := NewSession(context.Background(), Config{KeyPath: filepath.Join(t.TempDir(), "gee-key.json")})
	assert.ErrorIs(t, err, ErrKeyFileNotFound)
}

func TestNewSessionRejectsOtherAccount(t *testing.T) {
	_, err := NewSession(context.Background(), Config{
		KeyPath:        writeKey(t, "sample-project"),
		ServiceAccount: "someone-else@sample-project.iam.gserviceaccount.com",
	})
	assert.ErrorIs(t, err, ErrServiceAccountMismatch)
}

func TestNewSessionInvalidKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gee-key.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err := NewSession(context.Background(), Config{KeyPath: path})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestNewSessionNeedsProject(t *testing.T) {
	_, err := NewSession(context.Background(), Config{KeyPath: writeKey(t, "")})
	assert.ErrorIs(t, err, ErrNoProject)
}

func TestSessionAuthorizesRequests(t *testing.T) {
	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "tok", "token_type": "Bearer", "expires_in": 3600}`))
	}))
	defer tokens.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/projects/override/table:computeFeatures", r.URL.Path)
		w.Write([]byte(`{"type": "FeatureCollection", "features": []}`))
	}))
	defer api.Close()

	s, err := NewSession(context.Background(), Config{
		KeyPath:        writeKey(t, "sample-project"),
		ServiceAccount: testAccount,
		Project:        "override",
		APIURL:         api.URL + "/",
		TokenURL:       tokens.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, "override", s.Project)
	assert.Equal(t, testAccount, s.ServiceAccount)

	features, err := s.ComputeFeatures(context.Background(), NewGraph().Expression(Const(1)))
	require.NoError(t, err)
	assert.Empty(t, features)
}

package traefik

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostsFromRule(t *testing.T) {
	tests := []struct {
		rule string
		want []string
	}{
		{"Host(`example.com`)", []string{"example.com"}},
		{"Host(`a.io`) || Host(`b.io`)", []string{"a.io", "b.io"}},
		{"Host(`a.io, b.io`)", []string{"a.io", "b.io"}},
		{"PathPrefix(`/api`)", nil},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HostsFromRule(tt.rule), tt.rule)
	}
}

// selfSignedCert returns a base64-encoded PEM certificate expiring at
// notAfter, the shape Traefik stores in acme.json.
func selfSignedCert(t *testing.T, domain string, notAfter time.Time) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: domain},
		DNSNames:     []string{domain},
		NotBefore:    notAfter.Add(-90 * 24 * time.Hour),
		NotAfter:     notAfter,
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	return base64.StdEncoding.EncodeToString(pemBytes)
}

func writeACME(t *testing.T, certs map[string]string) string {
	t.Helper()

	type domain struct {
		Main string `json:"main"`
	}
	type entry struct {
		Domain      domain `json:"domain"`
		Certificate string `json:"certificate"`
	}
	var entries []entry
	for d, c := range certs {
		entries = append(entries, entry{Domain: domain{Main: d}, Certificate: c})
	}

	data, err := json.Marshal(map[string]any{
		"letsencrypt": map[string]any{"Certificates": entries},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "acme.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func routersServer(t *testing.T, routers []map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/http/routers", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(routers))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSSLStatus(t *testing.T) {
	validCert := selfSignedCert(t, "valid.com", time.Now().Add(60*24*time.Hour))
	expiringCert := selfSignedCert(t, "soon.com", time.Now().Add(10*24*time.Hour))
	expiredCert := selfSignedCert(t, "old.com", time.Now().Add(-24*time.Hour))
	acmePath := writeACME(t, map[string]string{
		"valid.com": validCert,
		"soon.com":  expiringCert,
		"old.com":   expiredCert,
	})

	tls := map[string]any{"certResolver": "letsencrypt"}
	srv := routersServer(t, []map[string]any{
		{"name": "docklite-valid-com@docker", "rule": "Host(`valid.com`)", "provider": "docker", "tls": tls},
		{"name": "docklite-soon-com@docker", "rule": "Host(`soon.com`)", "provider": "docker", "tls": tls},
		{"name": "docklite-old-com@docker", "rule": "Host(`old.com`)", "provider": "docker", "tls": tls},
		{"name": "docklite-plain-com@docker", "rule": "Host(`plain.com`)", "provider": "docker"},
		{"name": "docklite-nocert-com@docker", "rule": "Host(`nocert.com`)", "provider": "docker", "tls": tls},
		// Not ours: wrong provider or name.
		{"name": "docklite-file@file", "rule": "Host(`file.com`)", "provider": "file", "tls": tls},
		{"name": "whoami@docker", "rule": "Host(`whoami.com`)", "provider": "docker", "tls": tls},
	})

	c := NewClient(srv.URL, "letsencrypt", acmePath)
	statuses, err := c.SSLStatus(t.Context())
	require.NoError(t, err)

	byDomain := make(map[string]Status)
	for _, s := range statuses {
		byDomain[s.Domain] = s
	}
	require.Len(t, byDomain, 5)

	assert.Equal(t, StatusValid, byDomain["valid.com"].Status)
	assert.True(t, byDomain["valid.com"].HasSSL)
	require.NotNil(t, byDomain["valid.com"].DaysUntilExpiry)
	assert.InDelta(t, 59, *byDomain["valid.com"].DaysUntilExpiry, 1)

	assert.Equal(t, StatusExpiring, byDomain["soon.com"].Status)
	assert.Equal(t, StatusExpired, byDomain["old.com"].Status)

	assert.Equal(t, StatusNone, byDomain["plain.com"].Status, "router without TLS")
	assert.False(t, byDomain["plain.com"].HasSSL)

	assert.Equal(t, StatusNone, byDomain["nocert.com"].Status, "TLS configured but no cert issued yet")

	assert.NotContains(t, byDomain, "file.com")
	assert.NotContains(t, byDomain, "whoami.com")
}

func TestSSLStatusWithoutACMEFile(t *testing.T) {
	srv := routersServer(t, []map[string]any{
		{"name": "docklite-a-io@docker", "rule": "Host(`a.io`)", "provider": "docker",
			"tls": map[string]any{"certResolver": "letsencrypt"}},
	})

	c := NewClient(srv.URL, "letsencrypt", filepath.Join(t.TempDir(), "missing.json"))
	statuses, err := c.SSLStatus(t.Context())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, StatusNone, statuses[0].Status)
}

func TestSSLStatusWWWFallback(t *testing.T) {
	cert := selfSignedCert(t, "example.com", time.Now().Add(60*24*time.Hour))
	acmePath := writeACME(t, map[string]string{"example.com": cert})

	srv := routersServer(t, []map[string]any{
		{"name": "docklite-www@docker", "rule": "Host(`www.example.com`)", "provider": "docker",
			"tls": map[string]any{"certResolver": "letsencrypt"}},
	})

	c := NewClient(srv.URL, "letsencrypt", acmePath)
	statuses, err := c.SSLStatus(t.Context())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].HasSSL, "www host falls back to the apex certificate")
}

func TestRoutersAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "letsencrypt")
	_, err := c.SSLStatus(t.Context())
	assert.Error(t, err)
}

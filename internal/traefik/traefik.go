// Package traefik reads router and certificate state back out of the
// edge proxy: the router list comes from the Traefik API, certificate
// expiry from the ACME storage file.
package traefik

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"docklite/pkg/logger"
)

// Certificate freshness statuses.
const (
	StatusValid    = "valid"
	StatusExpiring = "expiring"
	StatusExpired  = "expired"
	StatusNone     = "none"
)

// ExpiryWarningDays is the window before expiry in which a certificate
// is reported as expiring.
const ExpiryWarningDays = 30

// DefaultACMEPaths are the storage locations tried, in order, when no
// explicit path is configured.
var DefaultACMEPaths = []string{
	"/var/lib/traefik/acme.json",
	"/etc/traefik/acme.json",
	"/data/traefik/acme.json",
}

// Router is the subset of Traefik's router representation we consume.
type Router struct {
	Name     string `json:"name"`
	Rule     string `json:"rule"`
	Provider string `json:"provider"`
	TLS      *struct {
		CertResolver string `json:"certResolver"`
	} `json:"tls,omitempty"`
}

// Status is the per-domain SSL report.
type Status struct {
	Domain          string     `json:"domain"`
	HasSSL          bool       `json:"has_ssl"`
	ExpiryDate      *time.Time `json:"expiry_date"`
	DaysUntilExpiry *int       `json:"days_until_expiry"`
	Status          string     `json:"status"`
}

// Client talks to the Traefik API and ACME storage.
type Client struct {
	apiEndpoint  string
	certResolver string
	acmePaths    []string
	httpClient   *http.Client
	log          *logger.Logger
}

func NewClient(apiEndpoint, certResolver string, acmePaths ...string) *Client {
	if len(acmePaths) == 0 {
		if env := os.Getenv("ACME_PATH"); env != "" {
			acmePaths = append(acmePaths, env)
		}
		acmePaths = append(acmePaths, DefaultACMEPaths...)
	}
	return &Client{
		apiEndpoint:  strings.TrimRight(apiEndpoint, "/"),
		certResolver: certResolver,
		acmePaths:    acmePaths,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		log:          logger.GetLogger(),
	}
}

// Routers fetches the HTTP routers Traefik currently knows about.
func (c *Client) Routers(ctx context.Context) ([]Router, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiEndpoint+"/api/http/routers", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build traefik request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach traefik API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("traefik API returned %s", resp.Status)
	}

	var routers []Router
	if err := json.NewDecoder(resp.Body).Decode(&routers); err != nil {
		return nil, fmt.Errorf("failed to decode traefik routers: %w", err)
	}
	return routers, nil
}

// SSLStatus reports certificate state for every docklite-managed
// router. A missing or unreadable ACME file degrades to "none" rather
// than failing the whole report.
func (c *Client) SSLStatus(ctx context.Context) ([]Status, error) {
	routers, err := c.Routers(ctx)
	if err != nil {
		return nil, err
	}

	certs := c.loadCertificates()
	now := time.Now()

	var statuses []Status
	for _, r := range routers {
		if r.Provider != "docker" || !strings.Contains(strings.ToLower(r.Name), "docklite") {
			continue
		}

		hosts := HostsFromRule(r.Rule)
		hasTLS := r.TLS != nil && r.TLS.CertResolver == c.certResolver

		for _, host := range hosts {
			if !hasTLS {
				statuses = append(statuses, Status{Domain: host, Status: StatusNone})
				continue
			}

			cert, ok := certs[host]
			if !ok {
				cert, ok = certs[strings.TrimPrefix(host, "www.")]
			}
			if !ok {
				statuses = append(statuses, Status{Domain: host, Status: StatusNone})
				continue
			}

			statuses = append(statuses, certStatus(host, cert, now))
		}
	}
	return statuses, nil
}

var hostRuleRegexp = regexp.MustCompile("Host\\(`([^`]+)`\\)")

// HostsFromRule extracts every hostname from a router rule. A single
// Host matcher may carry comma-separated names.
func HostsFromRule(rule string) []string {
	var hosts []string
	for _, m := range hostRuleRegexp.FindAllStringSubmatch(rule, -1) {
		for _, h := range strings.Split(m[1], ",") {
			if h = strings.TrimSpace(h); h != "" {
				hosts = append(hosts, h)
			}
		}
	}
	return hosts
}

type acmeFile struct {
	LetsEncrypt  *acmeResolver     `json:"letsencrypt"`
	Certificates []acmeCertificate `json:"Certificates"`
}

type acmeResolver struct {
	Certificates []acmeCertificate `json:"Certificates"`
}

type acmeCertificate struct {
	Domain struct {
		Main string   `json:"main"`
		SANs []string `json:"sans"`
	} `json:"domain"`
	Certificate string `json:"certificate"` // base64-encoded PEM bundle
}

// loadCertificates indexes ACME certificates by every domain they
// cover. The first readable storage file wins.
func (c *Client) loadCertificates() map[string]acmeCertificate {
	byDomain := make(map[string]acmeCertificate)

	for _, path := range c.acmePaths {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var file acmeFile
		if err := json.Unmarshal(raw, &file); err != nil {
			c.log.Debug("Skipping unparseable ACME file", "path", path, "error", err)
			continue
		}

		entries := file.Certificates
		if file.LetsEncrypt != nil {
			entries = file.LetsEncrypt.Certificates
		}
		if len(entries) == 0 {
			continue
		}

		for _, entry := range entries {
			if entry.Domain.Main == "" {
				continue
			}
			byDomain[entry.Domain.Main] = entry
			for _, san := range entry.Domain.SANs {
				byDomain[san] = entry
			}
		}
		return byDomain
	}
	return byDomain
}

func certStatus(host string, cert acmeCertificate, now time.Time) Status {
	expiry, err := certificateExpiry(cert.Certificate)
	if err != nil {
		return Status{Domain: host, HasSSL: true, Status: StatusNone}
	}

	days := int(expiry.Sub(now).Hours() / 24)
	status := StatusValid
	switch {
	case days < 0:
		status = StatusExpired
	case days < ExpiryWarningDays:
		status = StatusExpiring
	}

	return Status{
		Domain:          host,
		HasSSL:          true,
		ExpiryDate:      &expiry,
		DaysUntilExpiry: &days,
		Status:          status,
	}
}

func certificateExpiry(encoded string) (time.Time, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to decode certificate: %w", err)
	}
	block, _ := pem.Decode(der)
	if block == nil {
		return time.Time{}, fmt.Errorf("no PEM block in certificate")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return cert.NotAfter, nil
}

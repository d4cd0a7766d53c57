package template

import (
	"strings"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a.io", "a-io"},
		{"example.com", "example-com"},
		{"my-app.example.com", "my-app-example-com"},
		{"UPPER.Case", "UPPER-Case"},
		{"weird_chars!@#", "weird-chars---"},
		{"plainname", "plainname"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeToken(tt.input))
		})
	}
}

func TestStaticTemplate(t *testing.T) {
	folderID := int64(4)
	spec := Static(StaticConfig{
		Domain:   "example.com",
		CodePath: "/srv/docklite/sites/alice/example.com",
		SiteID:   12,
		UserID:   3,
		FolderID: &folderID,
	})

	assert.Equal(t, "nginx:alpine", spec.Image)
	assert.Equal(t, "docklite-site12-example-com", spec.Name)
	assert.Equal(t, []string{"/srv/docklite/sites/alice/example.com:/usr/share/nginx/html:ro"}, spec.Binds)
	assert.Equal(t, RestartUnlessStopped, spec.RestartPolicy)
	assert.Empty(t, spec.NetworkMode)

	assert.Equal(t, "true", spec.Labels[LabelManaged])
	assert.Equal(t, TypeStatic, spec.Labels[LabelType])
	assert.Equal(t, "example.com", spec.Labels[LabelDomain])
	assert.Equal(t, "12", spec.Labels[LabelSiteID])
	assert.Equal(t, "3", spec.Labels[LabelUserID])
	assert.Equal(t, "4", spec.Labels[LabelFolderID])

	// Static sites carry no routing labels in this form.
	for key := range spec.Labels {
		assert.False(t, strings.HasPrefix(key, "traefik."), "unexpected routing label %s", key)
	}

	// Auto-assigned host port.
	bindings := spec.PortBindings[nat.Port("80/tcp")]
	require.Len(t, bindings, 1)
	assert.Equal(t, "0", bindings[0].HostPort)
}

func TestPHPTemplate(t *testing.T) {
	spec := PHP(PhpConfig{
		Domain:   "blog.example.com",
		CodePath: "/srv/docklite/sites/bob/blog.example.com",
		SiteID:   7,
		UserID:   2,
	})

	assert.Equal(t, "webdevops/php-nginx:8.2-alpine", spec.Image)
	assert.Equal(t, "docklite-site7-blog-example-com", spec.Name)
	assert.Contains(t, spec.Env, "WEB_DOCUMENT_ROOT=/app")
	assert.Contains(t, spec.Env, "PHP_MEMORY_LIMIT=256M")
	assert.Contains(t, spec.Env, "PHP_UPLOAD_MAX_FILESIZE=50M")
	assert.Equal(t, []string{"/srv/docklite/sites/bob/blog.example.com:/app:rw"}, spec.Binds)
	assert.Equal(t, TypePHP, spec.Labels[LabelType])
	assert.Equal(t, "", spec.Labels[LabelFolderID], "unfiled site has empty folder label")
}

func TestNodeTemplateRoutingLabels(t *testing.T) {
	spec := Node(NodeConfig{
		Domain:       "a.io",
		CodePath:     "/x",
		SiteID:       7,
		UserID:       3,
		ProxyNetwork: "docklite-proxy",
		Entrypoint:   "websecure",
		CertResolver: "letsencrypt",
	})

	assert.Equal(t, "node:20-alpine", spec.Image)
	assert.Equal(t, "docklite-a-io", spec.Name)
	assert.Equal(t, "/app", spec.WorkingDir)
	assert.Equal(t, []string{"npm", "start"}, spec.Cmd)
	assert.Contains(t, spec.Env, "NODE_ENV=production")
	assert.Contains(t, spec.Env, "PORT=3000")
	assert.Equal(t, "docklite-proxy", spec.NetworkMode)

	// The routing label protocol must come out byte-exact.
	expected := map[string]string{
		"traefik.enable": "true",
		"traefik.http.routers.docklite-a-io.rule":                      "Host(`a.io`)",
		"traefik.http.routers.docklite-a-io.entrypoints":               "websecure",
		"traefik.http.routers.docklite-a-io.tls":                       "true",
		"traefik.http.routers.docklite-a-io.tls.certresolver":          "letsencrypt",
		"traefik.http.services.docklite-a-io.loadbalancer.server.port": "3000",
	}
	for k, v := range expected {
		assert.Equal(t, v, spec.Labels[k], "label %s", k)
	}

	assert.Equal(t, TypeNode, spec.Labels[LabelType])
	assert.Equal(t, "7", spec.Labels[LabelSiteID])
}

func TestNodeTemplateCustomPort(t *testing.T) {
	spec := Node(NodeConfig{
		Domain:       "api.example.com",
		CodePath:     "/srv/code",
		Port:         8080,
		SiteID:       1,
		UserID:       1,
		ProxyNetwork: "docklite-proxy",
		Entrypoint:   "websecure",
		CertResolver: "letsencrypt",
	})

	assert.Contains(t, spec.Env, "PORT=8080")
	assert.Equal(t, "8080",
		spec.Labels["traefik.http.services.docklite-api-example-com.loadbalancer.server.port"])

	_, exposed := spec.ExposedPorts[nat.Port("8080/tcp")]
	assert.True(t, exposed)
}

func TestDatabaseTemplate(t *testing.T) {
	spec := Database(DatabaseConfig{
		Name:     "shop_db",
		Port:     5433,
		Username: "shopadmin",
		Password: "supersecret",
	})

	assert.Equal(t, "postgres:16-alpine", spec.Image)
	assert.Equal(t, "docklite-db-shop-db", spec.Name)
	assert.Contains(t, spec.Env, "POSTGRES_DB=shop_db")
	assert.Contains(t, spec.Env, "POSTGRES_USER=shopadmin")
	assert.Contains(t, spec.Env, "POSTGRES_PASSWORD=supersecret")

	bindings := spec.PortBindings[nat.Port("5432/tcp")]
	require.Len(t, bindings, 1)
	assert.Equal(t, "5433", bindings[0].HostPort)

	assert.Equal(t, TypePostgres, spec.Labels[LabelType])
	assert.Equal(t, "shop_db", spec.Labels[LabelDatabase])
	assert.Equal(t, "shopadmin", spec.Labels[LabelUsername])
	assert.Equal(t, "supersecret", spec.Labels[LabelPassword])
}

func TestDatabaseTemplateGeneratesCredentials(t *testing.T) {
	spec := Database(DatabaseConfig{Name: "appdb", Port: 5432})

	assert.Equal(t, DefaultDatabaseUser, spec.Labels[LabelUsername])
	password := spec.Labels[LabelPassword]
	require.NotEmpty(t, password)
	assert.Len(t, password, 24)
	assert.Contains(t, spec.Env, "POSTGRES_PASSWORD="+password)

	// A second compile gets a fresh credential.
	other := Database(DatabaseConfig{Name: "appdb", Port: 5432})
	assert.NotEqual(t, password, other.Labels[LabelPassword])
}

func TestManaged(t *testing.T) {
	assert.True(t, Managed(map[string]string{LabelManaged: "true"}))
	assert.False(t, Managed(map[string]string{LabelManaged: "false"}))
	assert.False(t, Managed(map[string]string{}))
	assert.False(t, Managed(nil))
}

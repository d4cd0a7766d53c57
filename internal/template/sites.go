package template

import (
	"fmt"
	"strconv"
)

// StaticConfig describes a static site compiled by Static.
type StaticConfig struct {
	Domain   string
	CodePath string
	SiteID   int64
	UserID   int64
	FolderID *int64
}

// Static compiles a static site into an nginx container serving the code
// directory read-only. The host port is auto-assigned; routing for static
// sites is stamped by the proxy sync path, not here.
func Static(cfg StaticConfig) Spec {
	exposed, bindings := autoBinding(80)

	return Spec{
		Image:         "nginx:alpine",
		Name:          siteContainerName(cfg.SiteID, cfg.Domain),
		ExposedPorts:  exposed,
		PortBindings:  bindings,
		Binds:         []string{fmt.Sprintf("%s:/usr/share/nginx/html:ro", cfg.CodePath)},
		RestartPolicy: RestartUnlessStopped,
		Labels: map[string]string{
			LabelManaged:  "true",
			LabelType:     TypeStatic,
			LabelDomain:   cfg.Domain,
			LabelSiteID:   strconv.FormatInt(cfg.SiteID, 10),
			LabelUserID:   strconv.FormatInt(cfg.UserID, 10),
			LabelFolderID: folderLabel(cfg.FolderID),
		},
	}
}

// PhpConfig describes a PHP site compiled by PHP.
type PhpConfig struct {
	Domain   string
	CodePath string
	SiteID   int64
	UserID   int64
	FolderID *int64
}

// PHP compiles a PHP site into a combined PHP-FPM + nginx container with
// the code directory mounted read-write at /app.
func PHP(cfg PhpConfig) Spec {
	exposed, bindings := autoBinding(80)

	return Spec{
		Image:        "webdevops/php-nginx:8.2-alpine",
		Name:         siteContainerName(cfg.SiteID, cfg.Domain),
		ExposedPorts: exposed,
		PortBindings: bindings,
		Env: []string{
			"WEB_DOCUMENT_ROOT=/app",
			"PHP_DISPLAY_ERRORS=1",
			"PHP_MEMORY_LIMIT=256M",
			"PHP_MAX_EXECUTION_TIME=300",
			"PHP_POST_MAX_SIZE=50M",
			"PHP_UPLOAD_MAX_FILESIZE=50M",
		},
		Binds:         []string{fmt.Sprintf("%s:/app:rw", cfg.CodePath)},
		RestartPolicy: RestartUnlessStopped,
		Labels: map[string]string{
			LabelManaged:  "true",
			LabelType:     TypePHP,
			LabelDomain:   cfg.Domain,
			LabelSiteID:   strconv.FormatInt(cfg.SiteID, 10),
			LabelUserID:   strconv.FormatInt(cfg.UserID, 10),
			LabelFolderID: folderLabel(cfg.FolderID),
		},
	}
}

// DefaultNodePort is the internal port a Node site listens on unless
// configured otherwise.
const DefaultNodePort = 3000

// NodeConfig describes a Node.js site compiled by Node.
type NodeConfig struct {
	Domain   string
	CodePath string
	// Port is the internal port the app listens on; 0 means DefaultNodePort.
	Port     int
	SiteID   int64
	UserID   int64
	FolderID *int64
	// ProxyNetwork is the shared reverse-proxy network the container joins.
	ProxyNetwork string
	Entrypoint   string
	CertResolver string
}

// Node compiles a Node.js site: node:20-alpine running `npm start` in
// /app, attached to the shared proxy network with the full routing label
// set so the reverse proxy picks it up.
func Node(cfg NodeConfig) Spec {
	internalPort := cfg.Port
	if internalPort == 0 {
		internalPort = DefaultNodePort
	}
	exposed, bindings := autoBinding(internalPort)

	labels := map[string]string{
		LabelManaged:  "true",
		LabelType:     TypeNode,
		LabelDomain:   cfg.Domain,
		LabelSiteID:   strconv.FormatInt(cfg.SiteID, 10),
		LabelUserID:   strconv.FormatInt(cfg.UserID, 10),
		LabelFolderID: folderLabel(cfg.FolderID),
	}
	for k, v := range RoutingLabels(cfg.Domain, internalPort, cfg.Entrypoint, cfg.CertResolver) {
		labels[k] = v
	}

	return Spec{
		Image:      "node:20-alpine",
		Name:       fmt.Sprintf("docklite-%s", SanitizeToken(cfg.Domain)),
		WorkingDir: "/app",
		Cmd:        []string{"npm", "start"},
		Env: []string{
			"NODE_ENV=production",
			fmt.Sprintf("PORT=%d", internalPort),
		},
		ExposedPorts:  exposed,
		PortBindings:  bindings,
		Binds:         []string{fmt.Sprintf("%s:/app:rw", cfg.CodePath)},
		RestartPolicy: RestartUnlessStopped,
		NetworkMode:   cfg.ProxyNetwork,
		Labels:        labels,
	}
}

// The site id keeps recreated sites from colliding with a leftover
// container for the same domain.
func siteContainerName(siteID int64, domain string) string {
	return fmt.Sprintf("docklite-site%d-%s", siteID, SanitizeToken(domain))
}

// Package template compiles site and database definitions into container
// provision specs. Every compiler is pure and total: it never touches the
// Docker daemon or the filesystem, it only derives images, mounts, ports,
// and labels from its input.
//
// Labels are a wire protocol. The docklite.* keys are how every read path
// recovers metadata from a container without a database lookup, and the
// traefik.* keys drive the reverse proxy's dynamic routing and TLS. Both
// sets must keep their exact key shapes.
package template

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
)

// Label keys of the internal protocol.
const (
	LabelManaged  = "docklite.managed"
	LabelType     = "docklite.type"
	LabelDomain   = "docklite.domain"
	LabelSiteID   = "docklite.site.id"
	LabelUserID   = "docklite.user.id"
	LabelFolderID = "docklite.folder.id"
	LabelDatabase = "docklite.database"
	LabelUsername = "docklite.username"
	LabelPassword = "docklite.password"
)

// Workload type discriminators stored under LabelType.
const (
	TypeStatic   = "static"
	TypePHP      = "php"
	TypeNode     = "node"
	TypePostgres = "postgres"
)

// RestartUnlessStopped is the restart policy applied to every managed
// container.
const RestartUnlessStopped = "unless-stopped"

// Spec is the declarative description of a container to be created.
type Spec struct {
	Image         string
	Name          string
	WorkingDir    string
	Cmd           []string
	Env           []string
	ExposedPorts  nat.PortSet
	PortBindings  nat.PortMap
	Binds         []string
	RestartPolicy string
	NetworkMode   string
	Labels        map[string]string
}

// Managed reports whether a label set belongs to a DockLite container.
func Managed(labels map[string]string) bool {
	return labels[LabelManaged] == "true"
}

// SanitizeToken derives a label-safe token from a domain or database
// name by replacing every non-alphanumeric rune with a dash. Used for
// container names and traefik router/service keys.
func SanitizeToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// RoutingLabels returns the label set the reverse proxy consumes for a
// workload routed over HTTPS: router rule, entrypoint, TLS resolver, and
// the backend port. The key naming scheme is fixed; emitting anything
// else silently breaks routing.
func RoutingLabels(domain string, internalPort int, entrypoint, certResolver string) map[string]string {
	token := SanitizeToken(domain)
	return map[string]string{
		"traefik.enable": "true",
		fmt.Sprintf("traefik.http.routers.docklite-%s.rule", token):                      fmt.Sprintf("Host(`%s`)", domain),
		fmt.Sprintf("traefik.http.routers.docklite-%s.entrypoints", token):               entrypoint,
		fmt.Sprintf("traefik.http.routers.docklite-%s.tls", token):                       "true",
		fmt.Sprintf("traefik.http.routers.docklite-%s.tls.certresolver", token):          certResolver,
		fmt.Sprintf("traefik.http.services.docklite-%s.loadbalancer.server.port", token): strconv.Itoa(internalPort),
	}
}

// autoBinding exposes containerPort and lets the engine pick a free host
// port.
func autoBinding(containerPort int) (nat.PortSet, nat.PortMap) {
	port := nat.Port(fmt.Sprintf("%d/tcp", containerPort))
	return nat.PortSet{port: struct{}{}},
		nat.PortMap{port: []nat.PortBinding{{HostPort: "0"}}}
}

// fixedBinding exposes containerPort on a pre-chosen host port.
func fixedBinding(containerPort, hostPort int) (nat.PortSet, nat.PortMap) {
	port := nat.Port(fmt.Sprintf("%d/tcp", containerPort))
	return nat.PortSet{port: struct{}{}},
		nat.PortMap{port: []nat.PortBinding{{HostPort: strconv.Itoa(hostPort)}}}
}

func folderLabel(folderID *int64) string {
	if folderID == nil {
		return ""
	}
	return strconv.FormatInt(*folderID, 10)
}

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GeneratePassword returns a 24-character random credential from a
// lowercase alphanumeric alphabet.
func GeneratePassword() string {
	var b strings.Builder
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := 0; i < 24; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is broken
			panic(fmt.Sprintf("random source unavailable: %v", err))
		}
		b.WriteByte(passwordAlphabet[n.Int64()])
	}
	return b.String()
}

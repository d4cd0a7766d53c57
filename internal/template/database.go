package template

import "fmt"

// DefaultDatabaseUser is the Postgres role created when the caller does
// not supply one.
const DefaultDatabaseUser = "docklite"

// PostgresPort is the port Postgres listens on inside the container.
const PostgresPort = 5432

// DatabaseConfig describes a managed Postgres instance compiled by
// Database.
type DatabaseConfig struct {
	Name string
	// Port is the pre-chosen host port the instance is published on.
	Port     int
	Username string
	Password string
}

// Database compiles a managed Postgres container. Missing credentials are
// generated; both end up in the container labels so they stay recoverable
// by inspecting the container, which pins the label keys.
func Database(cfg DatabaseConfig) Spec {
	username := cfg.Username
	if username == "" {
		username = DefaultDatabaseUser
	}
	password := cfg.Password
	if password == "" {
		password = GeneratePassword()
	}

	exposed, bindings := fixedBinding(PostgresPort, cfg.Port)

	return Spec{
		Image: "postgres:16-alpine",
		Name:  fmt.Sprintf("docklite-db-%s", SanitizeToken(cfg.Name)),
		Env: []string{
			fmt.Sprintf("POSTGRES_DB=%s", cfg.Name),
			fmt.Sprintf("POSTGRES_USER=%s", username),
			fmt.Sprintf("POSTGRES_PASSWORD=%s", password),
		},
		ExposedPorts:  exposed,
		PortBindings:  bindings,
		RestartPolicy: RestartUnlessStopped,
		Labels: map[string]string{
			LabelManaged:  "true",
			LabelType:     TypePostgres,
			LabelDatabase: cfg.Name,
			LabelUsername: username,
			LabelPassword: password,
		},
	}
}

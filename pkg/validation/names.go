// Package validation provides input validation functions for security-critical operations.
// These functions implement defense-in-depth against path traversal and injection attacks.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// Domain validation: lowercase hostname labels joined by dots. Each label
// starts and ends with an alphanumeric character and may contain hyphens.
var domainRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)+$`)

// Folder names: letters, numbers, spaces, dashes, underscores.
var folderNameRegex = regexp.MustCompile(`^[a-zA-Z0-9\s\-_]+$`)

// Database names follow Postgres identifier rules: start with a letter or
// underscore, then letters, digits, underscores.
var databaseNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Usernames: lowercase letters, digits, dashes, underscores. Usernames
// double as directory names under the sites base, so the charset is strict.
var usernameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// MaxDomainLength is the maximum allowed length for a site domain.
const MaxDomainLength = 253

// MaxFolderNameLength is the maximum allowed length for folder names.
const MaxFolderNameLength = 64

// MaxDatabaseNameLength is the maximum allowed length for database names.
const MaxDatabaseNameLength = 63

// SiteTypes lists the supported site template types.
var SiteTypes = []string{"static", "php", "node"}

// ValidateDomain validates a site domain name.
func ValidateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("domain cannot be empty")
	}

	if len(domain) > MaxDomainLength {
		return fmt.Errorf("domain too long: %d chars (max %d)", len(domain), MaxDomainLength)
	}

	// Check for path traversal attempts
	if strings.Contains(domain, "..") {
		return fmt.Errorf("domain contains path traversal sequence")
	}

	if !domainRegex.MatchString(domain) {
		return fmt.Errorf("invalid domain format: must be a lowercase hostname like 'example.com'")
	}

	return nil
}

// ValidateSiteType validates a site template type.
func ValidateSiteType(siteType string) error {
	for _, t := range SiteTypes {
		if siteType == t {
			return nil
		}
	}
	return fmt.Errorf("invalid site type %q: must be one of %s", siteType, strings.Join(SiteTypes, ", "))
}

// ValidateFolderName validates a folder display name.
func ValidateFolderName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("folder name cannot be empty")
	}

	if len(name) > MaxFolderNameLength {
		return fmt.Errorf("folder name too long: %d chars (max %d)", len(name), MaxFolderNameLength)
	}

	if !folderNameRegex.MatchString(name) {
		return fmt.Errorf("folder name can only contain letters, numbers, spaces, dashes, and underscores")
	}

	return nil
}

// ValidateDatabaseName validates a managed database name.
func ValidateDatabaseName(name string) error {
	if name == "" {
		return fmt.Errorf("database name cannot be empty")
	}

	if len(name) > MaxDatabaseNameLength {
		return fmt.Errorf("database name too long: %d chars (max %d)", len(name), MaxDatabaseNameLength)
	}

	if !databaseNameRegex.MatchString(name) {
		return fmt.Errorf("invalid database name format: must start with a letter or underscore, then letters, digits, underscores")
	}

	return nil
}

// ValidateUsername validates a panel username.
func ValidateUsername(name string) error {
	if name == "" {
		return fmt.Errorf("username cannot be empty")
	}

	if strings.Contains(name, "..") {
		return fmt.Errorf("username contains path traversal sequence")
	}

	if !usernameRegex.MatchString(name) {
		return fmt.Errorf("invalid username format: must be lowercase letters, digits, dashes, underscores")
	}

	return nil
}

// Package site drives the provisioning pipeline: a persistence row, a
// jailed site directory, a compiled container spec, and a running
// container, kept consistent with each other.
package site

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"docklite/internal/config"
	"docklite/internal/container"
	"docklite/internal/pathguard"
	"docklite/internal/store"
	"docklite/internal/template"
	"docklite/pkg/logger"
	"docklite/pkg/validation"
)

var (
	ErrSiteExists     = errors.New("site already exists")
	ErrDatabaseExists = errors.New("database already exists")
)

// Orchestrator coordinates the store, the filesystem jail, and the
// container runtime for site and database provisioning.
type Orchestrator struct {
	store    *store.Store
	manager  *container.Manager
	resolver *pathguard.Resolver
	cfg      *config.Config
	locks    *keyedMutex
	log      *logger.Logger
}

func NewOrchestrator(st *store.Store, mgr *container.Manager, resolver *pathguard.Resolver, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		store:    st,
		manager:  mgr,
		resolver: resolver,
		cfg:      cfg,
		locks:    newKeyedMutex(),
		log:      logger.GetLogger(),
	}
}

type CreateSiteParams struct {
	Domain             string
	Type               string
	UserID             int64
	FolderID           *int64
	Port               int // node only; 0 means the default
	CreateDefaultFiles bool
}

// CreateSite provisions a new site: a persistence row is inserted
// first, then the jailed directory and the container are created, and
// finally the row is updated with the container id. The domain key is
// held for the whole sequence so concurrent requests for the same
// domain serialize instead of racing the existence check.
func (o *Orchestrator) CreateSite(ctx context.Context, p CreateSiteParams) (*store.Site, error) {
	if err := validation.ValidateDomain(p.Domain); err != nil {
		return nil, err
	}
	if err := validation.ValidateSiteType(p.Type); err != nil {
		return nil, err
	}

	unlock := o.locks.Lock("site:" + p.Domain)
	defer unlock()

	if _, err := o.store.GetSiteByDomain(p.Domain); err == nil {
		return nil, ErrSiteExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	user, err := o.store.GetUserByID(p.UserID)
	if err != nil {
		return nil, err
	}

	sitePath, err := o.ensureSiteDir(user.Username, p.Domain)
	if err != nil {
		return nil, err
	}

	if p.CreateDefaultFiles {
		if err := WriteDefaultFiles(sitePath, p.Domain, p.Type); err != nil {
			return nil, err
		}
	}

	row, err := o.store.CreateSite(p.UserID, p.Domain, p.Type)
	if err != nil {
		return nil, err
	}

	spec, err := o.compileSiteSpec(ctx, p, row.ID, sitePath)
	if err != nil {
		o.discardSiteRow(row.ID)
		return nil, err
	}

	containerID, err := o.manager.Provision(ctx, spec)
	if err != nil {
		o.discardSiteRow(row.ID)
		return nil, err
	}

	if err := o.store.AttachSiteContainer(row.ID, containerID); err != nil {
		return nil, err
	}

	if err := o.placeInFolder(p.UserID, p.FolderID, containerID); err != nil {
		o.log.Warn("Site provisioned but folder assignment failed",
			"domain", p.Domain, "error", err)
	}

	o.log.Info("Site created", "domain", p.Domain, "type", p.Type, "user", user.Username)
	return o.store.GetSiteByID(row.ID)
}

func (o *Orchestrator) compileSiteSpec(ctx context.Context, p CreateSiteParams, siteID int64, sitePath string) (template.Spec, error) {
	switch p.Type {
	case template.TypeStatic:
		return template.Static(template.StaticConfig{
			Domain:   p.Domain,
			CodePath: sitePath,
			SiteID:   siteID,
			UserID:   p.UserID,
			FolderID: p.FolderID,
		}), nil

	case template.TypePHP:
		return template.PHP(template.PhpConfig{
			Domain:   p.Domain,
			CodePath: sitePath,
			SiteID:   siteID,
			UserID:   p.UserID,
			FolderID: p.FolderID,
		}), nil

	case template.TypeNode:
		// Node sites join the proxy network so the edge router can
		// reach them by container name.
		if err := o.manager.Runtime().EnsureNetwork(ctx, o.cfg.Proxy.Network); err != nil {
			return template.Spec{}, err
		}
		return template.Node(template.NodeConfig{
			Domain:       p.Domain,
			CodePath:     sitePath,
			SiteID:       siteID,
			UserID:       p.UserID,
			FolderID:     p.FolderID,
			Port:         p.Port,
			ProxyNetwork: o.cfg.Proxy.Network,
			Entrypoint:   o.cfg.Proxy.Entrypoint,
			CertResolver: o.cfg.Proxy.CertResolver,
		}), nil

	default:
		return template.Spec{}, fmt.Errorf("unsupported site type %s", p.Type)
	}
}

// ensureSiteDir creates {base}/{username}/{domain} inside the jail and
// re-resolves it afterwards so the path actually used is the verified
// one, not the one we merely intended to create.
func (o *Orchestrator) ensureSiteDir(username, domain string) (string, error) {
	rel := filepath.Join(username, domain)

	res, err := o.resolver.Resolve(rel, false)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(res.Path, 0o755); err != nil {
		return "", fmt.Errorf("failed to create site directory: %w", err)
	}

	verified, err := o.resolver.Resolve(rel, true)
	if err != nil {
		return "", err
	}
	if err := pathguard.AssertWithinBase(verified.Path, verified.Base); err != nil {
		return "", err
	}
	return verified.Path, nil
}

func (o *Orchestrator) placeInFolder(userID int64, folderID *int64, containerID string) error {
	if folderID != nil {
		return o.store.AssignContainer(*folderID, containerID)
	}
	def, err := o.store.EnsureDefaultFolder(userID)
	if err != nil {
		return err
	}
	return o.store.AssignContainer(def.ID, containerID)
}

func (o *Orchestrator) discardSiteRow(siteID int64) {
	if err := o.store.DeleteSite(siteID); err != nil {
		o.log.Error("Failed to discard site row after provisioning failure",
			"site_id", siteID, "error", err)
	}
}

// DeleteSite removes the container and the persistence row. Site files
// on disk are kept.
func (o *Orchestrator) DeleteSite(ctx context.Context, siteID int64) error {
	site, err := o.store.GetSiteByID(siteID)
	if err != nil {
		return err
	}

	unlock := o.locks.Lock("site:" + site.Domain)
	defer unlock()

	if site.ContainerID != nil {
		if err := o.manager.Deprovision(ctx, *site.ContainerID); err != nil {
			o.log.Warn("Failed to remove site container, deleting row anyway",
				"domain", site.Domain, "error", err)
		}
		if err := o.store.UnassignContainer(*site.ContainerID); err != nil {
			o.log.Warn("Failed to remove folder membership", "domain", site.Domain, "error", err)
		}
	}

	if err := o.store.DeleteSite(site.ID); err != nil {
		return err
	}
	o.log.Info("Site deleted", "domain", site.Domain)
	return nil
}

type CreateDatabaseParams struct {
	Name   string
	UserID int64
}

// CreateDatabase provisions a postgres container with generated
// credentials and grants the creator access.
func (o *Orchestrator) CreateDatabase(ctx context.Context, p CreateDatabaseParams) (*store.Database, error) {
	if err := validation.ValidateDatabaseName(p.Name); err != nil {
		return nil, err
	}

	unlock := o.locks.Lock("database:" + p.Name)
	defer unlock()

	if _, err := o.store.GetDatabaseByName(p.Name); err == nil {
		return nil, ErrDatabaseExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	port, err := o.store.NextAvailablePort()
	if err != nil {
		return nil, err
	}

	spec := template.Database(template.DatabaseConfig{
		Name: p.Name,
		Port: port,
	})

	row, err := o.store.CreateDatabase(p.Name, port,
		spec.Labels[template.LabelUsername], spec.Labels[template.LabelPassword])
	if err != nil {
		return nil, err
	}

	containerID, err := o.manager.Provision(ctx, spec)
	if err != nil {
		if delErr := o.store.DeleteDatabase(row.ID); delErr != nil {
			o.log.Error("Failed to discard database row after provisioning failure",
				"database_id", row.ID, "error", delErr)
		}
		return nil, err
	}

	if err := o.store.AttachDatabaseContainer(row.ID, containerID); err != nil {
		return nil, err
	}
	if err := o.store.GrantDatabaseAccess(row.ID, p.UserID); err != nil {
		return nil, err
	}

	o.log.Info("Database created", "name", p.Name, "port", port)
	return o.store.GetDatabaseByID(row.ID)
}

// DeleteDatabase removes the container and the row. The data volume
// lives inside the container and is removed with it.
func (o *Orchestrator) DeleteDatabase(ctx context.Context, databaseID int64) error {
	db, err := o.store.GetDatabaseByID(databaseID)
	if err != nil {
		return err
	}

	unlock := o.locks.Lock("database:" + db.Name)
	defer unlock()

	if db.ContainerID != nil {
		if err := o.manager.Deprovision(ctx, *db.ContainerID); err != nil {
			o.log.Warn("Failed to remove database container, deleting row anyway",
				"name", db.Name, "error", err)
		}
		if err := o.store.UnassignContainer(*db.ContainerID); err != nil {
			o.log.Warn("Failed to remove folder membership", "name", db.Name, "error", err)
		}
	}

	if err := o.store.DeleteDatabase(db.ID); err != nil {
		return err
	}
	o.log.Info("Database deleted", "name", db.Name)
	return nil
}

package storage

import (
	"github.com/quayside/chandler/pkg/types"
)

// Store defines the interface for provisioning state storage
// This is implemented by BoltDB-backed storage
type Store interface {
	// Modules
	SaveModule(record *types.ModuleRecord) error
	GetModule(name string) (*types.ModuleRecord, error)
	ListModules() ([]*types.ModuleRecord, error)
	DeleteModule(name string) error

	// Backups
	SaveBackup(record *types.BackupRecord) error
	GetBackup(id string) (*types.BackupRecord, error)
	ListBackups() ([]*types.BackupRecord, error)
	ListBackupsByTarget(target string) ([]*types.BackupRecord, error)
	DeleteBackup(id string) error

	// Sites
	SaveSite(record *types.SiteRecord) error
	GetSite(domain string) (*types.SiteRecord, error)
	ListSites() ([]*types.SiteRecord, error)
	DeleteSite(domain string) error

	// Utility
	Close() error
}

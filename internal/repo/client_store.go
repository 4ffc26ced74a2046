package repo

import (
	"context"
	"slices"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ovpnscale/internal/models"
	"ovpnscale/internal/validation"
)

var clientConfigColumns = []string{"dev", "inactive", "keep_alive", "resolve_retry", "server_poll_timeout", "extra_options"}

type ClientStore struct{ db *gorm.DB }

func NewClientStore(db *gorm.DB) *ClientStore { return &ClientStore{db: db} }

// withRemotes preloads the remote set ordered by id together with the host and
// config of each remote, which is everything the renderer needs.
func withRemotes(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Remotes", func(db *gorm.DB) *gorm.DB { return db.Order("vpn_servers.id asc") }).
		Preload("Remotes.Host").
		Preload("Remotes.Config")
}

// loadRemotes replaces c.Remotes with the stored VPN servers they reference.
func loadRemotes(tx *gorm.DB, c *models.ClientConfig) error {
	ids := c.RemoteIDs()
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) == 0 {
		c.Remotes = nil
		return nil
	}
	var servers []models.VPNServer
	if err := tx.Preload("Host").Preload("Config").Where("id IN ?", ids).Order("id asc").Find(&servers).Error; err != nil {
		return err
	}
	if len(servers) != len(ids) {
		return integrity("client config", c.ID, "references %d unknown vpn server(s)", len(ids)-len(servers))
	}
	c.Remotes = servers
	return nil
}

func replaceRemotes(tx *gorm.DB, c *models.ClientConfig) error {
	if err := tx.Where("client_config_id = ?", c.ID).Delete(&models.ClientConfigRemote{}).Error; err != nil {
		return err
	}
	if len(c.Remotes) == 0 {
		return nil
	}
	rows := make([]models.ClientConfigRemote, 0, len(c.Remotes))
	for _, r := range c.Remotes {
		rows = append(rows, models.ClientConfigRemote{ClientConfigID: c.ID, VPNServerID: r.ID})
	}
	return tx.Create(&rows).Error
}

// Create stores the config and its remote set. Remotes are looked up by id; the
// rest of each VPNServer value passed in is ignored.
func (s *ClientStore) Create(ctx context.Context, c *models.ClientConfig) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadRemotes(tx, c); err != nil {
			return err
		}
		if err := validation.Validate(c); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(c).Error; err != nil {
			return err
		}
		return replaceRemotes(tx, c)
	})
}

func (s *ClientStore) Update(ctx context.Context, c *models.ClientConfig) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.ClientConfig
		if err := tx.First(&cur, c.ID).Error; err != nil {
			return notFound(err, "client config", c.ID)
		}
		if err := loadRemotes(tx, c); err != nil {
			return err
		}
		if err := validation.Validate(c); err != nil {
			return err
		}
		if err := tx.Model(&cur).Omit(clause.Associations).Select(clientConfigColumns).Updates(c).Error; err != nil {
			return err
		}
		c.CreatedAt = cur.CreatedAt
		return replaceRemotes(tx, c)
	})
}

// Get returns the config with its remotes, hosts and server configs loaded.
func (s *ClientStore) Get(ctx context.Context, id uint) (*models.ClientConfig, error) {
	var c models.ClientConfig
	if err := withRemotes(s.db.WithContext(ctx)).First(&c, id).Error; err != nil {
		return nil, notFound(err, "client config", id)
	}
	return &c, nil
}

func (s *ClientStore) List(ctx context.Context) ([]models.ClientConfig, error) {
	var out []models.ClientConfig
	err := withRemotes(s.db.WithContext(ctx)).Order("id asc").Find(&out).Error
	return out, err
}

// Delete is refused while a certificate is bound to the config.
func (s *ClientStore) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.ClientConfig
		if err := tx.First(&cur, id).Error; err != nil {
			return notFound(err, "client config", id)
		}
		var certs int64
		if err := tx.Model(&models.Certificate{}).Where("client_config_id = ?", id).Count(&certs).Error; err != nil {
			return err
		}
		if certs > 0 {
			return integrity("client config", id, "referenced by %d certificate(s)", certs)
		}
		if err := tx.Where("client_config_id = ?", id).Delete(&models.ClientConfigRemote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&cur).Error
	})
}

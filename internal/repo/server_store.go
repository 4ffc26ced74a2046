package repo

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ovpnscale/internal/logs"
	"ovpnscale/internal/models"
	"ovpnscale/internal/validation"
)

// колонки, которые Update переписывает целиком (created_at не трогаем)
var serverConfigColumns = []string{"port", "protocol", "dev", "keep_alive", "push_options", "extra_options", "up"}

// ServerStore хранит ServerConfig и VPNServer: уникальность (host, port, protocol)
// зависит от обеих таблиц, поэтому проверки живут в одном месте.
type ServerStore struct{ db *gorm.DB }

func NewServerStore(db *gorm.DB) *ServerStore { return &ServerStore{db: db} }

// -------- ServerConfig --------

func (s *ServerStore) CreateConfig(ctx context.Context, c *models.ServerConfig) error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error
}

func (s *ServerStore) GetConfig(ctx context.Context, id uint) (*models.ServerConfig, error) {
	var c models.ServerConfig
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err, "server config", id)
	}
	return &c, nil
}

func (s *ServerStore) ListConfigs(ctx context.Context) ([]models.ServerConfig, error) {
	var out []models.ServerConfig
	err := s.db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

// UpdateConfig rewrites the config. A port or protocol change is rejected when
// some host would end up with two VPN servers on the same port and protocol.
func (s *ServerStore) UpdateConfig(ctx context.Context, c *models.ServerConfig) error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.ServerConfig
		if err := tx.First(&cur, c.ID).Error; err != nil {
			return notFound(err, "server config", c.ID)
		}
		if cur.Port != c.Port || cur.Protocol != c.Protocol {
			var clashes int64
			err := tx.Table("vpn_servers AS a").
				Joins("JOIN vpn_servers AS b ON b.host_ipv4 = a.host_ipv4 AND b.config_id <> a.config_id").
				Joins("JOIN server_configs AS sc ON sc.id = b.config_id").
				Where("a.config_id = ? AND sc.port = ? AND sc.protocol = ?", c.ID, c.Port, c.Protocol).
				Count(&clashes).Error
			if err != nil {
				return err
			}
			if clashes > 0 {
				return integrity("server config", c.ID, "%s/%d already served on a host using this config", c.Protocol, c.Port)
			}
		}
		if err := tx.Model(&cur).Select(serverConfigColumns).Updates(c).Error; err != nil {
			return err
		}
		c.CreatedAt = cur.CreatedAt
		return nil
	})
}

// SetUp flips the operational flag. The flag is not part of the rendered text.
func (s *ServerStore) SetUp(ctx context.Context, id uint, up bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.ServerConfig
		if err := tx.First(&cur, id).Error; err != nil {
			return notFound(err, "server config", id)
		}
		return tx.Model(&cur).Update("up", up).Error
	})
}

// DeleteConfig is refused while a VPN server or a certificate references the config.
func (s *ServerStore) DeleteConfig(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.ServerConfig
		if err := tx.First(&cur, id).Error; err != nil {
			return notFound(err, "server config", id)
		}
		var servers, certs int64
		if err := tx.Model(&models.VPNServer{}).Where("config_id = ?", id).Count(&servers).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Certificate{}).Where("server_config_id = ?", id).Count(&certs).Error; err != nil {
			return err
		}
		if servers > 0 || certs > 0 {
			logs.Component("repo").WithFields(logrus.Fields{
				"server_config": id, "vpn_servers": servers, "certificates": certs,
			}).Warn("server config delete refused")
			return integrity("server config", id, "referenced by %d vpn server(s) and %d certificate(s)", servers, certs)
		}
		return tx.Delete(&cur).Error
	})
}

// -------- VPNServer --------

// CreateVPNServer binds an existing host to an existing config.
func (s *ServerStore) CreateVPNServer(ctx context.Context, v *models.VPNServer) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var host models.Host
		if err := tx.Where("ipv4 = ?", v.HostIPv4).First(&host).Error; err != nil {
			return notFound(err, "host", v.HostIPv4)
		}
		var cfg models.ServerConfig
		if err := tx.First(&cfg, v.ConfigID).Error; err != nil {
			return notFound(err, "server config", v.ConfigID)
		}
		v.Host, v.Config = host, cfg
		if err := validation.Validate(v); err != nil {
			return err
		}

		var clashes int64
		err := tx.Model(&models.VPNServer{}).
			Joins("JOIN server_configs ON server_configs.id = vpn_servers.config_id").
			Where("vpn_servers.host_ipv4 = ? AND server_configs.port = ? AND server_configs.protocol = ?",
				v.HostIPv4, cfg.Port, cfg.Protocol).
			Count(&clashes).Error
		if err != nil {
			return err
		}
		if clashes > 0 {
			return integrity("vpn server", v.HostIPv4, "%s/%d already served on this host", cfg.Protocol, cfg.Port)
		}
		return tx.Omit(clause.Associations).Create(v).Error
	})
}

func (s *ServerStore) GetVPNServer(ctx context.Context, id uint) (*models.VPNServer, error) {
	var v models.VPNServer
	if err := s.db.WithContext(ctx).Preload("Host").Preload("Config").First(&v, id).Error; err != nil {
		return nil, notFound(err, "vpn server", id)
	}
	return &v, nil
}

func (s *ServerStore) ListVPNServers(ctx context.Context) ([]models.VPNServer, error) {
	var out []models.VPNServer
	err := s.db.WithContext(ctx).Preload("Host").Preload("Config").Order("id asc").Find(&out).Error
	return out, err
}

// DeleteVPNServer also drops the server from every client remote list.
func (s *ServerStore) DeleteVPNServer(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var v models.VPNServer
		if err := tx.First(&v, id).Error; err != nil {
			return notFound(err, "vpn server", id)
		}
		if err := tx.Where("vpn_server_id = ?", id).Delete(&models.ClientConfigRemote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&v).Error
	})
}

package repo

import (
	"context"

	"gorm.io/gorm"

	"ovpnscale/internal/logs"
	"ovpnscale/internal/models"
	"ovpnscale/internal/validation"
)

type HostStore struct{ db *gorm.DB }

func NewHostStore(db *gorm.DB) *HostStore { return &HostStore{db: db} }

func (s *HostStore) Create(ctx context.Context, h *models.Host) error {
	if err := validation.Validate(h); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Host{}).Where("ipv4 = ?", h.IPv4).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return integrity("host", h.IPv4, "already exists")
		}
		return tx.Create(h).Error
	})
}

// Update меняет только hostname: IPv4 — первичный ключ.
func (s *HostStore) Update(ctx context.Context, h *models.Host) error {
	if err := validation.Validate(h); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.Host
		if err := tx.Where("ipv4 = ?", h.IPv4).First(&cur).Error; err != nil {
			return notFound(err, "host", h.IPv4)
		}
		return tx.Model(&cur).Update("hostname", h.Hostname).Error
	})
}

func (s *HostStore) Get(ctx context.Context, ipv4 string) (*models.Host, error) {
	var h models.Host
	if err := s.db.WithContext(ctx).Where("ipv4 = ?", ipv4).First(&h).Error; err != nil {
		return nil, notFound(err, "host", ipv4)
	}
	return &h, nil
}

func (s *HostStore) List(ctx context.Context) ([]models.Host, error) {
	var hosts []models.Host
	err := s.db.WithContext(ctx).Order("ipv4 asc").Find(&hosts).Error
	return hosts, err
}

// Delete removes the host together with every VPN server running on it and the
// client remote references pointing at those servers.
func (s *HostStore) Delete(ctx context.Context, ipv4 string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var h models.Host
		if err := tx.Where("ipv4 = ?", ipv4).First(&h).Error; err != nil {
			return notFound(err, "host", ipv4)
		}
		var ids []uint
		if err := tx.Model(&models.VPNServer{}).Where("host_ipv4 = ?", ipv4).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) > 0 {
			if err := tx.Where("vpn_server_id IN ?", ids).Delete(&models.ClientConfigRemote{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", ids).Delete(&models.VPNServer{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&h).Error; err != nil {
			return err
		}
		logs.Component("repo").WithField("host", ipv4).WithField("vpn_servers", len(ids)).
			Info("host deleted with its vpn servers")
		return nil
	})
}

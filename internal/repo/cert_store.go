package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ovpnscale/internal/logs"
	"ovpnscale/internal/models"
	"ovpnscale/internal/validation"
)

var certificateColumns = []string{"owner", "server_config_id", "client_config_id", "active"}

type CertStore struct{ db *gorm.DB }

func NewCertStore(db *gorm.DB) *CertStore { return &CertStore{db: db} }

// checkBinding makes sure the configuration the certificate points at exists.
func checkBinding(tx *gorm.DB, c *models.Certificate) error {
	var n int64
	switch {
	case c.ServerConfigID != nil:
		if err := tx.Model(&models.ServerConfig{}).Where("id = ?", *c.ServerConfigID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return integrity("certificate", c.Name, "server config %d does not exist", *c.ServerConfigID)
		}
	case c.ClientConfigID != nil:
		if err := tx.Model(&models.ClientConfig{}).Where("id = ?", *c.ClientConfigID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return integrity("certificate", c.Name, "client config %d does not exist", *c.ClientConfigID)
		}
	}
	return nil
}

func (s *CertStore) Create(ctx context.Context, c *models.Certificate) error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Certificate{}).Where("name = ?", c.Name).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return integrity("certificate", c.Name, "already exists")
		}
		if err := checkBinding(tx, c); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(c).Error
	})
}

// Update rewrites owner, binding and the active flag. Issued material is only
// written by PKIStore.SaveIssued.
func (s *CertStore) Update(ctx context.Context, c *models.Certificate) error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.Certificate
		if err := tx.Where("name = ?", c.Name).First(&cur).Error; err != nil {
			return notFound(err, "certificate", c.Name)
		}
		if err := checkBinding(tx, c); err != nil {
			return err
		}
		return tx.Model(&cur).Omit(clause.Associations).Select(certificateColumns).Updates(c).Error
	})
}

func (s *CertStore) SetActive(ctx context.Context, name string, active bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.Certificate
		if err := tx.Where("name = ?", name).First(&cur).Error; err != nil {
			return notFound(err, "certificate", name)
		}
		return tx.Model(&cur).Update("active", active).Error
	})
}

func (s *CertStore) Get(ctx context.Context, name string) (*models.Certificate, error) {
	var c models.Certificate
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&c).Error; err != nil {
		return nil, notFound(err, "certificate", name)
	}
	return &c, nil
}

func (s *CertStore) ListByOwner(ctx context.Context, owner string) ([]models.Certificate, error) {
	var out []models.Certificate
	err := s.db.WithContext(ctx).Where("owner = ?", owner).Order("name asc").Find(&out).Error
	return out, err
}

func (s *CertStore) Delete(ctx context.Context, name string) error {
	res := s.db.WithContext(ctx).Where("name = ?", name).Delete(&models.Certificate{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "certificate", name)
	}
	return nil
}

// DeleteByOwner drops every certificate of an owner, e.g. when the owner leaves
// the user directory. It returns the number of certificates removed.
func (s *CertStore) DeleteByOwner(ctx context.Context, owner string) (int64, error) {
	res := s.db.WithContext(ctx).Where("owner = ?", owner).Delete(&models.Certificate{})
	if res.Error != nil {
		return 0, res.Error
	}
	logs.Component("repo").WithField("owner", owner).WithField("certificates", res.RowsAffected).
		Info("owner certificates deleted")
	return res.RowsAffected, nil
}

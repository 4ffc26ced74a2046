package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"ovpnscale/internal/models"
)

type PKIStore struct{ db *gorm.DB }

func NewPKIStore(db *gorm.DB) *PKIStore { return &PKIStore{db: db} }

// GetOrCreateCA returns the CA called name, calling create only when none is stored.
func (s *PKIStore) GetOrCreateCA(ctx context.Context, name string, create func() (*models.CA, error)) (*models.CA, error) {
	var ca models.CA
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&ca).Error
	if err == nil {
		return &ca, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	newCA, err := create()
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(newCA).Error; err != nil {
		return nil, err
	}
	return newCA, nil
}

func (s *PKIStore) GetCA(ctx context.Context, id uint) (*models.CA, error) {
	var ca models.CA
	if err := s.db.WithContext(ctx).First(&ca, id).Error; err != nil {
		return nil, notFound(err, "ca", id)
	}
	return &ca, nil
}

// SaveIssued stores freshly issued material on an existing certificate.
func (s *PKIStore) SaveIssued(ctx context.Context, c *models.Certificate) error {
	res := s.db.WithContext(ctx).Model(&models.Certificate{}).Where("name = ?", c.Name).
		Updates(map[string]any{
			"ca_id":      c.CAID,
			"cert_pem":   c.CertPEM,
			"key_pem":    c.KeyPEM,
			"not_before": c.NotBefore,
			"not_after":  c.NotAfter,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "certificate", c.Name)
	}
	return nil
}

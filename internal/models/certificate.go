package models

import "time"

// Certificate — именованная идентичность, выданная владельцу (Owner) и
// привязанная ровно к одному профилю: серверному или клиентскому.
// Owner — непрозрачный ключ внешней системы пользователей.
type Certificate struct {
	Name           string        `gorm:"primaryKey;size:50" json:"name"`
	Owner          string        `gorm:"size:255;not null;index" json:"owner"`
	ServerConfigID *uint         `gorm:"index" json:"server_config_id,omitempty"`
	ServerConfig   *ServerConfig `gorm:"foreignKey:ServerConfigID" json:"-"`
	ClientConfigID *uint         `gorm:"index" json:"client_config_id,omitempty"`
	ClientConfig   *ClientConfig `gorm:"foreignKey:ClientConfigID" json:"-"`
	Active         bool          `gorm:"not null;default:false" json:"active"`

	// выпущенный материал (заполняется pki.Service)
	CAID      *uint     `gorm:"index" json:"ca_id,omitempty"`
	CertPEM   []byte    `json:"-"`
	KeyPEM    []byte    `json:"-"`
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsServer reports whether the certificate is bound to a server config.
func (c *Certificate) IsServer() bool { return c.ServerConfigID != nil }

// Issued reports whether PEM material has been generated for the certificate.
func (c *Certificate) Issued() bool { return len(c.CertPEM) > 0 && len(c.KeyPEM) > 0 }

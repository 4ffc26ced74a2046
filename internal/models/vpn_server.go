package models

import "time"

// VPNServer связывает хост с серверным профилем. Пара (host, port, protocol),
// где port/protocol берутся из Config, уникальна — см. repo.ServerStore.
type VPNServer struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	HostIPv4  string       `gorm:"size:15;not null;index" json:"host_ipv4"`
	Host      Host         `gorm:"foreignKey:HostIPv4;references:IPv4" json:"host"`
	ConfigID  uint         `gorm:"not null;index" json:"config_id"`
	Config    ServerConfig `gorm:"foreignKey:ConfigID" json:"config"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

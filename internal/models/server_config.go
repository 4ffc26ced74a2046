package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ProtoUDP = "udp"
	ProtoTCP = "tcp"

	DefaultServerPort      = 1194
	DefaultDev             = "tun"
	DefaultServerKeepAlive = "10 120"
)

// ServerConfig — серверный профиль OpenVPN. На него ссылаются VPNServer
// (host × config) и серверные сертификаты.
type ServerConfig struct {
	ID           uint                             `gorm:"primaryKey" json:"id"`
	Port         int                              `gorm:"not null" json:"port"`
	Protocol     string                           `gorm:"size:3;not null" json:"protocol"`
	Dev          string                           `gorm:"size:5;not null" json:"dev"`
	KeepAlive    string                           `gorm:"size:10" json:"keep_alive"`
	PushOptions  datatypes.JSONSlice[NamedOption] `json:"push_options"`
	ExtraOptions datatypes.JSONSlice[NamedOption] `json:"extra_options"`
	Up           bool                             `gorm:"not null;default:false" json:"up"`
	CreatedAt    time.Time                        `json:"created_at"`
	UpdatedAt    time.Time                        `json:"updated_at"`
}

// NewServerConfig returns a config populated with the daemon defaults.
func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:      DefaultServerPort,
		Protocol:  ProtoUDP,
		Dev:       DefaultDev,
		KeepAlive: DefaultServerKeepAlive,
	}
}

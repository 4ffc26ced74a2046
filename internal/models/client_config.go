package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	DefaultInactive          = 3600
	DefaultClientKeepAlive   = "10 900"
	DefaultResolveRetry      = "60"
	DefaultServerPollTimeout = 4

	ResolveRetryInfinite = "infinite"
)

// ClientConfig — клиентский профиль. Remotes — кандидаты для директив remote.
// Nil у Inactive/KeepAlive/ResolveRetry означает «директиву не выводить».
type ClientConfig struct {
	ID                uint                             `gorm:"primaryKey" json:"id"`
	Remotes           []VPNServer                      `gorm:"many2many:client_config_remotes;joinForeignKey:ClientConfigID;joinReferences:VPNServerID" json:"remotes"`
	Dev               string                           `gorm:"size:5;not null" json:"dev"`
	Inactive          *int                             `json:"inactive,omitempty"`
	KeepAlive         *string                          `gorm:"size:10" json:"keep_alive,omitempty"`
	ResolveRetry      *string                          `gorm:"size:8" json:"resolve_retry,omitempty"`
	ServerPollTimeout int                              `gorm:"not null" json:"server_poll_timeout"`
	ExtraOptions      datatypes.JSONSlice[NamedOption] `json:"extra_options"`
	CreatedAt         time.Time                        `json:"created_at"`
	UpdatedAt         time.Time                        `json:"updated_at"`
}

// ClientConfigRemote is the join row between a client config and a VPN server.
type ClientConfigRemote struct {
	ClientConfigID uint `gorm:"primaryKey"`
	VPNServerID    uint `gorm:"primaryKey"`
}

func (ClientConfigRemote) TableName() string { return "client_config_remotes" }

// NewClientConfig returns a config with every optional directive set to its
// default value.
func NewClientConfig(remotes ...VPNServer) *ClientConfig {
	inactive := DefaultInactive
	keepAlive := DefaultClientKeepAlive
	retry := DefaultResolveRetry
	return &ClientConfig{
		Remotes:           remotes,
		Dev:               DefaultDev,
		Inactive:          &inactive,
		KeepAlive:         &keepAlive,
		ResolveRetry:      &retry,
		ServerPollTimeout: DefaultServerPollTimeout,
	}
}

// RemoteIDs returns the ids of the referenced VPN servers in list order.
func (c *ClientConfig) RemoteIDs() []uint {
	ids := make([]uint, 0, len(c.Remotes))
	for _, r := range c.Remotes {
		ids = append(ids, r.ID)
	}
	return ids
}

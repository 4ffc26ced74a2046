package models

import "time"

// Host — физическая машина, на которой поднимается один или несколько VPN-серверов.
// Ключ — IPv4-адрес.
type Host struct {
	IPv4      string    `gorm:"primaryKey;size:15" json:"ipv4"`
	Hostname  string    `gorm:"size:50" json:"hostname"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayAddress returns the address clients should dial: the hostname when one
// is set, the IPv4 address otherwise.
func (h Host) DisplayAddress() string {
	if h.Hostname != "" {
		return h.Hostname
	}
	return h.IPv4
}

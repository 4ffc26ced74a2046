// Package resolve computes derived views over entity associations.
package resolve

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"ovpnscale/internal/models"
)

// ErrUnresolved is returned when a referenced VPN server arrives without its host
// or server config loaded.
var ErrUnresolved = errors.New("remote not resolvable")

// Remote — одна кандидатная точка подключения клиента.
type Remote struct {
	Address  string
	Port     int
	Protocol string
}

func (r Remote) String() string { return fmt.Sprintf("%s %d %s", r.Address, r.Port, r.Protocol) }

// Remotes returns the distinct endpoints reachable from a client config, sorted by
// address, port, then protocol. Two VPN servers resolving to the same tuple (for
// example two hosts sharing a hostname) produce one entry.
func Remotes(c *models.ClientConfig) ([]Remote, error) {
	seen := make(map[Remote]struct{}, len(c.Remotes))
	out := make([]Remote, 0, len(c.Remotes))
	for i, srv := range c.Remotes {
		if srv.Host.IPv4 == "" {
			return nil, fmt.Errorf("%w: remotes[%d] (vpn server %d) has no host", ErrUnresolved, i, srv.ID)
		}
		if srv.Config.Port == 0 || srv.Config.Protocol == "" {
			return nil, fmt.Errorf("%w: remotes[%d] (vpn server %d) has no server config", ErrUnresolved, i, srv.ID)
		}
		r := Remote{
			Address:  srv.Host.DisplayAddress(),
			Port:     srv.Config.Port,
			Protocol: srv.Config.Protocol,
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Remote) int {
		return cmp.Or(
			cmp.Compare(a.Address, b.Address),
			cmp.Compare(a.Port, b.Port),
			cmp.Compare(a.Protocol, b.Protocol),
		)
	})
	return out, nil
}

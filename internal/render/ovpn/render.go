// Package ovpn renders server and client profiles into OpenVPN directive files.
// Directives are emitted one per line in a fixed order; the output is a pure
// function of the entity passed in.
package ovpn

import (
	"fmt"
	"strings"

	"ovpnscale/internal/models"
	"ovpnscale/internal/resolve"
	"ovpnscale/internal/validation"
)

func addLine(b *strings.Builder, format string, args ...any) {
	fmt.Fprintf(b, format, args...)
	b.WriteByte('\n')
}

// directive emits "name value", trimming the trailing space of an empty value.
func directive(b *strings.Builder, name, value string) {
	addLine(b, "%s", strings.TrimSpace(name+" "+value))
}

func optional(b *strings.Builder, name string, value *string) {
	if value == nil || *value == "" {
		return
	}
	directive(b, name, *value)
}

// RenderServer renders port, proto, dev, keepalive, the push options and the
// extra options, in that order.
func RenderServer(c *models.ServerConfig) (string, error) {
	if err := validation.ServerConfig(c).Err(); err != nil {
		return "", &MalformedEntityError{Entity: "server config", Err: err}
	}

	var b strings.Builder
	addLine(&b, "port %d", c.Port)
	addLine(&b, "proto %s", c.Protocol)
	addLine(&b, "dev %s", c.Dev)
	addLine(&b, "keepalive %s", c.KeepAlive)
	for _, po := range c.PushOptions {
		addLine(&b, "push \"%s\"", strings.TrimSpace(po.Name+" "+po.Value))
	}
	for _, eo := range c.ExtraOptions {
		directive(&b, eo.Name, eo.Value)
	}
	return b.String(), nil
}

// RenderClient renders dev, the optional inactive/keepalive/resolve-retry
// directives, one remote per distinct endpoint and the extra options.
func RenderClient(c *models.ClientConfig) (string, error) {
	if err := validation.ClientFields(c).Err(); err != nil {
		return "", &MalformedEntityError{Entity: "client config", Err: err}
	}
	remotes, err := resolve.Remotes(c)
	if err != nil {
		return "", &MalformedEntityError{Entity: "client config", Err: err}
	}
	if len(remotes) == 0 {
		return "", ErrNoRemotesAvailable
	}

	var b strings.Builder
	addLine(&b, "dev %s", c.Dev)
	if c.Inactive != nil {
		addLine(&b, "inactive %d", *c.Inactive)
	}
	optional(&b, "keepalive", c.KeepAlive)
	optional(&b, "resolve-retry", c.ResolveRetry)
	for _, r := range remotes {
		addLine(&b, "remote %s %d %s", r.Address, r.Port, r.Protocol)
	}
	for _, eo := range c.ExtraOptions {
		directive(&b, eo.Name, eo.Value)
	}
	return b.String(), nil
}

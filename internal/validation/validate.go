// Package validation holds the per-field rules applied to every entity before it
// is stored or rendered. Checks never mutate their input and report all
// violations at once.
package validation

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"
	"unicode"

	"ovpnscale/internal/models"
)

const (
	maxHostname    = 50
	maxOptionName  = 20
	maxOptionValue = 40
	maxCertName    = 50
	minPort        = 1
	maxPort        = 65535
)

var (
	reOptionName   = regexp.MustCompile(`^[a-z-]+$`)
	reDev          = regexp.MustCompile(`^(tun|tap)(\d+)?$`)
	reKeepAlive    = regexp.MustCompile(`^\d+ \d+$`)
	reResolveRetry = regexp.MustCompile(`^(\d+|` + models.ResolveRetryInfinite + `)$`)
	reSlug         = regexp.MustCompile(`^[a-z0-9_-]+$`)
)

// Validate dispatches on the entity type. It returns nil or an Errors value.
func Validate(entity any) error {
	switch v := entity.(type) {
	case *models.Host:
		return Host(v).Err()
	case *models.ServerConfig:
		return ServerConfig(v).Err()
	case *models.VPNServer:
		return VPNServer(v).Err()
	case *models.ClientConfig:
		return ClientConfig(v).Err()
	case *models.Certificate:
		return Certificate(v).Err()
	case models.NamedOption:
		return Option(v).Err()
	default:
		return fmt.Errorf("validation: unsupported entity %T", entity)
	}
}

func Host(h *models.Host) Errors {
	var errs Errors
	if !IsIPv4(h.IPv4) {
		errs.add("ipv4", RuleIPv4, h.IPv4)
	}
	if len(h.Hostname) > maxHostname {
		errs.add("hostname", RuleMaxLength, h.Hostname)
	}
	// hostname становится одним токеном строки remote
	if strings.IndexFunc(h.Hostname, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		errs.add("hostname", RuleToken, h.Hostname)
	}
	return errs
}

// IsIPv4 accepts dotted-quad IPv4 only; IPv6 and IPv4-mapped IPv6 are rejected.
func IsIPv4(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is4()
}

func Option(o models.NamedOption) Errors {
	var errs Errors
	if !reOptionName.MatchString(o.Name) {
		errs.add("name", RulePattern, o.Name)
	} else if len(o.Name) > maxOptionName {
		errs.add("name", RuleMaxLength, o.Name)
	}
	if len(o.Value) > maxOptionValue {
		errs.add("value", RuleMaxLength, o.Value)
	}
	if strings.IndexFunc(o.Value, unicode.IsControl) >= 0 {
		errs.add("value", RuleNoControl, o.Value)
	}
	return errs
}

// PushOption is Option plus the quoting rule: the pair is emitted inside
// push "...", so the value may not contain a double quote.
func PushOption(o models.NamedOption) Errors {
	errs := Option(o)
	if strings.ContainsRune(o.Value, '"') {
		errs.add("value", RuleNoQuote, o.Value)
	}
	return errs
}

func options(errs *Errors, field string, kind models.OptionKind, opts []models.NamedOption) {
	check := Option
	if kind == models.OptionPush {
		check = PushOption
	}
	for i, o := range opts {
		errs.merge(fmt.Sprintf("%s[%d]", field, i), check(o))
	}
}

func port(errs *Errors, field string, p int) {
	if p < minPort || p > maxPort {
		errs.add(field, RuleRange, p)
	}
}

func protocol(errs *Errors, field, p string) {
	if p != models.ProtoUDP && p != models.ProtoTCP {
		errs.add(field, RuleChoice, p)
	}
}

func dev(errs *Errors, field, d string) {
	if !reDev.MatchString(d) {
		errs.add(field, RulePattern, d)
	}
}

func keepAlive(errs *Errors, field, k string) {
	if !reKeepAlive.MatchString(k) {
		errs.add(field, RulePattern, k)
	}
}

func ServerConfig(c *models.ServerConfig) Errors {
	var errs Errors
	port(&errs, "port", c.Port)
	protocol(&errs, "protocol", c.Protocol)
	dev(&errs, "dev", c.Dev)
	keepAlive(&errs, "keep_alive", c.KeepAlive)
	options(&errs, "push_options", models.OptionPush, c.PushOptions)
	options(&errs, "extra_options", models.OptionExtraServer, c.ExtraOptions)
	return errs
}

func VPNServer(s *models.VPNServer) Errors {
	var errs Errors
	if !IsIPv4(s.HostIPv4) {
		errs.add("host_ipv4", RuleIPv4, s.HostIPv4)
	}
	if s.ConfigID == 0 {
		errs.add("config_id", RuleRequired, s.ConfigID)
	}
	return errs
}

// ClientConfig checks the client's own fields and the port/protocol every remote
// would contribute. Remotes whose config is not loaded are skipped here; the
// resolver reports them at render time.
func ClientConfig(c *models.ClientConfig) Errors {
	errs := ClientFields(c)
	if len(c.Remotes) == 0 {
		errs.add("remotes", RuleRequired, 0)
	}
	return errs
}

// ClientFields is ClientConfig without the non-empty remotes rule. The renderer
// uses it so an empty remote set surfaces as ErrNoRemotesAvailable.
func ClientFields(c *models.ClientConfig) Errors {
	var errs Errors
	dev(&errs, "dev", c.Dev)
	if c.Inactive != nil && *c.Inactive < 0 {
		errs.add("inactive", RuleMin, *c.Inactive)
	}
	if c.KeepAlive != nil && *c.KeepAlive != "" {
		keepAlive(&errs, "keep_alive", *c.KeepAlive)
	}
	if c.ResolveRetry != nil && *c.ResolveRetry != "" && !reResolveRetry.MatchString(*c.ResolveRetry) {
		errs.add("resolve_retry", RulePattern, *c.ResolveRetry)
	}
	if c.ServerPollTimeout < 1 {
		errs.add("server_poll_timeout", RuleMin, c.ServerPollTimeout)
	}
	for i, r := range c.Remotes {
		if r.Host.IPv4 != "" {
			errs.merge(fmt.Sprintf("remotes[%d].host", i), Host(&r.Host))
		}
		if r.Config.ID == 0 && r.Config.Port == 0 {
			continue
		}
		field := fmt.Sprintf("remotes[%d].config", i)
		port(&errs, field+".port", r.Config.Port)
		protocol(&errs, field+".protocol", r.Config.Protocol)
	}
	options(&errs, "extra_options", models.OptionExtraClient, c.ExtraOptions)
	return errs
}

func Certificate(c *models.Certificate) Errors {
	var errs Errors
	switch {
	case !reSlug.MatchString(c.Name):
		errs.add("name", RuleSlug, c.Name)
	case len(c.Name) > maxCertName:
		errs.add("name", RuleMaxLength, c.Name)
	}
	if strings.TrimSpace(c.Owner) == "" {
		errs.add("owner", RuleRequired, c.Owner)
	}
	bound := 0
	if c.ServerConfigID != nil {
		bound++
	}
	if c.ClientConfigID != nil {
		bound++
	}
	switch bound {
	case 0:
		errs.add("config", RuleRequired, nil)
	case 2:
		errs.add("config", RuleExclusive, nil)
	}
	return errs
}

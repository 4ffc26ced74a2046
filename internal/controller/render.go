package controller

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"ovpnscale/internal/bundle"
	"ovpnscale/internal/logs"
	"ovpnscale/internal/models"
	"ovpnscale/internal/render/ovpn"
)

var (
	ErrCertificateInactive  = errors.New("certificate is inactive")
	ErrCertificateNotIssued = errors.New("certificate has no issued material")
	ErrNotClientCertificate = errors.New("certificate is not bound to a client config")
)

// Репозитории
type ServerConfigs interface {
	GetConfig(ctx context.Context, id uint) (*models.ServerConfig, error)
}
type ClientConfigs interface {
	Get(ctx context.Context, id uint) (*models.ClientConfig, error)
}
type Certificates interface {
	Get(ctx context.Context, name string) (*models.Certificate, error)
}
type Authorities interface {
	GetCA(ctx context.Context, id uint) (*models.CA, error)
}

// Artifact is a rendered directive file and the sha256 of its text.
type Artifact struct {
	Text     string
	Checksum string
}

type Bundle struct {
	Archive  []byte
	Checksum string
}

type Renderer struct {
	Servers ServerConfigs
	Clients ClientConfigs
	Certs   Certificates
	CAs     Authorities
}

func NewRenderer(ss ServerConfigs, cs ClientConfigs, certs Certificates, cas Authorities) *Renderer {
	return &Renderer{Servers: ss, Clients: cs, Certs: certs, CAs: cas}
}

func artifact(text string) *Artifact {
	sum := sha256.Sum256([]byte(text))
	return &Artifact{Text: text, Checksum: hex.EncodeToString(sum[:])}
}

func (r *Renderer) RenderServer(ctx context.Context, id uint) (*Artifact, error) {
	cfg, err := r.Servers.GetConfig(ctx, id)
	if err != nil {
		return nil, err
	}
	text, err := ovpn.RenderServer(cfg)
	if err != nil {
		return nil, fmt.Errorf("server config %d: %w", id, err)
	}
	return artifact(text), nil
}

func (r *Renderer) RenderClient(ctx context.Context, id uint) (*Artifact, error) {
	cfg, err := r.Clients.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	text, err := ovpn.RenderClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("client config %d: %w", id, err)
	}
	return artifact(text), nil
}

// ClientBundle renders the client config a certificate is bound to and packs it
// with the certificate, its key and the issuing CA.
func (r *Renderer) ClientBundle(ctx context.Context, name string) (*Bundle, error) {
	cert, err := r.Certs.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	// 1) только активные клиентские сертификаты с выпущенным материалом
	switch {
	case !cert.Active:
		return nil, fmt.Errorf("%s: %w", name, ErrCertificateInactive)
	case cert.ClientConfigID == nil:
		return nil, fmt.Errorf("%s: %w", name, ErrNotClientCertificate)
	case !cert.Issued() || cert.CAID == nil:
		return nil, fmt.Errorf("%s: %w", name, ErrCertificateNotIssued)
	}

	// 2) конфиг
	art, err := r.RenderClient(ctx, *cert.ClientConfigID)
	if err != nil {
		return nil, err
	}

	// 3) CA + tar.gz
	ca, err := r.CAs.GetCA(ctx, *cert.CAID)
	if err != nil {
		return nil, err
	}
	archive, sum, err := bundle.Build(bundle.ClientFiles(cert.Name, art.Text, ca.CertPEM, cert.CertPEM, cert.KeyPEM))
	if err != nil {
		return nil, err
	}
	logs.Component("controller").WithField("certificate", name).WithField("checksum", sum).Debug("client bundle built")
	return &Bundle{Archive: archive, Checksum: sum}, nil
}

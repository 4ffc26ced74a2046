// Package pki issues X.509 material for certificate identities from a stored
// root CA.
package pki

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"time"

	"ovpnscale/internal/logs"
	"ovpnscale/internal/models"
	"ovpnscale/internal/repo"
)

var ErrBadCA = errors.New("pki: malformed CA material")

type Service struct {
	Store *repo.PKIStore
	Now   func() time.Time
}

func New(store *repo.PKIStore) *Service { return &Service{Store: store, Now: time.Now} }

func serial() (*big.Int, error) {
	return rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
}

// encode returns the certificate and EC key as PEM blocks.
func encode(der []byte, key *ecdsa.PrivateKey) (certPEM, keyPEM []byte, err error) {
	derKey, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, nil, err
	}
	var c, k bytes.Buffer
	if err := pem.Encode(&c, &pem.Block{Type: "CERTIFICATE", Bytes: der}); err != nil {
		return nil, nil, err
	}
	if err := pem.Encode(&k, &pem.Block{Type: "EC PRIVATE KEY", Bytes: derKey}); err != nil {
		return nil, nil, err
	}
	return c.Bytes(), k.Bytes(), nil
}

// EnsureRootCA returns the CA called name, generating a self-signed one on first use.
func (s *Service) EnsureRootCA(ctx context.Context, name string, ttl time.Duration) (*models.CA, error) {
	return s.Store.GetOrCreateCA(ctx, name, func() (*models.CA, error) {
		nb, na := s.Now().Add(-time.Hour), s.Now().Add(ttl)
		sk, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, err
		}
		sn, err := serial()
		if err != nil {
			return nil, err
		}
		tpl := &x509.Certificate{
			SerialNumber: sn,
			Subject:      pkix.Name{CommonName: name},
			NotBefore:    nb, NotAfter: na,
			KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
			BasicConstraintsValid: true, IsCA: true, MaxPathLenZero: true,
		}
		der, err := x509.CreateCertificate(rand.Reader, tpl, tpl, &sk.PublicKey, sk)
		if err != nil {
			return nil, err
		}
		certPEM, keyPEM, err := encode(der, sk)
		if err != nil {
			return nil, err
		}
		logs.Component("pki").WithField("ca", name).Info("root CA generated")
		return &models.CA{Name: name, CertPEM: certPEM, KeyPEM: keyPEM, NotBefore: nb, NotAfter: na}, nil
	})
}

func parseCA(ca *models.CA) (*x509.Certificate, *ecdsa.PrivateKey, error) {
	pb, _ := pem.Decode(ca.CertPEM)
	if pb == nil {
		return nil, nil, ErrBadCA
	}
	parent, err := x509.ParseCertificate(pb.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBadCA, err)
	}
	kb, _ := pem.Decode(ca.KeyPEM)
	if kb == nil {
		return nil, nil, ErrBadCA
	}
	key, err := x509.ParseECPrivateKey(kb.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBadCA, err)
	}
	return parent, key, nil
}

// Issue signs a fresh key pair for c with the CA and stores the material on the
// certificate row. Server-bound certificates get serverAuth, client-bound ones
// clientAuth. The certificate's name is used as the common name.
func (s *Service) Issue(ctx context.Context, ca *models.CA, c *models.Certificate, ttl time.Duration) error {
	parent, cakey, err := parseCA(ca)
	if err != nil {
		return err
	}
	sk, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return err
	}
	sn, err := serial()
	if err != nil {
		return err
	}
	nb, na := s.Now().Add(-time.Hour), s.Now().Add(ttl)
	usage := x509.ExtKeyUsageClientAuth
	if c.IsServer() {
		usage = x509.ExtKeyUsageServerAuth
	}
	tpl := &x509.Certificate{
		SerialNumber: sn,
		Subject:      pkix.Name{CommonName: c.Name, OrganizationalUnit: []string{c.Owner}},
		NotBefore:    nb, NotAfter: na,
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{usage},
	}
	der, err := x509.CreateCertificate(rand.Reader, tpl, parent, &sk.PublicKey, cakey)
	if err != nil {
		return err
	}
	certPEM, keyPEM, err := encode(der, sk)
	if err != nil {
		return err
	}
	caID := ca.ID
	c.CAID = &caID
	c.CertPEM, c.KeyPEM = certPEM, keyPEM
	c.NotBefore, c.NotAfter = nb, na
	if err := s.Store.SaveIssued(ctx, c); err != nil {
		return fmt.Errorf("store issued certificate %s: %w", c.Name, err)
	}
	logs.Component("pki").WithField("certificate", c.Name).WithField("not_after", na).Info("certificate issued")
	return nil
}

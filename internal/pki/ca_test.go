package pki

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ovpnscale/internal/db"
	"ovpnscale/internal/models"
	"ovpnscale/internal/repo"
)

type env struct {
	svc     *Service
	certs   *repo.CertStore
	servers *repo.ServerStore
}

func newEnv(t *testing.T) env {
	t.Helper()
	d, err := db.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB, err := d.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(d))
	return env{svc: New(repo.NewPKIStore(d)), certs: repo.NewCertStore(d), servers: repo.NewServerStore(d)}
}

func parse(t *testing.T, b []byte) *x509.Certificate {
	t.Helper()
	blk, _ := pem.Decode(b)
	require.NotNil(t, blk)
	c, err := x509.ParseCertificate(blk.Bytes)
	require.NoError(t, err)
	return c
}

func TestEnsureRootCAIsStable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, err := e.svc.EnsureRootCA(ctx, "ovpnscale-root", 24*time.Hour)
	require.NoError(t, err)
	b, err := e.svc.EnsureRootCA(ctx, "ovpnscale-root", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, a.CertPEM, b.CertPEM)

	root := parse(t, a.CertPEM)
	assert.True(t, root.IsCA)
	assert.Equal(t, "ovpnscale-root", root.Subject.CommonName)
}

func TestIssueServerAndClient(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ca, err := e.svc.EnsureRootCA(ctx, "root", 24*time.Hour)
	require.NoError(t, err)

	cfg := models.NewServerConfig()
	require.NoError(t, e.servers.CreateConfig(ctx, cfg))
	c := &models.Certificate{Name: "edge-1", Owner: "ops", ServerConfigID: &cfg.ID}
	require.NoError(t, e.certs.Create(ctx, c))

	require.NoError(t, e.svc.Issue(ctx, ca, c, time.Hour))
	stored, err := e.certs.Get(ctx, "edge-1")
	require.NoError(t, err)
	require.True(t, stored.Issued())
	require.NotNil(t, stored.CAID)
	assert.Equal(t, ca.ID, *stored.CAID)

	leaf := parse(t, stored.CertPEM)
	assert.Equal(t, "edge-1", leaf.Subject.CommonName)
	pool := x509.NewCertPool()
	pool.AddCert(parse(t, ca.CertPEM))
	_, err = leaf.Verify(x509.VerifyOptions{Roots: pool, KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}})
	assert.NoError(t, err)
	_, err = leaf.Verify(x509.VerifyOptions{Roots: pool, KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}})
	assert.Error(t, err)
}

func TestIssueUnknownCertificate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ca, err := e.svc.EnsureRootCA(ctx, "root", time.Hour)
	require.NoError(t, err)

	err = e.svc.Issue(ctx, ca, &models.Certificate{Name: "nobody", Owner: "x"}, time.Hour)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestIssueBadCA(t *testing.T) {
	e := newEnv(t)
	err := e.svc.Issue(context.Background(), &models.CA{CertPEM: []byte("junk")}, &models.Certificate{Name: "x"}, time.Hour)
	assert.ErrorIs(t, err, ErrBadCA)
}

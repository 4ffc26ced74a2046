package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	dbpkg "ovpnscale/internal/db"
	"ovpnscale/internal/models"
	"ovpnscale/internal/validation"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	d, err := dbpkg.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB, err := d.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, dbpkg.Migrate(d))
	return d
}

type fixture struct {
	hosts   *HostStore
	servers *ServerStore
	clients *ClientStore
	certs   *CertStore
}

func newFixture(t *testing.T) fixture {
	d := newTestDB(t)
	return fixture{
		hosts:   NewHostStore(d),
		servers: NewServerStore(d),
		clients: NewClientStore(d),
		certs:   NewCertStore(d),
	}
}

func (f fixture) host(t *testing.T, ip, name string) *models.Host {
	t.Helper()
	h := &models.Host{IPv4: ip, Hostname: name}
	require.NoError(t, f.hosts.Create(context.Background(), h))
	return h
}

func (f fixture) config(t *testing.T, port int, proto string) *models.ServerConfig {
	t.Helper()
	c := models.NewServerConfig()
	c.Port, c.Protocol = port, proto
	require.NoError(t, f.servers.CreateConfig(context.Background(), c))
	return c
}

func (f fixture) vpn(t *testing.T, ip string, cfg uint) *models.VPNServer {
	t.Helper()
	v := &models.VPNServer{HostIPv4: ip, ConfigID: cfg}
	require.NoError(t, f.servers.CreateVPNServer(context.Background(), v))
	return v
}

func (f fixture) client(t *testing.T, remotes ...models.VPNServer) *models.ClientConfig {
	t.Helper()
	c := models.NewClientConfig(remotes...)
	require.NoError(t, f.clients.Create(context.Background(), c))
	return c
}

func uintp(u uint) *uint { return &u }

func TestHostCreateValidatesAndRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.hosts.Create(ctx, &models.Host{IPv4: "10.0.0.256"})
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("ipv4", validation.RuleIPv4))

	list, err := f.hosts.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	f.host(t, "10.0.0.1", "vpn1.example.com")
	err = f.hosts.Create(ctx, &models.Host{IPv4: "10.0.0.1"})
	assert.ErrorIs(t, err, ErrReferentialIntegrity)

	var rie *ReferentialIntegrityError
	require.ErrorAs(t, err, &rie)
	assert.Equal(t, "host", rie.Entity)
	assert.Equal(t, "10.0.0.1", rie.Key)
}

func TestHostUpdateAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.host(t, "10.0.0.1", "")

	require.NoError(t, f.hosts.Update(ctx, &models.Host{IPv4: "10.0.0.1", Hostname: "vpn1.example.com"}))
	h, err := f.hosts.Get(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "vpn1.example.com", h.Hostname)

	err = f.hosts.Update(ctx, &models.Host{IPv4: "10.0.0.9"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.hosts.Get(ctx, "10.0.0.9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHostDeleteCascadesToVPNServers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.host(t, "10.0.0.1", "")
	f.host(t, "10.0.0.2", "")
	cfg := f.config(t, 1194, models.ProtoUDP)
	v1 := f.vpn(t, "10.0.0.1", cfg.ID)
	v2 := f.vpn(t, "10.0.0.2", cfg.ID)
	c := f.client(t, *v1, *v2)

	require.NoError(t, f.hosts.Delete(ctx, "10.0.0.1"))

	_, err := f.servers.GetVPNServer(ctx, v1.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.servers.GetVPNServer(ctx, v2.ID)
	assert.NoError(t, err)

	got, err := f.clients.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Remotes, 1)
	assert.Equal(t, v2.ID, got.Remotes[0].ID)

	assert.ErrorIs(t, f.hosts.Delete(ctx, "10.0.0.1"), ErrNotFound)
}

func TestServerConfigCreateValidates(t *testing.T) {
	f := newFixture(t)
	c := models.NewServerConfig()
	c.Port = 0
	c.Protocol = "icmp"

	err := f.servers.CreateConfig(context.Background(), c)
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("port", validation.RuleRange))
	assert.True(t, verrs.Has("protocol", validation.RuleChoice))
	assert.Zero(t, c.ID)
}

func TestVPNServerTripleIsUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.host(t, "10.0.0.1", "")
	f.host(t, "10.0.0.2", "")
	a := f.config(t, 1194, models.ProtoUDP)
	b := f.config(t, 1194, models.ProtoUDP)
	tcp := f.config(t, 1194, models.ProtoTCP)

	f.vpn(t, "10.0.0.1", a.ID)
	err := f.servers.CreateVPNServer(ctx, &models.VPNServer{HostIPv4: "10.0.0.1", ConfigID: b.ID})
	assert.ErrorIs(t, err, ErrReferentialIntegrity)

	// другой хост или другой протокол — можно
	f.vpn(t, "10.0.0.2", b.ID)
	f.vpn(t, "10.0.0.1", tcp.ID)

	err = f.servers.CreateVPNServer(ctx, &models.VPNServer{HostIPv4: "10.9.9.9", ConfigID: a.ID})
	assert.ErrorIs(t, err, ErrNotFound)
	err = f.servers.CreateVPNServer(ctx, &models.VPNServer{HostIPv4: "10.0.0.2", ConfigID: 999})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateConfigRechecksUniqueness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.host(t, "10.0.0.1", "")
	a := f.config(t, 1194, models.ProtoUDP)
	b := f.config(t, 1195, models.ProtoUDP)
	f.vpn(t, "10.0.0.1", a.ID)
	f.vpn(t, "10.0.0.1", b.ID)

	b.Port = 1194
	err := f.servers.UpdateConfig(ctx, b)
	require.ErrorIs(t, err, ErrReferentialIntegrity)
	stored, err := f.servers.GetConfig(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1195, stored.Port)

	b.Protocol = models.ProtoTCP
	require.NoError(t, f.servers.UpdateConfig(ctx, b))
	stored, err = f.servers.GetConfig(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1194, stored.Port)
	assert.Equal(t, models.ProtoTCP, stored.Protocol)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestUpdateConfigKeepsOptionOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.config(t, 1194, models.ProtoUDP)
	c.PushOptions = []models.NamedOption{{Name: "route", Value: "10.8.0.0 255.255.255.0"}, {Name: "dhcp-option", Value: "DNS 1.1.1.1"}}
	c.ExtraOptions = []models.NamedOption{{Name: "verb", Value: "3"}}
	require.NoError(t, f.servers.UpdateConfig(ctx, c))

	got, err := f.servers.GetConfig(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.PushOptions, 2)
	assert.Equal(t, "route", got.PushOptions[0].Name)
	assert.Equal(t, "dhcp-option", got.PushOptions[1].Name)
	assert.Equal(t, []models.NamedOption{{Name: "verb", Value: "3"}}, []models.NamedOption(got.ExtraOptions))
}

func TestSetUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.config(t, 1194, models.ProtoUDP)

	require.NoError(t, f.servers.SetUp(ctx, c.ID, true))
	got, err := f.servers.GetConfig(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.Up)

	require.NoError(t, f.servers.SetUp(ctx, c.ID, false))
	got, err = f.servers.GetConfig(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, got.Up)

	assert.ErrorIs(t, f.servers.SetUp(ctx, 999, true), ErrNotFound)
}

func TestDeleteConfigIsProtected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.host(t, "10.0.0.1", "")
	byServer := f.config(t, 1194, models.ProtoUDP)
	byCert := f.config(t, 1195, models.ProtoUDP)
	free := f.config(t, 1196, models.ProtoUDP)
	v := f.vpn(t, "10.0.0.1", byServer.ID)
	require.NoError(t, f.certs.Create(ctx, &models.Certificate{Name: "srv", Owner: "alice", ServerConfigID: uintp(byCert.ID)}))

	assert.ErrorIs(t, f.servers.DeleteConfig(ctx, byServer.ID), ErrReferentialIntegrity)
	assert.ErrorIs(t, f.servers.DeleteConfig(ctx, byCert.ID), ErrReferentialIntegrity)
	require.NoError(t, f.servers.DeleteConfig(ctx, free.ID))
	assert.ErrorIs(t, f.servers.DeleteConfig(ctx, free.ID), ErrNotFound)

	require.NoError(t, f.servers.DeleteVPNServer(ctx, v.ID))
	require.NoError(t, f.servers.DeleteConfig(ctx, byServer.ID))
}

func TestClientCreateLoadsRemotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.host(t, "10.0.0.1", "vpn1.example.com")
	cfg := f.config(t, 1194, models.ProtoUDP)
	v := f.vpn(t, "10.0.0.1", cfg.ID)

	c := f.client(t, models.VPNServer{ID: v.ID})
	got, err := f.clients.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Remotes, 1)
	assert.Equal(t, "vpn1.example.com", got.Remotes[0].Host.Hostname)
	assert.Equal(t, 1194, got.Remotes[0].Config.Port)
	require.NotNil(t, got.Inactive)
	assert.Equal(t, models.DefaultInactive, *got.Inactive)

	err = f.clients.Create(ctx, models.NewClientConfig(models.VPNServer{ID: 999}))
	assert.ErrorIs(t, err, ErrReferentialIntegrity)

	err = f.clients.Create(ctx, models.NewClientConfig())
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("remotes", validation.RuleRequired))
}

func TestClientUpdateReplacesRemotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.host(t, "10.0.0.1", "")
	f.host(t, "10.0.0.2", "")
	cfg := f.config(t, 1194, models.ProtoUDP)
	v1 := f.vpn(t, "10.0.0.1", cfg.ID)
	v2 := f.vpn(t, "10.0.0.2", cfg.ID)
	c := f.client(t, *v1)

	c.Remotes = []models.VPNServer{*v2}
	c.Inactive = nil
	require.NoError(t, f.clients.Update(ctx, c))

	got, err := f.clients.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Remotes, 1)
	assert.Equal(t, v2.ID, got.Remotes[0].ID)
	assert.Nil(t, got.Inactive)

	bad := *got
	bad.ServerPollTimeout = 0
	var verrs validation.Errors
	require.ErrorAs(t, f.clients.Update(ctx, &bad), &verrs)
	assert.True(t, verrs.Has("server_poll_timeout", validation.RuleMin))
}

func TestClientDeleteIsProtected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.host(t, "10.0.0.1", "")
	cfg := f.config(t, 1194, models.ProtoUDP)
	v := f.vpn(t, "10.0.0.1", cfg.ID)
	c := f.client(t, *v)
	require.NoError(t, f.certs.Create(ctx, &models.Certificate{Name: "laptop", Owner: "bob", ClientConfigID: uintp(c.ID)}))

	assert.ErrorIs(t, f.clients.Delete(ctx, c.ID), ErrReferentialIntegrity)
	require.NoError(t, f.certs.Delete(ctx, "laptop"))
	require.NoError(t, f.clients.Delete(ctx, c.ID))
	_, err := f.clients.Get(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCertificateLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := f.config(t, 1194, models.ProtoUDP)

	err := f.certs.Create(ctx, &models.Certificate{Name: "My Cert!", Owner: "alice", ServerConfigID: uintp(cfg.ID)})
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("name", validation.RuleSlug))

	err = f.certs.Create(ctx, &models.Certificate{Name: "ghost", Owner: "alice", ClientConfigID: uintp(42)})
	assert.ErrorIs(t, err, ErrReferentialIntegrity)

	c := &models.Certificate{Name: "srv-1", Owner: "alice", ServerConfigID: uintp(cfg.ID)}
	require.NoError(t, f.certs.Create(ctx, c))
	assert.ErrorIs(t, f.certs.Create(ctx, c), ErrReferentialIntegrity)

	require.NoError(t, f.certs.SetActive(ctx, "srv-1", true))
	got, err := f.certs.Get(ctx, "srv-1")
	require.NoError(t, err)
	assert.True(t, got.Active)

	got.Owner = "carol"
	require.NoError(t, f.certs.Update(ctx, got))
	got, err = f.certs.Get(ctx, "srv-1")
	require.NoError(t, err)
	assert.Equal(t, "carol", got.Owner)
	assert.True(t, got.Active)
}

func TestDeleteByOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := f.config(t, 1194, models.ProtoUDP)
	for _, name := range []string{"a", "b"} {
		require.NoError(t, f.certs.Create(ctx, &models.Certificate{Name: name, Owner: "alice", ServerConfigID: uintp(cfg.ID)}))
	}
	require.NoError(t, f.certs.Create(ctx, &models.Certificate{Name: "c", Owner: "bob", ServerConfigID: uintp(cfg.ID)}))

	n, err := f.certs.DeleteByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	left, err := f.certs.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, left)
	left, err = f.certs.ListByOwner(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestGetOrCreateCA(t *testing.T) {
	s := NewPKIStore(newTestDB(t))
	ctx := context.Background()
	calls := 0
	create := func() (*models.CA, error) {
		calls++
		return &models.CA{Name: "root", CertPEM: []byte("c"), KeyPEM: []byte("k")}, nil
	}

	first, err := s.GetOrCreateCA(ctx, "root", create)
	require.NoError(t, err)
	second, err := s.GetOrCreateCA(ctx, "root", create)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, first.ID, second.ID)

	boom := errors.New("boom")
	_, err = s.GetOrCreateCA(ctx, "other", func() (*models.CA, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

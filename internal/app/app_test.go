package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veil/internal/domain"
	"veil/internal/protocol/loopback"
	"veil/internal/store"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "veil.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
account = "xmpp:me@example"
session_timeout = "45s"
rollback_on_delegate_failure = true
log_format = "json"
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "xmpp:me@example", cfg.Account)
	assert.Equal(t, 45*time.Second, cfg.SessionTimeout)
	assert.True(t, cfg.RollbackOnDelegateFailure)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, DefaultConfig().InjectedCacheSize, cfg.InjectedCacheSize)

	missing, err := LoadConfig(filepath.Join(dir, "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), missing)

	require.NoError(t, os.WriteFile(path, []byte("account = "), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigureLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.GetLevel())

	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	require.NoError(t, ConfigureLogging(cfg))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	cfg.LogLevel = "loud"
	assert.Error(t, ConfigureLogging(cfg))

	cfg.LogLevel = "info"
	cfg.LogFormat = "xml"
	assert.Error(t, ConfigureLogging(cfg))
}

func TestSessionConfigTimeoutProperty(t *testing.T) {
	props := store.NewMemoryPropertyStore()
	cfg := DefaultConfig()
	assert.Equal(t, 30*time.Second, sessionConfig(cfg, props).Timeout)

	require.NoError(t, props.SetProperty(TimeoutProperty, 1500))
	assert.Equal(t, 1500*time.Millisecond, sessionConfig(cfg, props).Timeout)
}

func TestNewWireWithoutTransformHasNoEngine(t *testing.T) {
	w, err := NewWire(DefaultConfig())
	require.NoError(t, err)
	defer w.Close()
	assert.Nil(t, w.Engine)
	assert.NotNil(t, w.Trust)
}

func TestAppPersistsAcrossRestarts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Home = t.TempDir()
	cfg.Account = "xmpp:me@example"
	cfg.Passphrase = "hunter2"

	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Trust.GenerateKeyPair(a.Account))
	fp, ok := a.Trust.LocalFingerprint(a.Account)
	require.True(t, ok)
	strict := domain.Policy{RequireEncryption: true}
	require.NoError(t, a.Policies.SetContactPolicy(a.Peer("alice@example"), &strict))
	a.Close()

	b, err := New(cfg)
	require.NoError(t, err)
	defer b.Close()
	again, ok := b.Trust.LocalFingerprint(b.Account)
	require.True(t, ok)
	assert.Equal(t, fp, again)
	assert.Equal(t, strict, b.Policies.EffectivePolicy(b.Peer("alice@example")))

	cfg.Passphrase = "wrong"
	_, err = New(cfg)
	assert.ErrorIs(t, err, store.ErrWrongPassphrase)
}

func TestAppRequiresAccount(t *testing.T) {
	_, err := New(DefaultConfig())
	assert.ErrorIs(t, err, ErrNoAccount)
}

func TestAppDisconnectRetiresIdentities(t *testing.T) {
	net := loopback.NewNetwork()
	defer net.Close()
	cfg := DefaultConfig()
	cfg.Account = "xmpp:me@example"

	a, err := New(cfg, WithTransform(loopback.Factory(net, "me@example")))
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Engine)

	id := a.Identity(a.Peer("alice@example"), "")
	require.NotNil(t, id)
	a.Disconnect()
	assert.True(t, id.Retired())
}

func TestAppStartSessionHonoursManualPolicy(t *testing.T) {
	net := loopback.NewNetwork()
	defer net.Close()
	cfg := DefaultConfig()
	cfg.Account = "xmpp:me@example"

	bare, err := New(cfg)
	require.NoError(t, err)
	defer bare.Close()
	assert.ErrorIs(t, bare.StartSession(nil), ErrNoEngine)

	a, err := New(cfg, WithTransform(loopback.Factory(net, "me@example")))
	require.NoError(t, err)
	defer a.Close()

	alice := a.Peer("alice@example")
	id := a.Identity(alice, "")
	off := domain.DefaultPolicy().WithManual(false)
	require.NoError(t, a.Policies.SetContactPolicy(alice, &off))
	assert.ErrorIs(t, a.StartSession(id), ErrManualStartDisabled)
	assert.Equal(t, domain.StatusPlaintext, a.Engine.Status(id))

	require.NoError(t, a.Policies.SetContactPolicy(alice, nil))
	require.NoError(t, a.StartSession(id))
	assert.NotEqual(t, domain.StatusPlaintext, a.Engine.Status(id))
}

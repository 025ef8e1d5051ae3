package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRoot()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute(), out.String())
	return out.String()
}

func TestKeygenAndFingerprint(t *testing.T) {
	home := t.TempDir()
	out := run(t, "--home", home, "-a", "xmpp:me@example", "keygen")
	assert.Contains(t, out, "Fingerprint: ")

	again := run(t, "--home", home, "-a", "xmpp:me@example", "fingerprint")
	assert.Contains(t, out, again[len("Fingerprint: "):len(again)-1])
}

func TestVerifyAndList(t *testing.T) {
	home := t.TempDir()
	run(t, "--home", home, "-a", "xmpp:me@example", "verify", "alice@example", "ABCD1234")
	out := run(t, "--home", home, "-a", "xmpp:me@example", "fingerprints", "alice@example")
	assert.Contains(t, out, "No fingerprints")

	out = run(t, "--home", home, "-a", "xmpp:me@example", "unverify", "alice@example", "ABCD1234")
	assert.Contains(t, out, "verified=false")
}

func TestPolicyCommands(t *testing.T) {
	home := t.TempDir()
	base := []string{"--home", home, "-a", "xmpp:me@example", "policy"}

	out := run(t, append(base, "get")...)
	assert.Contains(t, out, "global: manual=true auto-start=true require=false advertise=false")

	out = run(t, append(base, "set", "alice@example", "--require")...)
	assert.Contains(t, out, "require=true")
	out = run(t, append(base, "get", "alice@example")...)
	assert.Contains(t, out, "(override)")

	run(t, append(base, "clear", "alice@example")...)
	out = run(t, append(base, "get", "alice@example")...)
	assert.Contains(t, out, "(global)")
	assert.Contains(t, out, "require=false")
}

func TestDemo(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runDemo(context.Background(), &out, "s3cret"))
	text := out.String()
	assert.Contains(t, text, "after handshake: alice=ENCRYPTED bob=ENCRYPTED")
	assert.Contains(t, text, `bob received: "hello bob"`)
	assert.Contains(t, text, "authentication: alice=succeeded bob=succeeded")
	assert.Contains(t, text, "after end: alice=PLAINTEXT bob=FINISHED")
}

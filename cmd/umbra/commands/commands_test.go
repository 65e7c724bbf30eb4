package commands_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"umbra/cmd/umbra/commands"
)

const (
	pass      = "Correct-Horse-9"
	aliceAddr = "0b7f2d36-8f4e-4a4e-9a52-6f1d1e0b9a01.1"
	bobAddr   = "5c1e9a77-2b0d-4c8f-8d3e-9e4b6a2f7c02.1"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := commands.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, strings.Join(args, " "))
	return out
}

// field returns the rest of the first output line starting with prefix.
func field(t *testing.T, out, prefix string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(line, prefix); ok {
			return v
		}
	}
	t.Fatalf("no %q line in %q", prefix, out)
	return ""
}

func TestEndToEnd(t *testing.T) {
	t.Setenv("UMBRA_STORE", "file")
	t.Setenv("UMBRA_LOG_LEVEL", "error")
	dir := t.TempDir()
	ca := filepath.Join(dir, "ca")
	path := func(name string) string { return filepath.Join(dir, name) }
	as := func(home string) func(args ...string) string {
		return func(args ...string) string {
			return mustRun(t, append([]string{"--home", path(home), "-p", pass}, args...)...)
		}
	}
	alice, bob := as("alice"), as("bob")

	root := field(t, mustRun(t, "authority", "init", "--dir", ca), "Trust root: ")

	alice("init", "--address", aliceAddr)
	bob("init", "--address", bobAddr)
	for _, d := range []struct {
		user func(...string) string
		addr string
		cert string
	}{
		{user: alice, addr: aliceAddr, cert: path("alice.cert")},
		{user: bob, addr: bobAddr, cert: path("bob.cert")},
	} {
		key := field(t, d.user("keyid"), "Identity key: ")
		mustRun(t, "authority", "issue", "--dir", ca, "--address", d.addr, "--identity-key", key, "-o", d.cert)
		d.user("trust", "set", root)
	}

	bob("prekeys", "-n", "2", "-o", path("bob.bundle.json"))
	alice("start-session", path("bob.bundle.json"))

	alice("seal", "--to", bobAddr, "--cert", path("alice.cert"), "-o", path("m1"), "hello", "bob")
	require.Equal(t, "["+aliceAddr+"] hello bob\n", bob("unseal", path("m1")))

	bob("seal", "--to", aliceAddr, "--cert", path("bob.cert"), "-o", path("m2"), "hi alice")
	require.Equal(t, "["+bobAddr+"] hi alice\n", alice("unseal", path("m2")))

	alice("--metrics-out", path("metrics.txt"), "seal", "--to", bobAddr, "--cert", path("alice.cert"), "-o", path("m3"), "again")
	metrics, err := os.ReadFile(path("metrics.txt"))
	require.NoError(t, err)
	require.Contains(t, string(metrics), `umbra_sealed_sender_operations_total{op="seal",result="ok"} 1`)

	// Replaying an envelope is rejected.
	_, err = run(t, "--home", path("bob"), "-p", pass, "unseal", path("m1"))
	require.Error(t, err)

	bob("trust", "revoke", "1")
	require.Contains(t, bob("trust", "show"), "Revoked server keys: [1]")
	_, err = run(t, "--home", path("bob"), "-p", pass, "unseal", path("m3"))
	require.ErrorContains(t, err, "untrusted sender")

	alice("end-session", bobAddr)
	_, err = run(t, "--home", path("alice"), "-p", pass, "seal", "--to", bobAddr, "--cert", path("alice.cert"), "x")
	require.ErrorContains(t, err, "no session")
}

func TestInit_WeakPassphrase(t *testing.T) {
	t.Setenv("UMBRA_STORE", "file")
	t.Setenv("UMBRA_LOG_LEVEL", "error")
	_, err := run(t, "--home", t.TempDir(), "-p", "weak", "init")
	require.ErrorContains(t, err, "passphrase is too weak")
}

func TestInit_Twice(t *testing.T) {
	t.Setenv("UMBRA_STORE", "file")
	t.Setenv("UMBRA_LOG_LEVEL", "error")
	home := t.TempDir()
	mustRun(t, "--home", home, "-p", pass, "init")
	_, err := run(t, "--home", home, "-p", pass, "init")
	require.ErrorContains(t, err, "identity already exists")
}

package commands

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoot() *cobra.Command {
	root := &cobra.Command{Use: "whsm", SilenceUsage: true, SilenceErrors: true}
	InitRootFlags(root)
	InitServeCommand(root)
	InitCryptoCommands(root)
	InitKeyCommands(root)
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRngPrintsHex(t *testing.T) {
	out, err := execute(t, "rng", "--size", "40")
	require.NoError(t, err)

	b, err := hex.DecodeString(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Len(t, b, 40)
}

func TestRngRejectsZero(t *testing.T) {
	_, err := execute(t, "rng", "--size", "0")
	assert.Error(t, err)
}

func TestAesCbcMatchesStdlib(t *testing.T) {
	dir := t.TempDir()
	key := bytes.Repeat([]byte{0x2b}, 16)
	iv := bytes.Repeat([]byte{0x01}, 16)
	plain := bytes.Repeat([]byte("0123456789abcdef"), 4)

	in := filepath.Join(dir, "plain.bin")
	enc := filepath.Join(dir, "enc.bin")
	dec := filepath.Join(dir, "dec.bin")
	require.NoError(t, os.WriteFile(in, plain, 0600))

	_, err := execute(t, "aes-cbc",
		"--input-file", in, "--output-file", enc,
		"--key-hex", hex.EncodeToString(key), "--iv-hex", hex.EncodeToString(iv))
	require.NoError(t, err)

	got, err := os.ReadFile(enc)
	require.NoError(t, err)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	want := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(want, plain)
	assert.Equal(t, want, got)

	_, err = execute(t, "aes-cbc", "--decrypt",
		"--input-file", enc, "--output-file", dec,
		"--key-hex", hex.EncodeToString(key), "--iv-hex", hex.EncodeToString(iv))
	require.NoError(t, err)
	got, err = os.ReadFile(dec)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestAesCbcNeedsKey(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	require.NoError(t, os.WriteFile(in, make([]byte, 16), 0600))

	_, err := execute(t, "aes-cbc", "--input-file", in, "--output-file", filepath.Join(dir, "out.bin"))
	assert.ErrorContains(t, err, "--key-hex")
}

func TestKeyCachePrintsID(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "key.bin")
	require.NoError(t, os.WriteFile(keyPath, bytes.Repeat([]byte{0x11}, 16), 0600))

	out, err := execute(t, "key", "cache", "--key-file", keyPath, "--label", "demo")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "0x"))
}

func TestKeyExportUnknown(t *testing.T) {
	_, err := execute(t, "key", "export", "0x0005")
	assert.Error(t, err)
}

func TestKeyEvictBadID(t *testing.T) {
	_, err := execute(t, "key", "evict", "not-an-id")
	assert.Error(t, err)
}

func TestServeRejectsMem(t *testing.T) {
	_, err := execute(t, "serve")
	assert.ErrorContains(t, err, "quic or grpc")
}

func TestLoadSettingsOverrides(t *testing.T) {
	root := newRoot()
	require.NoError(t, root.ParseFlags([]string{"--mtu", "512", "--log-level", "debug"}))

	s, err := loadSettings(root)
	require.NoError(t, err)
	assert.Equal(t, 512, s.MTU)
	assert.Equal(t, "debug", s.Log.LogLevel)
	assert.Equal(t, "mem", s.Transport)
}

func TestLoadSettingsInvalid(t *testing.T) {
	root := newRoot()
	require.NoError(t, root.ParseFlags([]string{"--transport", "quic"}))

	_, err := loadSettings(root)
	assert.Error(t, err)
}

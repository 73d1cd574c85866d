package creds

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/proto/waAdv"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/util/keys"
	"google.golang.org/protobuf/proto"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func pairedDevice(t *testing.T) *store.Device {
	t.Helper()
	identity := keys.NewKeyPair()
	jid := types.NewADJID("15550000001", 0, 7)
	lid := types.NewJID("123456789", types.HiddenUserServer)
	return &store.Device{
		NoiseKey:       keys.NewKeyPair(),
		IdentityKey:    identity,
		SignedPreKey:   identity.CreateSignedPreKey(1),
		RegistrationID: 4242,
		AdvSecretKey:   randomBytes(t, 32),
		ID:             &jid,
		LID:            lid,
		PushName:       "Bot",
		Platform:       "android",
		Account: &waAdv.ADVSignedDeviceIdentity{
			Details:             []byte{1, 2, 3},
			AccountSignatureKey: randomBytes(t, 32),
			AccountSignature:    randomBytes(t, 64),
			DeviceSignature:     randomBytes(t, 64),
		},
	}
}

func TestTokenRoundTrip(t *testing.T) {
	blobs := [][]byte{
		[]byte(`{"noiseKey":{}}`),
		randomBytes(t, 1),
		randomBytes(t, 4096),
		{0x00, 0xff, '\n', '"'},
	}
	for _, raw := range blobs {
		token := Encode(raw)
		require.True(t, len(token) > len(TokenPrefix))
		require.Equal(t, TokenPrefix, token[:len(TokenPrefix)])

		decoded, err := Decode(token)
		require.NoError(t, err)
		require.True(t, bytes.Equal(raw, decoded))
	}
}

func TestDecodeRejectsBadTokens(t *testing.T) {
	for _, token := range []string{
		"",
		"eyJhIjoxfQ==",
		"other_prefix_eyJhIjoxfQ==",
		TokenPrefix,
		TokenPrefix + "***",
	} {
		_, err := Decode(token)
		require.ErrorIs(t, err, ErrInvalidToken, "token %q", token)
	}

	raw, err := Decode("  " + Encode([]byte("x")) + "\n")
	require.NoError(t, err)
	require.Equal(t, []byte("x"), raw)
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "auth_info_session")
	fs := NewFileStore(dir)

	require.False(t, fs.Exists())
	_, err := fs.Load()
	require.ErrorIs(t, err, ErrNoCredentials)

	require.NoError(t, fs.Save([]byte("first")))
	require.NoError(t, fs.Save([]byte("second")))
	require.True(t, fs.Exists())

	raw, err := fs.Load()
	require.NoError(t, err)
	require.Equal(t, []byte("second"), raw)

	info, err := os.Stat(fs.Path())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, fs.Clear())
	require.False(t, fs.Exists())
}

func TestDeviceRoundTrip(t *testing.T) {
	device := pairedDevice(t)

	c, err := FromDevice(device)
	require.NoError(t, err)
	require.Equal(t, "15550000001:7@s.whatsapp.net", c.Me.ID)
	require.Equal(t, "123456789@lid", c.Me.LID)

	raw, err := c.Marshal()
	require.NoError(t, err)
	parsed, err := Parse(raw)
	require.NoError(t, err)

	restored := &store.Device{}
	require.NoError(t, parsed.Apply(restored))

	require.Equal(t, *device.ID, *restored.ID)
	require.Equal(t, device.LID, restored.LID)
	require.Equal(t, *device.NoiseKey.Priv, *restored.NoiseKey.Priv)
	require.Equal(t, *device.NoiseKey.Pub, *restored.NoiseKey.Pub)
	require.Equal(t, *device.IdentityKey.Priv, *restored.IdentityKey.Priv)
	require.Equal(t, *device.SignedPreKey.Signature, *restored.SignedPreKey.Signature)
	require.Equal(t, device.SignedPreKey.KeyID, restored.SignedPreKey.KeyID)
	require.Equal(t, device.RegistrationID, restored.RegistrationID)
	require.Equal(t, device.AdvSecretKey, restored.AdvSecretKey)
	require.Equal(t, device.PushName, restored.PushName)
	require.True(t, proto.Equal(device.Account, restored.Account))

	again, err := FromDevice(restored)
	require.NoError(t, err)
	require.Equal(t, c, again)
}

func TestParseRejectsIncompleteCredentials(t *testing.T) {
	c, err := FromDevice(pairedDevice(t))
	require.NoError(t, err)

	unpaired := *c
	unpaired.Me = nil
	raw, _ := unpaired.Marshal()
	_, err = Parse(raw)
	require.Error(t, err)

	short := *c
	short.AdvSecretKey = []byte{1}
	raw, _ = short.Marshal()
	_, err = Parse(raw)
	require.Error(t, err)

	_, err = Parse([]byte("not json"))
	require.Error(t, err)
}

func TestFromDeviceRequiresPairing(t *testing.T) {
	_, err := FromDevice(&store.Device{})
	require.Error(t, err)
}

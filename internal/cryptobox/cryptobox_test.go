package cryptobox

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	box := New()
	tests := []struct {
		name      string
		plaintext string
	}{
		{"empty", ""},
		{"unicode", "héllo wörld 你好 🔐  "},
		{"100k chars", strings.Repeat("abcdefghij", 10_000)},
		{"json", `{"version":1,"encryption":{"enabled":true}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := box.Encrypt([]byte(tt.plaintext), "secret")
			require.NoError(t, err)
			assert.True(t, IsEnvelope(env))

			got, err := box.Decrypt(env, "secret")
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, string(got))
		})
	}
}

func TestEnvelopeShape(t *testing.T) {
	env, err := New().Encrypt([]byte("payload"), "secret")
	require.NoError(t, err)

	fields := strings.Split(string(env), ":")
	require.Len(t, fields, 5)
	assert.Equal(t, Header, fields[0])

	sizes := map[int]int{1: IVSize, 2: SaltSize, 4: TagSize}
	for idx, want := range sizes {
		raw, err := base64.StdEncoding.DecodeString(fields[idx])
		require.NoError(t, err)
		assert.Len(t, raw, want, "field %d", idx)
	}
	ct, err := base64.StdEncoding.DecodeString(fields[3])
	require.NoError(t, err)
	assert.Len(t, ct, len("payload"))
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	box := New()
	a, err := box.Encrypt([]byte("same"), "secret")
	require.NoError(t, err)
	b, err := box.Encrypt([]byte("same"), "secret")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEncrypt_DeterministicWithFixedRandom(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, SaltSize+IVSize)
	a, err := New(WithRandom(bytes.NewReader(seed)), WithIterations(10)).Encrypt([]byte("x"), "k")
	require.NoError(t, err)
	b, err := New(WithRandom(bytes.NewReader(seed)), WithIterations(10)).Encrypt([]byte("x"), "k")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncrypt_EmptyPassphrase(t *testing.T) {
	_, err := New().Encrypt([]byte("x"), "")
	assert.ErrorIs(t, err, ErrEmptyPassphrase)
}

// flipField decodes field idx of env, flips one bit of byte pos, and
// re-encodes so the envelope stays well-formed.
func flipField(t *testing.T, env []byte, idx, pos int) []byte {
	t.Helper()
	fields := strings.Split(string(env), ":")
	raw, err := base64.StdEncoding.DecodeString(fields[idx])
	require.NoError(t, err)
	require.Greater(t, len(raw), pos)
	raw[pos] ^= 0x01
	fields[idx] = base64.StdEncoding.EncodeToString(raw)
	return []byte(strings.Join(fields, ":"))
}

func TestDecrypt_TamperDetection(t *testing.T) {
	box := New()
	env, err := box.Encrypt([]byte("sensitive config"), "secret")
	require.NoError(t, err)

	t.Run("ciphertext", func(t *testing.T) {
		_, err := box.Decrypt(flipField(t, env, 3, 0), "secret")
		assert.ErrorIs(t, err, ErrDecrypt)
		assert.False(t, errors.Is(err, ErrFormat))
	})
	t.Run("auth tag", func(t *testing.T) {
		_, err := box.Decrypt(flipField(t, env, 4, TagSize-1), "secret")
		assert.ErrorIs(t, err, ErrDecrypt)
		assert.False(t, errors.Is(err, ErrFormat))
	})
	t.Run("iv", func(t *testing.T) {
		_, err := box.Decrypt(flipField(t, env, 1, 0), "secret")
		assert.ErrorIs(t, err, ErrDecrypt)
	})
	t.Run("salt", func(t *testing.T) {
		_, err := box.Decrypt(flipField(t, env, 2, 0), "secret")
		assert.ErrorIs(t, err, ErrDecrypt)
	})
}

func TestDecrypt_WrongKeyMatchesTamperKind(t *testing.T) {
	box := New()
	env, err := box.Encrypt([]byte("sensitive config"), "secret")
	require.NoError(t, err)

	_, wrongKeyErr := box.Decrypt(env, "wrong")
	_, tamperErr := box.Decrypt(flipField(t, env, 3, 0), "secret")
	_, emptyKeyErr := box.Decrypt(env, "")

	require.Error(t, wrongKeyErr)
	assert.Equal(t, tamperErr, wrongKeyErr)
	assert.Equal(t, ErrDecrypt, emptyKeyErr)
}

func TestDecrypt_FormatErrors(t *testing.T) {
	box := New()
	valid, err := box.Encrypt([]byte("x"), "secret")
	require.NoError(t, err)
	fields := strings.Split(string(valid), ":")

	tests := []struct {
		name     string
		envelope string
	}{
		{"plain json", `{"version":1}`},
		{"wrong header", "ENCRYPTED_v2:" + strings.Join(fields[1:], ":")},
		{"four fields", strings.Join(fields[:4], ":")},
		{"six fields", string(valid) + ":extra"},
		{"bad base64", strings.Join([]string{Header, "!!!", fields[2], fields[3], fields[4]}, ":")},
		{"short iv", strings.Join([]string{Header, base64.StdEncoding.EncodeToString([]byte("short")), fields[2], fields[3], fields[4]}, ":")},
		{"short tag", strings.Join([]string{Header, fields[1], fields[2], fields[3], base64.StdEncoding.EncodeToString([]byte("t"))}, ":")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := box.Decrypt([]byte(tt.envelope), "secret")
			assert.ErrorIs(t, err, ErrFormat)
			assert.False(t, errors.Is(err, ErrDecrypt))
		})
	}
}

func TestDecrypt_ToleratesTrailingNewline(t *testing.T) {
	box := New()
	env, err := box.Encrypt([]byte("x"), "secret")
	require.NoError(t, err)

	got, err := box.Decrypt(append(env, '\n'), "secret")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func TestIsEnvelope(t *testing.T) {
	assert.True(t, IsEnvelope([]byte("ENCRYPTED_v1:a:b:c:d")))
	assert.False(t, IsEnvelope([]byte("ENCRYPTED_v1")))
	assert.False(t, IsEnvelope([]byte(`{"encryption":{"enabled":true}}`)))
	assert.False(t, IsEnvelope(nil))

	assert.True(t, IsEnvelope([]byte("\nENCRYPTED_v1:a:b:c:d")))
	assert.True(t, IsEnvelope([]byte("\xEF\xBB\xBFENCRYPTED_v1:a:b:c:d\n")))
	assert.True(t, IsEnvelope([]byte("  \r\n\xEF\xBB\xBF ENCRYPTED_v1:a:b:c:d")))
}

func TestDecrypt_IgnoresBOMAndWhitespace(t *testing.T) {
	box := New(WithIterations(1000))
	env, err := box.Encrypt([]byte("payload"), "secret")
	require.NoError(t, err)

	for _, wrapped := range [][]byte{
		append([]byte("\n"), env...),
		append([]byte("\xEF\xBB\xBF"), env...),
		append(append([]byte("\xEF\xBB\xBF\r\n"), env...), '\n'),
	} {
		require.True(t, IsEnvelope(wrapped))
		got, err := box.Decrypt(wrapped, "secret")
		require.NoError(t, err)
		assert.Equal(t, "payload", string(got))
	}
}

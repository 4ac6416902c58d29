package cryptobox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Envelope format constants.
const (
	Header            = "ENCRYPTED_v1"
	SaltSize          = 16
	IVSize            = 12
	TagSize           = 16
	KeySize           = 32
	DefaultIterations = 100_000

	fieldCount = 5
)

var (
	// ErrFormat means the input is not a well-formed envelope.
	ErrFormat = errors.New("cryptobox: malformed envelope")

	// ErrDecrypt means authentication failed: wrong passphrase or
	// tampered data.
	ErrDecrypt = errors.New("cryptobox: decryption failed")

	// ErrEmptyPassphrase is returned by Encrypt for an empty passphrase.
	ErrEmptyPassphrase = errors.New("cryptobox: empty passphrase")
)

var (
	headerPrefix = []byte(Header + ":")
	utf8BOM      = []byte{0xEF, 0xBB, 0xBF}
)

// Box encrypts and decrypts envelopes. The zero value is not usable; use New.
type Box struct {
	iterations int
	random     io.Reader
}

// Option configures a Box.
type Option func(*Box)

// WithIterations overrides the PBKDF2 iteration count. Envelopes written
// with a non-default count can only be opened by a Box using the same count.
func WithIterations(n int) Option {
	return func(b *Box) {
		if n > 0 {
			b.iterations = n
		}
	}
}

// WithRandom overrides the source of salts and IVs.
func WithRandom(r io.Reader) Option {
	return func(b *Box) {
		if r != nil {
			b.random = r
		}
	}
}

// New returns a Box with the default iteration count and crypto/rand.
func New(opts ...Option) *Box {
	b := &Box{iterations: DefaultIterations, random: rand.Reader}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// IsEnvelope reports whether data starts with the envelope header, ignoring
// a UTF-8 byte order mark and surrounding whitespace. It only sniffs the
// prefix; Decrypt does the full format check.
func IsEnvelope(data []byte) bool {
	return bytes.HasPrefix(trim(data), headerPrefix)
}

// trim drops a leading UTF-8 byte order mark and surrounding whitespace.
func trim(data []byte) []byte {
	return bytes.TrimSpace(bytes.TrimPrefix(bytes.TrimSpace(data), utf8BOM))
}

// Encrypt seals plaintext under passphrase and returns the envelope bytes.
func (b *Box) Encrypt(plaintext []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(b.random, salt); err != nil {
		return nil, fmt.Errorf("cryptobox: generate salt: %w", err)
	}
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(b.random, iv); err != nil {
		return nil, fmt.Errorf("cryptobox: generate iv: %w", err)
	}

	gcm, err := b.aead(passphrase, salt)
	if err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ciphertext, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	enc := base64.StdEncoding
	var buf bytes.Buffer
	buf.WriteString(Header)
	for _, field := range [][]byte{iv, salt, ciphertext, tag} {
		buf.WriteByte(':')
		buf.WriteString(enc.EncodeToString(field))
	}
	return buf.Bytes(), nil
}

// Decrypt opens an envelope produced by Encrypt.
// It returns ErrFormat for malformed input and ErrDecrypt when
// authentication fails.
func (b *Box) Decrypt(envelope []byte, passphrase string) ([]byte, error) {
	fields := bytes.Split(trim(envelope), []byte{':'})
	if len(fields) != fieldCount {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", ErrFormat, fieldCount, len(fields))
	}
	if string(fields[0]) != Header {
		return nil, fmt.Errorf("%w: unknown header %q", ErrFormat, truncate(fields[0], 32))
	}

	decoded := make([][]byte, fieldCount-1)
	for i, field := range fields[1:] {
		raw, err := base64.StdEncoding.DecodeString(string(field))
		if err != nil {
			return nil, fmt.Errorf("%w: field %d: %v", ErrFormat, i+1, err)
		}
		decoded[i] = raw
	}
	iv, salt, ciphertext, tag := decoded[0], decoded[1], decoded[2], decoded[3]

	switch {
	case len(iv) != IVSize:
		return nil, fmt.Errorf("%w: iv is %d bytes, want %d", ErrFormat, len(iv), IVSize)
	case len(salt) != SaltSize:
		return nil, fmt.Errorf("%w: salt is %d bytes, want %d", ErrFormat, len(salt), SaltSize)
	case len(tag) != TagSize:
		return nil, fmt.Errorf("%w: tag is %d bytes, want %d", ErrFormat, len(tag), TagSize)
	}

	if passphrase == "" {
		return nil, ErrDecrypt
	}

	gcm, err := b.aead(passphrase, salt)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

func (b *Box) aead(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, b.iterations, KeySize, sha512.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptobox: init cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("cryptobox: init gcm: %w", err)
	}
	return gcm, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

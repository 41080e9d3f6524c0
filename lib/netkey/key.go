// Package netkey models the cryptographic identity of a roam network.
//
// A network is identified by an asymmetric keypair. The public half is the
// access key: anyone holding it may join. The private half is the secret key:
// whoever holds it controls the network's configuration. Members that only
// joined carry the access key alone.
//
// Keys travel as a single text token, see Encode and Decode.
package netkey

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	apperrors "github.com/roamvpn/roam/lib/errors"
)

const (
	// AccessKeySize is the length of a generated access key in bytes.
	// Ed25519 public keys and Curve25519 public keys share it.
	AccessKeySize = 32

	// FingerprintLength is the number of hash bytes shown in a fingerprint.
	FingerprintLength = 8
)

// Primitive selects the asymmetric algorithm a key is generated with.
type Primitive int

const (
	// Ed25519 keys: 32-byte access key, 64-byte secret key (seed || public).
	Ed25519 Primitive = iota
	// X25519 keys: WireGuard-compatible Curve25519 pair, 32 bytes each.
	X25519
)

// String returns the configuration name of the primitive.
func (p Primitive) String() string {
	switch p {
	case Ed25519:
		return "ed25519"
	case X25519:
		return "x25519"
	default:
		return fmt.Sprintf("primitive(%d)", int(p))
	}
}

// ParsePrimitive parses a primitive name as used in the node configuration.
func ParsePrimitive(s string) (Primitive, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ed25519":
		return Ed25519, nil
	case "x25519", "curve25519", "wireguard":
		return X25519, nil
	default:
		return 0, apperrors.New(apperrors.KindConfiguration,
			fmt.Sprintf("unknown key primitive %q", s)).WithField("key_primitive")
	}
}

// NetworkKey is the key material of a network. SecretKey is nil for
// access-only keys; a non-nil empty SecretKey is a present (if useless)
// secret and survives a round trip through the codec as such.
type NetworkKey struct {
	// AccessKey allows its holder to join the network.
	AccessKey []byte
	// SecretKey allows its holder to control the network.
	SecretKey []byte
}

// HasSecret reports whether the key grants control of the network.
func (k NetworkKey) HasSecret() bool {
	return k.SecretKey != nil
}

// AccessOnly returns a copy of k without the secret key, suitable for
// handing to members that should join but not control the network.
func (k NetworkKey) AccessOnly() NetworkKey {
	return NetworkKey{AccessKey: bytes.Clone(k.AccessKey)}
}

// Clone returns a deep copy of k that shares no memory with it.
func (k NetworkKey) Clone() NetworkKey {
	return NetworkKey{
		AccessKey: bytes.Clone(k.AccessKey),
		SecretKey: bytes.Clone(k.SecretKey),
	}
}

// Equal reports whether k and other hold the same bytes. An absent secret
// key is never equal to a present one, even an empty one.
func (k NetworkKey) Equal(other NetworkKey) bool {
	if !bytes.Equal(k.AccessKey, other.AccessKey) {
		return false
	}
	if k.HasSecret() != other.HasSecret() {
		return false
	}
	return bytes.Equal(k.SecretKey, other.SecretKey)
}

// Fingerprint returns a short hex digest of the access key. It is safe to
// log and display; it reveals nothing about the secret key.
func (k NetworkKey) Fingerprint() string {
	sum := sha256.Sum256(k.AccessKey)
	return hex.EncodeToString(sum[:FingerprintLength])
}

// Primitive infers the primitive from the secret key length. Access-only
// keys cannot be told apart and report ok == false.
func (k NetworkKey) Primitive() (p Primitive, ok bool) {
	switch len(k.SecretKey) {
	case ed25519.PrivateKeySize:
		return Ed25519, true
	case wgtypes.KeyLen:
		return X25519, true
	default:
		return 0, false
	}
}

// Verify checks that k is well-formed generated key material: the access key
// has the expected length and, when a secret key is present, the two halves
// belong to the same keypair.
func (k NetworkKey) Verify() error {
	if len(k.AccessKey) != AccessKeySize {
		return apperrors.New(apperrors.KindInvalidKey,
			fmt.Sprintf("access key must be %d bytes, got %d", AccessKeySize, len(k.AccessKey)))
	}
	if !k.HasSecret() {
		return nil
	}

	p, ok := k.Primitive()
	if !ok {
		return apperrors.New(apperrors.KindInvalidKey,
			fmt.Sprintf("secret key has unsupported length %d", len(k.SecretKey)))
	}

	var derived []byte
	switch p {
	case Ed25519:
		priv := ed25519.NewKeyFromSeed(k.SecretKey[:ed25519.SeedSize])
		if !bytes.Equal(priv, k.SecretKey) {
			return apperrors.New(apperrors.KindInvalidKey, "secret key seed does not match its public half")
		}
		derived = priv.Public().(ed25519.PublicKey)
	case X25519:
		var priv wgtypes.Key
		copy(priv[:], k.SecretKey)
		pub := priv.PublicKey()
		derived = pub[:]
	}

	if !bytes.Equal(derived, k.AccessKey) {
		return apperrors.New(apperrors.KindInvalidKey, "secret key does not match access key")
	}
	return nil
}

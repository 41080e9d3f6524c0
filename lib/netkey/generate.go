package netkey

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"io"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	apperrors "github.com/roamvpn/roam/lib/errors"
)

// SeedSize is the number of random bytes a keypair is derived from.
const SeedSize = 32

// Generator mints fresh network keys.
// The zero value generates Ed25519 keys from crypto/rand.
type Generator struct {
	// Rand is the entropy source. Nil means crypto/rand.Reader.
	// Tests may supply a deterministic reader.
	Rand io.Reader

	// Primitive selects the key algorithm.
	Primitive Primitive
}

// NewGenerator returns a Generator for the given primitive backed by
// crypto/rand.
func NewGenerator(p Primitive) *Generator {
	return &Generator{Primitive: p}
}

// Generate draws a 32-byte seed and derives a keypair from it. A failing
// entropy source yields an error of kind RngUnavailable; there is no
// fallback to a weaker source.
func (g *Generator) Generate() (NetworkKey, error) {
	r := g.Rand
	if r == nil {
		r = rand.Reader
	}

	seed := make([]byte, SeedSize)
	defer clear(seed)
	if _, err := io.ReadFull(r, seed); err != nil {
		return NetworkKey{}, apperrors.Wrap(apperrors.KindRngUnavailable, "reading key seed", err)
	}

	var k NetworkKey
	switch g.Primitive {
	case Ed25519:
		priv := ed25519.NewKeyFromSeed(seed)
		k = NetworkKey{
			AccessKey: bytes.Clone(priv.Public().(ed25519.PublicKey)),
			SecretKey: priv,
		}
	case X25519:
		clamped := clampCurve25519(seed)
		defer clear(clamped)
		priv, err := wgtypes.NewKey(clamped)
		if err != nil {
			return NetworkKey{}, apperrors.Wrap(apperrors.KindInternal, "deriving curve25519 key", err)
		}
		pub := priv.PublicKey()
		k = NetworkKey{
			AccessKey: bytes.Clone(pub[:]),
			SecretKey: bytes.Clone(priv[:]),
		}
	default:
		return NetworkKey{}, apperrors.New(apperrors.KindConfiguration, "unsupported key primitive "+g.Primitive.String())
	}

	log.WithField("primitive", g.Primitive.String()).
		WithField("fingerprint", k.Fingerprint()).
		Debug("generated network key")
	return k, nil
}

// clampCurve25519 returns a clamped copy of seed, the same transformation
// wgtypes.GeneratePrivateKey applies to its random bytes.
func clampCurve25519(seed []byte) []byte {
	b := bytes.Clone(seed)
	b[0] &= 248
	b[31] &= 127
	b[31] |= 64
	return b
}

var defaultGenerator = &Generator{}

// Generate mints an Ed25519 network key from crypto/rand.
func Generate() (NetworkKey, error) {
	return defaultGenerator.Generate()
}

package netkey

import (
	"encoding/base64"
	"fmt"
	"strings"

	apperrors "github.com/roamvpn/roam/lib/errors"
)

// Separator joins the access and secret key segments of a token.
const Separator = ":"

// DecodePolicy controls how Decode treats segments that are not valid
// base64url.
type DecodePolicy int

const (
	// Lenient skips segments that fail to decode and keeps the first two
	// that succeed. This is the behavior of tokens issued by earlier
	// releases and the default.
	Lenient DecodePolicy = iota

	// Strict rejects the whole token if any segment is empty or invalid,
	// or if there are more than two segments.
	Strict
)

// String returns the policy name.
func (p DecodePolicy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}

var (
	encoding       = base64.RawURLEncoding
	strictEncoding = base64.RawURLEncoding.Strict()
)

// Encode renders k as a token: the base64url (unpadded) access key, followed
// by a colon and the base64url secret key if one is present.
//
//	<access_key>
//	<access_key>:<secret_key>
func Encode(k NetworkKey) string {
	access := encoding.EncodeToString(k.AccessKey)
	if !k.HasSecret() {
		return access
	}

	secret := encoding.EncodeToString(k.SecretKey)
	var b strings.Builder
	b.Grow(len(access) + len(Separator) + len(secret))
	b.WriteString(access)
	b.WriteString(Separator)
	b.WriteString(secret)
	return b.String()
}

// String returns the token form of k. Note that the token includes the
// secret key when present; use Fingerprint for logging.
func (k NetworkKey) String() string {
	return Encode(k)
}

// Decode parses a token with the Lenient policy.
func Decode(text string) (NetworkKey, error) {
	return DecodeWith(text, Lenient)
}

// DecodeWith parses a token produced by Encode. The first decoded segment
// becomes the access key and the second, if any, the secret key.
func DecodeWith(text string, policy DecodePolicy) (NetworkKey, error) {
	var segments [][]byte
	var err error
	if policy == Strict {
		segments, err = decodeStrict(text)
	} else {
		segments = decodeLenient(text)
	}
	if err != nil {
		return NetworkKey{}, err
	}
	if len(segments) == 0 {
		return NetworkKey{}, apperrors.ErrDecodeMalformed.WithField("key")
	}

	k := NetworkKey{AccessKey: segments[0]}
	if len(segments) > 1 {
		k.SecretKey = segments[1]
	}
	return k, nil
}

// decodeLenient returns at most two successfully decoded segments, in order.
func decodeLenient(text string) [][]byte {
	out := make([][]byte, 0, 2)
	for i, seg := range strings.Split(text, Separator) {
		b, err := encoding.DecodeString(seg)
		if err != nil {
			log.WithField("segment", i).WithError(err).Debug("skipping undecodable token segment")
			continue
		}
		out = append(out, nonNil(b))
		if len(out) == 2 {
			break
		}
	}
	return out
}

func decodeStrict(text string) ([][]byte, error) {
	parts := strings.Split(text, Separator)
	if len(parts) > 2 {
		return nil, apperrors.New(apperrors.KindDecodeMalformed, "token has more than two segments").WithField("key")
	}

	out := make([][]byte, 0, len(parts))
	for _, seg := range parts {
		if seg == "" {
			return nil, apperrors.New(apperrors.KindDecodeMalformed, "token has an empty segment").WithField("key")
		}
		if i := strings.IndexFunc(seg, notBase64URL); i >= 0 {
			return nil, apperrors.New(apperrors.KindDecodeMalformed,
				fmt.Sprintf("token segment has a non-base64url character at offset %d", i)).WithField("key")
		}
		b, err := strictEncoding.DecodeString(seg)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindDecodeMalformed, "token segment is not base64url", err).WithField("key")
		}
		out = append(out, nonNil(b))
	}
	return out, nil
}

// notBase64URL reports runes outside the base64url alphabet. The decoder
// itself skips CR and LF, so they have to be caught here.
func notBase64URL(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		return false
	default:
		return true
	}
}

// nonNil keeps a decoded empty segment distinguishable from an absent one.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// MarshalText implements encoding.TextMarshaler so that a NetworkKey is
// serialized as its token wherever it is embedded.
func (k NetworkKey) MarshalText() ([]byte, error) {
	return []byte(Encode(k)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using the Lenient policy.
func (k *NetworkKey) UnmarshalText(text []byte) error {
	decoded, err := Decode(string(text))
	if err != nil {
		return err
	}
	*k = decoded
	return nil
}

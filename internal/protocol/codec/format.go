package codec

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"umbra/internal/domain"
)

// Version bytes. Messages and envelopes carry the protocol version in both
// nibbles.
const (
	messageVersion     = domain.CurrentMessageVersion<<4 | domain.CurrentMessageVersion
	sealedVersion      = domain.CurrentSealedVersion<<4 | domain.CurrentSealedVersion
	certificateVersion = 0x01

	stateFormatLegacyJSON = 0x01
	stateFormatCBOR       = 0x02
)

const keySize = 32

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	opts := cbor.CoreDetEncOptions()
	opts.NilContainers = cbor.NilContainerAsEmpty
	if encMode, err = opts.EncMode(); err != nil {
		panic(fmt.Sprintf("codec: cbor encoder: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
		TagsMd:      cbor.TagsForbidden,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("codec: cbor decoder: %v", err))
	}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrMalformedMessage}, args...)...)
}

// encode returns version ‖ CBOR(v).
func encode(version byte, v any) ([]byte, error) {
	body, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: %w", err)
	}
	out := make([]byte, 0, 1+len(body))
	out = append(out, version)
	return append(out, body...), nil
}

// decode parses version ‖ CBOR(v) into v and insists the input is the
// canonical encoding of the result.
func decode(version byte, data []byte, v any, what string) error {
	if len(data) == 0 {
		return malformed("%s: empty input", what)
	}
	if data[0] != version {
		return malformed("%s: unsupported version %#02x", what, data[0])
	}
	body := data[1:]
	if err := decMode.Unmarshal(body, v); err != nil {
		return malformed("%s: %v", what, err)
	}
	again, err := encMode.Marshal(v)
	if err != nil || !bytes.Equal(again, body) {
		return malformed("%s: non-canonical encoding", what)
	}
	return nil
}

func key32(b []byte, what string) ([keySize]byte, error) {
	var k [keySize]byte
	if len(b) != keySize {
		return k, malformed("%s: want %d bytes, got %d", what, keySize, len(b))
	}
	copy(k[:], b)
	return k, nil
}

package relay

import (
	"fmt"

	"github.com/tokenrelay/relayd/internal/core/token"
	"github.com/ugorji/go/codec"
)

// Request is the conversion instruction a trader attaches to a transfer
// sent to the relay account: the currency to convert into, and the
// lowest output the trader will accept.
type Request struct {
	Target    token.Currency `codec:"target"`
	MinReturn uint64         `codec:"min_return"`
}

var cborHandle = func() *codec.CborHandle {
	h := new(codec.CborHandle)
	h.Canonical = true
	return h
}()

// EncodeRequest serializes a request into memo bytes (canonical CBOR).
func EncodeRequest(r Request) ([]byte, error) {
	var out []byte
	enc := codec.NewEncoderBytes(&out, cborHandle)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encoding conversion request: %w", err)
	}
	return out, nil
}

// DecodeRequest parses memo bytes into a request. Anything that does
// not decode to the expected shape is a malformed request.
func DecodeRequest(memo []byte) (Request, error) {
	if len(memo) == 0 {
		return Request{}, fmt.Errorf("%w: empty memo", ErrMalformedRequest)
	}
	var r Request
	dec := codec.NewDecoderBytes(memo, cborHandle)
	if err := dec.Decode(&r); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if r.Target == "" {
		return Request{}, fmt.Errorf("%w: missing target currency", ErrMalformedRequest)
	}
	return r, nil
}

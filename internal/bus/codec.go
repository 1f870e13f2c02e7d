// internal/bus/codec.go
package bus

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding so equal payloads are equal bytes.
var encMode cbor.EncMode

// decMode decodes untyped maps as map[string]any.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("bus: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("bus: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v as a bus payload.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes a bus payload into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// reply is the envelope of a procedure response.
type reply struct {
	Err  string          `cbor:"err,omitempty"`
	Data cbor.RawMessage `cbor:"data,omitempty"`
}

func encodeReply(v any, err error) []byte {
	var r reply
	if err != nil {
		r.Err = err.Error()
	} else {
		data, merr := Marshal(v)
		if merr != nil {
			r.Err = merr.Error()
		} else {
			r.Data = data
		}
	}

	out, merr := Marshal(r)
	if merr != nil {
		// reply only holds a string and raw bytes
		panic("bus: reply envelope: " + merr.Error())
	}
	return out
}

func decodeReply(name string, data []byte, resp any) error {
	var r reply
	if err := Unmarshal(data, &r); err != nil {
		return &DecodeError{Topic: name, Err: err}
	}
	if r.Err != "" {
		return &RemoteError{Procedure: name, Message: r.Err}
	}
	if resp == nil || len(r.Data) == 0 {
		return nil
	}
	if err := Unmarshal(r.Data, resp); err != nil {
		return &DecodeError{Topic: name, Err: err}
	}
	return nil
}

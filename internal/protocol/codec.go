package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode marshals a frame to msgpack. Frames hold only slices and structs,
// so equal frames always encode to equal bytes.
func Encode(f *Frame) ([]byte, error) {
	data, err := msgpack.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.T, err)
	}
	return data, nil
}

// Decode unmarshals a msgpack frame
func Decode(data []byte) (*Frame, error) {
	var f Frame
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return &f, nil
}

// EncodeDelta marshals a bare delta; used to compare emitted state byte for byte
func EncodeDelta(d *Delta) ([]byte, error) {
	return msgpack.Marshal(d)
}

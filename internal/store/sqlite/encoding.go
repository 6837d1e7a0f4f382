package sqlite

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var errInvalidVector = errors.New("invalid vector blob")

// encodeVector converts a float32 slice to a length-prefixed little-endian
// blob for storage.
func encodeVector(vector []float32) ([]byte, error) {
	if len(vector) == 0 {
		return nil, errInvalidVector
	}

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, int32(len(vector))); err != nil {
		return nil, fmt.Errorf("encode vector length: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, vector); err != nil {
		return nil, fmt.Errorf("encode vector values: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeVector converts a stored blob back to a float32 slice.
func decodeVector(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, errInvalidVector
	}

	buf := bytes.NewReader(data)
	var length int32
	if err := binary.Read(buf, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("decode vector length: %w", err)
	}
	if length <= 0 || buf.Len() < int(length)*4 {
		return nil, errInvalidVector
	}

	vector := make([]float32, length)
	if err := binary.Read(buf, binary.LittleEndian, vector); err != nil {
		return nil, fmt.Errorf("decode vector values: %w", err)
	}
	return vector, nil
}

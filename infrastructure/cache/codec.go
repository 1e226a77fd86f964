package cache

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/klauspost/compress/gzip"

	"rxsync/pkg/errors"
)

// encodePayload serializes a value for storage. Size accounting and the
// compression threshold both work on this serialized form.
func encodePayload(value interface{}) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, errors.NewValidationError("value is not serializable").WithCause(err)
	}
	return data, nil
}

// decodePayload deserializes a stored payload into dest
func decodePayload(data []byte, dest interface{}) error {
	return json.Unmarshal(data, dest)
}

// compressPayload gzip-encodes a serialized payload
func compressPayload(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompressPayload reverses compressPayload
func decompressPayload(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

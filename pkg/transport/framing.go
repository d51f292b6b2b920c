package transport

import (
	"encoding/binary"
	"io"

	"github.com/sessamekesh/turnlink/pkg/errors"
)

const frameHeaderSize = 4

// writeFrame writes data behind a little-endian u32 length prefix. Header and
// body go out in a single Write.
func writeFrame(w io.Writer, data []byte) error {
	buf := make([]byte, 0, frameHeaderSize+len(data))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(data)))
	buf = append(buf, data...)
	_, err := w.Write(buf)
	return err
}

func readFrame(r io.Reader, maxSize int) ([]byte, error) {
	header := make([]byte, frameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	size := int(binary.LittleEndian.Uint32(header))
	if size > maxSize {
		return nil, &errors.FieldTooLong{
			MessageName: "StreamFrame",
			FieldName:   "Body",
			Length:      size,
			MaxLength:   maxSize,
		}
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

package agdist

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"

	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZ
	DataTypeBZip2
)

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeZ:     {0x1f, 0x9d},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// ErrUnsupportedCompression is returned (wrapped) for compressed data that is
// recognized but cannot be decoded.
var ErrUnsupportedCompression = errors.New("unsupported compression")

// DetectDataType checks the leading bytes of a stream against known
// compression signatures. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
func DetectDataType(head []byte) DataType {
	for dt, sig := range byteCodeSigs {
		if bytes.HasPrefix(head, sig) {
			return dt
		}
	}

	return DataTypeNoCompression
}

// MaybeDecompress wraps r in the decompressor that matches its leading bytes.
// Unrecognized streams are passed through untouched. The returned reader is
// buffered.
func MaybeDecompress(r io.Reader) (*bufio.Reader, error) {
	br := bufio.NewReader(r)

	// A short stream simply yields a short head, which will match nothing.
	head, _ := br.Peek(6)

	var inner io.Reader
	switch DetectDataType(head) {
	case DataTypeGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		inner = gz
	case DataTypeZip:
		// Only the first member of an archive is read
		zr := zipstream.NewReader(br)
		if _, err := zr.Next(); err != nil {
			return nil, err
		}
		inner = zr
	case DataTypeBZip2:
		inner = bzip2.NewReader(br)
	case DataTypeXZ:
		x, err := xz.NewReader(br, 0)
		if err != nil {
			return nil, err
		}
		inner = x
	case DataTypeZ:
		return nil, fmt.Errorf("data in Unix compress (.Z) format: %w", ErrUnsupportedCompression)
	default:
		return br, nil
	}

	return bufio.NewReader(inner), nil
}

package agdist

import (
	"bufio"
	"bytes"
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the reader, assuming a CSV-like file.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	if len(delimiters) > 0 && len(delimiters[0]) > 0 {
		return rune(delimiters[0][0])
	}

	return ','
}

// PeekDelimiter detects the delimiter from the first few kilobytes of a
// buffered reader without consuming them.
func PeekDelimiter(br *bufio.Reader) rune {
	// Peek returns what it has along with an error when the stream is shorter
	// than requested; that partial buffer is all we need.
	head, _ := br.Peek(8192)
	return DetermineDelimiter(bytes.NewReader(head))
}

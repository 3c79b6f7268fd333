package agdist

import (
	"bufio"
	"context"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

// ReadLines returns up to max non-empty, trimmed lines from path. A max of 0 or
// less returns every line. The predictor lists we consume are one column name
// per line, often with a trailing newline.
func ReadLines(ctx context.Context, path string, client *storage.Client, max int) ([]string, error) {
	in, err := Open(ctx, path, client)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	out := make([]string, 0)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
		if max > 0 && len(out) >= max {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, pfx.Err(err)
	}

	return out, nil
}

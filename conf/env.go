package conf

import (
	"bytes"
	"io"
	"os"
	"strings"
)

// NewEnvExpandedReader replaces ${VAR}, $VAR and ${VAR:-default}
// references with values from the environment before the YAML decoder
// sees them.
func NewEnvExpandedReader(r io.Reader) io.Reader {
	data, err := io.ReadAll(r)
	if err != nil {
		return &errReader{err}
	}

	return bytes.NewBufferString(os.Expand(string(data), lookupEnv))
}

func lookupEnv(key string) string {
	key, fallback, hasDefault := strings.Cut(key, ":-")

	value, ok := os.LookupEnv(key)
	if (!ok || value == "") && hasDefault {
		return fallback
	}

	return value
}

type errReader struct {
	err error
}

func (r *errReader) Read(p []byte) (int, error) {
	return 0, r.err
}

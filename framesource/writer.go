package framesource

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	repcheck "github.com/lucasjlepore/rep-analyzer"
)

// Digest identifies the content of a frames file.
type Digest struct {
	SHA256    string `json:"sha256"`
	SizeBytes int64  `json:"size_bytes"`
}

// HashFile streams path through sha256.
func HashFile(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("open frames file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return Digest{}, fmt.Errorf("hash frames file: %w", err)
	}
	return Digest{SHA256: hex.EncodeToString(h.Sum(nil)), SizeBytes: n}, nil
}

// HashBytes is HashFile for in-memory content.
func HashBytes(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest{SHA256: hex.EncodeToString(sum[:]), SizeBytes: int64(len(data))}
}

// Encode writes frames as JSON Lines.
func Encode(w io.Writer, frames []repcheck.Frame) error {
	buf := bufio.NewWriterSize(w, 1<<20)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	for _, frame := range frames {
		if err := enc.Encode(frame); err != nil {
			return err
		}
	}
	return buf.Flush()
}

// WriteFile writes frames to path as JSON Lines.
func WriteFile(path string, frames []repcheck.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, frames); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Package archive writes compressed end-of-run records to disk.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Write serializes v as indented JSON, zstd-compresses it and stores it under
// dir. Returns the path written.
func Write(dir, name string, v any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal archive: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.json.zst", name, time.Now().UTC().Format("20060102T150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return "", fmt.Errorf("init zstd: %w", err)
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return "", fmt.Errorf("write archive: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("flush archive: %w", err)
	}
	return path, nil
}

// Read decompresses and decodes an archive file into v.
func Read(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("init zstd: %w", err)
	}
	defer dec.Close()

	if err := json.NewDecoder(dec).Decode(v); err != nil {
		return fmt.Errorf("decode archive: %w", err)
	}
	return nil
}

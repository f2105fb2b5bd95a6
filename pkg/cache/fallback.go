package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/rubiojr/msgsearch/pkg/core"
)

// zstdSuffix marks a fallback file compressed with zstd.
const zstdSuffix = ".zst"

// LoadFallback reads a JSON array of messages from path. Files ending in .zst
// are zstd-decompressed first.
func LoadFallback(path string) (*core.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fallback file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, zstdSuffix) {
		decoder, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer decoder.Close()
		r = decoder
	}

	messages, err := decodeMessages(r)
	if err != nil {
		return nil, fmt.Errorf("parsing fallback file %s: %w", path, err)
	}

	return core.NewSnapshot(messages, core.SourceFallback), nil
}

func decodeMessages(r io.Reader) ([]core.Message, error) {
	var messages []core.Message
	if err := json.NewDecoder(r).Decode(&messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// WriteFallback writes snapshot to path in the format LoadFallback reads.
// The file is written to a temporary name and renamed into place.
func WriteFallback(path string, snapshot *core.Snapshot) error {
	messages := []core.Message{}
	if snapshot != nil && snapshot.Messages != nil {
		messages = snapshot.Messages
	}

	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshaling messages: %w", err)
	}

	if strings.HasSuffix(path, zstdSuffix) {
		var buf bytes.Buffer
		encoder, err := zstd.NewWriter(&buf)
		if err != nil {
			return fmt.Errorf("creating zstd encoder: %w", err)
		}
		if _, err := encoder.Write(data); err != nil {
			encoder.Close()
			return fmt.Errorf("compressing messages: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("compressing messages: %w", err)
		}
		data = buf.Bytes()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating fallback directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".msgsearch-fallback-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing fallback file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing fallback file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming fallback file: %w", err)
	}
	return nil
}

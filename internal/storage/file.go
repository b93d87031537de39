package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const (
	fileDirPermissions  = 0755
	fileDataPermissions = 0644
	fileSuffix          = ".zst"
)

// FileStore persists each key as a zstd-compressed file under a base
// directory. Writes are atomic: a temp file is written, synced and renamed
// over the target.
type FileStore struct {
	baseDir string
	enc     *zstd.Encoder
	dec     *zstd.Decoder
}

// NewFileStore creates a file store rooted at baseDir. The directory is
// created on Initialize.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("storage: base directory cannot be empty")
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(s.baseDir, fileDirPermissions); err != nil {
		return &Error{Op: "initialize", Err: err}
	}
	if s.enc == nil {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return &Error{Op: "initialize", Err: err}
		}
		s.enc = enc
	}
	if s.dec == nil {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return &Error{Op: "initialize", Err: err}
		}
		s.dec = dec
	}
	return nil
}

// path maps an opaque key to a file path, flattening separators so keys
// cannot escape the base directory.
func (s *FileStore) path(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(s.baseDir, safe+fileSuffix)
}

func (s *FileStore) Store(ctx context.Context, key string, value []byte) error {
	if s.enc == nil {
		return &Error{Op: "store", Key: key, Err: fmt.Errorf("store not initialized")}
	}
	if err := ctx.Err(); err != nil {
		return &Error{Op: "store", Key: key, Err: err}
	}

	compressed := s.enc.EncodeAll(value, nil)

	target := s.path(key)
	temp := target + ".tmp"
	if err := os.WriteFile(temp, compressed, fileDataPermissions); err != nil {
		return &Error{Op: "store", Key: key, Err: err}
	}

	f, err := os.Open(temp)
	if err != nil {
		_ = os.Remove(temp)
		return &Error{Op: "store", Key: key, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(temp)
		return &Error{Op: "store", Key: key, Err: err}
	}
	f.Close()

	if err := os.Rename(temp, target); err != nil {
		_ = os.Remove(temp)
		return &Error{Op: "store", Key: key, Err: err}
	}
	return nil
}

func (s *FileStore) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if s.dec == nil {
		return nil, &Error{Op: "retrieve", Key: key, Err: fmt.Errorf("store not initialized")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "retrieve", Key: key, Err: err}
	}

	compressed, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, &Error{Op: "retrieve", Key: key, Err: err}
	}

	value, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, &Error{Op: "retrieve", Key: key, Err: err}
	}
	return value, nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	if err := os.RemoveAll(s.baseDir); err != nil {
		return &Error{Op: "clear", Err: err}
	}
	if err := os.MkdirAll(s.baseDir, fileDirPermissions); err != nil {
		return &Error{Op: "clear", Err: err}
	}
	return nil
}

func (s *FileStore) Close() error {
	if s.enc != nil {
		if err := s.enc.Close(); err != nil {
			return &Error{Op: "close", Err: err}
		}
		s.enc = nil
	}
	if s.dec != nil {
		s.dec.Close()
		s.dec = nil
	}
	return nil
}

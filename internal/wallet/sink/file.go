package sink

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/cardvault/internal/common"
	"github.com/dmitrijs2005/cardvault/internal/filex"
)

// FileSink keeps blobs as 0600 files in one directory.
type FileSink struct {
	dir  string
	opts options
}

// NewFileSink creates dir if needed.
func NewFileSink(dir string, opts ...Option) (*FileSink, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &FileSink{dir: abs, opts: buildOptions(opts)}, nil
}

func (f *FileSink) Dir() string {
	return f.dir
}

func (f *FileSink) Put(ctx context.Context, name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return filex.WriteFileAtomic(filepath.Join(f.dir, name), data)
}

func (f *FileSink) Get(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(f.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("backup %s: %w", name, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read backup %s: %w", name, err)
	}
	defer file.Close()

	if info, err := file.Stat(); err == nil && info.Size() > f.opts.maxSize {
		return nil, tooLarge(name, f.opts.maxSize)
	}
	return readLimited(file, f.opts.maxSize, name)
}

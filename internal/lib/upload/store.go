package upload

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// maxNameAttempts bounds how often a clashing name is redrawn.
const maxNameAttempts = 5

// Incoming is one file received in a request.
type Incoming struct {
	Filename    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// StoredFile describes a file written by the DiskStore.
type StoredFile struct {
	OriginalName string
	StoredName   string
	RelativePath string
	SizeBytes    int64
	ContentType  string
}

// DiskStore writes incoming files under a directory.
type DiskStore struct {
	dir        string
	publicPath string
	namer      *Namer
}

// NewDiskStore returns a store writing into dir. Returned relative paths
// are publicPath + "/" + stored name.
func NewDiskStore(dir, publicPath string, namer *Namer) *DiskStore {
	return &DiskStore{
		dir:        dir,
		publicPath: publicPath,
		namer:      namer,
	}
}

// EnsureDir creates the upload directory and its parents if missing.
func (s *DiskStore) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating upload directory %q", s.dir)
	}
	return nil
}

// SaveAll writes every file concurrently and returns them in input order.
//
// It is all or nothing: if any file fails, the files already written by
// this call are removed and the first error is returned.
func (s *DiskStore) SaveAll(ctx context.Context, files []Incoming) ([]StoredFile, error) {
	if err := s.EnsureDir(); err != nil {
		return nil, err
	}

	stored := make([]StoredFile, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			sf, err := s.save(gctx, f)
			if err != nil {
				return err
			}
			stored[i] = sf
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, sf := range stored {
			if sf.StoredName != "" {
				_ = s.Remove(sf.StoredName)
			}
		}
		return nil, err
	}
	return stored, nil
}

// Remove deletes a stored file. A missing file is not an error.
func (s *DiskStore) Remove(storedName string) error {
	err := os.Remove(filepath.Join(s.dir, storedName))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing %q", storedName)
	}
	return nil
}

func (s *DiskStore) save(ctx context.Context, f Incoming) (StoredFile, error) {
	src, err := f.Open()
	if err != nil {
		return StoredFile{}, errors.Wrapf(err, "opening upload %q", f.Filename)
	}
	defer src.Close()

	dst, name, err := s.create(f.Filename)
	if err != nil {
		return StoredFile{}, err
	}

	n, err := io.Copy(dst, &ctxReader{ctx: ctx, r: src})
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.Remove(name)
		return StoredFile{}, errors.Wrapf(err, "writing %q", name)
	}

	return StoredFile{
		OriginalName: f.Filename,
		StoredName:   name,
		RelativePath: path.Join(s.publicPath, name),
		SizeBytes:    n,
		ContentType:  f.ContentType,
	}, nil
}

// create opens a new file exclusively, drawing another name on a clash.
func (s *DiskStore) create(original string) (*os.File, string, error) {
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := s.namer.Next(original)
		dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return dst, name, nil
		}
		if !os.IsExist(err) {
			return nil, "", errors.Wrapf(err, "creating %q", name)
		}
	}
	return nil, "", errors.Errorf("could not find a free name for %q after %d attempts", original, maxNameAttempts)
}

// ctxReader stops a copy once ctx is done, so a failed sibling upload
// does not wait for slow ones to finish.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

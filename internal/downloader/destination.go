package downloader

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
)

// destination stores downloaded files.
type destination interface {
	// Create starts a new file. Nothing is visible under name until
	// Commit succeeds.
	Create(ctx context.Context, name string) (pendingFile, error)

	// Location is the path or URL reported for name.
	Location(name string) string

	Close() error
}

type pendingFile interface {
	io.Writer
	Commit() error
	Abort()
}

// openDestination opens a bucket when outDir carries a URL scheme and a
// local directory otherwise.
func openDestination(ctx context.Context, outDir string) (destination, error) {
	if strings.Contains(outDir, "://") {
		return openBucketDestination(ctx, outDir)
	}
	return openDirDestination(outDir)
}

// dirDestination writes into a local directory through temporary files
// that are renamed into place on success.
type dirDestination struct {
	dir string
}

func openDirDestination(dir string) (*dirDestination, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &dirDestination{dir: dir}, nil
}

func (d *dirDestination) Create(_ context.Context, name string) (pendingFile, error) {
	f, err := os.CreateTemp(d.dir, name+".*.part")
	if err != nil {
		return nil, err
	}
	return &localFile{File: f, final: filepath.Join(d.dir, name)}, nil
}

func (d *dirDestination) Location(name string) string {
	return filepath.Join(d.dir, name)
}

func (d *dirDestination) Close() error { return nil }

type localFile struct {
	*os.File
	final string
}

func (f *localFile) Commit() error {
	if err := f.File.Close(); err != nil {
		os.Remove(f.File.Name())
		return err
	}
	if err := os.Chmod(f.File.Name(), 0644); err != nil {
		os.Remove(f.File.Name())
		return err
	}
	if err := os.Rename(f.File.Name(), f.final); err != nil {
		os.Remove(f.File.Name())
		return err
	}
	return nil
}

func (f *localFile) Abort() {
	f.File.Close()
	os.Remove(f.File.Name())
}

// bucketDestination writes objects to a gocloud bucket. Aborted writes are
// discarded by cancelling the writer's context before Close.
type bucketDestination struct {
	bucket *blob.Bucket
	base   string
}

func openBucketDestination(ctx context.Context, bucketURL string) (*bucketDestination, error) {
	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, fmt.Errorf("parse bucket url: %w", err)
	}

	bkt, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}

	ok, err := bkt.IsAccessible(ctx)
	if err != nil {
		bkt.Close()
		return nil, fmt.Errorf("check bucket (%s): %w", gcerrors.Code(err), err)
	}
	if !ok {
		bkt.Close()
		return nil, fmt.Errorf("bucket %s does not exist or is not accessible", u.Host)
	}

	return &bucketDestination{
		bucket: bkt,
		base:   u.Scheme + "://" + u.Host,
	}, nil
}

func (d *bucketDestination) Create(ctx context.Context, name string) (pendingFile, error) {
	wctx, cancel := context.WithCancel(ctx)
	w, err := d.bucket.NewWriter(wctx, name, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	return &objectFile{Writer: w, cancel: cancel}, nil
}

func (d *bucketDestination) Location(name string) string {
	return d.base + "/" + name
}

func (d *bucketDestination) Close() error {
	return d.bucket.Close()
}

type objectFile struct {
	*blob.Writer
	cancel context.CancelFunc
}

func (f *objectFile) Commit() error {
	defer f.cancel()
	return f.Writer.Close()
}

func (f *objectFile) Abort() {
	f.cancel()
	f.Writer.Close()
}

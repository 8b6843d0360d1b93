package s3blob

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

const (
	archiveBase   = "itemdetails-"
	archiveSuffix = ".json.gz"

	// Compressed snapshots past this size go through the multipart uploader.
	multipartThreshold = 64 << 20
)

// BlobStore is the subset of object storage the archive needs.
type BlobStore interface {
	domain.BlobWriter
	domain.BlobReader
	domain.BlobDeleter
}

// SnapshotArchive keeps every fetched value snapshot as
// <prefix>/YYYY/MM/DD/itemdetails-<unix>.json.gz. It is a snapshot sink for
// the price cache and, as a source, serves the newest archived snapshot to a
// process starting with no local cache file.
type SnapshotArchive struct {
	blobs  BlobStore
	prefix string
	now    func() time.Time
}

// NewSnapshotArchive creates an archive rooted at prefix.
func NewSnapshotArchive(blobs BlobStore, prefix string) *SnapshotArchive {
	return &SnapshotArchive{
		blobs:  blobs,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}
}

// ObjectPath returns the key a snapshot fetched at t is stored under.
func (a *SnapshotArchive) ObjectPath(t time.Time) string {
	t = t.UTC()
	name := archiveBase + strconv.FormatInt(t.Unix(), 10) + archiveSuffix
	return path.Join(a.prefix, t.Format("2006/01/02"), name)
}

// StoreSnapshot compresses snap in the cache file format and uploads it.
func (a *SnapshotArchive) StoreSnapshot(ctx context.Context, snap domain.ValueSnapshot) error {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(domain.NewSnapshotDocument(snap)); err != nil {
		return fmt.Errorf("s3blob: encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("s3blob: compress snapshot: %w", err)
	}

	key := a.ObjectPath(snap.FetchedAt)
	if buf.Len() >= multipartThreshold {
		return a.blobs.PutMultipart(ctx, key, &buf, minPartSize)
	}
	return a.blobs.Put(ctx, key, &buf, "application/gzip")
}

// LoadSnapshot returns the newest archived snapshot, or domain.ErrNotFound
// when the archive is empty.
func (a *SnapshotArchive) LoadSnapshot(ctx context.Context) (domain.ValueSnapshot, error) {
	objects, err := a.archived(ctx)
	if err != nil {
		return domain.ValueSnapshot{}, err
	}
	if len(objects) == 0 {
		return domain.ValueSnapshot{}, domain.ErrNotFound
	}

	newest := objects[0]
	for _, o := range objects[1:] {
		if o.at.After(newest.at) {
			newest = o
		}
	}
	return a.read(ctx, newest.path)
}

// Prune deletes archived snapshots older than retention and reports how many
// were removed. A failed delete stops the pass.
func (a *SnapshotArchive) Prune(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, nil
	}
	objects, err := a.archived(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := a.now().Add(-retention)
	removed := 0
	for _, o := range objects {
		if !o.at.Before(cutoff) {
			continue
		}
		if err := a.blobs.Delete(ctx, o.path); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

type archivedObject struct {
	path string
	at   time.Time
}

// archived lists the archive objects with the fetch time encoded in their
// names. Foreign keys under the prefix are ignored.
func (a *SnapshotArchive) archived(ctx context.Context) ([]archivedObject, error) {
	listPrefix := a.prefix
	if listPrefix != "" {
		listPrefix += "/"
	}
	infos, err := a.blobs.List(ctx, listPrefix)
	if err != nil {
		return nil, err
	}

	var out []archivedObject
	for _, info := range infos {
		at, ok := parseArchiveName(path.Base(info.Path))
		if !ok {
			continue
		}
		out = append(out, archivedObject{path: info.Path, at: at})
	}
	return out, nil
}

func (a *SnapshotArchive) read(ctx context.Context, key string) (domain.ValueSnapshot, error) {
	body, err := a.blobs.Get(ctx, key)
	if err != nil {
		return domain.ValueSnapshot{}, err
	}
	defer body.Close()

	zr, err := gzip.NewReader(body)
	if err != nil {
		return domain.ValueSnapshot{}, fmt.Errorf("s3blob: read %s: %w", key, errors.Join(domain.ErrBadPayload, err))
	}
	defer zr.Close()

	var doc domain.SnapshotDocument
	if err := json.NewDecoder(zr).Decode(&doc); err != nil {
		return domain.ValueSnapshot{}, fmt.Errorf("s3blob: decode %s: %w", key, errors.Join(domain.ErrBadPayload, err))
	}
	snap, ok := doc.Snapshot()
	if !ok {
		return domain.ValueSnapshot{}, fmt.Errorf("s3blob: decode %s: %w", key, domain.ErrBadPayload)
	}
	return snap, nil
}

func parseArchiveName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, archiveBase) || !strings.HasSuffix(name, archiveSuffix) {
		return time.Time{}, false
	}
	sec, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, archiveBase), archiveSuffix), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

var (
	_ domain.SnapshotSink   = (*SnapshotArchive)(nil)
	_ domain.SnapshotSource = (*SnapshotArchive)(nil)
)

// Package artifact persists per-job pipeline outputs so the orchestrator
// (detct spec §4.13, §5) can resume after a crash: every job writes exactly
// one artifact, atomically (write-to-temp, rename), and a later run of the
// same job is a no-op once the artifact is present.
//
// Grounded on github.com/grailbio/bio/cmd/bio-fusion's fusionWriter/
// fusionReader (io.go): recordio framing, recordiozstd compression, gob
// record encoding, and a version header written once per file.
package artifact

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
)

const (
	versionHeaderKey = "detctversion"
	fileVersion      = "DETCT_ARTIFACT_V1"
)

func init() {
	recordiozstd.Init()
}

// Writer appends gob-encoded records of a single artifact kind to a
// recordio stream. Exactly one Writer exists per job; Close must be called
// once, after the last Write.
type Writer struct {
	out file.File
	w   recordio.Writer
}

// Create opens path for writing. Callers should write to a temporary path
// and rename into place (see WriteAtomic) so a crash mid-write never leaves a
// partial artifact visible to downstream jobs.
func Create(ctx context.Context, path string) (*Writer, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("artifact: create %s: %w", path, err)
	}
	w := recordio.NewWriter(out.Writer(ctx), recordio.WriterOpts{
		Transformers: []string{recordiozstd.Name},
	})
	w.AddHeader(versionHeaderKey, fileVersion)
	return &Writer{out: out, w: w}, nil
}

// Write gob-encodes v and appends it as one record.
func (w *Writer) Write(v interface{}) error {
	b := bytes.NewBuffer(nil)
	if err := gob.NewEncoder(b).Encode(v); err != nil {
		return fmt.Errorf("artifact: encode: %w", err)
	}
	w.w.Append(b.Bytes())
	return nil
}

// Close finishes the recordio stream and the underlying file.
func (w *Writer) Close(ctx context.Context) error {
	if err := w.w.Finish(); err != nil {
		return fmt.Errorf("artifact: finish: %w", err)
	}
	return w.out.Close(ctx)
}

// Reader scans gob-encoded records back out of a recordio stream written by
// Writer.
type Reader struct {
	in file.File
	r  recordio.Scanner
}

// Open opens an existing artifact for reading.
func Open(ctx context.Context, path string) (*Reader, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("artifact: open %s: %w", path, err)
	}
	r := recordio.NewScanner(in.Reader(ctx), recordio.ScannerOpts{})
	found := false
	for _, kv := range r.Header() {
		if kv.Key == versionHeaderKey {
			if kv.Value.(string) != fileVersion {
				return nil, fmt.Errorf("artifact: %s: version mismatch, got %v want %v", path, kv.Value, fileVersion)
			}
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("artifact: %s: missing version header", path)
	}
	return &Reader{in: in, r: r}, nil
}

// Scan decodes the next record into v, which must be a pointer. It reports
// whether a record was read.
func (r *Reader) Scan(v interface{}) (bool, error) {
	if !r.r.Scan() {
		return false, r.r.Err()
	}
	b := bytes.NewReader(r.r.Get().([]byte))
	if err := gob.NewDecoder(b).Decode(v); err != nil {
		return false, fmt.Errorf("artifact: decode: %w", err)
	}
	return true, nil
}

// Close releases the underlying file.
func (r *Reader) Close(ctx context.Context) error {
	if err := r.r.Err(); err != nil {
		return err
	}
	return r.in.Close(ctx)
}

// Exists reports whether an artifact already exists at path -- the
// orchestrator's resumability check (spec §4.13: "rerunning a completed job
// is a no-op").
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteAtomic writes a single gob value to path via a temp file in the same
// directory, then renames into place, so a cancelled or crashed job never
// leaves a partial artifact at its final name (spec §5: "cancellation is
// cooperative... discards its partial output (never renames temp to
// final)").
func WriteAtomic(ctx context.Context, path string, v interface{}) error {
	dir := filepath.Dir(path)
	tmp := path + ".tmp"
	w, err := Create(ctx, tmp)
	if err != nil {
		return err
	}
	if err := w.Write(v); err != nil {
		w.Close(ctx)
		os.Remove(tmp)
		return err
	}
	if err := w.Close(ctx); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("artifact: rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

// ReadSingle opens path and decodes exactly one record into v.
func ReadSingle(ctx context.Context, path string, v interface{}) error {
	r, err := Open(ctx, path)
	if err != nil {
		return err
	}
	defer r.Close(ctx)
	ok, err := r.Scan(v)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("artifact: %s: no record found", path)
	}
	return nil
}

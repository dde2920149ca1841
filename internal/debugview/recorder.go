// Package debugview holds detector debug views: a binary snapshot recorder,
// a guard plotter and a fan-out.
package debugview

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/phrack/ShootOFF-sub002/internal/detector"
)

// SnapshotLogMagic starts every snapshot log file.
const SnapshotLogMagic = "SHOTSNP1"

// ErrBadMagic is returned when a file is not a snapshot log.
var ErrBadMagic = errors.New("not a snapshot log")

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Recorder appends one CBOR record per snapshot to a log file. Each record
// is a 12 byte header (little-endian unix nanos, payload size) followed by
// the payload.
type Recorder struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string
}

// NewRecorder creates the log file at path, including parent directories.
func NewRecorder(path string) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriterSize(f, 256*1024)
	if _, err := w.WriteString(SnapshotLogMagic); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Recorder{f: f, w: w, path: path}, nil
}

// Path returns the log file path.
func (r *Recorder) Path() string {
	return r.path
}

// OnSnapshot implements detector.DebugView. Write errors are logged.
func (r *Recorder) OnSnapshot(s detector.Snapshot) {
	if err := r.Record(s); err != nil {
		log.Printf("snapshot recorder: %v", err)
	}
}

// Record appends one snapshot.
func (r *Recorder) Record(s detector.Snapshot) error {
	payload, err := encMode.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return fmt.Errorf("snapshot recorder is closed")
	}

	var header [12]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(time.Now().UnixNano()))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(payload)))
	if _, err := r.w.Write(header[:]); err != nil {
		return err
	}
	if _, err := r.w.Write(payload); err != nil {
		return err
	}
	return nil
}

// Flush writes buffered records to disk.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return nil
	}
	return r.w.Flush()
}

// Close flushes and closes the log file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return nil
	}
	if err := r.w.Flush(); err != nil {
		_ = r.f.Close()
		r.w = nil
		return err
	}
	err := r.f.Close()
	r.w = nil
	return err
}

// Record is one decoded log entry.
type Record struct {
	RecordedAt time.Time
	Snapshot   detector.Snapshot
}

// Reader decodes a snapshot log.
type Reader struct {
	r io.Reader
}

// NewReader checks the log magic and returns a Reader positioned at the
// first record.
func NewReader(r io.Reader) (*Reader, error) {
	header := make([]byte, len(SnapshotLogMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(header) != SnapshotLogMagic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadMagic, string(header))
	}
	return &Reader{r: r}, nil
}

// Next returns the next record, or io.EOF at the end of the log. A record
// cut short by a crash is treated as the end of the log.
func (r *Reader) Next() (Record, error) {
	var meta [12]byte
	if _, err := io.ReadFull(r.r, meta[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, io.EOF
		}
		return Record{}, err
	}
	ts := int64(binary.LittleEndian.Uint64(meta[:8]))
	size := binary.LittleEndian.Uint32(meta[8:12])

	payload := make([]byte, size)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("read payload: %w", err)
	}

	rec := Record{RecordedAt: time.Unix(0, ts)}
	if err := cbor.Unmarshal(payload, &rec.Snapshot); err != nil {
		return Record{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return rec, nil
}

// ReadSnapshots decodes up to limit records from r. limit <= 0 reads all.
func ReadSnapshots(r io.Reader, limit int) ([]Record, error) {
	rd, err := NewReader(r)
	if err != nil {
		return nil, err
	}

	var records []Record
	for limit <= 0 || len(records) < limit {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
	return records, nil
}

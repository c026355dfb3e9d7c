// Package export writes the classified heart-rate history as Parquet.
//
// The file holds one row per reading with the model classification, so
// that the history can be analysed offline with any Parquet reader.
package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/xtxerr/cardiowatch/internal/errors"
	"github.com/xtxerr/cardiowatch/internal/monitor"
)

// ContentType is the media type of exported files.
const ContentType = "application/vnd.apache.parquet"

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionGzip
)

// Options configures the Parquet writer.
type Options struct {
	Compression CompressionType

	// Location renders the local_time column. Nil means UTC.
	Location *time.Location
}

// DefaultOptions returns default Parquet options.
func DefaultOptions() Options {
	return Options{Compression: CompressionZstd}
}

// ParseCompressionType parses a compression type string. Unknown names
// fall back to zstd.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

func codec(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// ReadingRow is one reading in Parquet format.
type ReadingRow struct {
	Timestamp int64  `parquet:"timestamp"`
	LocalTime string `parquet:"local_time"`
	BPM       int32  `parquet:"bpm"`
	Anomaly   bool   `parquet:"anomaly"`
}

// RowsFromAnalysis converts analysis rows into Parquet rows.
func RowsFromAnalysis(rows []monitor.Row, loc *time.Location) []ReadingRow {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]ReadingRow, len(rows))
	for i, r := range rows {
		out[i] = ReadingRow{
			Timestamp: r.Timestamp,
			LocalTime: time.Unix(r.Timestamp, 0).In(loc).Format(time.DateTime),
			BPM:       int32(r.BPM),
			Anomaly:   r.Anomaly,
		}
	}
	return out
}

// Write encodes rows to w and returns the number of rows written.
func Write(w io.Writer, rows []monitor.Row, opts Options) (int, error) {
	writer := parquet.NewGenericWriter[ReadingRow](w,
		parquet.Compression(codec(opts.Compression)),
		parquet.CreatedBy("cardiowatch", "", ""),
	)

	n, err := writer.Write(RowsFromAnalysis(rows, opts.Location))
	if err != nil {
		writer.Close()
		return n, fmt.Errorf("write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return n, fmt.Errorf("close writer: %w", err)
	}
	return n, nil
}

// WriteAnalysis encodes the rows of a into a byte slice.
func WriteAnalysis(a *monitor.Analysis, opts Options) ([]byte, error) {
	if a == nil {
		return nil, errors.Wrap(errors.ErrInsufficientData, "no analysis available")
	}
	var buf bytes.Buffer
	if _, err := Write(&buf, a.Rows, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// =============================================================================
// Reading
// =============================================================================

// sizedReaderAt is an io.ReaderAt that knows its size, like *bytes.Reader.
type sizedReaderAt interface {
	io.ReaderAt
	Size() int64
}

// Read decodes every row of an exported file.
func Read(r sizedReaderAt) ([]ReadingRow, error) {
	rows, err := parquet.Read[ReadingRow](r, r.Size())
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows, nil
}

// ReadBytes decodes an exported file held in memory.
func ReadBytes(data []byte) ([]ReadingRow, error) {
	return Read(bytes.NewReader(data))
}

// ReadFile decodes an exported file on disk.
func ReadFile(path string) ([]ReadingRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return ReadBytes(data)
}

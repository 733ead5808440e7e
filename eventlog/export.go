package eventlog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

type parquetRow struct {
	ID         string `parquet:"name=id, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Sequence   int64  `parquet:"name=sequence, type=INT64"`
	Type       string `parquet:"name=type, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Attributes string `parquet:"name=attributes, type=UTF8, encoding=PLAIN_DICTIONARY"`
	CreatedAt  string `parquet:"name=created_at, type=UTF8, encoding=PLAIN_DICTIONARY"`
}

const exportPageSize = 1000

// ExportParquet writes every stored record, oldest first, to a parquet file
// at path and returns the number of rows written. On failure the partial file
// is removed.
func (s *Store) ExportParquet(ctx context.Context, path string) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("eventlog: create parquet: %w", err)
	}
	written, err := s.writeParquet(ctx, file)
	if cerr := file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("eventlog: close parquet file: %w", cerr)
	}
	if err != nil {
		_ = os.Remove(path)
		return written, err
	}
	return written, nil
}

func (s *Store) writeParquet(ctx context.Context, file *os.File) (int, error) {
	pw, err := writer.NewParquetWriter(writerfile.NewWriterFile(file), new(parquetRow), 1)
	if err != nil {
		return 0, fmt.Errorf("eventlog: parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	written := 0
	var after uint64
	for {
		var page []Record
		err := s.db.WithContext(ctx).
			Where("sequence > ?", after).
			Order("sequence ASC").
			Limit(exportPageSize).
			Find(&page).Error
		if err != nil {
			_ = pw.WriteStop()
			return written, fmt.Errorf("eventlog: export query: %w", err)
		}
		for _, rec := range page {
			if err := pw.Write(toParquetRow(rec)); err != nil {
				_ = pw.WriteStop()
				return written, fmt.Errorf("eventlog: parquet write: %w", err)
			}
			written++
			after = rec.Sequence
		}
		if len(page) < exportPageSize {
			break
		}
	}
	if err := pw.WriteStop(); err != nil {
		return written, fmt.Errorf("eventlog: parquet flush: %w", err)
	}
	return written, nil
}

func toParquetRow(rec Record) *parquetRow {
	return &parquetRow{
		ID:         rec.ID.String(),
		Sequence:   int64(rec.Sequence),
		Type:       rec.Type,
		Attributes: flattenAttributes(rec.Attributes),
		CreatedAt:  rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// flattenAttributes renders attributes as sorted key=value pairs.
func flattenAttributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+attrs[k])
	}
	return strings.Join(parts, ";")
}

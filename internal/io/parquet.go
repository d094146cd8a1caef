package io

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/facetdata/facet/internal/dataframe"
	"github.com/facetdata/facet/internal/series"
)

// Read reads an entire Parquet stream into a frame.
func (r *ParquetReader) Read() (*dataframe.DataFrame, error) {
	data, err := io.ReadAll(r.reader)
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}

	pqReader, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating parquet reader: %w", err)
	}

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, r.mem)
	if err != nil {
		return nil, fmt.Errorf("creating arrow reader: %w", err)
	}

	table, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	defer table.Release()

	columns := make([]series.Column, 0, table.NumCols())
	release := func() {
		for _, col := range columns {
			col.Release()
		}
	}
	for i := 0; i < int(table.NumCols()); i++ {
		col, err := r.columnFromChunked(table.Schema().Field(i).Name, table.Column(i).Data())
		if err != nil {
			release()
			return nil, err
		}
		columns = append(columns, col)
	}

	df, err := dataframe.New(r.ns, r.mem, columns)
	if err != nil {
		release()
		return nil, err
	}
	return df, nil
}

// columnFromChunked flattens a possibly multi-chunk column into one array.
func (r *ParquetReader) columnFromChunked(name string, chunked *arrow.Chunked) (series.Column, error) {
	chunks := chunked.Chunks()
	if len(chunks) == 1 {
		return series.FromArray(name, chunks[0]), nil
	}

	merged, err := array.Concatenate(chunks, r.mem)
	if err != nil {
		return nil, fmt.Errorf("concatenating chunks of %s: %w", name, err)
	}
	defer merged.Release()
	return series.FromArray(name, merged), nil
}

// Write writes the frame as a single Parquet row group.
func (w *ParquetWriter) Write(df *dataframe.DataFrame) error {
	table, err := frameToTable(df)
	if err != nil {
		return err
	}
	defer table.Release()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compressionCodec(w.options.Compression)),
		parquet.WithBatchSize(int64(w.options.BatchSize)),
	)
	arrowProps := pqarrow.NewArrowWriterProperties()

	writer, err := pqarrow.NewFileWriter(table.Schema(), w.writer, props, arrowProps)
	if err != nil {
		return fmt.Errorf("creating parquet writer: %w", err)
	}

	if err := writer.WriteTable(table, int64(df.Len())); err != nil {
		writer.Close()
		return fmt.Errorf("writing table: %w", err)
	}
	return writer.Close()
}

func compressionCodec(name string) compress.Compression {
	switch name {
	case "gzip":
		return compress.Codecs.Gzip
	case "lz4":
		return compress.Codecs.Lz4Raw
	case "zstd":
		return compress.Codecs.Zstd
	case "uncompressed":
		return compress.Codecs.Uncompressed
	default:
		return compress.Codecs.Snappy
	}
}

func frameToTable(df *dataframe.DataFrame) (arrow.Table, error) {
	names := df.Columns()
	fields := make([]arrow.Field, 0, len(names))
	columns := make([]arrow.Column, 0, len(names))

	for _, name := range names {
		col, err := df.Column(name)
		if err != nil {
			return nil, err
		}
		arr := col.Array()

		field := arrow.Field{Name: name, Type: arr.DataType()}
		fields = append(fields, field)

		chunked := arrow.NewChunked(arr.DataType(), []arrow.Array{arr})
		columns = append(columns, *arrow.NewColumn(field, chunked))
		arr.Release()
	}

	schema := arrow.NewSchema(fields, nil)
	return array.NewTable(schema, columns, int64(df.Len())), nil
}

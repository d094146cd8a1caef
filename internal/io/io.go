// Package io provides frame input/output: CSV with type inference, Parquet
// via pqarrow, and Avro OCF ingestion.
package io

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/facetdata/facet/internal/engine"
)

// CSVOptions configures CSV reading and writing.
type CSVOptions struct {
	Delimiter rune
	Header    bool
	Comment   rune
}

// DefaultCSVOptions returns comma-delimited, headered CSV settings.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Delimiter: ',', Header: true}
}

// ParquetOptions configures Parquet writing.
type ParquetOptions struct {
	Compression string
	BatchSize   int
}

// DefaultParquetOptions returns snappy-compressed settings.
func DefaultParquetOptions() ParquetOptions {
	return ParquetOptions{Compression: "snappy", BatchSize: 1024}
}

// CSVReader reads CSV data into frames bound to a namespace.
type CSVReader struct {
	reader  io.Reader
	ns      *engine.Namespace
	mem     memory.Allocator
	options CSVOptions
}

// NewCSVReader creates a CSV reader.
func NewCSVReader(r io.Reader, ns *engine.Namespace, mem memory.Allocator, options CSVOptions) *CSVReader {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &CSVReader{reader: r, ns: ns, mem: mem, options: options}
}

// CSVWriter writes frames as CSV.
type CSVWriter struct {
	writer  io.Writer
	options CSVOptions
}

// NewCSVWriter creates a CSV writer.
func NewCSVWriter(w io.Writer, options CSVOptions) *CSVWriter {
	return &CSVWriter{writer: w, options: options}
}

// ParquetReader reads Parquet data into frames bound to a namespace.
type ParquetReader struct {
	reader io.Reader
	ns     *engine.Namespace
	mem    memory.Allocator
}

// NewParquetReader creates a Parquet reader.
func NewParquetReader(r io.Reader, ns *engine.Namespace, mem memory.Allocator) *ParquetReader {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &ParquetReader{reader: r, ns: ns, mem: mem}
}

// ParquetWriter writes frames as Parquet.
type ParquetWriter struct {
	writer  io.Writer
	options ParquetOptions
}

// NewParquetWriter creates a Parquet writer.
func NewParquetWriter(w io.Writer, options ParquetOptions) *ParquetWriter {
	return &ParquetWriter{writer: w, options: options}
}

// AvroReader reads Avro object container files into frames.
type AvroReader struct {
	reader io.Reader
	ns     *engine.Namespace
	mem    memory.Allocator
}

// NewAvroReader creates an Avro OCF reader.
func NewAvroReader(r io.Reader, ns *engine.Namespace, mem memory.Allocator) *AvroReader {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &AvroReader{reader: r, ns: ns, mem: mem}
}

package io

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/linkedin/goavro/v2"

	"github.com/facetdata/facet/internal/dataframe"
	"github.com/facetdata/facet/internal/series"
)

// avroSchema is the subset of an Avro record schema needed to recover the
// declared field order, which map-typed decoded records lose.
type avroSchema struct {
	Fields []struct {
		Name string `json:"name"`
	} `json:"fields"`
}

// Read decodes an Avro object container file into a frame. Supported field
// types are boolean, int, long, float, double, string and nullable unions
// of those; null cells become arrow nulls.
func (r *AvroReader) Read() (*dataframe.DataFrame, error) {
	ocf, err := goavro.NewOCFReader(bufio.NewReader(r.reader))
	if err != nil {
		return nil, fmt.Errorf("opening avro container: %w", err)
	}

	var schema avroSchema
	if err := json.Unmarshal([]byte(ocf.Codec().Schema()), &schema); err != nil {
		return nil, fmt.Errorf("parsing avro schema: %w", err)
	}
	if len(schema.Fields) == 0 {
		return nil, fmt.Errorf("avro schema declares no record fields")
	}

	var records []map[string]interface{}
	for ocf.Scan() {
		datum, err := ocf.Read()
		if err != nil {
			return nil, fmt.Errorf("reading avro record: %w", err)
		}
		record, ok := datum.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("avro datum is %T, expected a record", datum)
		}
		records = append(records, record)
	}
	if err := ocf.Err(); err != nil {
		return nil, fmt.Errorf("scanning avro container: %w", err)
	}

	columns := make([]series.Column, 0, len(schema.Fields))
	release := func() {
		for _, col := range columns {
			col.Release()
		}
	}
	for _, field := range schema.Fields {
		col, err := r.columnFromRecords(field.Name, records)
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

func (r *AvroReader) columnFromRecords(field string, records []map[string]interface{}) (series.Column, error) {
	builder, err := r.builderForField(field, records)
	if err != nil {
		return nil, err
	}
	defer builder.Release()

	for _, record := range records {
		value := unwrapUnion(record[field])
		if value == nil {
			builder.AppendNull()
			continue
		}
		if err := appendValue(builder, value); err != nil {
			return nil, fmt.Errorf("field %s: %w", field, err)
		}
	}

	arr := builder.NewArray()
	defer arr.Release()
	return series.FromArray(field, arr), nil
}

// builderForField picks a builder from the first non-null cell; all-null
// columns fall back to string.
func (r *AvroReader) builderForField(field string, records []map[string]interface{}) (array.Builder, error) {
	for _, record := range records {
		switch unwrapUnion(record[field]).(type) {
		case nil:
			continue
		case bool:
			return array.NewBooleanBuilder(r.mem), nil
		case int32:
			return array.NewInt32Builder(r.mem), nil
		case int64:
			return array.NewInt64Builder(r.mem), nil
		case float32:
			return array.NewFloat32Builder(r.mem), nil
		case float64:
			return array.NewFloat64Builder(r.mem), nil
		case string:
			return array.NewStringBuilder(r.mem), nil
		default:
			return nil, fmt.Errorf("field %s: unsupported avro value type %T", field, unwrapUnion(record[field]))
		}
	}
	return array.NewStringBuilder(r.mem), nil
}

// unwrapUnion flattens goavro's union encoding, a one-entry map keyed by the
// branch type name.
func unwrapUnion(value interface{}) interface{} {
	if union, ok := value.(map[string]interface{}); ok && len(union) == 1 {
		for _, branch := range union {
			return branch
		}
	}
	return value
}

func appendValue(builder array.Builder, value interface{}) error {
	switch b := builder.(type) {
	case *array.BooleanBuilder:
		v, ok := value.(bool)
		if !ok {
			return typeDrift(builder, value)
		}
		b.Append(v)
	case *array.Int32Builder:
		v, ok := value.(int32)
		if !ok {
			return typeDrift(builder, value)
		}
		b.Append(v)
	case *array.Int64Builder:
		switch v := value.(type) {
		case int64:
			b.Append(v)
		case int32:
			b.Append(int64(v))
		default:
			return typeDrift(builder, value)
		}
	case *array.Float32Builder:
		v, ok := value.(float32)
		if !ok {
			return typeDrift(builder, value)
		}
		b.Append(v)
	case *array.Float64Builder:
		switch v := value.(type) {
		case float64:
			b.Append(v)
		case float32:
			b.Append(float64(v))
		default:
			return typeDrift(builder, value)
		}
	case *array.StringBuilder:
		v, ok := value.(string)
		if !ok {
			return typeDrift(builder, value)
		}
		b.Append(v)
	default:
		return fmt.Errorf("unsupported builder type %T", builder)
	}
	return nil
}

func typeDrift(builder array.Builder, value interface{}) error {
	return fmt.Errorf("cell type %T does not match inferred column type %s", value, builder.Type())
}

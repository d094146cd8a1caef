package io

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/facetdata/facet/internal/dataframe"
	"github.com/facetdata/facet/internal/series"
)

// Read parses CSV data into a frame. Each column gets the narrowest type
// all of its non-empty cells fit: bool, then int64, then float64, then
// string. Empty cells read as the type's zero value.
func (r *CSVReader) Read() (*dataframe.DataFrame, error) {
	csvReader := csv.NewReader(r.reader)
	csvReader.Comma = r.options.Delimiter
	csvReader.Comment = r.options.Comment
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) == 0 {
		return dataframe.New(r.ns, r.mem, nil)
	}

	var headers []string
	var rows [][]string
	if r.options.Header {
		headers = records[0]
		rows = records[1:]
	} else {
		headers = make([]string, len(records[0]))
		for i := range headers {
			headers[i] = fmt.Sprintf("column_%d", i)
		}
		rows = records
	}

	columns := make([]series.Column, 0, len(headers))
	for i, header := range headers {
		cells := make([]string, len(rows))
		for j, row := range rows {
			if i < len(row) {
				cells[j] = row[i]
			}
		}
		col, err := r.columnFromCells(header, cells)
		if err != nil {
			for _, c := range columns {
				c.Release()
			}
			return nil, fmt.Errorf("column %s: %w", header, err)
		}
		columns = append(columns, col)
	}

	df, err := dataframe.New(r.ns, r.mem, columns)
	if err != nil {
		for _, c := range columns {
			c.Release()
		}
		return nil, err
	}
	return df, nil
}

func (r *CSVReader) columnFromCells(name string, cells []string) (series.Column, error) {
	switch inferType(cells) {
	case "bool":
		values := make([]bool, len(cells))
		for i, cell := range cells {
			values[i] = strings.EqualFold(cell, "true")
		}
		return series.NewSafe(name, values, r.mem)
	case "int":
		values := make([]int64, len(cells))
		for i, cell := range cells {
			if cell != "" {
				values[i], _ = strconv.ParseInt(cell, 10, 64)
			}
		}
		return series.NewSafe(name, values, r.mem)
	case "float":
		values := make([]float64, len(cells))
		for i, cell := range cells {
			if cell != "" {
				values[i], _ = strconv.ParseFloat(cell, 64)
			}
		}
		return series.NewSafe(name, values, r.mem)
	default:
		return series.NewSafe(name, cells, r.mem)
	}
}

func inferType(cells []string) string {
	canBeBool, canBeInt, canBeFloat := true, true, true
	sawValue := false

	for _, cell := range cells {
		if cell == "" {
			continue
		}
		sawValue = true
		if canBeBool {
			lower := strings.ToLower(cell)
			canBeBool = lower == "true" || lower == "false"
		}
		if canBeInt {
			_, err := strconv.ParseInt(cell, 10, 64)
			canBeInt = err == nil
		}
		if canBeFloat {
			_, err := strconv.ParseFloat(cell, 64)
			canBeFloat = err == nil
		}
	}

	switch {
	case !sawValue:
		return "string"
	case canBeBool:
		return "bool"
	case canBeInt:
		return "int"
	case canBeFloat:
		return "float"
	default:
		return "string"
	}
}

// Write renders the frame as CSV, nulls as empty cells.
func (w *CSVWriter) Write(df *dataframe.DataFrame) error {
	csvWriter := csv.NewWriter(w.writer)
	csvWriter.Comma = w.options.Delimiter
	defer csvWriter.Flush()

	if w.options.Header {
		if err := csvWriter.Write(df.Columns()); err != nil {
			return fmt.Errorf("writing headers: %w", err)
		}
	}

	names := df.Columns()
	for i := 0; i < df.Len(); i++ {
		row := make([]string, len(names))
		for j, name := range names {
			col, err := df.Column(name)
			if err != nil {
				return err
			}
			row[j] = cellString(col, i)
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	return csvWriter.Error()
}

func cellString(col series.Column, index int) string {
	arr := col.Array()
	defer arr.Release()

	if arr.IsNull(index) {
		return ""
	}
	switch typed := arr.(type) {
	case *array.String:
		return typed.Value(index)
	case *array.Int64:
		return strconv.FormatInt(typed.Value(index), 10)
	case *array.Int32:
		return strconv.FormatInt(int64(typed.Value(index)), 10)
	case *array.Float64:
		return strconv.FormatFloat(typed.Value(index), 'g', -1, 64)
	case *array.Float32:
		return strconv.FormatFloat(float64(typed.Value(index)), 'g', -1, 32)
	case *array.Boolean:
		return strconv.FormatBool(typed.Value(index))
	default:
		return ""
	}
}

package flightengine

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// tensorSchema lays every tensor out as one record row: name, shape, bytes.
func tensorSchema(md arrow.Metadata) *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "name", Type: arrow.BinaryTypes.String},
		{Name: "rows", Type: arrow.PrimitiveTypes.Int64},
		{Name: "cols", Type: arrow.PrimitiveTypes.Int64},
		{Name: "data", Type: arrow.BinaryTypes.Binary},
	}, &md)
}

// requestRecord encodes a request's tensors into one Arrow record, with the
// kernel name and scalar parameters in the schema metadata.
func requestRecord(req *Request) arrow.Record {
	md := paramsMetadata(req)
	return tensorsRecord(tensorSchema(md), req.Tensors)
}

// responseRecord encodes output tensors with bare metadata.
func responseRecord(tensors []Tensor) arrow.Record {
	md := arrow.NewMetadata(nil, nil)
	return tensorsRecord(tensorSchema(md), tensors)
}

func tensorsRecord(schema *arrow.Schema, tensors []Tensor) arrow.Record {
	mem := memory.DefaultAllocator

	nameB := array.NewStringBuilder(mem)
	defer nameB.Release()
	rowsB := array.NewInt64Builder(mem)
	defer rowsB.Release()
	colsB := array.NewInt64Builder(mem)
	defer colsB.Release()
	dataB := array.NewBinaryBuilder(mem, arrow.BinaryTypes.Binary)
	defer dataB.Release()

	for _, t := range tensors {
		nameB.Append(t.Name)
		rowsB.Append(t.Rows)
		colsB.Append(t.Cols)
		dataB.Append(t.Data)
	}

	names := nameB.NewArray()
	defer names.Release()
	rows := rowsB.NewArray()
	defer rows.Release()
	cols := colsB.NewArray()
	defer cols.Release()
	data := dataB.NewArray()
	defer data.Release()

	return array.NewRecord(schema, []arrow.Array{names, rows, cols, data}, int64(len(tensors)))
}

// recordTensors decodes a tensor record back into flat buffers. Byte slices
// are copied out so the record can be released by the caller.
func recordTensors(rec arrow.Record) ([]Tensor, error) {
	if rec.NumCols() != 4 {
		return nil, fmt.Errorf("tensor record has %d columns, want 4", rec.NumCols())
	}
	names, ok := rec.Column(0).(*array.String)
	if !ok {
		return nil, fmt.Errorf("tensor record column 0 is %s, want string", rec.Column(0).DataType())
	}
	rows, ok := rec.Column(1).(*array.Int64)
	if !ok {
		return nil, fmt.Errorf("tensor record column 1 is %s, want int64", rec.Column(1).DataType())
	}
	cols, ok := rec.Column(2).(*array.Int64)
	if !ok {
		return nil, fmt.Errorf("tensor record column 2 is %s, want int64", rec.Column(2).DataType())
	}
	data, ok := rec.Column(3).(*array.Binary)
	if !ok {
		return nil, fmt.Errorf("tensor record column 3 is %s, want binary", rec.Column(3).DataType())
	}

	out := make([]Tensor, rec.NumRows())
	for i := 0; i < int(rec.NumRows()); i++ {
		buf := make([]byte, len(data.Value(i)))
		copy(buf, data.Value(i))
		out[i] = Tensor{
			Name: names.Value(i),
			Rows: rows.Value(i),
			Cols: cols.Value(i),
			Data: buf,
		}
	}
	return out, nil
}

package flightengine

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/23skdu/longbow-gauge/internal/device"
	"github.com/23skdu/longbow-gauge/internal/quant"
)

// Engine drives a remote GEMM engine through a Client. It satisfies the same
// in-place, fail-loudly contract as the in-process engine: any transport or
// decode failure panics, because a harness that silently skips an engine
// call would report a false pass.
type Engine struct {
	client Client
}

func NewEngine(client Client) *Engine {
	return &Engine{client: client}
}

func (e *Engine) Dense(x, y quant.Quantized, out *device.Matrix) {
	req := &Request{
		Kernel: KernelDense,
		Tensors: []Tensor{
			valuesTensor("x_values", x.Values),
			scalesTensor("x_scales", x.Scales),
			valuesTensor("y_values", y.Values),
			scalesTensor("y_scales", y.Scales),
		},
		Params: map[string]string{},
	}
	resp := e.invoke(req)
	fillOutput(out, resp, "out")
}

func (e *Engine) GroupedContiguous(x quant.Quantized, y []quant.Quantized, out *device.Matrix, groupIndex []int32) {
	req := &Request{
		Kernel: KernelContiguous,
		Tensors: []Tensor{
			valuesTensor("x_values", x.Values),
			scalesTensor("x_scales", x.Scales),
			int32Tensor("group_index", groupIndex),
		},
		Params: map[string]string{"num_groups": formatInt(len(y))},
	}
	for g := range y {
		req.Tensors = append(req.Tensors,
			valuesTensor(fmt.Sprintf("y_values_%d", g), y[g].Values),
			scalesTensor(fmt.Sprintf("y_scales_%d", g), y[g].Scales))
	}
	resp := e.invoke(req)
	fillOutput(out, resp, "out")
}

func (e *Engine) GroupedMasked(x, y []quant.Quantized, out []*device.Matrix, validRows []int32, expectedMPerGroup int) {
	req := &Request{
		Kernel:  KernelMasked,
		Tensors: []Tensor{int32Tensor("valid_rows", validRows)},
		Params: map[string]string{
			"num_groups": formatInt(len(x)),
			"expected_m": formatInt(expectedMPerGroup),
		},
	}
	for g := range x {
		req.Tensors = append(req.Tensors,
			valuesTensor(fmt.Sprintf("x_values_%d", g), x[g].Values),
			scalesTensor(fmt.Sprintf("x_scales_%d", g), x[g].Scales),
			valuesTensor(fmt.Sprintf("y_values_%d", g), y[g].Values),
			scalesTensor(fmt.Sprintf("y_scales_%d", g), y[g].Scales))
	}
	resp := e.invoke(req)
	for g := range out {
		fillOutput(out[g], resp, fmt.Sprintf("out_%d", g))
	}
}

func (e *Engine) invoke(req *Request) *Response {
	resp, err := e.client.Invoke(context.Background(), req)
	if err != nil {
		panic(fmt.Sprintf("flightengine: %s invocation failed: %v", req.Kernel, err))
	}
	return resp
}

func valuesTensor(name string, m *device.FP8Matrix) Tensor {
	return Tensor{
		Name: name,
		Rows: int64(m.Rows()),
		Cols: int64(m.Cols()),
		Data: m.Data(),
	}
}

// scalesTensor flattens a scale tensor. The aligned column-major layout is
// shipped as-is, with the padded row extent as the row count, so the remote
// engine's fused-load path can consume the buffer without repacking.
func scalesTensor(name string, s quant.ScaleView) Tensor {
	switch v := s.(type) {
	case *quant.ColMajorScales:
		return Tensor{
			Name: name + "_colmajor",
			Rows: int64(v.AlignedRows()),
			Cols: int64(v.Cols()),
			Data: arrow.Float32Traits.CastToBytes(v.Data()),
		}
	case *device.Matrix:
		return Tensor{
			Name: name,
			Rows: int64(v.Rows()),
			Cols: int64(v.Cols()),
			Data: arrow.Float32Traits.CastToBytes(v.Data()),
		}
	default:
		panic(fmt.Sprintf("flightengine: unsupported scale layout %T", s))
	}
}

func int32Tensor(name string, vals []int32) Tensor {
	return Tensor{
		Name: name,
		Rows: int64(len(vals)),
		Cols: 1,
		Data: arrow.Int32Traits.CastToBytes(vals),
	}
}

func fillOutput(out *device.Matrix, resp *Response, name string) {
	for _, t := range resp.Tensors {
		if t.Name != name {
			continue
		}
		if t.Rows != int64(out.Rows()) || t.Cols != int64(out.Cols()) {
			panic(fmt.Sprintf("flightengine: output %s shape (%d, %d), want (%d, %d)",
				name, t.Rows, t.Cols, out.Rows(), out.Cols()))
		}
		vals := arrow.Float32Traits.CastFromBytes(t.Data)
		copy(out.Data(), vals)
		return
	}
	panic(fmt.Sprintf("flightengine: engine response missing output %s", name))
}

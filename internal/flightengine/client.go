// Package flightengine adapts an out-of-process GEMM engine (for example a
// GPU sidecar) to the harness engine contract. Quantized operands travel to
// the engine as Arrow record batches over a Flight DoExchange stream and the
// kernel output comes back the same way. The in-process harness never needs
// this package; it exists so a remote engine can be put under test.
package flightengine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Kernel names carried in the Flight descriptor path.
const (
	KernelDense      = "dense"
	KernelContiguous = "grouped_contiguous"
	KernelMasked     = "grouped_masked"
)

// Tensor is one flattened buffer in a request or response: quantized values
// as raw bytes, scales and outputs as little-endian float32 bytes.
type Tensor struct {
	Name string
	Rows int64
	Cols int64
	Data []byte
}

// Request is one kernel invocation: the kernel name, its operand tensors,
// and scalar parameters (group count, expected rows, mask values).
type Request struct {
	Kernel  string
	Tensors []Tensor
	Params  map[string]string
}

// Response carries the engine's output tensors.
type Response struct {
	Tensors []Tensor
}

// Client is the transport contract the remote engine adapter drives. The
// Flight implementation talks to a live server; the mock serves tests.
type Client interface {
	Connect(ctx context.Context) error
	Close() error
	Invoke(ctx context.Context, req *Request) (*Response, error)
}

// FlightClient wraps Apache Arrow Flight for engine transport.
type FlightClient struct {
	client  flight.Client
	addr    string
	timeout time.Duration
}

// NewFlightClient creates a client for the engine server at host:port.
func NewFlightClient(host string, port int) (*FlightClient, error) {
	if host == "" {
		return nil, fmt.Errorf("empty engine host")
	}
	if port <= 0 {
		return nil, fmt.Errorf("invalid engine port %d", port)
	}
	return &FlightClient{
		addr:    fmt.Sprintf("%s:%d", host, port),
		timeout: 30 * time.Second,
	}, nil
}

// Connect establishes the connection to the Flight server.
func (fc *FlightClient) Connect(ctx context.Context) error {
	client, err := flight.NewClientWithMiddleware(fc.addr, nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to create Flight client: %w", err)
	}
	fc.client = client
	return nil
}

// Close disconnects from the Flight server.
func (fc *FlightClient) Close() error {
	if fc.client != nil {
		return fc.client.Close()
	}
	return nil
}

// Invoke performs one kernel call: writes the operand record, half-closes
// the send side, and reads the output record back.
func (fc *FlightClient) Invoke(ctx context.Context, req *Request) (*Response, error) {
	if fc.client == nil {
		return nil, fmt.Errorf("client not connected, call Connect() first")
	}

	ctx, cancel := context.WithTimeout(ctx, fc.timeout)
	defer cancel()

	stream, err := fc.client.DoExchange(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open exchange: %w", err)
	}

	rec := requestRecord(req)
	defer rec.Release()

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(rec.Schema()))
	writer.SetFlightDescriptor(&flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: []string{req.Kernel},
	})
	if err := writer.Write(rec); err != nil {
		return nil, fmt.Errorf("failed to write operands: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fmt.Errorf("failed to half-close exchange: %w", err)
	}

	reader, err := flight.NewRecordReader(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to read engine output: %w", err)
	}
	defer reader.Release()

	resp := &Response{}
	for reader.Next() {
		out := reader.Record()
		tensors, err := recordTensors(out)
		if err != nil {
			return nil, err
		}
		resp.Tensors = append(resp.Tensors, tensors...)
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("engine stream error: %w", err)
	}
	if len(resp.Tensors) == 0 {
		return nil, fmt.Errorf("engine returned no output for %s", req.Kernel)
	}
	return resp, nil
}

// paramsMetadata flattens request params into record-level metadata.
func paramsMetadata(req *Request) arrow.Metadata {
	keys := []string{"kernel"}
	vals := []string{req.Kernel}
	for k, v := range req.Params {
		keys = append(keys, k)
		vals = append(vals, v)
	}
	return arrow.NewMetadata(keys, vals)
}

func formatInt(v int) string {
	return strconv.Itoa(v)
}

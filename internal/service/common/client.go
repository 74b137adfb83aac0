//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/light-orchestra/internal/api/grpc/tone"
	"github.com/oshokin/light-orchestra/internal/config"
)

// Client wraps the gRPC ToneService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the orchestra server.
	conn *grpc.ClientConn
	// api is the ToneService client.
	api *api.ToneServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// dialOptions are appended to the defaults when connecting.
	dialOptions []grpc.DialOption
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithDialOptions adds gRPC dial options, e.g. a custom dialer.
func WithDialOptions(options ...grpc.DialOption) Option {
	return func(c *Client) {
		c.dialOptions = append(c.dialOptions, options...)
	}
}

// Note is one melody entry.
type Note struct {
	// FrequencyHz is the pitch.
	FrequencyHz float64
	// Ms is the duration in milliseconds.
	Ms int64
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errNotesRequired is returned when a melody has no notes.
	errNotesRequired = errors.New("at least one note must be provided")
)

// Dial establishes a gRPC connection to the orchestra server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	client := &Client{
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	dialOptions := append(
		[]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
		client.dialOptions...,
	)

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(address, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("dial orchestra server: %w", err)
	}

	client.conn = conn
	client.api = api.NewToneServiceClient(conn)

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// PlayNote plays frequencyHz for the given number of seconds.
func (c *Client) PlayNote(ctx context.Context, frequencyHz, seconds float64) (*structpb.Struct, error) {
	return c.call(ctx, api.MethodPlayNote, map[string]*structpb.Value{
		"frequency": structpb.NewNumberValue(frequencyHz),
		"duration":  structpb.NewNumberValue(seconds),
	})
}

// Tone plays frequencyHz for ms milliseconds. A negative duty leaves the server default.
func (c *Client) Tone(ctx context.Context, frequencyHz float64, ms int64, duty float64) (*structpb.Struct, error) {
	fields := map[string]*structpb.Value{
		"freq": structpb.NewNumberValue(frequencyHz),
		"ms":   structpb.NewNumberValue(float64(ms)),
	}

	if duty >= 0 {
		fields["duty"] = structpb.NewNumberValue(duty)
	}

	return c.call(ctx, api.MethodTone, fields)
}

// Melody plays notes in order with gapMs of silence between them.
func (c *Client) Melody(ctx context.Context, notes []Note, gapMs int64) (*structpb.Struct, error) {
	if len(notes) == 0 {
		return nil, errNotesRequired
	}

	values := make([]*structpb.Value, 0, len(notes))

	for _, note := range notes {
		values = append(values, structpb.NewStructValue(&structpb.Struct{
			Fields: map[string]*structpb.Value{
				"freq": structpb.NewNumberValue(note.FrequencyHz),
				"ms":   structpb.NewNumberValue(float64(note.Ms)),
			},
		}))
	}

	return c.call(ctx, api.MethodMelody, map[string]*structpb.Value{
		"notes":  structpb.NewListValue(&structpb.ListValue{Values: values}),
		"gap_ms": structpb.NewNumberValue(float64(gapMs)),
	})
}

// Stop silences everything.
func (c *Client) Stop(ctx context.Context) (*structpb.Struct, error) {
	return c.call(ctx, api.MethodStop, nil)
}

// Health probes the server.
func (c *Client) Health(ctx context.Context) (*structpb.Struct, error) {
	return c.call(ctx, api.MethodHealth, nil)
}

// Sensor reads the light sensor.
func (c *Client) Sensor(ctx context.Context) (*structpb.Struct, error) {
	return c.call(ctx, api.MethodSensor, nil)
}

// Status returns the arbiter snapshot.
func (c *Client) Status(ctx context.Context) (*structpb.Struct, error) {
	return c.call(ctx, api.MethodStatus, nil)
}

// call performs one unary call with the client's timeout.
func (c *Client) call(ctx context.Context, method string, fields map[string]*structpb.Value) (*structpb.Struct, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.Call(callCtx, method, &structpb.Struct{Fields: fields})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	return response, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

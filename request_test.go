package simplexbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// respondingTransport answers every request envelope it sees by feeding a
// correlated response back into the bus, like a well-behaved counterpart.
type respondingTransport struct {
	bus     *Bus
	payload any
	isError bool
}

func (r *respondingTransport) send(data []byte) error {
	id := gjson.GetBytes(data, "id").Str
	if id == "" {
		return nil
	}

	response := &Envelope{
		Type:    gjson.GetBytes(data, "type").Str + "-response",
		Payload: r.payload,
		ID:      id,
		Nonce:   gjson.GetBytes(data, "nonce").Str,
		IsError: r.isError,
	}

	raw, err := (JSONCodec{}).Encode(response)
	if err != nil {
		return err
	}

	r.bus.Receive(raw)

	return nil
}

func TestRequest_ResolvesOnResponse(t *testing.T) {
	responder := &respondingTransport{payload: "abc123"}

	bus, err := New(responder.send)
	require.NoError(t, err)

	defer bus.Dispose()

	responder.bus = bus

	got, err := bus.Request(context.Background(), "get-token", nil)
	require.NoError(t, err)
	require.Equal(t, "abc123", got)
	require.Equal(t, 0, bus.PendingRequests())
}

func TestRequest_RemoteError(t *testing.T) {
	responder := &respondingTransport{
		payload: map[string]any{"message": "no such token"},
		isError: true,
	}

	bus, err := New(responder.send)
	require.NoError(t, err)

	defer bus.Dispose()

	responder.bus = bus

	_, err = bus.Request(context.Background(), "get-token", nil)

	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	require.Equal(t, "get-token", remote.Type)
	require.Equal(t, "no such token", remote.Message())
	require.Equal(t, 0, bus.PendingRequests())
}

func TestRequest_Timeout(t *testing.T) {
	// A transport that never replies.
	transport := &captureTransport{}

	bus, err := New(transport.send)
	require.NoError(t, err)

	defer bus.Dispose()

	const timeout = 50 * time.Millisecond

	start := time.Now()
	_, err = bus.Request(context.Background(), "get-token", nil, WithRequestTimeout(timeout))
	elapsed := time.Since(start)

	var terr *TimeoutError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, "get-token", terr.Type)
	require.Equal(t, timeout, terr.Timeout)
	require.GreaterOrEqual(t, elapsed, timeout)
	require.Equal(t, 0, bus.PendingRequests())
}

func TestRequest_NegativeTimeout(t *testing.T) {
	transport := &captureTransport{}

	bus, err := New(transport.send)
	require.NoError(t, err)

	defer bus.Dispose()

	_, err = bus.Request(context.Background(), "ping", nil, WithRequestTimeout(-time.Second))
	require.Error(t, err)
	require.Equal(t, 0, transport.count())
}

func TestRequest_EmptyType(t *testing.T) {
	transport := &captureTransport{}

	bus, err := New(transport.send)
	require.NoError(t, err)

	defer bus.Dispose()

	_, err = bus.Request(context.Background(), "", nil)
	require.ErrorIs(t, err, ErrEmptyType)
}

func TestRequest_AbortBeforeSend(t *testing.T) {
	transport := &captureTransport{}

	bus, err := New(transport.send)
	require.NoError(t, err)

	defer bus.Dispose()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = bus.Request(ctx, "get-token", nil)

	var aborted *AbortedError
	require.ErrorAs(t, err, &aborted)
	require.Equal(t, "get-token", aborted.Type)

	// Nothing was sent and no pending entry leaked.
	require.Equal(t, 0, transport.count())
	require.Equal(t, 0, bus.PendingRequests())
}

func TestRequest_AbortDuringWait(t *testing.T) {
	transport := &captureTransport{}

	bus, err := New(transport.send)
	require.NoError(t, err)

	defer bus.Dispose()

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = bus.Request(ctx, "get-token", nil, WithRequestTimeout(5*time.Second))

	var aborted *AbortedError
	require.ErrorAs(t, err, &aborted)
	require.Equal(t, 0, bus.PendingRequests())

	// A response arriving after the abort has no observable effect.
	sent := transport.last()
	id := gjson.GetBytes(sent, "id").Str
	nonce := gjson.GetBytes(sent, "nonce").Str
	bus.Receive(fmt.Appendf(nil, `{"type":"get-token-response","id":%q,"nonce":%q,"payload":"late"}`, id, nonce))

	require.Equal(t, 0, bus.PendingRequests())
}

func TestRequest_SendFailureRejects(t *testing.T) {
	cause := errors.New("transport down")
	transport := &captureTransport{err: cause}

	bus, err := New(transport.send)
	require.NoError(t, err)

	defer bus.Dispose()

	_, err = bus.Request(context.Background(), "get-token", nil)
	require.ErrorIs(t, err, cause)
	require.Equal(t, 0, bus.PendingRequests())
}

func TestRequest_PendingLimitThenDisposeRejectsAll(t *testing.T) {
	const limit = 5

	transport := &captureTransport{}

	bus, err := New(transport.send, WithMaxPendingRequests(limit))
	require.NoError(t, err)

	// Saturate the store with requests that will never resolve.
	var g errgroup.Group

	results := make([]error, limit)

	var started sync.WaitGroup

	for i := range limit {
		started.Add(1)

		g.Go(func() error {
			started.Done()

			_, rerr := bus.Request(context.Background(), "slow", nil, WithRequestTimeout(30*time.Second))
			results[i] = rerr

			return nil
		})
	}

	started.Wait()

	require.Eventually(t, func() bool {
		return bus.PendingRequests() == limit
	}, time.Second, time.Millisecond)

	// The (N+1)th request fails fast and is never sent.
	sentBefore := transport.count()
	_, err = bus.Request(context.Background(), "one-too-many", nil)

	var lerr *LimitError
	require.ErrorAs(t, err, &lerr)
	require.Equal(t, limit, lerr.Limit)
	require.Equal(t, sentBefore, transport.count())

	// Disposal rejects all N in-flight requests.
	bus.Dispose()
	require.NoError(t, g.Wait())

	for _, rerr := range results {
		require.ErrorIs(t, rerr, ErrDisposed)
	}
}

func TestRequest_ResponsePayloadValidatorFailure(t *testing.T) {
	// A trusted response with an invalid payload is terminal: the request
	// is rejected with the validation error rather than waiting out the
	// timeout.
	cause := errors.New("token must be a string")
	responder := &respondingTransport{payload: 12345}

	bus, err := New(responder.send,
		WithValidator("get-token-response", ValidatorFunc(func(p any) error {
			if _, ok := p.(string); !ok {
				return cause
			}

			return nil
		})),
	)
	require.NoError(t, err)

	defer bus.Dispose()

	responder.bus = bus

	_, err = bus.Request(context.Background(), "get-token", nil, WithRequestTimeout(time.Second))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.ErrorIs(t, err, cause)
	require.Equal(t, 0, bus.PendingRequests())
}

func TestRequest_ConcurrentRequestsResolveIndependently(t *testing.T) {
	responder := &respondingTransport{payload: "ok"}

	bus, err := New(responder.send)
	require.NoError(t, err)

	defer bus.Dispose()

	responder.bus = bus

	var g errgroup.Group

	for range 50 {
		g.Go(func() error {
			got, rerr := bus.Request(context.Background(), "ping", nil)
			if rerr != nil {
				return rerr
			}

			if got != "ok" {
				return fmt.Errorf("unexpected payload %v", got)
			}

			return nil
		})
	}

	require.NoError(t, g.Wait())
	require.Equal(t, 0, bus.PendingRequests())
}

package result

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/pushgate/pkg/errors"
	"github.com/kart-io/pushgate/pkg/message"
	"github.com/kart-io/pushgate/pkg/response"
)

func newTestMessage() *message.Message {
	return message.New().
		SetDeviceToken("0123456789abcdef").
		SetTopic("com.example.app").
		SetPayload([]byte(`{"aps":{"alert":"hi"}}`))
}

func acceptedResponse() *response.Response {
	return &response.Response{StatusCode: http.StatusOK, ApnsID: "abc"}
}

func TestHandle_Succeed(t *testing.T) {
	msg := newTestMessage()
	handle := NewHandle(msg)

	assert.False(t, handle.Completed())
	assert.Same(t, msg, handle.Message())

	require.True(t, handle.Succeed(acceptedResponse()))

	assert.True(t, handle.Completed())
	assert.NoError(t, handle.Err())
	require.NotNil(t, handle.Response())
	assert.True(t, handle.Response().Accepted())
}

func TestHandle_Fail(t *testing.T) {
	handle := NewHandle(newTestMessage())

	sendErr := errors.New(errors.ErrWriteFailed, "boom")
	require.True(t, handle.Fail(sendErr))

	assert.True(t, handle.Completed())
	assert.Nil(t, handle.Response())
	assert.ErrorIs(t, handle.Err(), sendErr)
}

func TestHandle_CompletesExactlyOnce(t *testing.T) {
	handle := NewHandle(newTestMessage())

	require.True(t, handle.Succeed(acceptedResponse()))

	// Every later completion attempt is a no-op.
	assert.False(t, handle.Succeed(&response.Response{StatusCode: http.StatusBadRequest}))
	assert.False(t, handle.Fail(errors.New(errors.ErrWriteFailed, "late failure")))

	require.NotNil(t, handle.Response())
	assert.Equal(t, http.StatusOK, handle.Response().StatusCode)
	assert.NoError(t, handle.Err())
}

func TestHandle_ConcurrentCompletion(t *testing.T) {
	handle := NewHandle(newTestMessage())

	const attempts = 32
	var wins int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var won bool
			if i%2 == 0 {
				won = handle.Succeed(acceptedResponse())
			} else {
				won = handle.Fail(errors.New(errors.ErrWriteFailed, "lost race"))
			}
			if won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins)
	assert.True(t, handle.Completed())
}

func TestHandle_ObserverBeforeCompletion(t *testing.T) {
	handle := NewHandle(newTestMessage())

	fired := make(chan struct{})
	handle.OnComplete(func(resp *response.Response, err error) {
		assert.NotNil(t, resp)
		assert.NoError(t, err)
		close(fired)
	})

	handle.Succeed(acceptedResponse())

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("observer did not fire")
	}
}

func TestHandle_ObserverAfterCompletion(t *testing.T) {
	handle := NewHandle(newTestMessage())
	handle.Fail(errors.New(errors.ErrAcquisitionFailed, "pool exhausted"))

	var observed error
	handle.OnComplete(func(resp *response.Response, err error) {
		observed = err
	})

	// Late registration fires synchronously on the registering goroutine.
	require.Error(t, observed)
	assert.True(t, errors.HasCode(observed, errors.ErrAcquisitionFailed))
}

func TestHandle_ObserversFireOnce(t *testing.T) {
	handle := NewHandle(newTestMessage())

	var calls int
	handle.OnComplete(func(*response.Response, error) { calls++ })

	handle.Succeed(acceptedResponse())
	handle.Succeed(acceptedResponse())
	handle.Fail(errors.New(errors.ErrWriteFailed, "ignored"))

	assert.Equal(t, 1, calls)
}

func TestHandle_Wait(t *testing.T) {
	handle := NewHandle(newTestMessage())

	go func() {
		time.Sleep(10 * time.Millisecond)
		handle.Succeed(acceptedResponse())
	}()

	resp, err := handle.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Accepted())
}

func TestHandle_WaitContextCancelled(t *testing.T) {
	handle := NewHandle(newTestMessage())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := handle.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The handle itself is still incomplete and can settle later.
	assert.False(t, handle.Completed())
	assert.True(t, handle.Succeed(acceptedResponse()))
}

func TestHandle_DoneChannel(t *testing.T) {
	handle := NewHandle(newTestMessage())

	select {
	case <-handle.Done():
		t.Fatal("done channel closed before completion")
	default:
	}

	handle.Fail(errors.New(errors.ErrWriteFailed, "boom"))

	select {
	case <-handle.Done():
	case <-time.After(time.Second):
		t.Fatal("done channel not closed after completion")
	}
}

package httpcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"

	appLogger "github.com/fastygo/reminders/pkg/logger"
)

func TestAdapter_PropagatesRequestID(t *testing.T) {
	var rc fasthttp.RequestCtx
	rc.Request.Header.Set("X-Request-ID", "abc-123")
	rc.Request.Header.SetUserAgent("probe")

	ctx, cancel := NewAdapter(context.Background(), time.Second).Attach(&rc)
	defer cancel()

	assert.Equal(t, "abc-123", appLogger.RequestID(ctx))
	assert.Equal(t, "abc-123", string(rc.Response.Header.Peek("X-Request-ID")))
	assert.Equal(t, "probe", ctx.Value(KeyUserAgent))
	_, hasDeadline := ctx.Deadline()
	assert.True(t, hasDeadline)
}

func TestAdapter_GeneratesRequestID(t *testing.T) {
	var rc fasthttp.RequestCtx

	ctx, cancel := NewAdapter(nil, 0).Attach(&rc)
	defer cancel()

	assert.NotEmpty(t, appLogger.RequestID(ctx))
	assert.Equal(t, appLogger.RequestID(ctx), string(rc.Response.Header.Peek("X-Request-ID")))
}

func TestAdapter_ParentCancellation(t *testing.T) {
	parent, stop := context.WithCancel(context.Background())
	var rc fasthttp.RequestCtx

	ctx, cancel := NewAdapter(parent, time.Minute).Attach(&rc)
	defer cancel()

	stop()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

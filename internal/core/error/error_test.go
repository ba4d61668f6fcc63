package errx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := New(base, http.StatusBadGateway, "upstream failed")

	assert.Equal(t, "upstream failed: boom", err.Error())
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "bare", New(nil, 500, "bare").Error())
}

func TestWrapRedis(t *testing.T) {
	assert.NoError(t, WrapRedis(nil))

	notFound := WrapRedis(redis.Nil)
	assert.Equal(t, http.StatusNotFound, StatusOf(notFound))
	assert.ErrorIs(t, notFound, redis.Nil)

	failed := WrapRedis(errors.New("connection refused"))
	assert.Equal(t, http.StatusBadGateway, StatusOf(failed))
	assert.Equal(t, RedisErrorMessage, SafeMessage(failed))
}

func TestWrapModel(t *testing.T) {
	assert.NoError(t, WrapModel(nil))

	err := WrapModel(fmt.Errorf("dial: %w", errors.New("no route")))
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
	assert.Equal(t, ModelErrorMessage, SafeMessage(err))

	assert.Equal(t, http.StatusGatewayTimeout, StatusOf(WrapModel(context.DeadlineExceeded)))
	assert.Equal(t, 499, StatusOf(WrapModel(context.Canceled)))

	already := WrapModelOutput(errors.New("bad json"))
	require.Same(t, already, WrapModel(already))
}

func TestStatusOf_PlainError(t *testing.T) {
	plain := errors.New("plain")
	assert.Equal(t, http.StatusInternalServerError, StatusOf(plain))
	assert.Equal(t, SystemErrorMessage, SafeMessage(plain))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(Internal(plain)))
}

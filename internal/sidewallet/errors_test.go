package sidewallet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	withCause := RPCError("getTransaction", errors.New("timeout"))
	assert.Equal(t, "rpc_error: getTransaction: timeout", withCause.Error())

	bare := InvalidAddress("address length 10 not in [32,44]")
	assert.Equal(t, "invalid_address: address length 10 not in [32,44]", bare.Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	wrapped := StorageError("upsert failed", cause)
	assert.ErrorIs(t, wrapped, cause)
}

func TestKindOf(t *testing.T) {
	kind, ok := KindOf(NotFound("signature unknown"))
	assert.True(t, ok)
	assert.Equal(t, KindNotFound, kind)

	_, ok = KindOf(errors.New("plain error"))
	assert.False(t, ok)
}

package listing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item string

func (i item) Identity() string { return string(i) }

func TestDelete_RemovesExactlyOne(t *testing.T) {
	items := []item{"a", "b", "c"}
	var called string

	out, err := Delete(context.Background(), items, "b", func(_ context.Context, id string) error {
		called = id
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "b", called)
	assert.Equal(t, []item{"a", "c"}, out)
	assert.Equal(t, []item{"a", "b", "c"}, items, "input must not be mutated")
}

func TestDelete_FailureKeepsCollection(t *testing.T) {
	items := []item{"a", "b"}
	boom := errors.New("boom")

	out, err := Delete(context.Background(), items, "a", func(context.Context, string) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, items, out)
}

func TestDelete_UnknownID(t *testing.T) {
	out, err := Delete(context.Background(), []item{"a"}, "zzz", func(context.Context, string) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, []item{"a"}, out)
}

package di

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainerBuildsOnce(t *testing.T) {
	c := New()
	builds := 0
	c.RegisterBuilder("a", func(*Container) (interface{}, error) {
		builds++
		return "service-a", nil
	})
	c.RegisterBuilder("b", func(c *Container) (interface{}, error) {
		a, err := Resolve[string](c, "a")
		return a + "+b", err
	})

	b, err := Resolve[string](c, "b")
	require.NoError(t, err)
	assert.Equal(t, "service-a+b", b)
	_, err = c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 1, builds)

	assert.True(t, c.Has("a"))
	assert.False(t, c.Has("missing"))
	assert.Equal(t, []string{"a", "b"}, c.ServiceNames())
}

func TestContainerErrors(t *testing.T) {
	c := New()
	_, err := c.Get("missing")
	require.Error(t, err)

	c.Register("number", 7)
	_, err = Resolve[string](c, "number")
	require.Error(t, err)

	c.RegisterBuilder("loop", func(c *Container) (interface{}, error) {
		return c.Get("loop")
	})
	_, err = c.Get("loop")
	require.ErrorContains(t, err, "dependency cycle")

	boom := errors.New("boom")
	c.RegisterBuilder("failing", func(*Container) (interface{}, error) { return nil, boom })
	_, err = c.Get("failing")
	require.ErrorIs(t, err, boom)
	assert.Panics(t, func() { c.MustGet("failing") })
}

func TestContainerCloseOrder(t *testing.T) {
	c := New()
	var order []string
	c.OnClose("first", func() error { order = append(order, "first"); return nil })
	c.OnClose("second", func() error { order = append(order, "second"); return errors.New("stuck") })

	err := c.Close()
	require.ErrorContains(t, err, "close second: stuck")
	assert.Equal(t, []string{"second", "first"}, order)
	require.NoError(t, c.Close(), "closers run once")
}

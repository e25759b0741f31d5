package helper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSenderControl_Passes(t *testing.T) {
	var sent []int
	s := NewSenderControl[int](2, 0, 2)
	require.NoError(t, s.Run(context.Background(), []int{1, 2, 3}, func(i int) error {
		sent = append(sent, i)
		return nil
	}))
	assert.Equal(t, []int{1, 2, 3, 1, 2, 3}, sent)
}

func TestSenderControl_ZeroRepeatIsOnePass(t *testing.T) {
	var sent int
	require.NoError(t, NewSenderControl[string](0, 0, 0).Run(context.Background(), []string{"a", "b"}, func(string) error {
		sent++
		return nil
	}))
	assert.Equal(t, 2, sent)
}

func TestSenderControl_StopsOnError(t *testing.T) {
	var sent int
	err := NewSenderControl[int](-1, 0, 1).Run(context.Background(), []int{1, 2}, func(int) error {
		sent++
		if sent == 5 {
			return assert.AnError
		}
		return nil
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 5, sent)
}

func TestSenderControl_ForeverUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var sent int
	err := NewSenderControl[int](-1, time.Millisecond, 1).Run(ctx, []int{1}, func(int) error {
		sent++
		if sent == 3 {
			cancel()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
}

package permitgate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettlementError(t *testing.T) {
	err := NewSettlementError(ErrAmountOutOfBounds, "0xabc", "amount 5 outside [10, 1000]")
	assert.Equal(t, "amount_out_of_bounds: amount 5 outside [10, 1000]", err.Error())
	assert.Equal(t, ErrAmountOutOfBounds, CodeOf(err))

	t.Run("message is optional", func(t *testing.T) {
		err := NewSettlementError(ErrPaused, "", "")
		assert.Equal(t, "paused", err.Error())
	})

	t.Run("code survives wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("settle: %w", NewSettlementError(ErrTransferFailed, "", "reverted"))
		assert.Equal(t, ErrTransferFailed, CodeOf(wrapped))
	})

	t.Run("foreign errors have no code", func(t *testing.T) {
		assert.Equal(t, "", CodeOf(errors.New("plain")))
		assert.Equal(t, "", CodeOf(nil))
	})
}

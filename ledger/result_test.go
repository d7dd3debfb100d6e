package ledger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestCheckTransferReturn(t *testing.T) {
	trueWord := common.LeftPadBytes([]byte{1}, 32)
	falseWord := make([]byte, 32)
	twoWord := common.LeftPadBytes([]byte{2}, 32)
	highBit := make([]byte, 32)
	highBit[0] = 1 // 1 << 248, not boolean true

	cases := []struct {
		name    string
		ret     []byte
		hasCode bool
		ok      bool
	}{
		{"compliant true word", trueWord, true, true},
		{"false word", falseWord, true, false},
		{"non-boolean word", twoWord, true, false},
		{"word with high bit set", highBit, true, false},
		{"empty with code", nil, true, true},
		{"empty without code", nil, false, false},
		{"zero-length slice without code", []byte{}, false, false},
		{"single byte", []byte{1}, true, false},
		{"31 bytes", make([]byte, 31), true, false},
		{"33 bytes", make([]byte, 33), true, false},
		{"two words", make([]byte, 64), true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckTransferReturn(tc.ret, tc.hasCode)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	// hasCode is irrelevant when return data is present.
	assert.NoError(t, CheckTransferReturn(trueWord, false))
	assert.Error(t, CheckTransferReturn(falseWord, false))
}

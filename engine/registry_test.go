package engine

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	permitgate "github.com/permitgate/permitgate-go"
)

func TestTokenAdmin(t *testing.T) {
	f := newFixture(t)
	other := common.HexToAddress("0xdd")

	t.Run("non-owner cannot mutate", func(t *testing.T) {
		err := f.engine.AddToken(f.relayer, other, big.NewInt(1), big.NewInt(2))
		require.Error(t, err)
		assert.Equal(t, permitgate.ErrUnauthorized, permitgate.CodeOf(err))
	})

	t.Run("zero token address", func(t *testing.T) {
		err := f.engine.AddToken(f.owner, common.Address{}, big.NewInt(1), big.NewInt(2))
		require.Error(t, err)
		assert.Equal(t, permitgate.ErrInvalidTokenConfig, permitgate.CodeOf(err))
	})

	t.Run("inverted bounds", func(t *testing.T) {
		err := f.engine.AddToken(f.owner, other, big.NewInt(5), big.NewInt(1))
		require.Error(t, err)
		assert.Equal(t, permitgate.ErrInvalidTokenConfig, permitgate.CodeOf(err))
	})

	t.Run("duplicate supported token", func(t *testing.T) {
		err := f.engine.AddToken(f.owner, f.token, big.NewInt(1), big.NewInt(2))
		require.Error(t, err)
		assert.Equal(t, permitgate.ErrInvalidTokenConfig, permitgate.CodeOf(err))
	})

	t.Run("update bounds", func(t *testing.T) {
		require.NoError(t, f.engine.UpdateToken(f.owner, f.token, big.NewInt(5), big.NewInt(500)))
		cfg, ok := f.engine.Token(f.token)
		require.True(t, ok)
		assert.Equal(t, int64(5), cfg.MinAmount.Int64())
		assert.Equal(t, int64(500), cfg.MaxAmount.Int64())
		assert.True(t, cfg.Supported)
	})

	t.Run("update unknown token", func(t *testing.T) {
		err := f.engine.UpdateToken(f.owner, other, big.NewInt(1), big.NewInt(2))
		require.Error(t, err)
		assert.Equal(t, permitgate.ErrUnsupportedToken, permitgate.CodeOf(err))
	})

	t.Run("remove zeroes config but keeps the token enumerable", func(t *testing.T) {
		require.NoError(t, f.engine.RemoveToken(f.owner, f.token))
		cfg, ok := f.engine.Token(f.token)
		require.True(t, ok)
		assert.False(t, cfg.Supported)
		assert.Equal(t, int64(0), cfg.MinAmount.Int64())
		assert.Equal(t, int64(0), cfg.MaxAmount.Int64())
		assert.Len(t, f.engine.Tokens(), 1)

		err := f.engine.RemoveToken(f.owner, f.token)
		require.Error(t, err)
		assert.Equal(t, permitgate.ErrUnsupportedToken, permitgate.CodeOf(err))
	})

	t.Run("re-adding a removed token re-enables it without duplicating", func(t *testing.T) {
		require.NoError(t, f.engine.AddToken(f.owner, f.token, big.NewInt(1), big.NewInt(9)))
		cfg, ok := f.engine.Token(f.token)
		require.True(t, ok)
		assert.True(t, cfg.Supported)
		assert.Len(t, f.engine.Tokens(), 1)
	})
}

func TestRelayerAdmin(t *testing.T) {
	f := newFixture(t)
	extra := common.HexToAddress("0xee")

	require.NoError(t, f.engine.AddRelayer(f.owner, extra))
	assert.True(t, f.engine.IsRelayer(extra))
	assert.Equal(t, []common.Address{f.relayer, extra}, f.engine.Relayers())

	// Idempotent add keeps the sequence stable.
	require.NoError(t, f.engine.AddRelayer(f.owner, extra))
	assert.Len(t, f.engine.Relayers(), 2)

	require.NoError(t, f.engine.RemoveRelayer(f.owner, f.relayer))
	assert.False(t, f.engine.IsRelayer(f.relayer))
	assert.Equal(t, []common.Address{extra}, f.engine.Relayers())

	// Removing an absent member is a no-op.
	require.NoError(t, f.engine.RemoveRelayer(f.owner, f.relayer))

	err := f.engine.AddRelayer(f.owner, common.Address{})
	require.Error(t, err)
}

func TestBlacklistAdmin(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.engine.Blacklist(f.owner, f.payer))
	assert.True(t, f.engine.IsBlacklisted(f.payer))

	require.NoError(t, f.engine.Unblacklist(f.owner, f.payer))
	assert.False(t, f.engine.IsBlacklisted(f.payer))
}

func TestPauseAdmin(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.engine.Pause(f.owner))
	assert.True(t, f.engine.Paused())
	require.NoError(t, f.engine.Unpause(f.owner))
	assert.False(t, f.engine.Paused())
}

func TestOwnershipAdmin(t *testing.T) {
	f := newFixture(t)
	next := common.HexToAddress("0xff")

	t.Run("transfer moves authority", func(t *testing.T) {
		require.NoError(t, f.engine.TransferOwnership(f.owner, next))
		assert.Equal(t, next, f.engine.Owner())

		err := f.engine.Pause(f.owner)
		require.Error(t, err)
		assert.Equal(t, permitgate.ErrUnauthorized, permitgate.CodeOf(err))
		require.NoError(t, f.engine.Pause(next))
	})

	t.Run("zero new owner rejected", func(t *testing.T) {
		err := f.engine.TransferOwnership(next, common.Address{})
		require.Error(t, err)
	})

	t.Run("renounce locks the admin surface", func(t *testing.T) {
		require.NoError(t, f.engine.RenounceOwnership(next))
		assert.Equal(t, common.Address{}, f.engine.Owner())
		err := f.engine.Unpause(next)
		require.Error(t, err)
	})
}

func TestSetRecipient(t *testing.T) {
	f := newFixture(t)
	next := common.HexToAddress("0x99")

	require.NoError(t, f.engine.SetRecipient(f.owner, next))
	assert.Equal(t, next, f.engine.Recipient())

	err := f.engine.SetRecipient(f.owner, common.Address{})
	require.Error(t, err)
}

func TestConfigChangeEvents(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.engine.Pause(f.owner))
	require.NoError(t, f.engine.Unpause(f.owner))
	require.NoError(t, f.engine.Blacklist(f.owner, f.payer))

	changes := f.events.ConfigChanges()
	// The fixture itself adds a token and a relayer.
	assert.Equal(t, []string{"token_added", "relayer_added", "paused", "unpaused", "blacklisted"}, changes)
}

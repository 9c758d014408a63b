package state

import (
	"testing"

	"dashboard-sync/src/helpers"
	"dashboard-sync/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_EmptyBeforeBootstrap(t *testing.T) {
	s := NewStore()
	snap := s.Snapshot()

	assert.Nil(t, snap.Portfolio)
	assert.Empty(t, snap.Positions)
	assert.Empty(t, snap.Quotes)
	assert.False(t, s.Bootstrapped())
	assert.Equal(t, models.ConnectionIdle, s.ConnectionState())
}

func TestStore_BootstrapOnce(t *testing.T) {
	s := bootstrappedStore(t)
	assert.True(t, s.Bootstrapped())
	assert.EqualValues(t, 1, s.Version())

	err := s.Bootstrap(&models.MSnapshot{})
	assert.ErrorIs(t, err, ErrAlreadyBootstrapped)

	p, ok := s.Portfolio()
	require.True(t, ok)
	assert.True(t, dec("100000").Equal(p.TotalValue))
}

func TestStore_BootstrapRejectsDuplicateKeys(t *testing.T) {
	s := NewStore()
	err := s.Bootstrap(&models.MSnapshot{
		Positions: []models.MPosition{{Symbol: "INFY"}, {Symbol: "INFY"}},
	})
	var invErr *helpers.MutationInvariantViolationError
	require.ErrorAs(t, err, &invErr)
	assert.False(t, s.Bootstrapped())

	err = s.Bootstrap(&models.MSnapshot{
		Quotes: []models.MQuote{{Symbol: "TCS"}, {Symbol: "TCS"}},
	})
	require.ErrorAs(t, err, &invErr)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := bootstrappedStore(t)

	snap := s.Snapshot()
	delete(snap.Positions, "INFY")
	snap.Quotes["FAKE"] = models.MQuote{Symbol: "FAKE"}
	snap.Portfolio.OpenPositions = 99

	_, ok := s.Position("INFY")
	assert.True(t, ok)
	_, ok = s.Quote("FAKE")
	assert.False(t, ok)
	p, _ := s.Portfolio()
	assert.Equal(t, 0, p.OpenPositions)
}

func TestStore_SubscribeNotifiesInOrder(t *testing.T) {
	m := newTestMerger()
	s := bootstrappedStore(t)

	var versions []uint64
	var prices []string
	unsubscribe := s.Subscribe(func(snap models.MStoreSnapshot) {
		versions = append(versions, snap.Version)
		prices = append(prices, snap.Quotes["INFY"].Price.String())
	})

	require.NoError(t, m.ApplyRaw(s, quoteMsg("INFY", "1501")))
	require.NoError(t, m.ApplyRaw(s, quoteMsg("INFY", "1501"))) // no change, no notification
	require.NoError(t, m.ApplyRaw(s, quoteMsg("INFY", "1502")))
	s.SetConnectionState(models.ConnectionConnecting)
	s.SetConnectionState(models.ConnectionConnecting)

	assert.Equal(t, []uint64{2, 3, 4}, versions)
	assert.Equal(t, []string{"1501", "1502", "1502"}, prices)

	unsubscribe()
	unsubscribe()
	require.NoError(t, m.ApplyRaw(s, quoteMsg("INFY", "1503")))
	assert.Len(t, versions, 3)
}

func TestStore_SortedAccessors(t *testing.T) {
	m := newTestMerger()
	s := bootstrappedStore(t)
	require.NoError(t, m.ApplyRaw(s, quoteMsg("TCS", "1")))
	require.NoError(t, m.ApplyRaw(s, quoteMsg("HDFCBANK", "2")))

	quotes := s.Quotes()
	require.Len(t, quotes, 3)
	assert.Equal(t, "HDFCBANK", quotes[0].Symbol)
	assert.Equal(t, "INFY", quotes[1].Symbol)
	assert.Equal(t, "TCS", quotes[2].Symbol)
}

func TestStore_Tracks(t *testing.T) {
	s := bootstrappedStore(t)
	assert.True(t, s.Tracks("INFY"))
	assert.False(t, s.Tracks("TCS"))

	// held but not on the tracked list
	m := newTestMerger()
	require.NoError(t, m.Apply(s, models.MStreamMessage{
		Kind: models.KindPortfolioUpdate,
		Type: models.MessageTypePortfolioUpdate,
		PortfolioUpdate: &models.MPortfolioUpdate{
			Positions: []models.MPosition{{Symbol: "TCS", Quantity: 1}},
		},
	}))
	assert.True(t, s.Tracks("TCS"))
	assert.False(t, NewStore().Tracks("INFY"))
}

package bot

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zergu1ar/steambot/handler"
	"github.com/zergu1ar/steambot/policy"
)

var refined = policy.Item{Defindex: policy.DefindexRefined, Name: "Refined Metal", AssetID: 2}

func refinedTrade() *fakeTrade {
	return &fakeTrade{
		offered:  []uint64{2},
		items:    map[uint64]policy.Item{2: refined},
		acceptOK: true,
	}
}

func readySession(t *testing.T, f *fixture, trade *fakeTrade) *Session {
	t.Helper()

	s, err := f.bot.NewSession(partnerID)
	require.NoError(t, err)
	assert.Equal(t, Requested, s.State())

	require.NoError(t, s.Init(trade))
	require.NoError(t, s.AddItem(refined))
	require.NoError(t, s.Ready(true))
	require.Equal(t, ReadyToggled, s.State())
	return s
}

func TestSessionCompletes(t *testing.T) {
	f := newFixture(t)
	trade := refinedTrade()
	s := readySession(t, f, trade)

	require.NoError(t, s.Accept())
	assert.Equal(t, Accepted, s.State())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Sessions.WithLabelValues("accepted")))

	err := s.Message("thanks")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSessionRejectsOutOfOrderEvents(t *testing.T) {
	f := newFixture(t)

	s, err := f.bot.NewSession(partnerID)
	require.NoError(t, err)

	assert.ErrorIs(t, s.AddItem(refined), ErrInvalidTransition)
	require.NoError(t, s.Init(refinedTrade()))
	assert.ErrorIs(t, s.Init(refinedTrade()), ErrInvalidTransition)
	assert.ErrorIs(t, s.Ready(true), ErrInvalidTransition)
	assert.ErrorIs(t, s.Accept(), ErrInvalidTransition)
	assert.Equal(t, Initialized, s.State())
}

func TestSessionUnreadyGoesBackToPending(t *testing.T) {
	f := newFixture(t)
	trade := refinedTrade()
	s := readySession(t, f, trade)

	require.NoError(t, s.Ready(false))
	assert.Equal(t, ItemsPending, s.State())
	assert.Equal(t, []bool{true, true, false}, trade.ready)
	assert.ErrorIs(t, s.Accept(), ErrInvalidTransition)
}

func TestSessionAmbiguousAcceptKeepsState(t *testing.T) {
	f := newFixture(t)
	trade := refinedTrade()
	trade.acceptErr = errors.New("connection reset")
	s := readySession(t, f, trade)

	err := s.Accept()
	assert.ErrorIs(t, err, handler.ErrAmbiguousAccept)
	assert.Equal(t, ReadyToggled, s.State())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AmbiguousAccepts))
}

func TestSessionNotAccepted(t *testing.T) {
	f := newFixture(t)
	trade := refinedTrade()
	trade.acceptOK = false
	s := readySession(t, f, trade)

	assert.ErrorIs(t, s.Accept(), handler.ErrNotAccepted)
	assert.Equal(t, ReadyToggled, s.State())
}

func TestSessionTimeout(t *testing.T) {
	f := newFixture(t)
	s := readySession(t, f, refinedTrade())

	require.NoError(t, s.Timeout())
	assert.Equal(t, TimedOut, s.State())
	assert.Contains(t, f.chat.sent, "Sorry, but you were AFK and the trade was canceled.")
	assert.ErrorIs(t, s.Fail("late"), ErrInvalidTransition)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Sessions.WithLabelValues("timed_out")))
}

func TestSessionError(t *testing.T) {
	f := newFixture(t)
	s, err := f.bot.NewSession(partnerID)
	require.NoError(t, err)

	require.NoError(t, s.Fail("steam is down"))
	assert.Equal(t, Errored, s.State())
	assert.Contains(t, f.chat.sent, "There was an error: steam is down.")
}

func TestSessionRefused(t *testing.T) {
	p := policy.NewTradeOfferPolicy(policy.DefaultCurrencies(), nil, policy.EmptyCounter)
	b := New(&MockAPI{}, TradeOfferHandlers(p), Options{Self: botID})

	_, err := b.NewSession(partnerID)
	assert.ErrorIs(t, err, ErrTradeRefused)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ready_toggled", ReadyToggled.String())
	assert.Equal(t, "state(42)", State(42).String())
	assert.True(t, Errored.Terminal())
	assert.False(t, ItemsPending.Terminal())
}

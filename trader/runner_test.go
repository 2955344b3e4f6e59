package trader

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/turtle/broker"
	"github.com/rustyeddy/turtle/broker/paper"
)

func TestRunnerContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	acct := paper.NewAccount("USDT", 10000, 50)
	n := &recorder{}

	built := map[string]int{}
	build := func(ticker string) (*Trader, error) {
		built[ticker]++
		switch ticker {
		case "BAD":
			return nil, errors.New("unknown market")
		case "EMPTY":
			return newTrader(paper.NewExchange(acct, ticker, "USDT", nil), store, n), nil
		default:
			return newTrader(paper.NewExchange(acct, ticker, "USDT", breakout()), store, n), nil
		}
	}

	r := NewRunner(build, n, discard)
	err := r.Run(ctx, []string{"BAD", "EMPTY", "BTC"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BAD: unknown market")
	assert.Contains(t, err.Error(), "EMPTY/USDT:USDT")

	assert.Equal(t, map[string]int{"BAD": 1, "EMPTY": 1, "BTC": 1}, built)
	assert.True(t, n.has("error", "BAD cycle failed"))
	assert.True(t, n.has("error", "EMPTY/USDT:USDT cycle failed"))
	assert.Len(t, openLegs(t, store), 1)
}

func TestRunnerStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	r := NewRunner(func(string) (*Trader, error) {
		calls++
		return nil, errors.New("unreachable")
	}, nil, discard)

	err := r.Run(ctx, []string{"BTC", "ETH"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestRunOneReturnsResult(t *testing.T) {
	store := newStore(t)
	ex := &fakeExchange{candles: flats(30), balance: broker.Balance{Free: 100, Total: 100}}
	r := NewRunner(func(string) (*Trader, error) { return newTrader(ex, store, &recorder{}), nil }, nil, discard)

	res, err := r.RunOne(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, btc, res.Market)

	unlock := r.lock(btc)
	unlock()
}

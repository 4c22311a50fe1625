package indicators

import (
	"errors"
	"testing"
	"time"

	"github.com/rudirid/ares-master-control-program-sub000/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestBars() []market.Bar {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := []struct{ o, h, l, c float64 }{
		{100, 105, 99, 102},
		{102, 107, 101, 105},
		{105, 108, 104, 106},
		{106, 110, 105, 108},
		{108, 112, 107, 110},
		{110, 113, 109, 111},
		{111, 115, 110, 113},
		{113, 116, 112, 114},
		{114, 118, 113, 116},
		{116, 120, 115, 118},
	}
	bars := make([]market.Bar, len(raw))
	for i, r := range raw {
		bars[i] = market.Bar{Date: t0.AddDate(0, 0, i), Open: r.o, High: r.h, Low: r.l, Close: r.c}
	}
	return bars
}

func TestSMA(t *testing.T) {
	closes := Closes(createTestBars())

	ma, err := SMA(closes, 5)
	assert.NoError(t, err)
	// Last 5 closes: 111,113,114,116,118 => 572/5 = 114.4
	assert.InDelta(t, 114.4, ma, 0.001)

	_, err = SMA(closes, 20)
	assert.True(t, errors.Is(err, ErrNotEnoughData))
}

func TestEMA(t *testing.T) {
	closes := Closes(createTestBars())

	ema, err := EMA(closes, 5)
	assert.NoError(t, err)
	assert.Greater(t, ema, 0.0)

	// a constant series has an EMA equal to the constant
	flat := []float64{5, 5, 5, 5, 5, 5}
	ema, err = EMA(flat, 3)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, ema, 1e-12)
}

func TestTrueRange(t *testing.T) {
	current := market.Bar{High: 110, Low: 100, Close: 105}
	assert.Equal(t, 10.0, TrueRange(current, 104))

	// gap up: distance to previous close dominates
	assert.Equal(t, 20.0, TrueRange(current, 90))
}

func TestATRMeanOfLastN(t *testing.T) {
	bars := []market.Bar{
		{High: 10, Low: 8, Close: 9},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 13, Low: 11, Close: 12},
	}
	// last three true ranges are all 2
	assert.InDelta(t, 2.0, ATR(bars, 3), 1e-12)
}

func TestATRInsufficientHistoryIsZero(t *testing.T) {
	bars := createTestBars()
	assert.Equal(t, 0.0, ATR(bars, 14))
	assert.Equal(t, 0.0, ATR(bars, 0))
	assert.Greater(t, ATR(bars, len(bars)), 0.0)
}

func TestRSI(t *testing.T) {
	closes := Closes(createTestBars())

	rsi, err := RSI(closes, 5)
	require.NoError(t, err)
	// monotonically rising closes have no losses
	assert.Equal(t, 100.0, rsi)

	mixed := []float64{10, 11, 10, 11, 10, 11}
	rsi, err = RSI(mixed, 4)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, rsi, 1e-9)

	_, err = RSI(mixed, 10)
	assert.Error(t, err)
}

func TestMACD(t *testing.T) {
	rising := make([]float64, 60)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	m, err := MACD(rising, 12, 26, 9)
	require.NoError(t, err)
	assert.Greater(t, m.MACD, 0.0)
	assert.InDelta(t, m.MACD-m.Signal, m.Histogram, 1e-12)

	falling := make([]float64, 60)
	for i := range falling {
		falling[i] = 200 - float64(i)*float64(i)*0.02
	}
	m, err = MACD(falling, 12, 26, 9)
	require.NoError(t, err)
	assert.False(t, m.Bullish())

	_, err = MACD(rising[:20], 12, 26, 9)
	assert.True(t, errors.Is(err, ErrNotEnoughData))

	_, err = MACD(rising, 26, 12, 9)
	assert.Error(t, err)
}

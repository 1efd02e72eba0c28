package pricer

import (
	"context"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/LewisWJackson/RedDayDCAAlerter/internal/domain"
)

const dailyInterval = "1d"

// BinancePriceSource fetches prices from the Binance public API.
// No API keys are required for ticker and kline endpoints.
type BinancePriceSource struct {
	client *binance.Client
	pair   domain.Pair
}

// NewBinancePriceSource creates a Binance-backed price source for the pair.
func NewBinancePriceSource(client *binance.Client, pair domain.Pair) *BinancePriceSource {
	return &BinancePriceSource{client: client, pair: pair}
}

// CurrentPrice returns the live ticker price.
func (p *BinancePriceSource) CurrentPrice(ctx context.Context) (decimal.Decimal, error) {
	prices, err := p.client.NewListPricesService().Symbol(p.pair.Symbol()).Do(ctx)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrTransientFetch, "ticker price for %s: %v", p.pair.String(), err)
	}
	if len(prices) == 0 {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrTransientFetch, "binance returned empty prices for %s", p.pair.String())
	}

	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrInvalidInput, "parse ticker price %q: %v", prices[0].Price, err)
	}
	return price, nil
}

// DailyClose returns the close of the completed daily candle daysAgo days
// back and its UTC date. The kline response always ends with the currently
// open candle, so daysAgo=1 maps to the candle right before it.
func (p *BinancePriceSource) DailyClose(ctx context.Context, daysAgo int) (decimal.Decimal, string, error) {
	if daysAgo < 1 {
		return decimal.Decimal{}, "", errors.Wrapf(domain.ErrInvalidInput, "daysAgo must be >= 1, got %d", daysAgo)
	}

	klines, err := p.client.NewKlinesService().
		Symbol(p.pair.Symbol()).
		Interval(dailyInterval).
		Limit(daysAgo + 1).
		Do(ctx)
	if err != nil {
		return decimal.Decimal{}, "", errors.Wrap(domain.ErrTransientFetch, fmt.Sprintf("daily klines for %s: %v", p.pair.String(), err))
	}
	if len(klines) < daysAgo+1 {
		return decimal.Decimal{}, "", errors.Wrapf(domain.ErrTransientFetch, "binance returned %d daily candles, need %d", len(klines), daysAgo+1)
	}

	candle := klines[len(klines)-(daysAgo+1)]
	close, err := decimal.NewFromString(candle.Close)
	if err != nil {
		return decimal.Decimal{}, "", errors.Wrapf(domain.ErrInvalidInput, "parse daily close %q: %v", candle.Close, err)
	}

	date := time.UnixMilli(candle.OpenTime).UTC().Format(domain.DateLayout)
	return close, date, nil
}

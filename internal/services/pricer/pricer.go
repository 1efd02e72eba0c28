// Package pricer provides market price access for the monitored pair.
package pricer

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceSource supplies current and historical prices. Implementations may
// fail transiently; callers retry on the next scheduled tick.
type PriceSource interface {
	// CurrentPrice returns the live ticker price.
	CurrentPrice(ctx context.Context) (decimal.Decimal, error)
	// DailyClose returns the close of the completed daily candle daysAgo
	// days back together with its UTC date (domain.DateLayout). daysAgo=1
	// is the most recently completed day.
	DailyClose(ctx context.Context, daysAgo int) (decimal.Decimal, string, error)
}

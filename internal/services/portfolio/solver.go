package portfolio

import (
	"math"

	"github.com/shopspring/decimal"

	"SignalDesk/internal/domain/models"
)

// floorDiv returns floor(num/den) as an int, 0 for a non-positive denominator.
// Division is exact so the result never depends on float rounding.
func floorDiv(num, den float64) int {
	if den <= 0 {
		return 0
	}
	return shares(decimal.NewFromFloat(num).Div(decimal.NewFromFloat(den)))
}

var (
	shareCeil  = decimal.NewFromInt(math.MaxInt)
	shareFloor = decimal.NewFromInt(math.MinInt)
)

// shares floors q to an int, saturating instead of wrapping when q is out of range.
func shares(q decimal.Decimal) int {
	q = q.Floor()
	switch {
	case q.GreaterThan(shareCeil):
		return math.MaxInt
	case q.LessThan(shareFloor):
		return math.MinInt
	}
	return int(q.IntPart())
}

// MaxSharesFromLimit converts a dollar position limit into whole shares.
func MaxSharesFromLimit(limit, price float64) int {
	if price <= 0 {
		return 0
	}
	return max(0, floorDiv(limit, price))
}

// ComputeAllowedActions derives, per ticker, the feasible actions and their maximum
// quantities from the portfolio snapshot, prices and risk limited share counts.
// Hold is always present with 0; other actions without capacity are omitted.
func ComputeAllowedActions(tickers []string, prices map[string]float64, maxShares map[string]int, snap models.PortfolioSnapshot) map[string]models.AllowedActionSet {
	cash := snap.Cash
	margin := snap.Margin()
	equity := snap.EffectiveEquity()

	allowed := make(map[string]models.AllowedActionSet, len(tickers))
	for _, ticker := range tickers {
		price := prices[ticker]
		pos := snap.Position(ticker)
		maxQty := maxShares[ticker]

		actions := models.AllowedActionSet{models.ActionHold: 0}
		if pos.Long > 0 {
			actions[models.ActionSell] = pos.Long
		}
		if cash > 0 && price > 0 {
			if buy := max(0, min(maxQty, floorDiv(cash, price))); buy > 0 {
				actions[models.ActionBuy] = buy
			}
		}

		if pos.Short > 0 {
			actions[models.ActionCover] = pos.Short
		}
		if price > 0 && maxQty > 0 {
			short := maxQty
			if margin > 0 {
				headroom := decimal.NewFromFloat(equity).
					Div(decimal.NewFromFloat(margin)).
					Sub(decimal.NewFromFloat(snap.MarginUsed))
				if headroom.IsNegative() {
					headroom = decimal.Zero
				}
				byMargin := shares(headroom.Div(decimal.NewFromFloat(price)))
				short = max(0, min(maxQty, byMargin))
			}
			if short > 0 {
				actions[models.ActionShort] = short
			}
		}
		allowed[ticker] = actions
	}
	return allowed
}

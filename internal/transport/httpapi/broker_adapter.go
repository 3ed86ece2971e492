package httpapi

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cryptobroker/internal/domain"
	"cryptobroker/internal/usecase/broker"
)

// BrokerAdapter — тонкий адаптер: маппит httpapi-типы на вызовы агрегатора.
type BrokerAdapter struct {
	Broker *broker.Broker
}

var _ BrokerFacade = (*BrokerAdapter)(nil)

func (a *BrokerAdapter) Estimates(ctx context.Context, symbol string, size float64, action domain.Action) (EstimatesResponse, error) {
	if a == nil || a.Broker == nil {
		return EstimatesResponse{}, fmt.Errorf("broker is not initialized")
	}

	var (
		ests []broker.VenueEstimate
		err  error
	)
	if action == domain.Sell {
		ests, err = a.Broker.EstimateAllMarketSellPrices(ctx, symbol, size)
	} else {
		ests, err = a.Broker.EstimateAllMarketBuyPrices(ctx, symbol, size)
	}
	if err != nil {
		return EstimatesResponse{}, err
	}

	resp := EstimatesResponse{
		Symbol:      symbol,
		Action:      string(action),
		Size:        size,
		GeneratedAt: time.Now().Format(time.RFC3339),
	}
	for _, e := range ests {
		entry := EstimateEntry{Exchange: e.Exchange, Price: e.Price}
		if e.Err != nil {
			entry.Price = 0
			entry.Error = e.Err.Error()
		}
		resp.Estimates = append(resp.Estimates, entry)
	}
	return resp, nil
}

func (a *BrokerAdapter) Best(ctx context.Context, symbol string, size float64, action domain.Action) (BestResponse, error) {
	if a == nil || a.Broker == nil {
		return BestResponse{}, fmt.Errorf("broker is not initialized")
	}

	var (
		price float64
		ex    domain.Exchange
		err   error
	)
	if action == domain.Sell {
		price, ex, err = a.Broker.HighestMarketSellPrice(ctx, symbol, size)
	} else {
		price, ex, err = a.Broker.LowestMarketBuyPrice(ctx, symbol, size)
	}
	if err != nil {
		return BestResponse{}, err
	}

	return BestResponse{
		Symbol:      symbol,
		Action:      string(action),
		Size:        size,
		Exchange:    ex.Name(),
		Price:       price,
		GeneratedAt: time.Now().Format(time.RFC3339),
	}, nil
}

func (a *BrokerAdapter) Execute(ctx context.Context, symbol string, size float64, action domain.Action) (OrderResponse, error) {
	if a == nil || a.Broker == nil {
		return OrderResponse{}, fmt.Errorf("broker is not initialized")
	}

	var (
		order *domain.MarketOrder
		err   error
	)
	if action == domain.Sell {
		order, err = a.Broker.ExecuteMarketSellForHighestPrice(ctx, symbol, size)
	} else {
		order, err = a.Broker.ExecuteMarketBuyForLowestPrice(ctx, symbol, size)
	}
	if err != nil {
		return OrderResponse{}, err
	}

	resp := OrderResponse{
		ID:           order.ID,
		Exchange:     order.Exchange,
		Symbol:       order.Symbol,
		Action:       string(order.Action),
		Status:       order.Status,
		Quantity:     order.Quantity,
		Filled:       order.Filled,
		AveragePrice: order.AverageFillPrice(),
	}
	for _, f := range order.Fills {
		resp.Fills = append(resp.Fills, FillEntry{Price: f.Price, Qty: f.Qty})
	}
	return resp, nil
}

// Rate — медиана mid-цен по биржам, где пара торгуется. Отказавшие биржи
// просто выбывают, глубины 5 достаточно для верха стакана.
func (a *BrokerAdapter) Rate(ctx context.Context, symbol string) (RateResponse, error) {
	if a == nil || a.Broker == nil {
		return RateResponse{}, fmt.Errorf("broker is not initialized")
	}

	books, err := a.Broker.FetchAllOrderBooks(ctx, symbol, 5)
	if err != nil {
		return RateResponse{}, err
	}

	var mids []float64
	var exs []string
	for _, vb := range books {
		if vb.Err != nil || vb.Book == nil {
			continue
		}
		var bestAsk, bestBid float64
		if len(vb.Book.Asks) > 0 {
			bestAsk = vb.Book.Asks[0].Price
		}
		if len(vb.Book.Bids) > 0 {
			bestBid = vb.Book.Bids[0].Price
		}
		switch {
		case bestAsk > 0 && bestBid > 0:
			mids = append(mids, (bestAsk+bestBid)/2)
			exs = append(exs, vb.Exchange)
		case bestAsk > 0:
			mids = append(mids, bestAsk)
			exs = append(exs, vb.Exchange)
		case bestBid > 0:
			mids = append(mids, bestBid)
			exs = append(exs, vb.Exchange)
		}
	}
	if len(mids) == 0 {
		return RateResponse{}, fmt.Errorf("%w: нет верха стакана для %q ни на одной бирже", domain.ErrPairNotFound, symbol)
	}

	sort.Float64s(mids)
	n := len(mids)
	median := mids[n/2]
	if n%2 == 0 {
		median = (mids[n/2-1] + mids[n/2]) / 2
	}

	return RateResponse{Symbol: symbol, Mid: median, Exchanges: exs}, nil
}

package httpapi

import (
	"context"
	"errors"
	"testing"

	"cryptobroker/internal/domain"
	"cryptobroker/internal/usecase/broker"
)

// ====== Фальшивая биржа для тестов адаптера ======

type stubExchange struct {
	name  string
	book  *domain.OrderBook
	err   error
	order *domain.MarketOrder
}

var _ domain.Exchange = (*stubExchange)(nil)

func (s *stubExchange) Name() string                { return s.name }
func (s *stubExchange) Pairs() []domain.TradingPair { return nil }

func (s *stubExchange) ResolvePair(symbol string) (domain.TradingPair, error) {
	return domain.TradingPair{Symbol: symbol}, nil
}

func (s *stubExchange) OrderBook(_ context.Context, _ string, _ int) (*domain.OrderBook, error) {
	return s.book, s.err
}

func (s *stubExchange) ExecuteMarketOrder(_ context.Context, _ string, _ float64, _ domain.Action) (*domain.MarketOrder, error) {
	if s.order == nil {
		return nil, errors.New("исполнение не настроено")
	}
	return s.order, nil
}

func newAdapter(exs ...domain.Exchange) *BrokerAdapter {
	br := broker.New()
	for _, ex := range exs {
		br.AddExchange(ex)
	}
	return &BrokerAdapter{Broker: br}
}

func TestAdapterEstimates(t *testing.T) {
	a := &stubExchange{name: "A", book: &domain.OrderBook{Asks: []domain.Level{{Price: 0.5481, Qty: 10000}}}}
	b := &stubExchange{name: "B", err: errors.New("B недоступна")}

	resp, err := newAdapter(a, b).Estimates(context.Background(), "ADAUSDT", 100, domain.Buy)
	if err != nil {
		t.Fatalf("estimates: %v", err)
	}
	if len(resp.Estimates) != 2 {
		t.Fatalf("resp=%+v", resp)
	}
	if resp.Estimates[0].Exchange != "A" || resp.Estimates[0].Price != 0.5481 || resp.Estimates[0].Error != "" {
		t.Fatalf("estimates[0]=%+v", resp.Estimates[0])
	}
	if resp.Estimates[1].Exchange != "B" || resp.Estimates[1].Error == "" || resp.Estimates[1].Price != 0 {
		t.Fatalf("estimates[1]=%+v", resp.Estimates[1])
	}
	if resp.Symbol != "ADAUSDT" || resp.Action != "BUY" || resp.GeneratedAt == "" {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestAdapterBest(t *testing.T) {
	a := &stubExchange{name: "A", book: &domain.OrderBook{Asks: []domain.Level{{Price: 0.5481, Qty: 10000}}}}
	b := &stubExchange{name: "B", book: &domain.OrderBook{Asks: []domain.Level{{Price: 0.55, Qty: 10000}}}}

	resp, err := newAdapter(a, b).Best(context.Background(), "ADAUSDT", 100, domain.Buy)
	if err != nil {
		t.Fatalf("best: %v", err)
	}
	if resp.Exchange != "A" || resp.Price != 0.5481 {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestAdapterExecute(t *testing.T) {
	a := &stubExchange{
		name: "A",
		book: &domain.OrderBook{Asks: []domain.Level{{Price: 0.5481, Qty: 10000}}},
		order: &domain.MarketOrder{
			ID: "28", Symbol: "ADAUSDT", Action: domain.Buy, Status: "FILLED",
			Fills: []domain.Fill{{Price: 0.5481, Qty: 100}}, Quantity: 100, Filled: 100,
			Exchange: "A",
		},
	}

	resp, err := newAdapter(a).Execute(context.Background(), "ADAUSDT", 100, domain.Buy)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if resp.ID != "28" || resp.AveragePrice != 0.5481 || len(resp.Fills) != 1 {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestAdapterRateMedian(t *testing.T) {
	a := &stubExchange{name: "A", book: &domain.OrderBook{
		Asks: []domain.Level{{Price: 100, Qty: 1}}, Bids: []domain.Level{{Price: 98, Qty: 1}},
	}}
	b := &stubExchange{name: "B", book: &domain.OrderBook{
		Asks: []domain.Level{{Price: 102, Qty: 1}}, Bids: []domain.Level{{Price: 100, Qty: 1}},
	}}
	// только аск: mid берётся по нему
	c := &stubExchange{name: "C", book: &domain.OrderBook{
		Asks: []domain.Level{{Price: 105, Qty: 1}},
	}}

	resp, err := newAdapter(a, b, c).Rate(context.Background(), "BTCUSD")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	// mid-цены [99 101 105], медиана 101
	if resp.Mid != 101 || len(resp.Exchanges) != 3 {
		t.Fatalf("resp=%+v", resp)
	}

	// чётное число бирж: медиана - среднее двух центральных
	resp, err = newAdapter(a, b).Rate(context.Background(), "BTCUSD")
	if err != nil || resp.Mid != 100 {
		t.Fatalf("resp=%+v err=%v", resp, err)
	}
}

func TestAdapterRateNoBooks(t *testing.T) {
	a := &stubExchange{name: "A", err: errors.New("A недоступна")}

	_, err := newAdapter(a).Rate(context.Background(), "BTCUSD")
	if !errors.Is(err, domain.ErrPairNotFound) {
		t.Fatalf("ожидали ErrPairNotFound, получили %v", err)
	}
}

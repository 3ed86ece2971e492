package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"cryptobroker/internal/domain"
)

// ====== Фальшивая биржа для тестов агрегатора ======

type fakeExchange struct {
	name    string
	book    *domain.OrderBook
	bookErr error
	delay   time.Duration

	order     *domain.MarketOrder
	execErr   error
	execCalls int
	lastDepth int
	lastSize  float64
	lastSide  domain.Action
}

var _ domain.Exchange = (*fakeExchange)(nil)

func (f *fakeExchange) Name() string                  { return f.name }
func (f *fakeExchange) Pairs() []domain.TradingPair   { return nil }
func (f *fakeExchange) ResolvePair(symbol string) (domain.TradingPair, error) {
	return domain.TradingPair{Symbol: symbol}, nil
}

func (f *fakeExchange) OrderBook(_ context.Context, symbol string, depth int) (*domain.OrderBook, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.lastDepth = depth
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	return f.book, nil
}

func (f *fakeExchange) ExecuteMarketOrder(_ context.Context, symbol string, size float64, action domain.Action) (*domain.MarketOrder, error) {
	f.execCalls++
	f.lastSize = size
	f.lastSide = action
	if f.execErr != nil {
		return nil, f.execErr
	}
	return f.order, nil
}

func book(asks, bids []domain.Level) *domain.OrderBook {
	return &domain.OrderBook{Symbol: "ADAUSDT", Asks: asks, Bids: bids}
}

func TestLowestMarketBuyPricePicksCheapest(t *testing.T) {
	a := &fakeExchange{name: "A", book: book([]domain.Level{{Price: 0.5481, Qty: 822}, {Price: 0.5482, Qty: 876}}, nil)}
	b := &fakeExchange{name: "B", book: book([]domain.Level{{Price: 0.55, Qty: 10000}}, nil)}

	br := New()
	br.AddExchange(a)
	br.AddExchange(b)

	price, ex, err := br.LowestMarketBuyPrice(context.Background(), "ADAUSDT", 100)
	if err != nil {
		t.Fatalf("lowest: %v", err)
	}
	if price != 0.5481 || ex.Name() != "A" {
		t.Fatalf("(%v, %s) want=(0.5481, A)", price, ex.Name())
	}
}

func TestLowestMarketBuyPriceEmptyBroker(t *testing.T) {
	_, _, err := New().LowestMarketBuyPrice(context.Background(), "ADAUSDT", 100)
	if !errors.Is(err, domain.ErrNoExchanges) {
		t.Fatalf("ожидали ErrNoExchanges, получили %v", err)
	}
	if _, err := New().FetchAllOrderBooks(context.Background(), "ADAUSDT", 5); !errors.Is(err, domain.ErrNoExchanges) {
		t.Fatalf("ожидали ErrNoExchanges, получили %v", err)
	}
}

func TestLowestMarketBuyPriceFailFast(t *testing.T) {
	errA := errors.New("A недоступна")
	errB := errors.New("B недоступна")
	// первая по регистрации отвечает последней: выбор ошибки не должен
	// зависеть от порядка завершения
	a := &fakeExchange{name: "A", bookErr: errA, delay: 10 * time.Millisecond}
	b := &fakeExchange{name: "B", bookErr: errB}
	c := &fakeExchange{name: "C", book: book([]domain.Level{{Price: 0.55, Qty: 10000}}, nil)}

	br := New()
	br.AddExchange(a)
	br.AddExchange(b)
	br.AddExchange(c)

	_, _, err := br.LowestMarketBuyPrice(context.Background(), "ADAUSDT", 100)
	if !errors.Is(err, errA) {
		t.Fatalf("ожидали первую по регистрации ошибку, получили %v", err)
	}
}

func TestLowestMarketBuyPriceBestEffort(t *testing.T) {
	a := &fakeExchange{name: "A", bookErr: errors.New("A недоступна")}
	b := &fakeExchange{name: "B", book: book([]domain.Level{{Price: 0.55, Qty: 10000}}, nil)}

	br := New(WithBestEffort())
	br.AddExchange(a)
	br.AddExchange(b)

	price, ex, err := br.LowestMarketBuyPrice(context.Background(), "ADAUSDT", 100)
	if err != nil {
		t.Fatalf("best-effort не перетерпел отказ: %v", err)
	}
	if price != 0.55 || ex.Name() != "B" {
		t.Fatalf("(%v, %s) want=(0.55, B)", price, ex.Name())
	}
}

func TestLowestMarketBuyPriceBestEffortAllFail(t *testing.T) {
	errA := errors.New("A недоступна")
	a := &fakeExchange{name: "A", bookErr: errA}
	b := &fakeExchange{name: "B", bookErr: errors.New("B недоступна")}

	br := New(WithBestEffort())
	br.AddExchange(a)
	br.AddExchange(b)

	_, _, err := br.LowestMarketBuyPrice(context.Background(), "ADAUSDT", 100)
	if !errors.Is(err, errA) {
		t.Fatalf("ожидали первую ошибку, получили %v", err)
	}
}

func TestLowestMarketBuyPriceTieBreak(t *testing.T) {
	levels := []domain.Level{{Price: 0.5481, Qty: 10000}}
	a := &fakeExchange{name: "A", book: book(levels, nil)}
	b := &fakeExchange{name: "B", book: book(levels, nil)}

	br := New()
	br.AddExchange(a)
	br.AddExchange(b)
	if _, ex, err := br.LowestMarketBuyPrice(context.Background(), "ADAUSDT", 100); err != nil || ex.Name() != "A" {
		t.Fatalf("ничья не ушла первой по регистрации: %v, %v", ex, err)
	}

	// обратный порядок регистрации меняет победителя
	br = New()
	br.AddExchange(b)
	br.AddExchange(a)
	if _, ex, err := br.LowestMarketBuyPrice(context.Background(), "ADAUSDT", 100); err != nil || ex.Name() != "B" {
		t.Fatalf("ничья не ушла первой по регистрации: %v, %v", ex, err)
	}
}

func TestLowestMarketBuyPriceInsufficientLiquidity(t *testing.T) {
	a := &fakeExchange{name: "A", book: book([]domain.Level{{Price: 0.5481, Qty: 5}}, nil)}

	br := New()
	br.AddExchange(a)

	_, _, err := br.LowestMarketBuyPrice(context.Background(), "ADAUSDT", 100)
	if !errors.Is(err, domain.ErrInsufficientLiquidity) {
		t.Fatalf("ожидали ErrInsufficientLiquidity, получили %v", err)
	}
}

func TestFanOutRunsConcurrently(t *testing.T) {
	levels := []domain.Level{{Price: 0.5481, Qty: 10000}}
	a := &fakeExchange{name: "A", book: book(levels, nil), delay: 50 * time.Millisecond}
	b := &fakeExchange{name: "B", book: book(levels, nil), delay: 50 * time.Millisecond}

	br := New()
	br.AddExchange(a)
	br.AddExchange(b)

	start := time.Now()
	if _, _, err := br.LowestMarketBuyPrice(context.Background(), "ADAUSDT", 100); err != nil {
		t.Fatalf("lowest: %v", err)
	}
	// последовательный опрос занял бы не меньше 100мс
	if elapsed := time.Since(start); elapsed > 95*time.Millisecond {
		t.Fatalf("опрос не параллельный: %v", elapsed)
	}
}

func TestEstimateAllMarketBuyPrices(t *testing.T) {
	a := &fakeExchange{name: "A", book: book([]domain.Level{{Price: 0.5481, Qty: 10000}}, nil)}
	b := &fakeExchange{name: "B", bookErr: errors.New("B недоступна")}

	br := New()
	br.AddExchange(a)
	br.AddExchange(b)

	ests, err := br.EstimateAllMarketBuyPrices(context.Background(), "ADAUSDT", 100)
	if err != nil {
		t.Fatalf("estimates: %v", err)
	}
	if len(ests) != 2 {
		t.Fatalf("ests=%d want=2", len(ests))
	}
	if ests[0].Exchange != "A" || ests[0].Price != 0.5481 || ests[0].Err != nil {
		t.Fatalf("ests[0]=%+v", ests[0])
	}
	// отказавшая биржа остаётся в списке со своей ошибкой
	if ests[1].Exchange != "B" || ests[1].Err == nil {
		t.Fatalf("ests[1]=%+v", ests[1])
	}
}

func TestFetchAllOrderBooks(t *testing.T) {
	a := &fakeExchange{name: "A", book: book([]domain.Level{{Price: 0.5481, Qty: 822}}, nil)}
	b := &fakeExchange{name: "B", bookErr: errors.New("B недоступна")}

	br := New()
	br.AddExchange(a)
	br.AddExchange(b)

	books, err := br.FetchAllOrderBooks(context.Background(), "ADAUSDT", 5)
	if err != nil {
		t.Fatalf("books: %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("books=%d want=2", len(books))
	}
	if books[0].Exchange != "A" || books[0].Book == nil || books[0].Err != nil {
		t.Fatalf("books[0]=%+v", books[0])
	}
	if books[1].Exchange != "B" || books[1].Err == nil {
		t.Fatalf("books[1]=%+v", books[1])
	}
	if a.lastDepth != 5 {
		t.Fatalf("depth=%d want=5", a.lastDepth)
	}
}

func TestEstimatePassesDepth(t *testing.T) {
	a := &fakeExchange{name: "A", book: book([]domain.Level{{Price: 0.5481, Qty: 10000}}, nil)}

	br := New(WithDepth(42))
	if _, err := br.EstimateMarketBuyPrice(context.Background(), a, "ADAUSDT", 100); err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if a.lastDepth != 42 {
		t.Fatalf("depth=%d want=42", a.lastDepth)
	}
}

func TestExecuteMarketBuyForLowestPrice(t *testing.T) {
	a := &fakeExchange{
		name: "A",
		book: book([]domain.Level{{Price: 0.5481, Qty: 10000}}, nil),
		order: &domain.MarketOrder{
			ID: "28", Symbol: "ADAUSDT", Action: domain.Buy, Status: "FILLED",
			Fills: []domain.Fill{{Price: 0.5481, Qty: 100}}, Quantity: 100, Filled: 100,
		},
	}
	b := &fakeExchange{name: "B", book: book([]domain.Level{{Price: 0.55, Qty: 10000}}, nil)}

	br := New()
	br.AddExchange(a)
	br.AddExchange(b)

	order, err := br.ExecuteMarketBuyForLowestPrice(context.Background(), "ADAUSDT", 100)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if order.ID != "28" {
		t.Fatalf("order=%+v", order)
	}
	// заявка ушла на победителя и только на него
	if a.execCalls != 1 || b.execCalls != 0 {
		t.Fatalf("вызовы исполнения: A=%d B=%d", a.execCalls, b.execCalls)
	}
	if a.lastSize != 100 || a.lastSide != domain.Buy {
		t.Fatalf("параметры заявки: size=%v side=%s", a.lastSize, a.lastSide)
	}
}

func TestExecuteMarketBuyPropagatesSelectionError(t *testing.T) {
	a := &fakeExchange{name: "A", bookErr: errors.New("A недоступна")}

	br := New()
	br.AddExchange(a)

	_, err := br.ExecuteMarketBuyForLowestPrice(context.Background(), "ADAUSDT", 100)
	if err == nil || a.execCalls != 0 {
		t.Fatalf("заявка не должна уходить при ошибке оценки: %v, вызовов %d", err, a.execCalls)
	}
}

func TestHighestMarketSellPrice(t *testing.T) {
	a := &fakeExchange{name: "A", book: book(nil, []domain.Level{{Price: 0.54, Qty: 10000}})}
	b := &fakeExchange{name: "B", book: book(nil, []domain.Level{{Price: 0.55, Qty: 10000}})}

	br := New()
	br.AddExchange(a)
	br.AddExchange(b)

	price, ex, err := br.HighestMarketSellPrice(context.Background(), "ADAUSDT", 100)
	if err != nil {
		t.Fatalf("highest: %v", err)
	}
	if price != 0.55 || ex.Name() != "B" {
		t.Fatalf("(%v, %s) want=(0.55, B)", price, ex.Name())
	}
}

func TestExecuteMarketSellForHighestPrice(t *testing.T) {
	a := &fakeExchange{
		name: "A",
		book: book(nil, []domain.Level{{Price: 0.55, Qty: 10000}}),
		order: &domain.MarketOrder{
			ID: "7", Symbol: "ADAUSDT", Action: domain.Sell, Status: "FILLED",
			Fills: []domain.Fill{{Price: 0.55, Qty: 100}}, Quantity: 100, Filled: 100,
		},
	}

	br := New()
	br.AddExchange(a)

	order, err := br.ExecuteMarketSellForHighestPrice(context.Background(), "ADAUSDT", 100)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if order.ID != "7" || a.lastSide != domain.Sell {
		t.Fatalf("order=%+v side=%s", order, a.lastSide)
	}
}

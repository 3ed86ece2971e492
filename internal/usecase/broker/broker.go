package broker

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"cryptobroker/internal/domain"
	"cryptobroker/internal/usecase/orderbook"
)

// Брокер-агрегатор: параллельно опрашивает зарегистрированные биржи,
// сравнивает средние цены исполнения и выбирает лучшую площадку.
type Broker struct {
	exchanges  []domain.Exchange
	depth      int
	bestEffort bool
	log        *logrus.Entry
}

type Option func(*Broker)

// WithBestEffort — терпеть отказ части бирж: сравнение идёт по ответившим,
// ошибка возвращается только когда не ответил никто.
func WithBestEffort() Option { return func(b *Broker) { b.bestEffort = true } }

// WithDepth задаёт глубину запрашиваемых стаканов (0 — глубина по умолчанию
// конкретной биржи).
func WithDepth(depth int) Option { return func(b *Broker) { b.depth = depth } }

func WithLogger(log *logrus.Entry) Option { return func(b *Broker) { b.log = log } }

func New(opts ...Option) *Broker {
	b := &Broker{log: logrus.WithField("component", "broker")}
	for _, o := range opts {
		o(b)
	}
	return b
}

// AddExchange дописывает биржу в конец списка. Порядок регистрации — это и
// порядок разрешения ничьих, и порядок выбора первой ошибки. Дубликаты имён
// не отсеиваются, это забота вызывающего.
func (b *Broker) AddExchange(ex domain.Exchange) {
	b.exchanges = append(b.exchanges, ex)
}

func (b *Broker) Exchanges() []domain.Exchange { return b.exchanges }

// EstimateMarketBuyPrice — средняя цена рыночной покупки объёма size на одной
// бирже: берём стакан и съедаем асков на весь объём.
func (b *Broker) EstimateMarketBuyPrice(ctx context.Context, ex domain.Exchange, symbol string, size float64) (float64, error) {
	ob, err := ex.OrderBook(ctx, symbol, b.depth)
	if err != nil {
		return 0, err
	}
	_, price, err := orderbook.WalkAsks(ob.Asks, size)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ex.Name(), err)
	}
	return price, nil
}

// EstimateMarketSellPrice — зеркало для продажи: съедаем биды.
func (b *Broker) EstimateMarketSellPrice(ctx context.Context, ex domain.Exchange, symbol string, size float64) (float64, error) {
	ob, err := ex.OrderBook(ctx, symbol, b.depth)
	if err != nil {
		return 0, err
	}
	_, price, err := orderbook.WalkBids(ob.Bids, size)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ex.Name(), err)
	}
	return price, nil
}

// LowestMarketBuyPrice — параллельный опрос всех бирж и выбор минимальной
// средней цены покупки. Ничья уходит бирже, зарегистрированной раньше.
func (b *Broker) LowestMarketBuyPrice(ctx context.Context, symbol string, size float64) (float64, domain.Exchange, error) {
	prices, errs, err := b.fanOut(ctx, func(ctx context.Context, ex domain.Exchange) (float64, error) {
		return b.EstimateMarketBuyPrice(ctx, ex, symbol, size)
	})
	if err != nil {
		return 0, nil, err
	}
	return b.pick(prices, errs, func(p, best float64) bool { return p < best })
}

// HighestMarketSellPrice — зеркало: максимальная средняя цена продажи.
func (b *Broker) HighestMarketSellPrice(ctx context.Context, symbol string, size float64) (float64, domain.Exchange, error) {
	prices, errs, err := b.fanOut(ctx, func(ctx context.Context, ex domain.Exchange) (float64, error) {
		return b.EstimateMarketSellPrice(ctx, ex, symbol, size)
	})
	if err != nil {
		return 0, nil, err
	}
	return b.pick(prices, errs, func(p, best float64) bool { return p > best })
}

// VenueEstimate — результат одной биржи в общем опросе: либо цена, либо
// ошибка этой площадки.
type VenueEstimate struct {
	Exchange string
	Price    float64
	Err      error
}

// EstimateAllMarketBuyPrices — оценки всех бирж разом, в порядке регистрации.
// Ошибка отдельной площадки не прерывает опрос, она остаётся в её слоте.
func (b *Broker) EstimateAllMarketBuyPrices(ctx context.Context, symbol string, size float64) ([]VenueEstimate, error) {
	prices, errs, err := b.fanOut(ctx, func(ctx context.Context, ex domain.Exchange) (float64, error) {
		return b.EstimateMarketBuyPrice(ctx, ex, symbol, size)
	})
	if err != nil {
		return nil, err
	}
	return b.collect(prices, errs), nil
}

// EstimateAllMarketSellPrices — зеркало для продажи.
func (b *Broker) EstimateAllMarketSellPrices(ctx context.Context, symbol string, size float64) ([]VenueEstimate, error) {
	prices, errs, err := b.fanOut(ctx, func(ctx context.Context, ex domain.Exchange) (float64, error) {
		return b.EstimateMarketSellPrice(ctx, ex, symbol, size)
	})
	if err != nil {
		return nil, err
	}
	return b.collect(prices, errs), nil
}

func (b *Broker) collect(prices []float64, errs []error) []VenueEstimate {
	out := make([]VenueEstimate, len(b.exchanges))
	for i, ex := range b.exchanges {
		out[i] = VenueEstimate{Exchange: ex.Name(), Price: prices[i], Err: errs[i]}
	}
	return out
}

// VenueBook — стакан одной биржи в общем опросе.
type VenueBook struct {
	Exchange string
	Book     *domain.OrderBook
	Err      error
}

// FetchAllOrderBooks — стаканы всех бирж разом, в порядке регистрации.
// Ошибка отдельной площадки остаётся в её слоте.
func (b *Broker) FetchAllOrderBooks(ctx context.Context, symbol string, depth int) ([]VenueBook, error) {
	if len(b.exchanges) == 0 {
		return nil, domain.ErrNoExchanges
	}

	type slot struct {
		i    int
		book *domain.OrderBook
		err  error
	}
	ch := make(chan slot, len(b.exchanges))
	for i, ex := range b.exchanges {
		go func(i int, ex domain.Exchange) {
			ob, err := ex.OrderBook(ctx, symbol, depth)
			ch <- slot{i, ob, err}
		}(i, ex)
	}

	out := make([]VenueBook, len(b.exchanges))
	for range b.exchanges {
		s := <-ch
		out[s.i] = VenueBook{Exchange: b.exchanges[s.i].Name(), Book: s.book, Err: s.err}
	}
	return out, nil
}

// ExecuteMarketBuyForLowestPrice — выбор самой дешёвой биржи и рыночная
// покупка на ней. Оценка и исполнение — два отдельных сетевых вызова, цена
// между ними могла уехать.
func (b *Broker) ExecuteMarketBuyForLowestPrice(ctx context.Context, symbol string, size float64) (*domain.MarketOrder, error) {
	price, ex, err := b.LowestMarketBuyPrice(ctx, symbol, size)
	if err != nil {
		return nil, err
	}
	b.log.Infof("покупка %v %s на %s, оценка %.8f", size, symbol, ex.Name(), price)
	return ex.ExecuteMarketOrder(ctx, symbol, size, domain.Buy)
}

// ExecuteMarketSellForHighestPrice — зеркало: продажа на самой дорогой бирже.
func (b *Broker) ExecuteMarketSellForHighestPrice(ctx context.Context, symbol string, size float64) (*domain.MarketOrder, error) {
	price, ex, err := b.HighestMarketSellPrice(ctx, symbol, size)
	if err != nil {
		return nil, err
	}
	b.log.Infof("продажа %v %s на %s, оценка %.8f", size, symbol, ex.Name(), price)
	return ex.ExecuteMarketOrder(ctx, symbol, size, domain.Sell)
}

// fanOut считает оценку на каждой бирже в своей горутине и дожидается всех:
// это барьер, а не гонка. Результаты ложатся в слоты по индексу регистрации,
// чтобы дальше можно было детерминированно выбирать.
func (b *Broker) fanOut(ctx context.Context, est func(context.Context, domain.Exchange) (float64, error)) ([]float64, []error, error) {
	if len(b.exchanges) == 0 {
		return nil, nil, domain.ErrNoExchanges
	}

	type slot struct {
		i     int
		price float64
		err   error
	}
	ch := make(chan slot, len(b.exchanges))
	for i, ex := range b.exchanges {
		go func(i int, ex domain.Exchange) {
			p, err := est(ctx, ex)
			ch <- slot{i, p, err}
		}(i, ex)
	}

	prices := make([]float64, len(b.exchanges))
	errs := make([]error, len(b.exchanges))
	for range b.exchanges {
		s := <-ch
		prices[s.i], errs[s.i] = s.price, s.err
	}
	return prices, errs, nil
}

// pick выбирает победителя по заполненным слотам. В обычном режиме первая
// ошибка в порядке регистрации валит весь опрос; в best-effort упавшие биржи
// выбывают из сравнения.
func (b *Broker) pick(prices []float64, errs []error, better func(p, best float64) bool) (float64, domain.Exchange, error) {
	var (
		winner domain.Exchange
		best   float64
	)
	for i, ex := range b.exchanges {
		if errs[i] != nil {
			if !b.bestEffort {
				return 0, nil, errs[i]
			}
			b.log.Warnf("%s выбывает из сравнения: %v", ex.Name(), errs[i])
			continue
		}
		if winner == nil || better(prices[i], best) {
			winner, best = ex, prices[i]
		}
	}
	if winner == nil {
		// best-effort, но не ответил никто — отдаём первую ошибку
		for _, err := range errs {
			if err != nil {
				return 0, nil, err
			}
		}
		return 0, nil, domain.ErrNoExchanges
	}
	return best, winner, nil
}

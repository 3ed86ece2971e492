package domain

import (
	"context"
	"fmt"
)

// Базовые доменные сущности брокера.

// TradingPair — запись справочника торговых пар биржи.
// Symbol — нативный тикер площадки (BTCUSDT, PF_XBTUSD и т.п.).
// Одна нативная пара может присутствовать несколькими записями-псевдонимами
// (например, стейблкоин котировки представлен ещё и как USD).
type TradingPair struct {
	Base   string
	Quote  string
	Symbol string
}

// Level — один ценовой уровень стакана.
type Level struct {
	Price float64
	Qty   float64
}

// OrderBook — разовый снимок стакана, не кэшируется: каждый расчёт тянет свежий.
// Asks отсортированы по возрастанию цены, Bids — по убыванию (лучшие первыми).
type OrderBook struct {
	Symbol    string
	Exchange  string
	Timestamp int64
	Asks      []Level
	Bids      []Level
}

// Fill — один исполненный (или смоделированный) кусок заявки.
type Fill struct {
	Price float64
	Qty   float64
}

// Action — направление рыночной заявки.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// MarketOrder — результат исполнения рыночной заявки на площадке.
// Filled может оказаться меньше Quantity, если биржа недоисполнила заявку;
// этот слой ничего не доисполняет и отдаёт как есть.
type MarketOrder struct {
	ID       string
	Symbol   string
	Action   Action
	Fills    []Fill
	Quantity float64 // запрошенный объём
	Filled   float64 // фактически исполненный объём
	Status   string
	Exchange string
}

// AverageFillPrice — средневзвешенная цена по филлам: Σ(price·qty)/Σ(qty).
// Для заявки без филлов возвращает 0, а не делит на ноль.
func (o *MarketOrder) AverageFillPrice() float64 {
	var cost, qty float64
	for _, f := range o.Fills {
		cost += f.Price * f.Qty
		qty += f.Qty
	}
	if qty == 0 {
		return 0
	}
	return cost / qty
}

// Контракт адаптера биржи. Справочник пар загружается синхронно в конструкторе
// адаптера, до первого вызова остальных методов. Реализации не мутируют своё
// состояние после конструктора и безопасны для конкурентного использования.
type Exchange interface {
	Name() string
	Pairs() []TradingPair
	ResolvePair(symbol string) (TradingPair, error)
	OrderBook(ctx context.Context, symbol string, depth int) (*OrderBook, error)
	ExecuteMarketOrder(ctx context.Context, symbol string, size float64, action Action) (*MarketOrder, error)
}

// FindPair — линейный поиск по справочнику: совпадение по нативному символу
// либо по конкатенации base+quote. Первая подходящая запись в порядке загрузки
// выигрывает (псевдонимы делают часть запросов намеренно неоднозначными).
func FindPair(pairs []TradingPair, symbol, exchange string) (TradingPair, error) {
	for _, p := range pairs {
		if p.Symbol == symbol || p.Base+p.Quote == symbol {
			return p, nil
		}
	}
	return TradingPair{}, fmt.Errorf("%w: пара %q отсутствует на бирже %q", ErrPairNotFound, symbol, exchange)
}

package cli

import (
	"fmt"
	"time"

	"cryptobroker/internal/domain"
	"cryptobroker/internal/shared/format"
	"cryptobroker/internal/usecase/broker"
)

type Presenter struct{}

func NewPresenter() *Presenter { return &Presenter{} }

func (p *Presenter) Infof(f string, args ...any) { fmt.Printf(f, args...) }

func (p *Presenter) ShowHeader(action domain.Action, symbol string, size float64) {
	fmt.Println("\n=== Сравнение бирж ===")
	if action == domain.Buy {
		fmt.Printf("Покупка %s %s, ищем самую дешёвую площадку\n", format.FloatRU(size, 8), symbol)
	} else {
		fmt.Printf("Продажа %s %s, ищем самую дорогую площадку\n", format.FloatRU(size, 8), symbol)
	}
}

func (p *Presenter) ShowOrderBookSummary(ob *domain.OrderBook) {
	fmt.Printf("\n=== %s - %s ===\n", ob.Exchange, ob.Symbol)
	var t time.Time
	if ob.Timestamp > 1e12 {
		t = time.UnixMilli(ob.Timestamp)
	} else {
		t = time.Unix(ob.Timestamp, 0)
	}
	fmt.Printf("Время: %s\n", t.Format("15:04 02.01.2006"))
	if len(ob.Asks) > 0 && len(ob.Bids) > 0 {
		fmt.Printf("Ask=%.8f, Bid=%.8f\n", ob.Asks[0].Price, ob.Bids[0].Price)
	}
}

func (p *Presenter) ShowEstimates(ests []broker.VenueEstimate) {
	fmt.Println("\nОценки средней цены исполнения:")
	for _, e := range ests {
		if e.Err != nil {
			fmt.Printf("  %s: нет оценки (%v)\n", e.Exchange, e.Err)
			continue
		}
		fmt.Printf("  %s: %.8f\n", e.Exchange, e.Price)
	}
}

func (p *Presenter) ShowWinner(action domain.Action, exchange string, price float64) {
	if action == domain.Buy {
		fmt.Printf("\nЛучшая цена покупки: %.8f на %s\n", price, exchange)
	} else {
		fmt.Printf("\nЛучшая цена продажи: %.8f на %s\n", price, exchange)
	}
}

func (p *Presenter) ShowOrder(order *domain.MarketOrder) {
	fmt.Printf("\n=== Заявка исполнена на %s ===\n", order.Exchange)
	fmt.Printf("ID: %s\nСтатус: %s\n", order.ID, order.Status)
	fmt.Printf("Объём: %.8f, исполнено: %.8f\n", order.Quantity, order.Filled)
	fmt.Printf("Средняя цена: %.8f\n", order.AverageFillPrice())
	for _, f := range order.Fills {
		fmt.Printf("  сделка: %.8f по цене %.8f\n", f.Qty, f.Price)
	}
}

package usecase

import (
	"context"
	"errors"
	"fmt"

	"cryptobroker/internal/domain"
	"cryptobroker/internal/transport/cli"
	"cryptobroker/internal/usecase/broker"
)

// Run — основной интерактивный сценарий:
// 1) ввод (покупка/продажа, монета, объём);
// 2) верх стакана по каждой бирже;
// 3) оценки средней цены исполнения по биржам;
// 4) выбор лучшей площадки;
// 5) по явному подтверждению — рыночная заявка на ней.
func Run(ctx context.Context, br *broker.Broker, allowExec bool) error {
	// 1) Ввод
	params := cli.GetInteractiveParams()
	pr := cli.NewPresenter()
	pr.ShowHeader(params.Action, params.Symbol, params.Size)

	// 2) Сводка по стаканам: глубины 5 хватает для верха
	books, err := br.FetchAllOrderBooks(ctx, params.Symbol, 5)
	if err != nil {
		return err
	}
	for _, vb := range books {
		if vb.Err != nil {
			pr.Infof("\n%s: стакан недоступен (%v)\n", vb.Exchange, vb.Err)
			continue
		}
		pr.ShowOrderBookSummary(vb.Book)
	}

	// 3) Оценки по всем биржам
	var ests []broker.VenueEstimate
	if params.Action == domain.Buy {
		ests, err = br.EstimateAllMarketBuyPrices(ctx, params.Symbol, params.Size)
	} else {
		ests, err = br.EstimateAllMarketSellPrices(ctx, params.Symbol, params.Size)
	}
	if err != nil {
		return err
	}
	pr.ShowEstimates(ests)

	// 4) Победитель
	var (
		price  float64
		winner domain.Exchange
	)
	if params.Action == domain.Buy {
		price, winner, err = br.LowestMarketBuyPrice(ctx, params.Symbol, params.Size)
	} else {
		price, winner, err = br.HighestMarketSellPrice(ctx, params.Symbol, params.Size)
	}
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientLiquidity) {
			pr.Infof("\nНе хватает ликвидности в стакане под объём %.8f\n", params.Size)
		}
		return err
	}
	pr.ShowWinner(params.Action, winner.Name(), price)

	// 5) Исполнение
	if !allowExec {
		pr.Infof("\nИсполнение заявок выключено (ALLOW_EXECUTION=false), только сравнение.\n")
		return nil
	}
	prompt := fmt.Sprintf("\nОтправить рыночную заявку %s %.8f %s на лучшую биржу?",
		params.Action, params.Size, params.Symbol)
	if !cli.AskConfirm(prompt) {
		pr.Infof("Заявка не отправлена.\n")
		return nil
	}

	// между оценкой и исполнением цена могла уехать, выбор делается заново
	var order *domain.MarketOrder
	if params.Action == domain.Buy {
		order, err = br.ExecuteMarketBuyForLowestPrice(ctx, params.Symbol, params.Size)
	} else {
		order, err = br.ExecuteMarketSellForHighestPrice(ctx, params.Symbol, params.Size)
	}
	if err != nil {
		return err
	}
	pr.ShowOrder(order)
	return nil
}

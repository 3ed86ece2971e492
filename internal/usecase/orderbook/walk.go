package orderbook

import (
	"fmt"

	"cryptobroker/internal/domain"
)

// Чистая математика обхода стакана. Функции не трогают срезы вызывающего
// кода: идём по индексу, ничего не выталкиваем и не переставляем.

// WalkAsks — жадный обход асков (лучшие первыми, по возрастанию цены) под
// рыночную покупку объёма size. С каждого уровня берём min(qty уровня, остаток)
// по цене уровня, копим филлы, пока остаток не обнулится. Итоговая цена —
// средневзвешенная Σ(price·qty)/Σ(qty) по набранным филлам.
//
// Если стакан исчерпан раньше объёма — domain.ErrInsufficientLiquidity, без
// видимого частичного результата. Нулевой или отрицательный объём — ошибка
// сразу: это ошибка вызывающего кода, а не повод вернуть «лучшую цену».
func WalkAsks(asks []domain.Level, size float64) ([]domain.Fill, float64, error) {
	return walk(asks, size)
}

// WalkBids — зеркало WalkAsks для рыночной продажи: обходим биды лучшие
// первыми (по убыванию цены) и набираем выручку под объём size.
func WalkBids(bids []domain.Level, size float64) ([]domain.Fill, float64, error) {
	return walk(bids, size)
}

func walk(levels []domain.Level, size float64) ([]domain.Fill, float64, error) {
	if size <= 0 {
		return nil, 0, fmt.Errorf("объём заявки должен быть положительным, получен %v", size)
	}

	remaining := size
	var fills []domain.Fill
	for _, lvl := range levels {
		if remaining <= 0 {
			break
		}
		take := lvl.Qty
		if take > remaining {
			take = remaining
		}
		fills = append(fills, domain.Fill{Price: lvl.Price, Qty: take})
		remaining -= take
	}
	if remaining > 0 {
		return nil, 0, domain.ErrInsufficientLiquidity
	}

	var cost, qty float64
	for _, f := range fills {
		cost += f.Price * f.Qty
		qty += f.Qty
	}
	return fills, cost / qty, nil
}

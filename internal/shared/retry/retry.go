package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
)

// Повторы сетевых операций с экспоненциальным бэкоффом (jpillora/backoff,
// с джиттером). Политика задаётся вызывающим кодом, чтобы тесты могли
// укоротить ожидания до миллисекунд.

type Policy struct {
	Attempts int           // всего попыток, включая первую
	Min      time.Duration // стартовая пауза между попытками
	Max      time.Duration // потолок паузы
}

// ExhaustedError — бюджет попыток кончился; Last — ошибка последней попытки.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("исчерпаны %d попыток: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Permanent помечает ошибку как неповторяемую: Do вернёт её сразу, не тратя
// оставшиеся попытки. Так помечаются осмысленные ответы биржи — повторять
// имеет смысл только сетевые сбои.
func Permanent(err error) error { return permanentError{err} }

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Do выполняет op по политике p. Паузы между попытками растут экспоненциально
// от Min до Max. Отмена контекста прекращает ожидание и возвращает ctx.Err().
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	b := &backoff.Backoff{Min: p.Min, Max: p.Max, Factor: 2, Jitter: true}

	var err error
	for i := 0; i < attempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		var pe permanentError
		if errors.As(err, &pe) {
			return pe.err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(b.Duration()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return &ExhaustedError{Attempts: attempts, Last: err}
}

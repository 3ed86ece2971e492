package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ====== Словарь ошибок ======
//
// Все сбои бирж и брокера сводятся к этому набору; вызывающий код проверяет
// их через errors.Is / errors.As. Адаптеры заворачивают сентинелы с контекстом
// своей площадки.

var (
	// ErrPairNotFound — запрошенный символ отсутствует в справочнике биржи.
	ErrPairNotFound = errors.New("торговая пара не найдена")

	// ErrInsufficientLiquidity — стакан не закрывает запрошенный объём.
	ErrInsufficientLiquidity = errors.New("недостаточно ликвидности в стакане для заполнения заявки")

	// ErrAuthentication — площадка отклонила ключ, подпись или нонс.
	ErrAuthentication = errors.New("ошибка аутентификации на бирже")

	// ErrRateLimitExceeded — превышен лимит запросов площадки.
	ErrRateLimitExceeded = errors.New("превышен лимит запросов к бирже")

	// ErrInsufficientFunds — на счёте не хватает средств под заявку.
	ErrInsufficientFunds = errors.New("недостаточно средств для исполнения заявки")

	// ErrNoExchanges — в брокере не зарегистрировано ни одной биржи.
	ErrNoExchanges = errors.New("нет доступных бирж для расчёта рыночной цены")

	// ErrBadResponse — неуспешный или нераспознанный ответ площадки.
	ErrBadResponse = errors.New("некорректный ответ биржи")

	// ErrRetriesExhausted — сетевые повторы исчерпаны, запрос так и не прошёл.
	ErrRetriesExhausted = errors.New("исчерпаны повторы запроса")
)

// BadResponseError несёт сырой ответ площадки, чтобы вызывающий код мог
// разобрать его сам (коды ошибок, заголовки rate-limit и т.п.). Message —
// человекочитаемый текст из JSON-поля msg, если оно есть, иначе тело как есть.
type BadResponseError struct {
	Exchange   string
	StatusCode int
	Message    string
	Body       []byte
	Header     http.Header
}

func (e *BadResponseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Exchange, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Exchange, e.StatusCode)
}

// Unwrap позволяет ловить BadResponseError как errors.Is(err, ErrBadResponse).
func (e *BadResponseError) Unwrap() error { return ErrBadResponse }

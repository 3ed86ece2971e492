package krakenfuturesadapter

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	simplejson "github.com/bitly/go-simplejson"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"cryptobroker/internal/domain"
	"cryptobroker/internal/infra/venueclient"
	"cryptobroker/internal/shared/retry"
)

// Адаптер Kraken Futures: REST v3 деривативов, подпись
// base64(HMAC-SHA512(SHA256(postData+nonce+path))). В справочник берём только
// перпетуалы PF_*.

const (
	prodURL = "https://futures.kraken.com/derivatives/api/v3/"
	demoURL = "https://demo-futures.kraken.com/derivatives/api/v3/"
)

// Коды ошибок площадки → доменный словарь. Всё, что не в таблице, уходит
// наверх как BadResponse с сырым телом.
var errorMapping = map[string]error{
	"apiLimitExceeded":    domain.ErrRateLimitExceeded,
	"authenticationError": domain.ErrAuthentication,
	"nonceBelowThreshold": domain.ErrAuthentication,
	"insufficientFunds":   domain.ErrInsufficientFunds,
}

type Config struct {
	APIKey    string
	APISecret string // base64, как выдаёт площадка
	Testnet   bool

	BaseURL   string            // переопределение адреса (тесты, прокси)
	Retry     retry.Policy      // по умолчанию venueclient.DefaultRetry
	Transport http.RoundTripper // подмена транспорта (тесты)
}

type Exchange struct {
	name   string
	client *venueclient.Client
	pairs  []domain.TradingPair
	log    *logrus.Entry
}

var _ domain.Exchange = (*Exchange)(nil)

// New создаёт адаптер и синхронно загружает справочник пар.
func New(ctx context.Context, cfg Config) (*Exchange, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = prodURL
		if cfg.Testnet {
			baseURL = demoURL
		}
	}

	name := "Kraken Futures"
	e := &Exchange{
		name: name,
		log:  logrus.WithField("exchange", name),
	}
	e.client = venueclient.New(name, venueclient.Options{
		BaseURL:   baseURL,
		Retry:     cfg.Retry,
		Sign:      signer(cfg.APIKey, cfg.APISecret),
		Check:     e.checkEnvelope,
		Transport: cfg.Transport,
	})

	// объёмы здесь — контракты, к позициям применяется плечо
	e.log.Warn("площадка торгует фьючерсными контрактами, а не спотом")

	if err := e.loadPairs(ctx); err != nil {
		return nil, err
	}
	e.log.Infof("справочник загружен: %d пар", len(e.pairs))
	return e, nil
}

func (e *Exchange) Name() string { return e.name }

func (e *Exchange) Pairs() []domain.TradingPair { return e.pairs }

func (e *Exchange) ResolvePair(symbol string) (domain.TradingPair, error) {
	return domain.FindPair(e.pairs, symbol, e.name)
}

// checkEnvelope — у площадки даже 2xx может быть ошибкой: признак успеха —
// поле result=="success", код ошибки — в поле error.
func (e *Exchange) checkEnvelope(status int, body []byte, header http.Header) error {
	js, err := simplejson.NewJson(body)
	if err != nil {
		return &domain.BadResponseError{
			Exchange: e.name, StatusCode: status,
			Message: "тело ответа не JSON", Body: body, Header: header,
		}
	}
	result, err := js.Get("result").String()
	if err != nil {
		return &domain.BadResponseError{
			Exchange: e.name, StatusCode: status,
			Message: "в ответе нет поля result", Body: body, Header: header,
		}
	}
	if result == "success" {
		return nil
	}
	code := js.Get("error").MustString()
	if mapped, ok := errorMapping[code]; ok {
		return fmt.Errorf("kraken futures: %w (код площадки %q)", mapped, code)
	}
	msg := code
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	return &domain.BadResponseError{
		Exchange: e.name, StatusCode: status,
		Message: msg, Body: body, Header: header,
	}
}

func (e *Exchange) loadPairs(ctx context.Context) error {
	resp, err := e.client.Do(ctx, venueclient.Request{Path: "tickers"})
	if err != nil {
		return fmt.Errorf("kraken futures: справочник пар: %w", err)
	}
	var raw struct {
		Tickers []struct {
			Symbol string `json:"symbol"`
			Pair   string `json:"pair"`
			Tag    string `json:"tag"`
		} `json:"tickers"`
	}
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return fmt.Errorf("kraken futures: разбор tickers: %w", err)
	}

	var pairs []domain.TradingPair
	for _, t := range raw.Tickers {
		// индексы, кварталы и прочие инструменты не берём
		if t.Tag != "perpetual" || !strings.HasPrefix(t.Symbol, "PF_") {
			continue
		}
		base, quote, ok := strings.Cut(t.Pair, ":")
		if !ok {
			continue
		}
		pairs = append(pairs, domain.TradingPair{Base: base, Quote: quote, Symbol: t.Symbol})
		if base == "XBT" {
			// биткойн у площадки зовётся XBT, даём привычный псевдоним
			pairs = append(pairs, domain.TradingPair{Base: "BTC", Quote: quote, Symbol: t.Symbol})
		}
	}
	e.pairs = pairs
	return nil
}

func (e *Exchange) OrderBook(ctx context.Context, symbol string, depth int) (*domain.OrderBook, error) {
	pair, err := e.ResolvePair(symbol)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("symbol", pair.Symbol)

	resp, err := e.client.Do(ctx, venueclient.Request{Path: "orderbook", Params: params})
	if err != nil {
		return nil, fmt.Errorf("kraken futures: стакан %s: %w", pair.Symbol, err)
	}

	var raw struct {
		OrderBook struct {
			Bids [][]float64 `json:"bids"`
			Asks [][]float64 `json:"asks"`
		} `json:"orderBook"`
	}
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return nil, fmt.Errorf("kraken futures: разбор стакана %s: %w", pair.Symbol, err)
	}

	asks := toLevels(raw.OrderBook.Asks)
	bids := toLevels(raw.OrderBook.Bids)
	venueclient.SortAsks(asks)
	venueclient.SortBids(bids)

	// параметра глубины у площадки нет — усечение только на нашей стороне
	if depth > 0 {
		if depth < len(asks) {
			asks = asks[:depth]
		}
		if depth < len(bids) {
			bids = bids[:depth]
		}
	}

	return &domain.OrderBook{
		Symbol:    pair.Symbol,
		Exchange:  e.name,
		Timestamp: time.Now().UnixMilli(),
		Asks:      asks,
		Bids:      bids,
	}, nil
}

func (e *Exchange) ExecuteMarketOrder(ctx context.Context, symbol string, size float64, action domain.Action) (*domain.MarketOrder, error) {
	pair, err := e.ResolvePair(symbol)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("orderType", "mkt")
	params.Set("symbol", pair.Symbol)
	params.Set("side", strings.ToLower(string(action)))
	params.Set("size", decimal.NewFromFloat(size).String())
	params.Set("cliOrdId", uuid.NewString())

	resp, err := e.client.Do(ctx, venueclient.Request{
		Method: http.MethodPost,
		Path:   "sendorder",
		Params: params,
		Auth:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("kraken futures: рыночная заявка %s %s: %w", action, pair.Symbol, err)
	}

	var raw struct {
		SendStatus struct {
			OrderID     string `json:"order_id"`
			Status      string `json:"status"`
			OrderEvents []struct {
				Type   string  `json:"type"`
				Price  float64 `json:"price"`
				Amount float64 `json:"amount"`
			} `json:"orderEvents"`
		} `json:"sendStatus"`
	}
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return nil, fmt.Errorf("kraken futures: разбор ответа заявки: %w", err)
	}

	events := raw.SendStatus.OrderEvents
	if len(events) == 0 || events[len(events)-1].Type != "EXECUTION" {
		return nil, &domain.BadResponseError{
			Exchange: e.name, StatusCode: resp.StatusCode,
			Message: "заявка не исполнена: нет события EXECUTION",
			Body:    resp.Body, Header: resp.Header,
		}
	}

	var fills []domain.Fill
	var filled float64
	for _, ev := range events {
		if ev.Type != "EXECUTION" {
			continue
		}
		fills = append(fills, domain.Fill{Price: ev.Price, Qty: ev.Amount})
		filled += ev.Amount
	}

	order := &domain.MarketOrder{
		ID:       raw.SendStatus.OrderID,
		Symbol:   pair.Symbol,
		Action:   action,
		Fills:    fills,
		Quantity: size,
		Filled:   filled,
		Status:   raw.SendStatus.Status,
		Exchange: e.name,
	}
	e.log.Infof("рыночная заявка %s %s исполнена: id=%s, объём %.8f, средняя цена %.8f",
		action, pair.Symbol, order.ID, order.Filled, order.AverageFillPrice())
	return order, nil
}

func toLevels(raw [][]float64) []domain.Level {
	out := make([]domain.Level, 0, len(raw))
	for _, it := range raw {
		if len(it) < 2 {
			continue
		}
		out = append(out, domain.Level{Price: it[0], Qty: it[1]})
	}
	return venueclient.ClampPositive(out)
}

// signer — подпись площадки: nonce из ms-метки времени, SHA256 от
// (postData + nonce + путь после "/derivatives"), затем HMAC-SHA512 с
// base64-раскодированным секретом, результат в base64. Ключ, подпись и nonce
// уходят в заголовки.
func signer(apiKey, apiSecret string) venueclient.Signer {
	return func(params url.Values, path string) (string, http.Header, error) {
		nonce := fmt.Sprintf("%d", time.Now().UnixMilli())
		if i := strings.Index(path, "/derivatives"); i >= 0 {
			path = path[i+len("/derivatives"):]
		}
		postData := params.Encode()

		secret, err := base64.StdEncoding.DecodeString(apiSecret)
		if err != nil {
			return "", nil, fmt.Errorf("секрет площадки не base64: %w", err)
		}
		sum := sha256.Sum256([]byte(postData + nonce + path))
		mac := hmac.New(sha512.New, secret)
		mac.Write(sum[:])

		h := http.Header{}
		h.Set("APIKey", apiKey)
		h.Set("Authent", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
		h.Set("Nonce", nonce)
		return postData, h, nil
	}
}

package binanceadapter

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"cryptobroker/internal/domain"
	"cryptobroker/internal/infra/venueclient"
	"cryptobroker/internal/shared/retry"
)

// Адаптер спотового Binance: REST v3, подпись HMAC-SHA256 по query-строке.

const (
	prodURL = "https://api.binance.com/api/v3/"
	testURL = "https://testnet.binance.vision/api/v3/"

	orderBookDefaultLimit = 1000
	orderBookMinLimit     = 1
	orderBookMaxLimit     = 5000
)

type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool

	// Стейблкоин, который считаем долларом: каждая пара с такой котировкой
	// дублируется в справочнике записью с quote="USD".
	USDStablecoin string // по умолчанию USDT

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

// New создаёт адаптер и синхронно загружает справочник пар: до успешной
// загрузки биржей пользоваться нельзя.
func New(ctx context.Context, cfg Config) (*Exchange, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = prodURL
		if cfg.Testnet {
			baseURL = testURL
		}
	}
	stable := cfg.USDStablecoin
	if stable == "" {
		stable = "USDT"
	}

	name := "Binance"
	client := venueclient.New(name, venueclient.Options{
		BaseURL:   baseURL,
		Retry:     cfg.Retry,
		Sign:      signer(cfg.APISecret),
		Transport: cfg.Transport,
		Headers:   map[string]string{"X-MBX-APIKEY": cfg.APIKey},
	})

	e := &Exchange{
		name:   name,
		client: client,
		log:    logrus.WithField("exchange", name),
	}
	if err := e.loadPairs(ctx, stable); err != nil {
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

func (e *Exchange) loadPairs(ctx context.Context, stable string) error {
	resp, err := e.client.Do(ctx, venueclient.Request{Path: "exchangeInfo"})
	if err != nil {
		return fmt.Errorf("binance: справочник пар: %w", err)
	}
	var raw struct {
		Symbols []struct {
			Symbol     string `json:"symbol"`
			BaseAsset  string `json:"baseAsset"`
			QuoteAsset string `json:"quoteAsset"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return fmt.Errorf("binance: разбор exchangeInfo: %w", err)
	}

	pairs := make([]domain.TradingPair, 0, len(raw.Symbols))
	for _, s := range raw.Symbols {
		pairs = append(pairs, domain.TradingPair{Base: s.BaseAsset, Quote: s.QuoteAsset, Symbol: s.Symbol})
		if s.QuoteAsset == stable {
			// псевдоним сразу за исходной парой, чтобы BTCUSD находил BTCUSDT
			pairs = append(pairs, domain.TradingPair{Base: s.BaseAsset, Quote: "USD", Symbol: s.Symbol})
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

	limit := depth
	if limit <= 0 {
		limit = orderBookDefaultLimit
	}
	if limit < orderBookMinLimit {
		limit = orderBookMinLimit
	}
	if limit > orderBookMaxLimit {
		limit = orderBookMaxLimit
	}

	params := url.Values{}
	params.Set("symbol", pair.Symbol)
	params.Set("limit", strconv.Itoa(limit))

	resp, err := e.client.Do(ctx, venueclient.Request{Path: "depth", Params: params})
	if err != nil {
		return nil, fmt.Errorf("binance: стакан %s (limit=%d): %w", pair.Symbol, limit, err)
	}

	var raw struct {
		Bids [][]string `json:"bids"`
		Asks [][]string `json:"asks"`
	}
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return nil, fmt.Errorf("binance: разбор стакана %s: %w", pair.Symbol, err)
	}

	asks := venueclient.ParseLevels(raw.Asks)
	bids := venueclient.ParseLevels(raw.Bids)
	venueclient.SortAsks(asks)
	venueclient.SortBids(bids)

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
	params.Set("symbol", pair.Symbol)
	params.Set("side", string(action))
	params.Set("type", "MARKET")
	// объём на провод — без артефактов двоичной точки
	params.Set("quantity", decimal.NewFromFloat(size).String())
	params.Set("newClientOrderId", uuid.NewString())

	resp, err := e.client.Do(ctx, venueclient.Request{
		Method: http.MethodPost,
		Path:   "order",
		Params: params,
		Auth:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("binance: рыночная заявка %s %s: %w", action, pair.Symbol, err)
	}

	var raw struct {
		OrderID     int64  `json:"orderId"`
		Symbol      string `json:"symbol"`
		Status      string `json:"status"`
		OrigQty     string `json:"origQty"`
		ExecutedQty string `json:"executedQty"`
		Fills       []struct {
			Price string `json:"price"`
			Qty   string `json:"qty"`
		} `json:"fills"`
	}
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return nil, fmt.Errorf("binance: разбор ответа заявки: %w", err)
	}

	fills := make([]domain.Fill, 0, len(raw.Fills))
	for _, f := range raw.Fills {
		fills = append(fills, domain.Fill{Price: parseFloat(f.Price), Qty: parseFloat(f.Qty)})
	}

	order := &domain.MarketOrder{
		ID:       strconv.FormatInt(raw.OrderID, 10),
		Symbol:   raw.Symbol,
		Action:   action,
		Fills:    fills,
		Quantity: parseFloat(raw.OrigQty),
		Filled:   parseFloat(raw.ExecutedQty),
		Status:   raw.Status,
		Exchange: e.name,
	}
	e.log.Infof("рыночная заявка %s %s исполнена: id=%s, объём %.8f, средняя цена %.8f",
		action, pair.Symbol, order.ID, order.Filled, order.AverageFillPrice())
	return order, nil
}

// signer — подпись Binance: ms-метка времени в параметрах, HMAC-SHA256 от
// query-строки в hex. Сама подпись в подписываемую строку не входит и идёт
// последним параметром.
func signer(secret string) venueclient.Signer {
	return func(params url.Values, _ string) (string, http.Header, error) {
		params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		query := params.Encode()

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(query))
		query += "&signature=" + hex.EncodeToString(mac.Sum(nil))

		return query, http.Header{}, nil
	}
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

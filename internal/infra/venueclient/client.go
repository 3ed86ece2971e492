package venueclient

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	simplejson "github.com/bitly/go-simplejson"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"cryptobroker/internal/domain"
	"cryptobroker/internal/shared/retry"
)

// Общий HTTP-клиент площадок: resty-транспорт, повторы сетевых сбоев через
// shared/retry и сведение неуспешных ответов к доменному словарю ошибок.
// Подпись запроса отдана площадке через хук Signer — он вызывается заново на
// каждую попытку, чтобы нонсы и метки времени оставались свежими.

// DefaultRetry — боевой бюджет повторов для сетевых сбоев.
var DefaultRetry = retry.Policy{Attempts: 5, Min: 4 * time.Second, Max: 10 * time.Second}

// Signer готовит итоговую query-строку запроса и заголовки аутентификации.
// Возвращённая строка уходит в URL как есть: подпись обязана считаться от
// ровно той строки, которая поедет по проводу. path — абсолютный путь запроса
// (нужен площадкам, подписывающим путь).
type Signer func(params url.Values, path string) (query string, header http.Header, err error)

// Check валидирует 2xx-конверт площадки (например, схему result/error у
// Kraken) и переводит коды площадки в доменные ошибки. Ненулевой результат
// не повторяется.
type Check func(status int, body []byte, header http.Header) error

// Request — один запрос к REST API площадки. Params уходят в query-строку и
// для GET, и для POST (обе поддерживаемые площадки принимают параметры так).
type Request struct {
	Method string
	Path   string // относительно базового URL клиента
	Params url.Values
	Auth   bool // требуется подпись
}

// Response — сырой ответ площадки после всех проверок.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

type Options struct {
	BaseURL   string
	Timeout   time.Duration     // по умолчанию 30s
	Retry     retry.Policy      // по умолчанию DefaultRetry
	Sign      Signer
	Check     Check
	Headers   map[string]string // постоянные заголовки площадки (API-ключ и т.п.)
	Transport http.RoundTripper // подмена транспорта (прокси, тесты)
}

type Client struct {
	name   string
	rest   *resty.Client
	policy retry.Policy
	sign   Signer
	check  Check
	log    *logrus.Entry
}

func New(name string, opt Options) *Client {
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	policy := opt.Retry
	if policy.Attempts == 0 {
		policy = DefaultRetry
	}
	rest := resty.New().
		SetBaseURL(opt.BaseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "cryptobroker/venueclient").
		SetHeaders(opt.Headers)
	if opt.Transport != nil {
		rest.SetTransport(opt.Transport)
	}
	return &Client{
		name:   name,
		rest:   rest,
		policy: policy,
		sign:   opt.Sign,
		check:  opt.Check,
		log:    logrus.WithField("exchange", name),
	}
}

// Do выполняет запрос с повторами. Сетевые сбои повторяются по политике
// клиента; любой осмысленный ответ площадки (в том числе неуспешный) из
// бюджета не тратится повторно, а сразу уходит наверх доменной ошибкой.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var out *Response
	op := func() error {
		params := cloneValues(req.Params)
		query := params.Encode()
		header := http.Header{}

		if req.Auth {
			if c.sign == nil {
				return retry.Permanent(fmt.Errorf("%s: %w: у клиента нет подписи", c.name, domain.ErrAuthentication))
			}
			q, h, err := c.sign(params, c.fullPath(req.Path))
			if err != nil {
				return retry.Permanent(fmt.Errorf("%s: подпись запроса: %w", c.name, err))
			}
			query, header = q, h
		}

		target := strings.TrimPrefix(req.Path, "/")
		if query != "" {
			target += "?" + query
		}

		resp, err := c.rest.R().
			SetContext(ctx).
			SetHeaderMultiValues(header).
			Execute(method, target)
		if err != nil {
			// сетевой сбой — кандидат на повтор
			c.log.Debugf("запрос %s %s не прошёл: %v", method, req.Path, err)
			return err
		}
		if !resp.IsSuccess() {
			return retry.Permanent(badResponse(c.name, resp.StatusCode(), resp.Body(), resp.Header()))
		}
		if c.check != nil {
			if cerr := c.check(resp.StatusCode(), resp.Body(), resp.Header()); cerr != nil {
				return retry.Permanent(cerr)
			}
		}
		out = &Response{StatusCode: resp.StatusCode(), Body: resp.Body(), Header: resp.Header()}
		return nil
	}

	if err := c.policy.Do(ctx, op); err != nil {
		var ex *retry.ExhaustedError
		if errors.As(err, &ex) {
			c.log.Warnf("сеть так и не поднялась после %d попыток: %v", ex.Attempts, ex.Last)
			return nil, fmt.Errorf("%s: %w: %w", c.name, domain.ErrRetriesExhausted, ex.Last)
		}
		return nil, err
	}
	return out, nil
}

// fullPath — абсолютный путь запроса относительно хоста (для подписи).
func (c *Client) fullPath(p string) string {
	basePath := ""
	if u, err := url.Parse(c.rest.BaseURL); err == nil {
		basePath = strings.TrimSuffix(u.Path, "/")
	}
	return basePath + "/" + strings.TrimPrefix(p, "/")
}

// badResponse достаёт человекочитаемый текст из JSON-поля msg (если есть)
// и отдаёт ошибку с сырым телом для разбора вызывающим кодом.
func badResponse(name string, status int, body []byte, header http.Header) *domain.BadResponseError {
	msg := ""
	if js, err := simplejson.NewJson(body); err == nil {
		msg = js.Get("msg").MustString()
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	return &domain.BadResponseError{
		Exchange:   name,
		StatusCode: status,
		Message:    msg,
		Body:       body,
		Header:     header,
	}
}

func cloneValues(src url.Values) url.Values {
	dst := make(url.Values, len(src))
	for k, vs := range src {
		dst[k] = append([]string(nil), vs...)
	}
	return dst
}

// ====== Вспомогалки нормализации стаканов ======

// ParseLevels переводит пары [["цена","объём"], …] в уровни стакана.
// Кривые и неположительные значения выбрасываются.
func ParseLevels(raw [][]string) []domain.Level {
	out := make([]domain.Level, 0, len(raw))
	for _, it := range raw {
		if len(it) < 2 {
			continue
		}
		p, err1 := strconv.ParseFloat(it[0], 64)
		q, err2 := strconv.ParseFloat(it[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, domain.Level{Price: p, Qty: q})
	}
	return ClampPositive(out)
}

func ClampPositive(xs []domain.Level) []domain.Level {
	out := xs[:0]
	for _, l := range xs {
		if l.Price > 0 && l.Qty > 0 && isFinite(l.Price) && isFinite(l.Qty) {
			out = append(out, l)
		}
	}
	return out
}

func isFinite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func SortAsks(xs []domain.Level) {
	sort.Slice(xs, func(i, j int) bool { return xs[i].Price < xs[j].Price })
}

func SortBids(xs []domain.Level) {
	sort.Slice(xs, func(i, j int) bool { return xs[i].Price > xs[j].Price })
}

package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gregtusar/gerchik/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL    = "https://fapi.binance.com"
	DefaultRecvWindow = 5000 // ms

	timePath         = "/fapi/v1/time"
	exchangeInfoPath = "/fapi/v1/exchangeInfo"
	tickerPricePath  = "/fapi/v1/ticker/price"
	balancePath      = "/fapi/v2/balance"
	orderPath        = "/fapi/v1/order"
)

// Params holds request parameters before signing. Nil values are dropped
// during serialization, everything else is stringified.
type Params map[string]interface{}

// Client is a Binance USDⓈ-M futures REST client. Signed endpoints use the
// exchange's HMAC-SHA256 query-string scheme: parameters serialized with
// keys in ascending order, signed with the secret key, the hex signature
// appended as the final query parameter and the API key sent in a header.
type Client struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	recvWindow int64
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

func NewClient(apiKey, apiSecret, baseURL string, logger *logrus.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		recvWindow: DefaultRecvWindow,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		// Stays well inside the 2400 request-weight/min budget.
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		logger:  logger,
	}
}

// APIError is a non-2xx exchange response. Code and Msg are filled when the
// body parses as the exchange's {"code":..,"msg":..} error object; Raw keeps
// the body otherwise.
type APIError struct {
	Status     int
	StatusText string
	Code       int64  `json:"code"`
	Msg        string `json:"msg"`
	Raw        string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("HTTP %d %s: code=%d msg=%q", e.Status, e.StatusText, e.Code, e.Msg)
	}
	return fmt.Sprintf("HTTP %d %s: %s", e.Status, e.StatusText, e.Raw)
}

// BuildQueryString serializes params with keys in strict ascending order,
// dropping nil values. The signature is computed over this exact string, so
// the ordering is part of the auth contract, not cosmetics.
func BuildQueryString(params Params) string {
	keys := make([]string, 0, len(params))
	for key, value := range params {
		if value == nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+url.QueryEscape(formatParam(params[key])))
	}
	return strings.Join(pairs, "&")
}

func formatParam(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Sign returns the lowercase hex HMAC-SHA256 of the query string.
func (c *Client) Sign(queryString string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(queryString))
	return hex.EncodeToString(h.Sum(nil))
}

// ServerTime fetches the exchange clock. Signed requests always timestamp
// from it rather than the local clock, so a skewed host never trips the
// recvWindow check.
func (c *Client) ServerTime(ctx context.Context) (int64, error) {
	body, err := c.publicGet(ctx, timePath, nil)
	if err != nil {
		return 0, err
	}

	var resp struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decoding server time: %w", err)
	}
	return resp.ServerTime, nil
}

func (c *Client) publicGet(ctx context.Context, path string, params Params) ([]byte, error) {
	requestURL := c.baseURL + path
	if qs := BuildQueryString(params); qs != "" {
		requestURL += "?" + qs
	}
	return c.do(ctx, http.MethodGet, requestURL, false)
}

// SignedRequest issues an authenticated request. Each call fetches the
// server time and signs the merged parameter set exactly once.
func (c *Client) SignedRequest(ctx context.Context, method, path string, params Params) ([]byte, error) {
	timestamp, err := c.ServerTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching server time: %w", err)
	}

	signed := make(Params, len(params)+2)
	for key, value := range params {
		signed[key] = value
	}
	signed["recvWindow"] = c.recvWindow
	signed["timestamp"] = timestamp

	queryString := BuildQueryString(signed)
	requestURL := c.baseURL + path + "?" + queryString + "&signature=" + c.Sign(queryString)

	return c.do(ctx, method, requestURL, true)
}

func (c *Client) do(ctx context.Context, method, requestURL string, signed bool) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if signed {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Raw:        string(body),
		}
		// Best effort: the exchange usually answers {"code":..,"msg":..}.
		_ = json.Unmarshal(body, apiErr)
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"code":   apiErr.Code,
			"msg":    apiErr.Msg,
		}).Error("Exchange rejected request")
		return nil, apiErr
	}

	return body, nil
}

// LotSizeFilter fetches the symbol's LOT_SIZE filter from exchangeInfo.
// Returns nil when the symbol carries no such filter.
func (c *Client) LotSizeFilter(ctx context.Context, symbol string) (*models.LotSizeFilter, error) {
	body, err := c.publicGet(ctx, exchangeInfoPath, Params{"symbol": symbol})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Symbols []struct {
			Filters []struct {
				FilterType string `json:"filterType"`
				StepSize   string `json:"stepSize"`
				MinQty     string `json:"minQty"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding exchangeInfo: %w", err)
	}
	if len(resp.Symbols) == 0 {
		return nil, nil
	}

	for _, filter := range resp.Symbols[0].Filters {
		if filter.FilterType == "LOT_SIZE" {
			return &models.LotSizeFilter{
				StepSize: filter.StepSize,
				MinQty:   filter.MinQty,
			}, nil
		}
	}
	return nil, nil
}

// CurrentPrice fetches the symbol's last trade price.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	body, err := c.publicGet(ctx, tickerPricePath, Params{"symbol": symbol})
	if err != nil {
		return 0, err
	}

	var ticker models.Ticker
	if err := json.Unmarshal(body, &ticker); err != nil {
		return 0, fmt.Errorf("decoding ticker: %w", err)
	}

	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing ticker price %q: %w", ticker.Price, err)
	}
	return price, nil
}

// AvailableUSDT fetches the futures USDT balance available for new
// positions. Prefers availableBalance, falls back to balance, and treats a
// missing USDT row as zero.
func (c *Client) AvailableUSDT(ctx context.Context) (float64, error) {
	body, err := c.SignedRequest(ctx, http.MethodGet, balancePath, Params{})
	if err != nil {
		return 0, err
	}

	var balances []models.Balance
	if err := json.Unmarshal(body, &balances); err != nil {
		return 0, fmt.Errorf("decoding balances: %w", err)
	}

	raw := "0"
	for _, row := range balances {
		if row.Asset != "USDT" {
			continue
		}
		if row.AvailableBalance != "" {
			raw = row.AvailableBalance
		} else if row.Balance != "" {
			raw = row.Balance
		}
		break
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing USDT balance %q: %w", raw, err)
	}
	return value, nil
}

// PlaceStopMarketOrder signs and submits the order. Exactly one order is
// placed per call; there is no retry on failure.
func (c *Client) PlaceStopMarketOrder(ctx context.Context, order *models.OrderRequest) (*models.OrderAck, error) {
	params := Params{
		"symbol":       order.Symbol,
		"side":         string(order.Side),
		"type":         "STOP_MARKET",
		"quantity":     order.Quantity,
		"stopPrice":    order.StopPrice,
		"positionSide": string(order.PositionSide),
	}
	if order.WorkingType != "" {
		params["workingType"] = string(order.WorkingType)
	}
	if order.PriceProtect {
		params["priceProtect"] = "TRUE"
	}
	if order.ReduceOnly {
		params["reduceOnly"] = "true"
	}

	body, err := c.SignedRequest(ctx, http.MethodPost, orderPath, params)
	if err != nil {
		return nil, err
	}

	var ack models.OrderAck
	if err := json.Unmarshal(body, &ack); err != nil {
		return nil, fmt.Errorf("decoding order ack: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"symbol":  ack.Symbol,
		"orderId": ack.OrderID,
		"status":  ack.Status,
	}).Info("STOP_MARKET order placed")

	return &ack, nil
}

package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"PriceWatch/internal/domain/models"
	"PriceWatch/internal/service/ratelimit"
	xhttp "PriceWatch/pkg/http"
	applogger "PriceWatch/pkg/logger"
	"PriceWatch/pkg/util"

	"github.com/shopspring/decimal"
)

// PriceBasis picks which side of the order book is the item's price.
type PriceBasis string

const (
	BasisAsk PriceBasis = "ask" // lowest sell order, what a buyer pays
	BasisBid PriceBasis = "bid" // highest buy order, what a seller gets
	BasisMid PriceBasis = "mid"
	// BasisPerKind prices buy alerts at the ask and sell alerts at the bid.
	BasisPerKind PriceBasis = "per_kind"
)

const (
	limitHistory   = "steam:pricehistory"
	limitHistogram = "steam:histogram"
	limitListing   = "steam:listing"
)

// Config holds the market endpoint settings.
type Config struct {
	BaseURL      string
	AppID        int
	Country      string
	Language     string
	Currency     int
	PriceBasis   PriceBasis
	Cookie       string
	RateCapacity float64
	RateRefill   float64
}

// Client talks to the Steam Community Market. It implements the history
// source, the price source and (through Adapter) the item resolver.
type Client struct {
	cfg     Config
	http    *xhttp.Client
	limiter *ratelimit.Limiter
	log     *applogger.Logger
}

// NewClient creates a market client. Outbound calls share limiter buckets
// per endpoint.
func NewClient(cfg Config, hc *xhttp.Client, limiter *ratelimit.Limiter, l *applogger.Logger) *Client {
	if hc == nil {
		hc = xhttp.NewClient()
	}
	if limiter == nil {
		limiter = ratelimit.New()
	}
	if l == nil {
		l = applogger.Nop()
	}
	if cfg.PriceBasis == "" {
		cfg.PriceBasis = BasisAsk
	}
	if cfg.RateCapacity < 1 {
		cfg.RateCapacity = 1
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: hc, limiter: limiter, log: l.With(applogger.String("component", "steam"))}
}

type historyResponse struct {
	Success bool           `json:"success"`
	Prices  []historyPoint `json:"prices"`
}

// historyPoint is one ["Jan 02 2024 01: +0", 1.23, "45"] row.
type historyPoint struct {
	Time   string
	Price  json.Number
	Volume string
}

func (p *historyPoint) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) < 2 {
		return fmt.Errorf("history row has %d fields", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Time); err != nil {
		return fmt.Errorf("history time: %w", err)
	}
	p.Price = json.Number(strings.TrimSpace(string(raw[1])))
	if len(raw) > 2 {
		// Volume is a quoted number; tolerate a bare one.
		if err := json.Unmarshal(raw[2], &p.Volume); err != nil {
			p.Volume = string(raw[2])
		}
	}
	return nil
}

// History fetches the full price history of an item. Rows that cannot be
// parsed are skipped and counted in the log.
func (c *Client) History(ctx context.Context, item models.Item) ([]models.PriceSample, error) {
	if err := c.limiter.Wait(ctx, limitHistory, c.cfg.RateCapacity, c.cfg.RateRefill); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrHistoryUnavailable, err)
	}

	var resp historyResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.cfg.BaseURL + "/market/pricehistory/",
		Headers: c.headers(),
		QueryParams: map[string][]string{
			"appid":            {strconv.Itoa(c.cfg.AppID)},
			"market_hash_name": {item.Key},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrHistoryUnavailable, item.Key, err)
	}
	if !resp.Success || resp.Prices == nil {
		return nil, fmt.Errorf("%w: %s: unsuccessful response", models.ErrHistoryUnavailable, item.Key)
	}

	samples := make([]models.PriceSample, 0, len(resp.Prices))
	skipped := 0
	for _, p := range resp.Prices {
		t, err := util.ParseSteamTime(p.Time)
		if err != nil {
			skipped++
			continue
		}
		price, err := decimal.NewFromString(p.Price.String())
		if err != nil {
			skipped++
			continue
		}
		samples = append(samples, models.PriceSample{
			Time:   t,
			Price:  price,
			Volume: util.ParseInt64Default(p.Volume, 0),
		})
	}
	if skipped > 0 {
		c.log.Warn("skipped malformed history rows",
			applogger.String("item", item.Key),
			applogger.Int("skipped", skipped),
		)
	}
	return samples, nil
}

type histogramResponse struct {
	Success        int                 `json:"success"`
	SellOrderGraph [][]json.RawMessage `json:"sell_order_graph"`
	BuyOrderGraph  [][]json.RawMessage `json:"buy_order_graph"`
}

type orderBook struct {
	ask, bid     decimal.Decimal
	askOK, bidOK bool
}

// CurrentPrice reads the live order book and returns the price on the
// configured basis. per_kind answers with the ask here; CurrentQuote has
// both sides. Any miss is models.ErrPriceUnavailable.
func (c *Client) CurrentPrice(ctx context.Context, item models.Item) (decimal.Decimal, error) {
	book, err := c.orderBook(ctx, item)
	if err != nil {
		return decimal.Zero, err
	}
	switch c.cfg.PriceBasis {
	case BasisBid:
		if book.bidOK {
			return book.bid, nil
		}
	case BasisMid:
		if book.askOK && book.bidOK {
			return book.ask.Add(book.bid).Div(decimal.NewFromInt(2)), nil
		}
	default:
		if book.askOK {
			return book.ask, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s: empty order book", models.ErrPriceUnavailable, item.Key)
}

// CurrentQuote prices each alert kind. Only per_kind splits the sides, and
// it needs both of them; every other basis quotes one price for both.
func (c *Client) CurrentQuote(ctx context.Context, item models.Item) (models.Quote, error) {
	if c.cfg.PriceBasis != BasisPerKind {
		p, err := c.CurrentPrice(ctx, item)
		if err != nil {
			return models.Quote{}, err
		}
		return models.FlatQuote(p), nil
	}
	book, err := c.orderBook(ctx, item)
	if err != nil {
		return models.Quote{}, err
	}
	if !book.askOK || !book.bidOK {
		return models.Quote{}, fmt.Errorf("%w: %s: one-sided order book", models.ErrPriceUnavailable, item.Key)
	}
	return models.Quote{Buy: book.ask, Sell: book.bid}, nil
}

func (c *Client) orderBook(ctx context.Context, item models.Item) (orderBook, error) {
	if item.NameID == "" {
		return orderBook{}, fmt.Errorf("%w: %s has no item_nameid", models.ErrPriceUnavailable, item.Key)
	}
	if err := c.limiter.Wait(ctx, limitHistogram, c.cfg.RateCapacity, c.cfg.RateRefill); err != nil {
		return orderBook{}, fmt.Errorf("%w: %w", models.ErrPriceUnavailable, err)
	}

	currency := item.Currency
	if currency == 0 {
		currency = c.cfg.Currency
	}
	var resp histogramResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.cfg.BaseURL + "/market/itemordershistogram",
		Headers: c.headers(),
		QueryParams: map[string][]string{
			"country":     {c.cfg.Country},
			"language":    {c.cfg.Language},
			"currency":    {strconv.Itoa(currency)},
			"item_nameid": {item.NameID},
			"two_factor":  {"0"},
		},
	}, &resp)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.Retryable() {
			c.log.Debug("histogram throttled", applogger.String("item", item.Key), applogger.Int("status", se.Code))
		}
		return orderBook{}, fmt.Errorf("%w: %s: %w", models.ErrPriceUnavailable, item.Key, err)
	}
	if resp.Success != 1 {
		return orderBook{}, fmt.Errorf("%w: %s: success=%d", models.ErrPriceUnavailable, item.Key, resp.Success)
	}

	var book orderBook
	book.ask, book.askOK = topOfBook(resp.SellOrderGraph)
	book.bid, book.bidOK = topOfBook(resp.BuyOrderGraph)
	return book, nil
}

// topOfBook returns graph[0][0], the best price of one side.
func topOfBook(graph [][]json.RawMessage) (decimal.Decimal, bool) {
	if len(graph) == 0 || len(graph[0]) == 0 {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.TrimSpace(string(graph[0][0])))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

func (c *Client) listingURL(itemKey string) string {
	return fmt.Sprintf("%s/market/listings/%d/%s", c.cfg.BaseURL, c.cfg.AppID, url.PathEscape(itemKey))
}

func (c *Client) headers() map[string]string {
	h := map[string]string{"Accept": "application/json"}
	if c.cfg.Cookie != "" {
		h["Cookie"] = c.cfg.Cookie
	}
	return h
}

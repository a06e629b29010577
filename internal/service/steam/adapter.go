package steam

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"PriceWatch/internal/domain/models"
	xhttp "PriceWatch/pkg/http"
	applogger "PriceWatch/pkg/logger"
)

var (
	reOrderSpread    = regexp.MustCompile(`Market_LoadOrderSpread\(\s*(\d+)`)
	reListenBuyOrder = regexp.MustCompile(`Market_ListenForBuyOrder\(\s*[^,]+,\s*(\d+)`)
	reWalletCurrency = regexp.MustCompile(`wallet_currency":(\d+)`)
)

// Adapter resolves an item key into a fully identified Item by scraping
// the listing page for its item_nameid and wallet currency.
type Adapter struct {
	c *Client
}

// NewAdapter creates an adapter on top of a market client.
func NewAdapter(c *Client) *Adapter {
	return &Adapter{c: c}
}

// Resolve fetches the listing page. A page without an item_nameid means the
// item is not ready yet and yields models.ErrAdapterUnavailable.
func (a *Adapter) Resolve(ctx context.Context, itemKey, displayName string) (models.Item, error) {
	if itemKey == "" {
		return models.Item{}, fmt.Errorf("%w: empty item key", models.ErrAdapterUnavailable)
	}
	if err := a.c.limiter.Wait(ctx, limitListing, a.c.cfg.RateCapacity, a.c.cfg.RateRefill); err != nil {
		return models.Item{}, fmt.Errorf("%w: %w", models.ErrAdapterUnavailable, err)
	}

	var page []byte
	err := a.c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     a.c.listingURL(itemKey),
		Headers: map[string]string{"Accept": "text/html"},
	}, &page)
	if err != nil {
		return models.Item{}, fmt.Errorf("%w: listing %s: %w", models.ErrAdapterUnavailable, itemKey, err)
	}

	nameID, ok := ExtractNameID(page)
	if !ok {
		return models.Item{}, fmt.Errorf("%w: no item_nameid on listing %s", models.ErrAdapterUnavailable, itemKey)
	}

	currency, ok := ExtractWalletCurrency(page)
	if !ok {
		currency = a.c.cfg.Currency
		a.c.log.Debug("wallet currency not on page, using default",
			applogger.String("item", itemKey),
			applogger.Int("currency", currency),
		)
	}

	return models.Item{
		Key:         itemKey,
		DisplayName: displayName,
		NameID:      nameID,
		Currency:    currency,
	}, nil
}

// ExtractNameID finds the numeric item_nameid in a listing page.
func ExtractNameID(page []byte) (string, bool) {
	for _, re := range []*regexp.Regexp{reOrderSpread, reListenBuyOrder} {
		if m := re.FindSubmatch(page); m != nil {
			return string(m[1]), true
		}
	}
	return "", false
}

// ExtractWalletCurrency finds the wallet currency id in a listing page.
func ExtractWalletCurrency(page []byte) (int, bool) {
	m := reWalletCurrency.FindSubmatch(page)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0, false
	}
	return n, true
}

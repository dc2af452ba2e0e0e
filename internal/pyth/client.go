// Package pyth fetches the latest price for a feed from a Hermes endpoint
// and normalizes it to the 8-decimal fixed-point scale used on chain.
package pyth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNoPrice is returned when the endpoint answers without a usable price for
// the requested feed: no parsed entry, an empty or zero mantissa, or zero
// confidence.
var ErrNoPrice = errors.New("no price data")

const targetDecimals = 8

type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: strings.TrimSpace(endpoint),
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Price is a single normalized feed observation.
type Price struct {
	FeedID      string
	Scaled      int64 // fixed-point, 8 implied decimals
	Expo        int32
	Conf        uint64
	PublishTime int64
}

type latestEnvelope struct {
	Parsed []feedUpdate `json:"parsed"`
}

type feedUpdate struct {
	ID    string        `json:"id"`
	Price priceSnapshot `json:"price"`
}

type priceSnapshot struct {
	Price       string `json:"price"`
	Conf        string `json:"conf"`
	Expo        int32  `json:"expo"`
	PublishTime int64  `json:"publish_time"`
}

// LatestPrice performs one request for the given feed id. Callers decide
// whether and how to retry; a failed fetch here is a failed fetch.
func (c *Client) LatestPrice(ctx context.Context, feedID string) (*Price, error) {
	feedID = strings.ToLower(strings.TrimSpace(feedID))
	if feedID == "" {
		return nil, fmt.Errorf("empty feed id")
	}

	requestURL, err := c.buildLatestURL(feedID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch price: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope latestEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode price response: %w", err)
	}

	for _, update := range envelope.Parsed {
		if strings.ToLower(strings.TrimSpace(update.ID)) != strings.TrimPrefix(feedID, "0x") {
			continue
		}
		price, err := normalizeUpdate(feedID, update)
		if err != nil {
			return nil, err
		}
		if c.logger != nil {
			c.logger.Debug(
				"fetched pyth price",
				"feed_id", feedID,
				"price", price.Scaled,
				"expo", price.Expo,
				"publish_time", price.PublishTime,
			)
		}
		return price, nil
	}

	return nil, fmt.Errorf("%w: feed %s absent from response", ErrNoPrice, feedID)
}

func (c *Client) buildLatestURL(feedID string) (string, error) {
	parsedURL, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse hermes endpoint: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return "", fmt.Errorf("invalid hermes endpoint: %q", c.endpoint)
	}
	parsedURL.Path = strings.TrimRight(parsedURL.Path, "/") + "/v2/updates/price/latest"

	query := parsedURL.Query()
	query.Del("ids[]")
	query.Add("ids[]", feedID)
	query.Set("parsed", "true")
	parsedURL.RawQuery = query.Encode()

	return parsedURL.String(), nil
}

func normalizeUpdate(feedID string, update feedUpdate) (*Price, error) {
	mantissa, ok := new(big.Int).SetString(strings.TrimSpace(update.Price.Price), 10)
	if !ok {
		return nil, fmt.Errorf("%w: feed %s has malformed mantissa %q", ErrNoPrice, feedID, update.Price.Price)
	}
	if mantissa.Sign() == 0 {
		return nil, fmt.Errorf("%w: feed %s reports zero price", ErrNoPrice, feedID)
	}

	conf, ok := new(big.Int).SetString(strings.TrimSpace(update.Price.Conf), 10)
	if !ok || conf.Sign() == 0 {
		return nil, fmt.Errorf("%w: feed %s reports zero confidence", ErrNoPrice, feedID)
	}

	scaled, err := rescaleMantissa(mantissa, update.Price.Expo)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", feedID, err)
	}

	confScaled := uint64(0)
	if rescaledConf, err := rescaleMantissa(conf, update.Price.Expo); err == nil && rescaledConf > 0 {
		confScaled = uint64(rescaledConf)
	}

	return &Price{
		FeedID:      feedID,
		Scaled:      scaled,
		Expo:        update.Price.Expo,
		Conf:        confScaled,
		PublishTime: update.Price.PublishTime,
	}, nil
}

// rescaleMantissa converts mantissa*10^expo to 8 implied decimals, rounding
// half away from zero when precision is dropped.
func rescaleMantissa(mantissa *big.Int, expo int32) (int64, error) {
	shift := int64(expo) + targetDecimals
	out := new(big.Int).Set(mantissa)

	switch {
	case shift > 0:
		out.Mul(out, pow10(shift))
	case shift < 0:
		divisor := pow10(-shift)
		remainder := new(big.Int)
		out.QuoRem(out, divisor, remainder)
		remainder.Abs(remainder)
		remainder.Lsh(remainder, 1)
		if remainder.Cmp(divisor) >= 0 {
			if mantissa.Sign() < 0 {
				out.Sub(out, big.NewInt(1))
			} else {
				out.Add(out, big.NewInt(1))
			}
		}
	}

	if !out.IsInt64() {
		return 0, fmt.Errorf("price overflows at 8 decimals (expo %d)", expo)
	}
	return out.Int64(), nil
}

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

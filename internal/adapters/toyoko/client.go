package toyoko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"toyoko_watch/internal/adapters/observability"
	"toyoko_watch/internal/domain"
)

const serviceName = "toyoko"

// pricesPath is the tRPC procedure answering room stock per hotel.
const pricesPath = "/api/trpc/hotels.availabilities.prices"

// browserHeaders makes the traffic look like the public site frontend.
// The availability endpoints reject clients that do not.
var browserHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/122.0.0.0 Safari/537.36",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "ja,en-US;q=0.9,en;q=0.8,zh-TW;q=0.7",
	"Referer":         "https://www.toyoko-inn.com/",
	"Origin":          "https://www.toyoko-inn.com",
	"Connection":      "keep-alive",
}

type Config struct {
	BaseURL string
	// BuildID is the Next.js build hash embedded in the search data URL.
	// It changes on every site deployment; requests start returning 404
	// when it goes stale.
	BuildID     string
	MinInterval time.Duration
	Jitter      time.Duration
}

// Client implements domain.AvailabilityClient over the hotel chain's public
// endpoints. Every outbound call waits on a fixed-interval limiter plus a
// uniform random jitter, so request timing never looks machine-regular.
// It is meant to be driven sequentially by a single worker.
type Client struct {
	base    string
	buildID string
	hc      *http.Client
	rl      *rate.Limiter
	pace    *pacer
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if cfg.BuildID == "" {
		return nil, errors.New("search build ID is required")
	}
	interval := cfg.MinInterval
	if interval <= 0 {
		interval = 1500 * time.Millisecond
	}
	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		buildID: cfg.BuildID,
		hc:      &http.Client{Timeout: 45 * time.Second},
		rl:      rate.NewLimiter(rate.Every(interval), 1),
		pace:    newPacer(cfg.Jitter),
	}, nil
}

// ---- domain.AvailabilityClient ----

type searchPayload struct {
	PageProps struct {
		SearchResponse struct {
			Area struct {
				AreaName string `json:"areaName"`
				Name     string `json:"name"`
			} `json:"area"`
			Hotels []struct {
				HotelCode string `json:"hotelCode"`
				HotelName string `json:"hotelName"`
			} `json:"hotels"`
		} `json:"searchResponse"`
	} `json:"pageProps"`
}

func (c *Client) SearchHotels(ctx context.Context, t domain.SearchTarget, w domain.StayWindow, occ domain.Occupancy) ([]domain.Hotel, string, error) {
	q := url.Values{}
	q.Set(string(t.Kind), t.Value)
	q.Set("people", strconv.Itoa(occ.People))
	q.Set("room", strconv.Itoa(occ.Rooms))
	q.Set("smoking", occ.Smoking)
	q.Set("start", w.CheckIn.UTC().Format("2006-01-02"))
	q.Set("end", w.CheckOut.UTC().Format("2006-01-02"))

	u := fmt.Sprintf("%s/_next/data/%s/china/search/result.json?%s", c.base, c.buildID, q.Encode())

	var payload searchPayload
	if err := c.get(ctx, "search", u, &payload); err != nil {
		return nil, "", err
	}

	sr := payload.PageProps.SearchResponse
	hotels := make([]domain.Hotel, 0, len(sr.Hotels))
	for _, h := range sr.Hotels {
		code := strings.TrimSpace(h.HotelCode)
		if code == "" {
			continue
		}
		hotels = append(hotels, domain.Hotel{Code: code, Name: strings.TrimSpace(h.HotelName)})
	}

	// Only area searches carry usable area metadata.
	label := ""
	if t.Kind == domain.TargetArea {
		name := sr.Area.AreaName
		if name == "" {
			name = sr.Area.Name
		}
		if name = strings.TrimSpace(name); name != "" {
			label = fmt.Sprintf("%s (%s)", name, t.Value)
		}
	}
	return hotels, label, nil
}

type priceEntry struct {
	LowestPrice            int  `json:"lowestPrice"`
	ExistEnoughVacantRooms bool `json:"existEnoughVacantRooms"`
	IsUnderMaintenance     bool `json:"isUnderMaintenance"`
}

type trpcEnvelope []struct {
	Result struct {
		Data struct {
			JSON struct {
				Prices map[string]priceEntry `json:"prices"`
			} `json:"json"`
		} `json:"data"`
	} `json:"result"`
}

func (c *Client) Availability(ctx context.Context, h domain.Hotel, w domain.StayWindow, occ domain.Occupancy) (domain.QueryResult, error) {
	input := map[string]any{
		"0": map[string]any{
			"json": map[string]any{
				"hotelCodes":     []string{h.Code},
				"checkinDate":    w.WireCheckIn(),
				"checkoutDate":   w.WireCheckOut(),
				"numberOfPeople": occ.People,
				"numberOfRoom":   occ.Rooms,
				"smokingType":    occ.Smoking,
			},
			"meta": map[string]any{
				"values": map[string]any{
					"checkinDate":  []string{"Date"},
					"checkoutDate": []string{"Date"},
				},
			},
		},
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return domain.QueryResult{}, err
	}
	q := url.Values{}
	q.Set("batch", "1")
	q.Set("input", string(raw))
	u := c.base + pricesPath + "?" + q.Encode()

	var env trpcEnvelope
	if err := c.get(ctx, "prices", u, &env); err != nil {
		return domain.QueryResult{}, err
	}
	if len(env) == 0 {
		return domain.QueryResult{}, fmt.Errorf("empty batch response for hotel %s", h.Code)
	}

	entry, ok := env[0].Result.Data.JSON.Prices[h.Code]
	if !ok {
		// The hotel exists but has no price entry for the window: sold out
		// (or not bookable), not an error.
		return domain.QueryResult{Hotel: h}, nil
	}
	return domain.QueryResult{
		Hotel:       h,
		Available:   entry.ExistEnoughVacantRooms && !entry.IsUnderMaintenance,
		LowestPrice: entry.LowestPrice,
	}, nil
}

// ---- internals ----

var (
	ErrNotFound  = errors.New("toyoko: not found")
	ErrForbidden = errors.New("toyoko: forbidden")
)

// get performs a paced GET with retries and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, endpoint, rawURL string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	if err := c.pace.wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		for k, v := range browserHeaders {
			req.Header.Set(k, v)
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			observability.ObserveExternal(serviceName, endpoint, 0, time.Since(start))
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal(serviceName, endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized, http.StatusForbidden:
			resp.Body.Close()
			return fmt.Errorf("%w: status %d", ErrForbidden, resp.StatusCode)

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

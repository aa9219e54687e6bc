package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kilianp07/fieldsched/core/holiday"
	"github.com/kilianp07/fieldsched/core/logger"
	"github.com/kilianp07/fieldsched/core/metrics"
	"github.com/kilianp07/fieldsched/core/model"
)

// CalendarificConfig configures the Calendarific holiday client.
type CalendarificConfig struct {
	APIKey string `json:"api_key" mapstructure:"api_key"`
	// BaseURL overrides the production endpoint, mainly for tests.
	BaseURL  string        `json:"base_url" mapstructure:"base_url"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
	Attempts uint          `json:"attempts" mapstructure:"attempts"`
}

const calendarificBaseURL = "https://calendarific.com/api/v2"

// Calendarific implements holiday.Calendar against the Calendarific API.
// Responses are cached per country, state, year and observance flag for the
// lifetime of the client, so one scheduling run hits the API at most once
// per query shape.
type Calendarific struct {
	cfg  CalendarificConfig
	cli  client
	log  logger.Logger
	mu   sync.Mutex
	byKy map[string][]model.Holiday
}

// NewCalendarific creates the client. The recorder is optional.
func NewCalendarific(cfg CalendarificConfig, log logger.Logger, rec metrics.ProviderCallRecorder) (*Calendarific, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("calendarific: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = calendarificBaseURL
	}
	return &Calendarific{
		cfg:  cfg,
		cli:  newClient(cfg.Timeout, cfg.Attempts, "holiday", "calendarific", rec),
		log:  log,
		byKy: map[string][]model.Holiday{},
	}, nil
}

// Name implements holiday.Calendar.
func (c *Calendarific) Name() string { return "calendarific" }

type calendarificResponse struct {
	Response struct {
		Holidays []struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Type        []string `json:"type"`
			Date        struct {
				ISO string `json:"iso"`
			} `json:"date"`
		} `json:"holidays"`
	} `json:"response"`
}

// Holidays implements holiday.Calendar.
func (c *Calendarific) Holidays(ctx context.Context, q holiday.Query) ([]model.Holiday, error) {
	key := fmt.Sprintf("%s/%s/%d/%t", q.Country, q.State, q.Year, q.IncludeObservances)
	c.mu.Lock()
	cached, ok := c.byKy[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	types := "national"
	if q.IncludeObservances {
		types = "national,local,religious,observance"
	}
	params := url.Values{}
	params.Set("api_key", c.cfg.APIKey)
	params.Set("country", q.Country)
	params.Set("year", fmt.Sprintf("%d", q.Year))
	params.Set("type", types)
	if q.State != "" {
		params.Set("location", fmt.Sprintf("%s-%s", strings.ToLower(q.Country), strings.ToLower(q.State)))
	}

	var resp calendarificResponse
	if err := c.cli.getJSON(ctx, c.cfg.BaseURL+"/holidays?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", holiday.ErrProviderUnavailable, err)
	}

	out := make([]model.Holiday, 0, len(resp.Response.Holidays))
	for _, h := range resp.Response.Holidays {
		date, err := parseISODate(h.Date.ISO)
		if err != nil {
			c.log.Warnf("calendarific: skipping %q: %v", h.Name, err)
			continue
		}
		out = append(out, model.Holiday{
			Name:            h.Name,
			Date:            date,
			Type:            strings.Join(h.Type, ", "),
			AffectsBusiness: affectsBusiness(h.Type),
			Description:     h.Description,
		})
	}

	c.mu.Lock()
	c.byKy[key] = out
	c.mu.Unlock()
	return out, nil
}

// affectsBusiness reports whether any of the Calendarific holiday types
// closes offices. Observances, seasons and local curiosities do not.
func affectsBusiness(types []string) bool {
	for _, t := range types {
		switch {
		case strings.Contains(t, "National holiday"),
			strings.Contains(t, "Federal"),
			strings.Contains(t, "Public"),
			strings.Contains(t, "Bank holiday"):
			return true
		}
	}
	return false
}

// parseISODate handles both plain dates and the datetime form Calendarific
// uses for shifted observances. The result is midnight UTC.
func parseISODate(iso string) (time.Time, error) {
	if len(iso) > 10 {
		iso = iso[:10]
	}
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", iso, err)
	}
	return t, nil
}

package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/fieldsched/core/metrics"
	"github.com/kilianp07/fieldsched/core/model"
	"github.com/kilianp07/fieldsched/core/timezone"
)

// WorldTimeConfig configures the WorldTime API client.
type WorldTimeConfig struct {
	BaseURL  string        `json:"base_url" mapstructure:"base_url"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
	Attempts uint          `json:"attempts" mapstructure:"attempts"`
}

const worldTimeBaseURL = "https://worldtimeapi.org/api"

// WorldTime implements timezone.Resolver. The zone identifier comes from the
// regional coordinate mapping; the API supplies the live offset, abbreviation
// and DST state for that zone.
type WorldTime struct {
	cfg WorldTimeConfig
	cli client
}

// NewWorldTime creates the client. The recorder is optional.
func NewWorldTime(cfg WorldTimeConfig, rec metrics.ProviderCallRecorder) *WorldTime {
	if cfg.BaseURL == "" {
		cfg.BaseURL = worldTimeBaseURL
	}
	return &WorldTime{
		cfg: cfg,
		cli: newClient(cfg.Timeout, cfg.Attempts, "timezone", "worldtime", rec),
	}
}

// Name implements timezone.Resolver.
func (w *WorldTime) Name() string { return "worldtime" }

type worldTimeResponse struct {
	Timezone     string `json:"timezone"`
	Abbreviation string `json:"abbreviation"`
	UTCOffset    string `json:"utc_offset"`
	DST          bool   `json:"dst"`
}

// Resolve implements timezone.Resolver.
func (w *WorldTime) Resolve(ctx context.Context, lat, lng float64) (model.TimezoneInfo, error) {
	zone := timezone.ZoneFor(lat, lng)

	var resp worldTimeResponse
	if err := w.cli.getJSON(ctx, w.cfg.BaseURL+"/timezone/"+zone, &resp); err != nil {
		return model.TimezoneInfo{}, fmt.Errorf("%w: %v", timezone.ErrProviderUnavailable, err)
	}

	offset, err := parseUTCOffset(resp.UTCOffset)
	if err != nil {
		return model.TimezoneInfo{}, fmt.Errorf("%w: %v", timezone.ErrProviderUnavailable, err)
	}
	id := resp.Timezone
	if id == "" {
		id = zone
	}
	return model.TimezoneInfo{
		ZoneID:        id,
		OffsetMinutes: offset,
		ObservesDST:   resp.DST,
		Abbreviation:  resp.Abbreviation,
	}, nil
}

// parseUTCOffset converts "+05:30" or "-06:00" to minutes.
func parseUTCOffset(s string) (int, error) {
	var sign rune
	var h, m int
	if _, err := fmt.Sscanf(s, "%c%02d:%02d", &sign, &h, &m); err != nil {
		return 0, fmt.Errorf("bad utc offset %q: %w", s, err)
	}
	total := h*60 + m
	switch sign {
	case '+':
		return total, nil
	case '-':
		return -total, nil
	}
	return 0, fmt.Errorf("bad utc offset %q", s)
}

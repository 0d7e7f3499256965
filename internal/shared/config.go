package shared

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"

	"toyoko_watch/internal/domain"
)

// Config enumerates every recognized option. It is loaded once at startup;
// validation failures are fatal before the first cycle runs.
type Config struct {
	AppEnv      string `envconfig:"APP_ENV" default:"prod"`
	MetricsAddr string `envconfig:"METRICS_ADDR"` // empty disables the ops server

	BaseURL       string `envconfig:"SEARCH_BASE_URL" default:"https://www.toyoko-inn.com"`
	SearchBuildID string `envconfig:"SEARCH_BUILD_ID" default:"Q26kEC5gXEbF5My2xy3e5"`

	// Search targets: at least one of the two lists is required.
	AreaIDs     []int    `envconfig:"AREA_IDS"`
	Prefectures []string `envconfig:"PREFECTURES"` // e.g. "13-all,27-all"

	CheckinDate  string `envconfig:"CHECKIN_DATE"`
	CheckoutDate string `envconfig:"CHECKOUT_DATE"` // empty: check-in + 1 day

	People     int      `envconfig:"NUMBER_OF_PEOPLE" default:"2"`
	Rooms      int      `envconfig:"NUMBER_OF_ROOM" default:"1"`
	Smoking    string   `envconfig:"SMOKING_TYPE" default:"all"`
	HotelCodes []string `envconfig:"HOTEL_CODES"` // allow-list; empty monitors every hotel

	NotifyOnFirstRun bool `envconfig:"NOTIFY_ON_FIRST_RUN" default:"false"`
	AlwaysNotify     bool `envconfig:"NOTIFY_WHEN_AVAILABLE_ALWAYS" default:"true"`
	NotifyOnEmpty    bool `envconfig:"NOTIFY_ON_EMPTY" default:"true"`

	MinRequestInterval time.Duration `envconfig:"MIN_REQUEST_INTERVAL" default:"1.5s"`
	RequestJitter      time.Duration `envconfig:"REQUEST_JITTER" default:"1.2s"`
	TargetLoopDelay    time.Duration `envconfig:"TARGET_LOOP_DELAY" default:"2s"`

	ScheduleInterval time.Duration `envconfig:"SCHEDULE_INTERVAL" default:"15m"`
	ScheduleJitter   time.Duration `envconfig:"SCHEDULE_JITTER" default:"30s"`
	RunOnce          bool          `envconfig:"RUN_ONCE" default:"false"`
	// CronSchedule, when set, replaces the interval loop with a cron spec
	// evaluated in CronTimezone.
	CronSchedule string `envconfig:"CRON_SCHEDULE"`
	CronTimezone string `envconfig:"CRON_TIMEZONE" default:"Asia/Taipei"`

	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `envconfig:"TELEGRAM_CHAT_ID"`
	LineChannelToken string `envconfig:"LINE_BOT_CHANNEL_ACCESS_TOKEN"`
	LineTo           string `envconfig:"LINE_BOT_TO"`
}

func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.CheckinDate == "" {
		errs = append(errs, errors.New("CHECKIN_DATE is required"))
	} else if _, err := c.Window(); err != nil {
		errs = append(errs, fmt.Errorf("stay window: %w", err))
	}
	if len(c.AreaIDs) == 0 && len(c.Prefectures) == 0 {
		errs = append(errs, errors.New("at least one of AREA_IDS or PREFECTURES must be set"))
	}
	if c.People < 1 || c.Rooms < 1 {
		errs = append(errs, fmt.Errorf("occupancy must be positive, got people=%d rooms=%d", c.People, c.Rooms))
	}
	if !c.TelegramEnabled() && !c.LineEnabled() {
		errs = append(errs, errors.New("no notification channel configured: set TELEGRAM_BOT_TOKEN+TELEGRAM_CHAT_ID and/or LINE_BOT_CHANNEL_ACCESS_TOKEN+LINE_BOT_TO"))
	}
	if c.CronSchedule != "" {
		if _, err := cron.ParseStandard(c.CronSchedule); err != nil {
			errs = append(errs, fmt.Errorf("CRON_SCHEDULE: %w", err))
		}
		if _, err := time.LoadLocation(c.CronTimezone); err != nil {
			errs = append(errs, fmt.Errorf("CRON_TIMEZONE: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (c Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

func (c Config) LineEnabled() bool {
	return c.LineChannelToken != "" && c.LineTo != ""
}

func (c Config) Window() (domain.StayWindow, error) {
	return domain.ParseStayWindow(c.CheckinDate, c.CheckoutDate)
}

func (c Config) Occupancy() domain.Occupancy {
	return domain.Occupancy{People: c.People, Rooms: c.Rooms, Smoking: c.Smoking}
}

// Targets returns the configured search targets, areas first, in the order
// given. Deduplication happens at resolution time.
func (c Config) Targets() []domain.SearchTarget {
	out := make([]domain.SearchTarget, 0, len(c.AreaIDs)+len(c.Prefectures))
	for _, id := range c.AreaIDs {
		out = append(out, domain.SearchTarget{Kind: domain.TargetArea, Value: strconv.Itoa(id)})
	}
	for _, p := range c.Prefectures {
		out = append(out, domain.SearchTarget{Kind: domain.TargetPrefecture, Value: p})
	}
	return out
}

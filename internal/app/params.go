package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"playreviews/internal/domain"
)

// Connector defaults, used when a configuration key is missing or blank.
const (
	DefaultAppID   = "com.telkomsel.telkomselcm"
	DefaultLang    = "id"
	DefaultCountry = "id"
	DefaultCount   = "100"
	DefaultSort    = "NEWEST"
)

var validate = validator.New()

// SyncConfig is the typed form of one target's text configuration. Text fields are
// always defaulted, so Count is the only field validation can reject.
type SyncConfig struct {
	AppID   string
	Lang    string
	Country string
	Sort    string
	Count   int `validate:"gt=0"`
}

// ParseSyncConfig coerces the connector's string configuration (keys app_id, lang,
// country, count, sort). Only a count that is not a positive integer is fatal.
func ParseSyncConfig(raw map[string]string) (SyncConfig, error) {
	get := func(k, def string) string {
		if v := strings.TrimSpace(raw[k]); v != "" {
			return v
		}
		return def
	}

	countText := get("count", DefaultCount)
	n, err := strconv.Atoi(countText)
	if err != nil {
		return SyncConfig{}, fmt.Errorf("%w: count %q is not an integer", domain.ErrInvalidConfig, countText)
	}

	c := SyncConfig{
		AppID:   get("app_id", DefaultAppID),
		Lang:    get("lang", DefaultLang),
		Country: get("country", DefaultCountry),
		Sort:    strings.ToUpper(get("sort", DefaultSort)),
		Count:   n,
	}
	if err := validate.Struct(c); err != nil {
		return SyncConfig{}, fmt.Errorf("%w: count %q: %v", domain.ErrInvalidConfig, countText, err)
	}
	return c, nil
}

func (c SyncConfig) Key() domain.StateKey {
	return domain.StateKey{AppID: c.AppID, Lang: c.Lang, Country: c.Country, Sort: c.Sort}
}

func (c SyncConfig) Locale() domain.Locale {
	return domain.Locale{AppID: c.AppID, Lang: c.Lang, Country: c.Country}
}

// ParseTargets parses every target; the first invalid one fails the whole set.
func ParseTargets(raw []map[string]string) ([]SyncConfig, error) {
	out := make([]SyncConfig, 0, len(raw))
	for i, r := range raw {
		c, err := ParseSyncConfig(r)
		if err != nil {
			return nil, fmt.Errorf("target %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

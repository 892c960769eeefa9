package pricing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ciaohost/concierge/pkg/catalog"
	"github.com/ciaohost/concierge/pkg/logger"
)

// DateLayout is the ISO date format of season boundaries.
const DateLayout = "2006-01-02"

const (
	MinModifier = -50
	MaxModifier = 100
)

var (
	ErrSeasonNotFound = errors.New("season not found")
	ErrInvalidSeason  = errors.New("invalid season")
)

// Season is a named date range, both ends included, over which nightly
// prices move by PriceModifier percent.
type Season struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	PriceModifier int    `json:"price_modifier"`
	Notes         string `json:"notes,omitempty"`
}

// Contains compares calendar days in the location of date.
func (s Season) Contains(date time.Time) bool {
	day := date.Format(DateLayout)
	return s.StartDate <= day && day <= s.EndDate
}

// Adjust applies the season's modifier to a base price.
func (s Season) Adjust(price float64) float64 {
	return price * (1 + float64(s.PriceModifier)/100)
}

// Label is the period name used in market data: "Alta" becomes
// "Alta Stagione", custom names are kept.
func (s Season) Label() string {
	switch s.Name {
	case "Alta", "Media", "Bassa":
		return s.Name + " Stagione"
	}
	return s.Name
}

func (s Season) validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidSeason)
	}
	start, err := time.Parse(DateLayout, s.StartDate)
	if err != nil {
		return fmt.Errorf("%w: start date %q", ErrInvalidSeason, s.StartDate)
	}
	end, err := time.Parse(DateLayout, s.EndDate)
	if err != nil {
		return fmt.Errorf("%w: end date %q", ErrInvalidSeason, s.EndDate)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: ends before it starts", ErrInvalidSeason)
	}
	if s.PriceModifier < MinModifier || s.PriceModifier > MaxModifier {
		return fmt.Errorf("%w: modifier must be between %d%% and %d%%", ErrInvalidSeason, MinModifier, MaxModifier)
	}
	return nil
}

// DefaultSeasons is summer high season, spring mid season and autumn low
// season for year.
func DefaultSeasons(year int) []Season {
	y := strconv.Itoa(year)
	return []Season{
		{ID: "1", Name: "Alta", StartDate: y + "-06-01", EndDate: y + "-08-31", PriceModifier: 20, Notes: "Estate"},
		{ID: "2", Name: "Media", StartDate: y + "-04-01", EndDate: y + "-05-31", PriceModifier: 10, Notes: "Primavera"},
		{ID: "3", Name: "Bassa", StartDate: y + "-09-01", EndDate: y + "-11-30", PriceModifier: -10, Notes: "Autunno"},
	}
}

// SeasonFor returns the first season containing date.
func SeasonFor(seasons []Season, date time.Time) (Season, bool) {
	for _, s := range seasons {
		if s.Contains(date) {
			return s, true
		}
	}
	return Season{}, false
}

// ApplySeason sets the market period from s and records the seasonal list
// price of p.
func ApplySeason(m MarketData, p catalog.Property, s Season) MarketData {
	m.Season = s.Label()
	m.SeasonModifier = s.PriceModifier
	m.SeasonalPrice = s.Adjust(p.Price)
	return m
}

// Calendar is the content of the seasons file.
type Calendar struct {
	Seasons []Season `json:"seasons"`
}

// Add validates s and appends it with a fresh id.
func (c *Calendar) Add(s Season) (Season, error) {
	s.Name = strings.TrimSpace(s.Name)
	if err := s.validate(); err != nil {
		return Season{}, err
	}
	s.ID = c.nextID()
	c.Seasons = append(c.Seasons, s)
	return s, nil
}

func (c *Calendar) Remove(id string) (Season, error) {
	for i, s := range c.Seasons {
		if s.ID == id {
			c.Seasons = append(c.Seasons[:i], c.Seasons[i+1:]...)
			return s, nil
		}
	}
	return Season{}, fmt.Errorf("%w: %s", ErrSeasonNotFound, id)
}

func (c *Calendar) nextID() string {
	taken := make(map[string]bool, len(c.Seasons))
	for _, s := range c.Seasons {
		taken[s.ID] = true
	}
	n := len(c.Seasons) + 1
	for taken[strconv.Itoa(n)] {
		n++
	}
	return strconv.Itoa(n)
}

// SeasonStore persists the season calendar as a JSON file.
type SeasonStore struct {
	path string
	now  func() time.Time
}

func NewSeasonStore(path string) *SeasonStore {
	return &SeasonStore{path: path, now: time.Now}
}

// Load reads the calendar. A missing or unreadable file is replaced by the
// default seasons of the current year.
func (s *SeasonStore) Load() (*Calendar, error) {
	data, err := os.ReadFile(s.path)
	if err == nil {
		var cal Calendar
		if err = json.Unmarshal(data, &cal); err == nil && cal.Seasons != nil {
			return &cal, nil
		}
		if err == nil {
			err = errors.New("no seasons list")
		}
	}

	if !errors.Is(err, os.ErrNotExist) {
		logger.WarnCF("pricing", "Seasons file unusable, using defaults", map[string]any{
			"path":  s.path,
			"error": err.Error(),
		})
	}
	cal := &Calendar{Seasons: DefaultSeasons(s.now().Year())}
	return cal, s.Save(cal)
}

func (s *SeasonStore) Save(cal *Calendar) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(cal); err != nil {
		return fmt.Errorf("encoding seasons: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("saving seasons: %w", err)
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("saving seasons: %w", err)
	}
	return nil
}

package analytics

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/linkgate/urlshortener/internal/models"
)

// DefaultTimelineDays is the length of the clicks-over-time series.
const DefaultTimelineDays = 30

const dayLayout = "2006-01-02"

// Bucket is one entry of a ranked breakdown.
type Bucket struct {
	Name   string `json:"name"`
	Clicks int64  `json:"clicks"`
}

// DayCount is one point of the clicks-over-time series.
type DayCount struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}

// Summary is the read-only analytics view of a single link.
type Summary struct {
	TotalClicks    int64      `json:"total_clicks"`
	TodayClicks    int64      `json:"today_clicks"`
	TopCountries   []Bucket   `json:"top_countries"`
	TopCities      []Bucket   `json:"top_cities"`
	TopDevices     []Bucket   `json:"top_devices"`
	TopBrowsers    []Bucket   `json:"top_browsers"`
	TopOS          []Bucket   `json:"top_os"`
	TopReferrers   []Bucket   `json:"top_referrers"`
	ClicksOverTime []DayCount `json:"clicks_over_time"`
}

// Summarize aggregates clicks as of now. The timeline covers the last days
// calendar days (UTC) ending today, oldest first, with empty days set to zero.
func Summarize(clicks []models.Click, now time.Time, days int) Summary {
	if days <= 0 {
		days = DefaultTimelineDays
	}
	now = now.UTC()
	today := now.Format(dayLayout)

	countries := map[string]int64{}
	cities := map[string]int64{}
	devices := map[string]int64{}
	browsers := map[string]int64{}
	systems := map[string]int64{}
	referrers := map[string]int64{}
	perDay := map[string]int64{}

	s := Summary{TotalClicks: int64(len(clicks))}
	for _, c := range clicks {
		day := c.ClickedAt.UTC().Format(dayLayout)
		if day == today {
			s.TodayClicks++
		}
		perDay[day]++

		countries[orDefault(c.Country, models.UnknownValue)]++
		cities[orDefault(c.City, models.UnknownValue)]++
		devices[orDefault(c.Device, models.DefaultDevice)]++
		browsers[orDefault(c.Browser, models.UnknownValue)]++
		systems[orDefault(c.OS, models.UnknownValue)]++
		referrers[ReferrerDomain(c.Referer)]++
	}

	s.TopCountries = Rank(countries)
	s.TopCities = Rank(cities)
	s.TopDevices = Rank(devices)
	s.TopBrowsers = Rank(browsers)
	s.TopOS = Rank(systems)
	s.TopReferrers = Rank(referrers)

	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))
	s.ClicksOverTime = make([]DayCount, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format(dayLayout)
		s.ClicksOverTime = append(s.ClicksOverTime, DayCount{Date: day, Clicks: perDay[day]})
	}
	return s
}

// Rank orders counts by clicks descending, then by name.
func Rank(counts map[string]int64) []Bucket {
	buckets := make([]Bucket, 0, len(counts))
	for name, n := range counts {
		buckets = append(buckets, Bucket{Name: name, Clicks: n})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Clicks != buckets[j].Clicks {
			return buckets[i].Clicks > buckets[j].Clicks
		}
		return buckets[i].Name < buckets[j].Name
	})
	return buckets
}

// ReferrerDomain reduces a Referer header to its host. Absent referrers are
// Direct; values that don't parse as absolute URLs are kept as-is.
func ReferrerDomain(referer *string) string {
	if referer == nil || strings.TrimSpace(*referer) == "" {
		return models.DirectReferer
	}
	raw := strings.TrimSpace(*referer)
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

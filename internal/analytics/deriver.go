// Package analytics derives visitor attributes from raw request metadata and
// summarises recorded clicks for dashboards.
package analytics

import (
	"net"
	"strings"

	"github.com/mileusna/useragent"
	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"

	"github.com/linkgate/urlshortener/internal/models"
)

// UnknownIP is recorded when no client address header is present.
const UnknownIP = "unknown"

// Attributes are the visitor properties stored with a click.
type Attributes struct {
	IPAddress string
	UserAgent string
	Referer   *string
	Country   string
	City      string
	Device    string
	Browser   string
	OS        string
}

// Location is the result of a geography lookup.
type Location struct {
	Country string
	City    string
}

// GeoLookup resolves an address to a location. ok is false on a miss.
type GeoLookup interface {
	Lookup(ip net.IP) (loc Location, ok bool)
}

// Deriver turns request metadata into Attributes. It never fails: anything it
// cannot determine is recorded with its sentinel value.
type Deriver struct {
	geo GeoLookup
	log *zap.Logger
}

// NewDeriver creates a Deriver. geo may be nil, in which case every location
// is unknown.
func NewDeriver(geo GeoLookup, log *zap.Logger) *Deriver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Deriver{geo: geo, log: log}
}

// ClientIP picks the visitor address: the first X-Forwarded-For entry, else
// X-Real-IP, else UnknownIP.
func ClientIP(forwardedFor, realIP string) string {
	if forwardedFor != "" {
		first := strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
		if first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(realIP); ip != "" {
		return ip
	}
	return UnknownIP
}

// Derive parses the user agent and resolves the address.
func (d *Deriver) Derive(userAgent, ip string, referer *string) (attrs Attributes) {
	attrs = Attributes{
		IPAddress: ip,
		UserAgent: userAgent,
		Referer:   referer,
		Country:   models.UnknownValue,
		City:      models.UnknownValue,
		Device:    models.DefaultDevice,
		Browser:   models.UnknownValue,
		OS:        models.UnknownValue,
	}

	// A parser fault must not cost the visitor their redirect.
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Analytics derivation panicked", zap.Any("panic", r), zap.String("user_agent", userAgent))
		}
	}()

	attrs.Device, attrs.Browser, attrs.OS = parseUserAgent(userAgent)
	attrs.Country, attrs.City = d.locate(ip)
	return attrs
}

// knownBrowsers lists the names useragent.Parse assigns on a positive match.
// Anything else is the library echoing back an unrecognised token.
var knownBrowsers = map[string]bool{
	useragent.Chrome:           true,
	useragent.HeadlessChrome:   true,
	useragent.Firefox:          true,
	useragent.Safari:           true,
	useragent.Edge:             true,
	useragent.Opera:            true,
	useragent.OperaMini:        true,
	useragent.OperaTouch:       true,
	useragent.Vivaldi:          true,
	useragent.InternetExplorer: true,
	useragent.SamsungBrowser:   true,
	useragent.NetFront:         true,
	useragent.BlackBerry:       true,
	useragent.FacebookApp:      true,
	useragent.InstagramApp:     true,
	useragent.TiktokApp:        true,
	"Huawei Browser":           true,
	"Miui Browser":             true,
	"Android browser":          true,
}

func parseUserAgent(raw string) (device, browser, os string) {
	device, browser, os = models.DefaultDevice, models.UnknownValue, models.UnknownValue
	if strings.TrimSpace(raw) == "" {
		return
	}

	ua := useragent.Parse(raw)
	switch {
	case ua.Tablet:
		device = "Tablet"
	case ua.Mobile:
		device = "Mobile"
	}
	if knownBrowsers[ua.Name] {
		browser = ua.Name
	}
	if ua.OS != "" {
		os = ua.OS
	}
	return
}

func (d *Deriver) locate(raw string) (country, city string) {
	country, city = models.UnknownValue, models.UnknownValue
	if d.geo == nil {
		return
	}

	ip := net.ParseIP(raw)
	if ip == nil || !isPublic(ip) {
		return
	}
	loc, ok := d.geo.Lookup(ip)
	if !ok {
		return
	}
	if loc.Country != "" {
		country = loc.Country
	}
	if loc.City != "" {
		city = loc.City
	}
	return
}

func isPublic(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast())
}

// MaxMindLookup resolves addresses with a local MaxMind City database.
type MaxMindLookup struct {
	reader *geoip2.Reader
}

// OpenMaxMind opens the .mmdb file at path.
func OpenMaxMind(path string) (*MaxMindLookup, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &MaxMindLookup{reader: reader}, nil
}

// Lookup returns the ISO country code and English city name of ip.
func (m *MaxMindLookup) Lookup(ip net.IP) (Location, bool) {
	record, err := m.reader.City(ip)
	if err != nil || record == nil {
		return Location{}, false
	}
	loc := Location{
		Country: record.Country.IsoCode,
		City:    record.City.Names["en"],
	}
	return loc, loc.Country != "" || loc.City != ""
}

// Close releases the database.
func (m *MaxMindLookup) Close() error {
	return m.reader.Close()
}

package intel

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/risk-analyzer/internal/model"
)

// Locator geolocates an IP address. A nil error with GeoError set means the
// backend answered but had no location.
type Locator interface {
	Locate(ctx context.Context, ip string) (model.GeoInfo, error)
}

// DefaultGeoBaseURL is the free ip-api.com JSON endpoint.
const DefaultGeoBaseURL = "http://ip-api.com/json"

// IPAPI geolocates through ip-api.com, which allows 45 requests a minute
// without a key.
type IPAPI struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewIPAPI creates an ip-api locator limited to perMin requests a minute.
func NewIPAPI(baseURL string, perMin int, hc *http.Client) *IPAPI {
	if baseURL == "" {
		baseURL = DefaultGeoBaseURL
	}
	if perMin <= 0 {
		perMin = 45
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &IPAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
	}
}

type ipAPIResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
	City       string `json:"city"`
	ISP        string `json:"isp"`
	Org        string `json:"org"`
	AS         string `json:"as"`
}

// Locate implements Locator.
func (c *IPAPI) Locate(ctx context.Context, ip string) (model.GeoInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.GeoInfo{}, eris.Wrap(err, "geo: rate limit wait")
	}

	endpoint := c.baseURL + "/" + url.PathEscape(ip) + "?fields=status,message,country,regionName,city,isp,org,as"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.GeoInfo{}, eris.Wrap(err, "geo: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return model.GeoInfo{}, eris.Wrap(err, "geo: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return model.GeoInfo{}, eris.Errorf("geo: HTTP %d", resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.GeoInfo{}, eris.Wrap(err, "geo: unmarshal response")
	}

	info := model.GeoInfo{IPAddress: ip}
	if body.Status != "success" {
		info.GeoError = firstNonEmpty(body.Message, "Geolocation lookup failed")
		return info, nil
	}
	info.Country = body.Country
	info.Region = body.RegionName
	info.City = body.City
	info.ISP = body.ISP
	info.Org = body.Org
	info.ASN = body.AS
	return info, nil
}

// MaxMind geolocates from a local GeoLite2 or GeoIP2 City database.
type MaxMind struct {
	reader *geoip2.Reader
}

// OpenMaxMind opens the .mmdb file at path.
func OpenMaxMind(path string) (*MaxMind, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open %s", path)
	}
	return &MaxMind{reader: r}, nil
}

// Close releases the database.
func (m *MaxMind) Close() error {
	return m.reader.Close()
}

// Locate implements Locator.
func (m *MaxMind) Locate(_ context.Context, ip string) (model.GeoInfo, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return model.GeoInfo{}, eris.Errorf("geo: invalid ip address %q", ip)
	}
	rec, err := m.reader.City(parsed)
	if err != nil {
		return model.GeoInfo{}, eris.Wrap(err, "geo: city lookup")
	}

	info := model.GeoInfo{
		IPAddress: ip,
		Country:   rec.Country.Names["en"],
		City:      rec.City.Names["en"],
	}
	if len(rec.Subdivisions) > 0 {
		info.Region = rec.Subdivisions[0].Names["en"]
	}
	if info.Country == "" {
		info.GeoError = "Geolocation lookup failed"
	}
	return info, nil
}

const dnsFailure = "DNS resolution failed, domain does not exist"

func (g *Gatherer) lookupGeo(ctx context.Context, host string) model.Lookup[model.GeoInfo] {
	if host == "" {
		return model.NotFound[model.GeoInfo]("Could not extract hostname")
	}

	ip := host
	if net.ParseIP(host) == nil {
		addrs, err := g.resolve(ctx, host)
		if err != nil {
			var dnsErr *net.DNSError
			if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
				return model.NotFound[model.GeoInfo](dnsFailure)
			}
			return model.NotFound[model.GeoInfo](err.Error())
		}
		ip = pickIPv4(addrs)
		if ip == "" {
			return model.NotFound[model.GeoInfo](dnsFailure)
		}
	}

	info, err := g.locator.Locate(ctx, ip)
	if err != nil {
		return model.Found(model.GeoInfo{IPAddress: ip, GeoError: err.Error()})
	}
	return model.Found(info)
}

// pickIPv4 prefers the first IPv4 address, falling back to the first of any
// family.
func pickIPv4(addrs []string) string {
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			return a
		}
	}
	if len(addrs) > 0 {
		return addrs[0]
	}
	return ""
}

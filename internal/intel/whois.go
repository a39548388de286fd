package intel

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/rotisserie/eris"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/sells-group/risk-analyzer/internal/model"
)

// WHOISFunc returns the raw WHOIS record for a domain.
type WHOISFunc func(ctx context.Context, domain string) (string, error)

// NewWHOISClient returns a WHOISFunc backed by likexian/whois.
func NewWHOISClient(timeout time.Duration) WHOISFunc {
	c := whois.NewClient().SetTimeout(timeout)
	return func(ctx context.Context, domain string) (string, error) {
		type result struct {
			raw string
			err error
		}
		ch := make(chan result, 1)
		go func() {
			raw, err := c.Whois(domain)
			ch <- result{raw, err}
		}()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case r := <-ch:
			return r.raw, r.err
		}
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 MST",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
	"2006/01/02",
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// RegistrableDomain reduces host to the name a registry holds a record for,
// e.g. login.secure.example.co.uk becomes example.co.uk. Internationalized
// names are converted to their ASCII form first.
func RegistrableDomain(host string) string {
	if net.ParseIP(host) != nil {
		return host
	}
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}

func (g *Gatherer) lookupWHOIS(ctx context.Context, host string) model.Lookup[model.WHOISInfo] {
	if host == "" {
		return model.NotFound[model.WHOISInfo]("Could not extract hostname")
	}
	domain := RegistrableDomain(host)

	raw, err := g.whois(ctx, domain)
	if err != nil {
		return model.NotFound[model.WHOISInfo](eris.Wrap(err, "whois").Error())
	}
	info, err := whoisparser.Parse(raw)
	if err != nil {
		return model.NotFound[model.WHOISInfo](eris.Wrap(err, "whois").Error())
	}

	out := model.WHOISInfo{
		DomainName:  domain,
		Registrar:   "Unknown",
		NameServers: []string{},
	}
	if d := info.Domain; d != nil {
		if d.Domain != "" {
			out.DomainName = d.Domain
		}
		out.CreationDate = parseDate(d.CreatedDate)
		out.ExpirationDate = parseDate(d.ExpirationDate)
		if len(d.NameServers) > 0 {
			out.NameServers = d.NameServers
		}
	}
	if r := info.Registrar; r != nil && r.Name != "" {
		out.Registrar = r.Name
	}
	if r := info.Registrant; r != nil {
		out.Org = r.Organization
		out.Country = r.Country
	}
	if out.CreationDate != nil {
		days := int(g.now().Sub(*out.CreationDate).Hours() / 24)
		out.DomainAgeDays = &days
	}
	return model.Found(out)
}

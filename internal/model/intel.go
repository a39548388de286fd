package model

import "time"

// Lookup is the typed outcome of one domain intelligence lookup.
type Lookup[T any] struct {
	Available bool   `json:"available"`
	Data      *T     `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Found wraps a successful lookup.
func Found[T any](data T) Lookup[T] {
	return Lookup[T]{Available: true, Data: &data}
}

// NotFound wraps a failed lookup.
func NotFound[T any](reason string) Lookup[T] {
	return Lookup[T]{Error: reason}
}

// IntelReport bundles the domain intelligence gathered for a URL.
type IntelReport struct {
	WHOIS      Lookup[WHOISInfo]      `json:"whois"`
	SSL        Lookup[SSLInfo]        `json:"ssl"`
	DNSGeo     Lookup[GeoInfo]        `json:"dns_geo"`
	Unshorten  Lookup[UnshortenInfo]  `json:"unshorten"`
	Screenshot Lookup[ScreenshotInfo] `json:"screenshot"`
}

// WHOISInfo is the parsed registration record of a domain.
type WHOISInfo struct {
	DomainName     string     `json:"domain_name"`
	Registrar      string     `json:"registrar"`
	CreationDate   *time.Time `json:"creation_date"`
	ExpirationDate *time.Time `json:"expiration_date"`
	DomainAgeDays  *int       `json:"domain_age_days"`
	NameServers    []string   `json:"name_servers"`
	Org            string     `json:"org,omitempty"`
	Country        string     `json:"country,omitempty"`
}

// SSLInfo describes the leaf certificate served for an HTTPS URL.
type SSLInfo struct {
	Subject      string     `json:"subject,omitempty"`
	Issuer       string     `json:"issuer,omitempty"`
	IssuedDate   *time.Time `json:"issued_date"`
	ExpiryDate   *time.Time `json:"expiry_date"`
	IsExpired    bool       `json:"is_expired"`
	SerialNumber string     `json:"serial_number,omitempty"`
	Version      int        `json:"version,omitempty"`
	// VerifyError is set when the chain did not verify.
	VerifyError string `json:"verify_error,omitempty"`
}

// GeoInfo is the resolved address of a host and its location.
type GeoInfo struct {
	IPAddress string `json:"ip_address"`
	Country   string `json:"country,omitempty"`
	Region    string `json:"region,omitempty"`
	City      string `json:"city,omitempty"`
	ISP       string `json:"isp,omitempty"`
	Org       string `json:"org,omitempty"`
	ASN       string `json:"asn,omitempty"`
	// GeoError is set when the address resolved but geolocation failed.
	GeoError string `json:"geo_error,omitempty"`
}

// UnshortenInfo is the destination of a shortened URL.
type UnshortenInfo struct {
	IsShortened         bool   `json:"is_shortened"`
	FinalURL            string `json:"final_url"`
	RedirectChainLength int    `json:"redirect_chain_length"`
}

// ScreenshotInfo points at a rendered preview of the page.
type ScreenshotInfo struct {
	URL string `json:"url"`
}

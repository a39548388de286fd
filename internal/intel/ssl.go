package intel

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/sells-group/risk-analyzer/internal/model"
)

func isVerifyError(err error) bool {
	var (
		certErr     *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	return errors.As(err, &certErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr)
}

// lookupSSL inspects the leaf certificate of an HTTPS URL. A certificate
// that fails verification is still reported, flagged as expired, because a
// bad chain is itself evidence.
func (g *Gatherer) lookupSSL(ctx context.Context, rawURL string) model.Lookup[model.SSLInfo] {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "https" {
		return model.NotFound[model.SSLInfo]("URL is not HTTPS, no SSL certificate")
	}
	host := u.Hostname()
	if host == "" {
		return model.NotFound[model.SSLInfo]("Could not extract hostname")
	}
	port := u.Port()
	if port == "" {
		port = "443"
	}

	d := tls.Dialer{
		NetDialer: &net.Dialer{},
		Config:    &tls.Config{ServerName: host, RootCAs: g.rootCAs, MinVersion: tls.VersionTLS12},
	}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		if isVerifyError(err) {
			return model.Found(model.SSLInfo{
				IsExpired:   true,
				VerifyError: "SSL verification failed: " + err.Error(),
			})
		}
		return model.NotFound[model.SSLInfo](err.Error())
	}
	defer conn.Close() //nolint:errcheck

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return model.NotFound[model.SSLInfo]("No certificate returned")
	}
	leaf := state.PeerCertificates[0]

	info := model.SSLInfo{
		Subject:      firstNonEmpty(leaf.Subject.CommonName, "Unknown"),
		Issuer:       "Unknown",
		IsExpired:    g.now().After(leaf.NotAfter),
		SerialNumber: fmt.Sprintf("%X", leaf.SerialNumber),
		Version:      leaf.Version,
	}
	if len(leaf.Issuer.Organization) > 0 {
		info.Issuer = leaf.Issuer.Organization[0]
	} else if leaf.Issuer.CommonName != "" {
		info.Issuer = leaf.Issuer.CommonName
	}
	issued, expiry := leaf.NotBefore.UTC(), leaf.NotAfter.UTC()
	info.IssuedDate, info.ExpiryDate = &issued, &expiry

	return model.Found(info)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

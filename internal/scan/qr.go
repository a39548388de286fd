package scan

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/risk-analyzer/internal/intel"
	"github.com/sells-group/risk-analyzer/internal/model"
	"github.com/sells-group/risk-analyzer/internal/qr"
)

// DefaultMaxImageBytes bounds an uploaded QR image.
const DefaultMaxImageBytes = qr.MaxImageBytes

// ScanQR decodes the QR code in image, follows the encoded URL's redirects
// and scores the final destination.
func (s *Service) ScanQR(ctx context.Context, image []byte) (*model.ScanResult, error) {
	if int64(len(image)) > s.maxImageBytes {
		return nil, invalid("Image too large (max %dMB)", s.maxImageBytes>>20)
	}
	if !strings.HasPrefix(http.DetectContentType(image), "image/") {
		return nil, invalid("File must be an image (PNG, JPG, etc.)")
	}

	text, err := qr.Decode(image)
	if err != nil {
		var de *qr.DecodeError
		if errors.Is(err, qr.ErrNoCode) || errors.As(err, &de) {
			return nil, invalid("%s", err.Error())
		}
		return nil, err
	}

	extracted := strings.TrimSpace(text)
	if !hasScheme(extracted) {
		extracted = "http://" + extracted
	}
	final, hops := s.followRedirects(ctx, extracted)

	res, err := s.scanURL(ctx, final)
	if err != nil {
		return nil, err
	}
	res.ScanType = model.ScanTypeQR
	res.QR = &model.QRInfo{ExtractedURL: extracted, FinalURL: final, RedirectCount: hops}
	s.record(ctx, res)
	return res, nil
}

// followRedirects resolves u to its final destination. Any failure leaves u
// as the destination with zero hops.
func (s *Service) followRedirects(ctx context.Context, u string) (string, int) {
	ctx, cancel := context.WithTimeout(ctx, s.redirectTimeout)
	defer cancel()

	r, err := intel.FollowRedirects(ctx, s.http, u, intel.DefaultMaxHops)
	if err != nil {
		zap.L().Debug("scan: qr redirect follow failed", zap.String("url", u), zap.Error(err))
		return u, 0
	}
	return r.FinalURL, r.Hops
}

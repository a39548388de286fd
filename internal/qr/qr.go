// Package qr extracts the payload of a QR code from an uploaded image.
package qr

import (
	"bytes"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/rotisserie/eris"
)

// MaxImageBytes is the default upload limit.
const MaxImageBytes = 10 << 20

// ErrNoCode is returned when the image decodes but holds no readable QR code.
var ErrNoCode = eris.New("No QR code found in image")

// DecodeError wraps an image that could not be read at all.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "QR decode failed: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

var hints = map[gozxing.DecodeHintType]interface{}{
	gozxing.DecodeHintType_TRY_HARDER: true,
}

// Decode returns the text of the QR code in data.
func Decode(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", &DecodeError{Err: err}
	}
	return DecodeImage(img)
}

// DecodeImage returns the text of the QR code in img.
func DecodeImage(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", &DecodeError{Err: err}
	}
	res, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil || res.GetText() == "" {
		return "", ErrNoCode
	}
	return res.GetText(), nil
}

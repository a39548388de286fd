package qr

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodePNG renders text as a QR code PNG.
func encodePNG(t *testing.T, text string) []byte {
	t.Helper()
	matrix, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, 256, 256, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, matrix))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	got, err := Decode(encodePNG(t, "http://paypa1-secure.xyz/login"))
	require.NoError(t, err)
	assert.Equal(t, "http://paypa1-secure.xyz/login", got)
}

func TestDecode_BareHost(t *testing.T) {
	got, err := Decode(encodePNG(t, "bit.ly/abc123"))
	require.NoError(t, err)
	assert.Equal(t, "bit.ly/abc123", got)
}

func TestDecode_NoCode(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = color.White.Y
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	_, err := Decode(buf.Bytes())
	assert.ErrorIs(t, err, ErrNoCode)
	assert.Equal(t, "No QR code found in image", err.Error())
}

func TestDecode_NotAnImage(t *testing.T) {
	_, err := Decode([]byte("definitely not a png"))
	require.Error(t, err)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Contains(t, err.Error(), "QR decode failed:")
}

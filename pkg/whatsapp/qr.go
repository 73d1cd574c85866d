package whatsapp

import (
	"encoding/base64"

	"github.com/pkg/errors"
	qrCode "github.com/skip2/go-qrcode"
)

// QRDataURL renders a pairing code as a PNG data URL for browsers.
func QRDataURL(code string) (string, error) {
	qrPNG, err := qrCode.Encode(code, qrCode.Medium, 256)
	if err != nil {
		return "", errors.Wrap(err, "encode qr code")
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(qrPNG), nil
}

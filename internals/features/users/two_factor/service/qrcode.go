package service

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/boombuler/barcode/qr"
	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

const (
	QRFormatPNG  = "png"
	QRFormatWebP = "webp"

	qrWidth     = 200
	qrQuietZone = 2 // modules
)

// RenderQRDataURL draws uri as a QR code and returns it as a data: URL.
// Modules are scaled with nearest neighbour so edges stay sharp.
func RenderQRDataURL(uri, format string) (string, error) {
	code, err := qr.Encode(uri, qr.M, qr.Auto)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}

	modules := code.Bounds().Dx()
	side := modules + 2*qrQuietZone
	canvas := imaging.New(side, side, color.White)
	canvas = imaging.Paste(canvas, code, image.Pt(qrQuietZone, qrQuietZone))
	img := imaging.Resize(canvas, qrWidth, qrWidth, imaging.NearestNeighbor)

	buf := new(bytes.Buffer)
	mime := "image/png"
	switch strings.ToLower(strings.TrimSpace(format)) {
	case QRFormatWebP:
		if err := webp.Encode(buf, img, &webp.Options{Lossless: true}); err != nil {
			return "", fmt.Errorf("encode webp: %w", err)
		}
		mime = "image/webp"
	default:
		if err := png.Encode(buf, img); err != nil {
			return "", fmt.Errorf("encode png: %w", err)
		}
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

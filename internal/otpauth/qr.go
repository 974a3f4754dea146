package otpauth

import (
	"fmt"
	"io"
	"strings"

	"github.com/skip2/go-qrcode"
)

// RenderQR draws content as a QR code for a terminal, two modules per
// character row.
func RenderQR(content string) (string, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("qr encode: %w", err)
	}
	bitmap := qr.Bitmap()

	var sb strings.Builder
	for y := 0; y < len(bitmap); y += 2 {
		for x := range bitmap[y] {
			top := bitmap[y][x]
			bottom := y+1 < len(bitmap) && bitmap[y+1][x]
			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// WritePNG writes content as a size x size PNG QR code.
func WritePNG(w io.Writer, content string, size int) error {
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return fmt.Errorf("qr encode: %w", err)
	}
	_, err = w.Write(png)
	return err
}

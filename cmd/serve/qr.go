package serve

import (
	"fmt"
	"io"
	"strings"

	"github.com/skip2/go-qrcode"
)

// Terminals are usually dark, so modules are drawn as ANSI background
// blocks: black for data, white for the quiet zone and empty cells.
const (
	qrDark  = "\033[40m  \033[0m"
	qrLight = "\033[47m  \033[0m"
)

func printQR(w io.Writer, text string) error {
	qr, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("generating qr code: %w", err)
	}
	_, err = io.WriteString(w, renderQR(qr.Bitmap()))
	return err
}

func renderQR(matrix [][]bool) string {
	var b strings.Builder
	for _, row := range matrix {
		for _, dark := range row {
			if dark {
				b.WriteString(qrDark)
			} else {
				b.WriteString(qrLight)
			}
		}
		b.WriteString("\033[0m\n")
	}
	return b.String()
}

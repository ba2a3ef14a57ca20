package qrcode

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/skip2/go-qrcode"
)

const DefaultSize = 300

// Generator renders a QR code for payload and returns where it was stored.
type Generator interface {
	Generate(payload string) (string, error)
}

// FileGenerator writes PNG files named after the md5 of their payload, so
// regenerating the same payload overwrites the same file.
type FileGenerator struct {
	Dir  string
	Size int
}

func NewFileGenerator(dir string, size int) (*FileGenerator, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create QR directory: %w", err)
	}
	return &FileGenerator{Dir: dir, Size: size}, nil
}

func (g *FileGenerator) Generate(payload string) (string, error) {
	sum := md5.Sum([]byte(payload))
	path := filepath.Join(g.Dir, hex.EncodeToString(sum[:])+".png")

	if err := qrcode.WriteFile(payload, qrcode.Low, g.Size, path); err != nil {
		return "", fmt.Errorf("failed to write QR code: %w", err)
	}

	return path, nil
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(payload string) (string, error)

func (f GeneratorFunc) Generate(payload string) (string, error) {
	return f(payload)
}

// Nop stores nothing and returns an empty path.
var Nop Generator = GeneratorFunc(func(string) (string, error) { return "", nil })

func GenerateDataURI(payload string) (string, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR code: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(png)

	return fmt.Sprintf("data:image/png;base64,%s", encoded), nil
}

func GenerateASCII(payload string) (string, error) {
	qr, err := qrcode.New(payload, qrcode.Low)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR code: %w", err)
	}

	bitmap := qr.Bitmap()

	var sb strings.Builder

	for i := 0; i < len(bitmap); i++ {
		for j := 0; j < len(bitmap[i]); j++ {
			if bitmap[i][j] {
				sb.WriteString("██")
			} else {
				sb.WriteString("  ")
			}
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

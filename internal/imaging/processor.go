// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging normalises uploaded centre logos.
package imaging

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/olegiv/ecdsites/internal/util"
)

// Logo limits.
const (
	LogoMaxWidth  = 512
	LogoMaxHeight = 512
	MaxLogoBytes  = 5 << 20
)

var (
	// ErrUnsupportedImage is returned for data that is not a JPEG, PNG, GIF or WebP image.
	ErrUnsupportedImage = errors.New("unsupported image format")
	// ErrImageTooLarge is returned when an upload exceeds MaxLogoBytes.
	ErrImageTooLarge = errors.New("image exceeds maximum upload size")
)

// LogoResult describes a stored logo.
type LogoResult struct {
	Path   string // relative to the uploads directory, slash separated
	Width  int
	Height int
	Size   int64
}

// Processor stores logos under <uploadDir>/logos/<tenant id>/.
type Processor struct {
	uploadDir string
}

// NewProcessor creates a new image processor.
func NewProcessor(uploadDir string) *Processor {
	return &Processor{uploadDir: uploadDir}
}

// SaveLogo decodes an uploaded image, applies its EXIF orientation, fits it
// into LogoMaxWidth x LogoMaxHeight and stores it as PNG. Earlier logos of
// the tenant are removed.
func (p *Processor) SaveLogo(tenantID string, r io.Reader) (*LogoResult, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxLogoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxLogoBytes {
		return nil, ErrImageTooLarge
	}

	if detectFormat(data) == "" {
		return nil, ErrUnsupportedImage
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))

	b := img.Bounds()
	if b.Dx() > LogoMaxWidth || b.Dy() > LogoMaxHeight {
		img = imaging.Fit(img, LogoMaxWidth, LogoMaxHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding logo: %w", err)
	}

	dir, err := p.logoDir(tenantID)
	if err != nil {
		return nil, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("removing previous logo: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating logo directory: %w", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	filename := fmt.Sprintf("logo-%x.png", sum[:6])
	if err := os.WriteFile(filepath.Join(dir, filename), buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("saving logo: %w", err)
	}

	final := img.Bounds()
	return &LogoResult{
		Path:   path.Join("logos", tenantID, filename),
		Width:  final.Dx(),
		Height: final.Dy(),
		Size:   int64(buf.Len()),
	}, nil
}

// DeleteLogos removes every stored logo of a tenant.
func (p *Processor) DeleteLogos(tenantID string) error {
	dir, err := p.logoDir(tenantID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting logos: %w", err)
	}
	return nil
}

func (p *Processor) logoDir(tenantID string) (string, error) {
	if tenantID == "" || tenantID == "." || strings.ContainsAny(tenantID, `/\`) || strings.Contains(tenantID, "..") {
		return "", fmt.Errorf("invalid tenant id %q", tenantID)
	}
	dir, err := util.SafeJoinPath(p.uploadDir, "logos", tenantID)
	if err != nil {
		return "", fmt.Errorf("resolving logo directory: %w", err)
	}
	return dir, nil
}

// readExifOrientation reads the EXIF orientation tag from image data.
// Returns 1 (normal) if orientation cannot be determined.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

// applyOrientation undoes the camera rotation recorded in EXIF (values 1-8).
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// detectFormat sniffs the image format. TIFF is rejected (CVE-2023-36308 in
// disintegration/imaging).
func detectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	switch {
	case strings.Contains(contentType, "tiff"):
		return ""
	case strings.Contains(contentType, "jpeg"):
		return "jpeg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return ""
	}
}

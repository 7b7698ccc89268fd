package export

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/topdraw/topdraw/pkg/errors"
)

// Format is an output image format.
type Format string

// Supported formats.
const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	TIFF Format = "tiff"
)

// DefaultQuality is the JPEG quality used when none is given.
const DefaultQuality = 0.9

var formatAliases = map[string]Format{
	"png":  PNG,
	"jpeg": JPEG,
	"jpg":  JPEG,
	"tiff": TIFF,
	"tif":  TIFF,
}

// ParseFormat maps a format name or file extension (case-insensitive, with
// or without the leading dot) to a Format.
func ParseFormat(s string) (Format, error) {
	if f, ok := formatAliases[strings.ToLower(strings.TrimPrefix(s, "."))]; ok {
		return f, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported image format %q (must be one of: png, jpeg, tiff)", s)
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case JPEG:
		return ".jpg"
	case TIFF:
		return ".tiff"
	}
	return ".png"
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	return "image/" + string(f)
}

// Encode writes img to w in format f. quality applies to JPEG only and is
// clamped to [0, 1]; zero selects DefaultQuality.
func Encode(w io.Writer, img image.Image, f Format, quality float64) error {
	var err error
	switch f {
	case PNG:
		err = png.Encode(w, img)
	case JPEG:
		if quality <= 0 {
			quality = DefaultQuality
		}
		q := int(min(quality, 1) * 100)
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: max(q, 1)})
	case TIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unsupported image format %q", f)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode %s", f)
	}
	return nil
}

// WriteImage encodes img to path. When path has no extension, the format's
// extension is appended. It returns the path written.
func WriteImage(img image.Image, path string, f Format, quality float64) (string, error) {
	if path == "" {
		return "", errors.New(errors.ErrCodeInvalidPath, "empty output path")
	}
	if filepath.Ext(path) == "" {
		path += f.Extension()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", dir)
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", path)
	}
	if err := Encode(out, img, f, quality); err != nil {
		out.Close()
		os.Remove(path)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// Partition cuts img into one image per screen. Screens are given in
// desktop coordinates; img covers their bounding box with its top-left
// corner at the box's minimum. With fewer than two screens img is returned
// as is.
func Partition(img image.Image, screens []image.Rectangle) []image.Image {
	if len(screens) < 2 {
		return []image.Image{img}
	}
	origin := Union(screens).Min
	b := img.Bounds()
	parts := make([]image.Image, 0, len(screens))
	for _, s := range screens {
		r := s.Sub(origin).Add(b.Min).Intersect(b)
		parts = append(parts, subImage(img, r))
	}
	return parts
}

// Union returns the bounding box of screens.
func Union(screens []image.Rectangle) image.Rectangle {
	var u image.Rectangle
	for _, s := range screens {
		u = u.Union(s)
	}
	return u
}

func subImage(img image.Image, r image.Rectangle) image.Image {
	if s, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return s.SubImage(r)
	}
	dst := image.NewRGBA(image.Rectangle{Max: r.Size()})
	xdraw.Draw(dst, dst.Bounds(), img, r.Min, xdraw.Src)
	return dst
}

// PartitionAndWrite partitions img for screens and writes each part. A
// single part is written to base plus the format extension; several parts
// are numbered from 1 as base-N.
func PartitionAndWrite(img image.Image, screens []image.Rectangle, base string, f Format, quality float64) ([]string, error) {
	parts := Partition(img, screens)
	paths := make([]string, 0, len(parts))
	for i, part := range parts {
		path := base + f.Extension()
		if len(parts) > 1 {
			path = fmt.Sprintf("%s-%d%s", base, i+1, f.Extension())
		}
		written, err := WriteImage(part, path, f, quality)
		if err != nil {
			return paths, err
		}
		paths = append(paths, written)
	}
	return paths, nil
}

// Thumbnail scales img down so its longer side is at most maxSide pixels,
// keeping the aspect ratio. Images already small enough are returned as is.
func Thumbnail(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return img
	}
	scale := float64(maxSide) / float64(max(w, h))
	tw := max(int(float64(w)*scale+0.5), 1)
	th := max(int(float64(h)*scale+0.5), 1)
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// =============================================================================
// Storage
// =============================================================================

const appName = "topdraw"

func dataDir() (string, error) {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return filepath.Join(d, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

// ImageStorageDir returns the directory rendered images are saved to by
// default, creating it if needed.
func ImageStorageDir() (string, error) {
	return storageDir("images")
}

// ScriptStorageDir returns the directory scripts are listed from by
// default, creating it if needed.
func ScriptStorageDir() (string, error) {
	return storageDir("scripts")
}

func storageDir(name string) (string, error) {
	base, err := dataDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "locate data directory")
	}
	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", dir)
	}
	return dir, nil
}

// NextBaseName returns a new, unique file name stem.
func NextBaseName() string {
	return appName + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

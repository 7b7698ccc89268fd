// Package fonts provides the embedded font faces scripts can draw text with.
//
// The Go font family is embedded in the binary through
// golang.org/x/image/font/gofont, so rendering never depends on fonts
// installed on the host and text output is identical on every machine.
// Common desktop font names are mapped onto the closest embedded face.
package fonts

import (
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/topdraw/topdraw/pkg/errors"
)

// DefaultName is the face used when a script asks for no particular font or
// for one that is not available.
const DefaultName = "Go"

type embedded struct {
	name string
	ttf  []byte

	once sync.Once
	font *opentype.Font
	err  error
}

var faces = []*embedded{
	{name: "Go", ttf: goregular.TTF},
	{name: "Go-Bold", ttf: gobold.TTF},
	{name: "Go-Italic", ttf: goitalic.TTF},
	{name: "Go-Mono", ttf: gomono.TTF},
}

// aliases maps lower-cased desktop font names onto embedded faces.
var aliases = map[string]string{
	"helvetica":      "Go",
	"arial":          "Go",
	"lucida grande":  "Go",
	"sans":           "Go",
	"sans-serif":     "Go",
	"serif":          "Go",
	"times":          "Go",
	"helvetica-bold": "Go-Bold",
	"arial-bold":     "Go-Bold",
	"bold":           "Go-Bold",
	"italic":         "Go-Italic",
	"courier":        "Go-Mono",
	"monaco":         "Go-Mono",
	"menlo":          "Go-Mono",
	"monospace":      "Go-Mono",
}

// Names returns the names of the embedded faces.
func Names() []string {
	out := make([]string, len(faces))
	for i, f := range faces {
		out[i] = f.name
	}
	return out
}

// Resolve maps a requested font name to an embedded face name. The match is
// case-insensitive. ok is false when name was not recognised and the default
// face was substituted.
func Resolve(name string) (resolved string, ok bool) {
	if name == "" {
		return DefaultName, true
	}
	for _, f := range faces {
		if strings.EqualFold(f.name, name) {
			return f.name, true
		}
	}
	if alias, found := aliases[strings.ToLower(name)]; found {
		return alias, true
	}
	return DefaultName, false
}

// Face returns a new face for the named font at size pixels. Faces hold
// glyph caches and are not safe for concurrent use; parsed fonts are shared.
func Face(name string, size float64) (font.Face, error) {
	if size <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "font size must be positive, got %v", size)
	}
	resolved, _ := Resolve(name)
	var e *embedded
	for _, f := range faces {
		if f.name == resolved {
			e = f
			break
		}
	}
	e.once.Do(func() {
		e.font, e.err = opentype.Parse(e.ttf)
	})
	if e.err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, e.err, "parse font %s", e.name)
	}
	face, err := opentype.NewFace(e.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create %s face", e.name)
	}
	return face, nil
}

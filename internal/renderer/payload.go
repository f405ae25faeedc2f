package renderer

import (
	"mime"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/heimdex/heimdex-editor/internal/overlay"
	"github.com/heimdex/heimdex-editor/internal/playback"
)

const (
	maxAssetNameLen = 128
	baseVideoName   = "input.mp4"
)

// Metadata is the JSON document sent in the "metadata" form field.
type Metadata struct {
	Overlays []overlay.Overlay `json:"overlays"`
}

// BuildMetadata copies the overlay list, replacing the content of every
// asset-bearing overlay with the file name its asset is uploaded under.
func BuildMetadata(overlays []overlay.Overlay) Metadata {
	out := make([]overlay.Overlay, len(overlays))
	for i, o := range overlays {
		if o.Kind.HasAsset() {
			o.Content = AssetName(o)
		}
		out[i] = o
	}
	return Metadata{Overlays: out}
}

// AssetName is the upload file name for an overlay's asset: the base name of
// its content, or "<id>.png" / "<id>.mp4" when none can be derived.
func AssetName(o overlay.Overlay) string {
	ref := strings.TrimSpace(playback.LocalPath(o.Content))
	if ref != "" && !strings.HasSuffix(ref, "/") {
		if name := SanitizeName(path.Base(filepath.ToSlash(ref)), maxAssetNameLen); name != "" && name != "." {
			return name
		}
	}
	if o.Kind == overlay.KindVideo {
		return SanitizeName(o.ID, maxAssetNameLen) + ".mp4"
	}
	return SanitizeName(o.ID, maxAssetNameLen) + ".png"
}

// assetContentType picks the part content type from the file extension,
// falling back to a kind-level wildcard.
func assetContentType(o overlay.Overlay, name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	if o.Kind == overlay.KindVideo {
		return "video/*"
	}
	return "image/*"
}

// SanitizeName strips control characters and replaces anything outside a
// conservative file-name alphabet with '_'.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}

package constants

import "strings"

// DocFormat is the parsing strategy family chosen for a source document.
type DocFormat string

// Stable values (store these exact strings in ledger rows).
const (
	FormatStructured  DocFormat = "STRUCTURED" // machine-readable markup (NF-e XML)
	FormatPageImage   DocFormat = "PAGE_IMAGE" // PDF or image; text layer decided downstream
	FormatText        DocFormat = "TEXT"       // plain text, no acquisition needed
	FormatUnsupported DocFormat = "UNSUPPORTED"
)

// AllowedExtensions holds the file extensions the folder source picks up,
// lowercased and without the dot.
var AllowedExtensions = map[string]struct{}{
	"xml":  {},
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tiff": {},
	"bmp":  {},
	"txt":  {},
}

// mediaTypeByExt maps extensions to the declared media type the source
// attaches when none is known. Unknown extensions map to octet-stream.
var mediaTypeByExt = map[string]string{
	"xml":  "application/xml",
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"tiff": "image/tiff",
	"bmp":  "image/bmp",
	"txt":  "text/plain",
}

var imageExts = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tiff": {},
	"bmp":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsImageExt reports whether the normalized extension is a raster image.
func IsImageExt(ext string) bool {
	_, ok := imageExts[NormalizeExt(ext)]
	return ok
}

// MediaTypeForExt returns the declared media type for a normalized extension.
func MediaTypeForExt(ext string) string {
	if mt, ok := mediaTypeByExt[NormalizeExt(ext)]; ok {
		return mt
	}
	return "application/octet-stream"
}

package classify

import (
	"path/filepath"
	"strings"

	"github.com/dfalmeida/notas-extractor/constants"
)

// Classify picks the parsing strategy family for a document.
// Rules are applied in priority order; the declared media type catches
// files whose extension is missing or wrong. Whether a PDF page actually
// carries a text layer is decided downstream, not here.
func Classify(filename, mediaType string) constants.DocFormat {
	ext := constants.NormalizeExt(filepath.Ext(filename))
	mt := strings.ToLower(strings.TrimSpace(mediaType))

	switch {
	case ext == "xml":
		return constants.FormatStructured
	case ext == "pdf" || strings.Contains(mt, "pdf"):
		return constants.FormatPageImage
	case constants.IsImageExt(ext) || strings.Contains(mt, "image"):
		return constants.FormatPageImage
	case mt == "text/plain" || ext == "txt":
		return constants.FormatText
	default:
		return constants.FormatUnsupported
	}
}

package constants

import "strings"

// SourceKind classifies an input file by how its text is obtained.
type SourceKind string

const (
	SourceImage SourceKind = "IMAGE"
	SourcePDF   SourceKind = "PDF"
	SourceText  SourceKind = "TEXT"
	SourceSheet SourceKind = "SHEET"
	SourceHTML  SourceKind = "HTML"
)

// extensionKinds maps every accepted extension to its source kind.
var extensionKinds = map[string]SourceKind{
	"pdf":  SourcePDF,
	"jpg":  SourceImage,
	"jpeg": SourceImage,
	"png":  SourceImage,
	"webp": SourceImage,
	"tif":  SourceImage,
	"tiff": SourceImage,
	"bmp":  SourceImage,
	"heic": SourceImage,
	"heif": SourceImage,
	"txt":  SourceText,
	"text": SourceText,
	"xlsx": SourceSheet,
	"xlsm": SourceSheet,
	"csv":  SourceSheet,
	"tsv":  SourceSheet,
	"html": SourceHTML,
	"htm":  SourceHTML,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// KindForExt reports the source kind for an extension.
func KindForExt(ext string) (SourceKind, bool) {
	k, ok := extensionKinds[NormalizeExt(ext)]
	return k, ok
}

// Allowed reports whether files with this extension are ingested.
func Allowed(ext string) bool {
	_, ok := KindForExt(ext)
	return ok
}

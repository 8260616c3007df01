package constants

import "strings"

// Method is the provenance tag carried by every extraction result. It is a
// closed enumeration: the fixed tags below plus the native:/ocr:/error:
// prefixed forms built by the constructors.
type Method string

// Stable values (store these exact strings in the state file).
const (
	MethodNoMatch   Method = "no_match"   // text acquired but no heuristic matched
	MethodEmptyText Method = "empty_text" // no usable text layer, OCR not run or produced nothing
	MethodTimeout   Method = "timeout"    // OCR exceeded its bounded duration
)

const (
	nativePrefix = "native:"
	ocrPrefix    = "ocr:"
	errorPrefix  = "error:"
)

// NativeMethod tags a value extracted from the document's text layer.
// The variant names the layout heuristic that matched, e.g. "sefip_classico".
func NativeMethod(variant string) Method {
	return Method(nativePrefix + variant)
}

// OCRMethod tags a value extracted from OCR-acquired text.
func OCRMethod(variant string) Method {
	return Method(ocrPrefix + variant)
}

// ErrorMethod tags a document-level failure that degraded to a null result.
func ErrorMethod(detail string) Method {
	return Method(errorPrefix + detail)
}

// IsOCR reports whether the value came through the OCR path. Zero values with
// OCR provenance are quarantined rather than applied (small glyphs misread as
// zero are common).
func (m Method) IsOCR() bool {
	return strings.HasPrefix(string(m), ocrPrefix)
}

// IsError reports whether the tag records an engine fault.
func (m Method) IsError() bool {
	return strings.HasPrefix(string(m), errorPrefix)
}

// IsFailure reports whether the tag represents a null result (no value).
func (m Method) IsFailure() bool {
	switch m {
	case MethodNoMatch, MethodEmptyText, MethodTimeout:
		return true
	}
	return m.IsError()
}

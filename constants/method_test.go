package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMethodTags(t *testing.T) {
	assert.Equal(t, Method("native:sefip_classico"), NativeMethod("sefip_classico"))
	assert.Equal(t, Method("ocr:ocr_fgts"), OCRMethod("ocr_fgts"))
	assert.Equal(t, Method("error:pdftotext"), ErrorMethod("pdftotext"))
}

func TestMethodPredicates(t *testing.T) {
	assert.True(t, OCRMethod("ocr_fgts").IsOCR())
	assert.False(t, NativeMethod("sefip_classico").IsOCR())

	assert.True(t, MethodNoMatch.IsFailure())
	assert.True(t, MethodEmptyText.IsFailure())
	assert.True(t, MethodTimeout.IsFailure())
	assert.True(t, ErrorMethod("ocr").IsFailure())
	assert.False(t, NativeMethod("fgts_extrato").IsFailure())
	assert.False(t, OCRMethod("ocr_fgts").IsFailure())
}

package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds runtime configuration sourced from the environment. It is
// built once in cmd/ and passed into components; nothing reads os.Getenv
// after startup.
type Config struct {
	OCR   OCRConfig
	State StateConfig
}

// OCRConfig holds acquisition-related configuration.
type OCRConfig struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string        // default "por"
	DPI           int           // rasterization DPI for scanned PDFs, default 200
	MaxPages      int           // leading pages OCRed per document, default 6
	Timeout       time.Duration // per-document OCR budget, default 120s
}

// StateConfig holds state-store configuration.
type StateConfig struct {
	Dir string // state directory inside the site folder, default ".docledger"
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		OCR: OCRConfig{
			Pdftotext:     getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:      getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "por"),
			DPI:           getEnvAsInt("OCR_DPI", 200),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 6),
			Timeout:       getEnvAsDuration("OCR_TIMEOUT", 120*time.Second),
		},
		State: StateConfig{
			Dir: getEnv("STATE_DIR", ".docledger"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.OCR.DPI <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_DPI must be positive", ErrInvalidInput)
	}
	if c.OCR.Timeout <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_TIMEOUT must be positive", ErrInvalidInput)
	}
	return nil
}

package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/xuri/excelize/v2"

	"github.com/obrasoft/docledger/internal/document"
)

// firstLedgerColumn is where period columns begin on the ledger sheet
// (A = contractor number, B = contractor name).
const firstLedgerColumn = 3

// Contractor is one tracked entity: a ledger row plus a document folder.
type Contractor struct {
	ID     string `json:"id"`
	Folder string `json:"folder"`
	Name   string `json:"name"`
}

// SiteConfig is the immutable per-site configuration. It is loaded once from
// site.json, validated, and passed explicitly into every component.
type SiteConfig struct {
	SiteName string `json:"site_name"`
	// Registration is the construction-site registration number (CNO).
	// Field heuristics anchor on it to pick the right block of multi-party
	// documents.
	Registration string `json:"site_registration"`

	LedgerFile   string `json:"ledger_file"`
	LedgerSheet  string `json:"ledger_sheet"`
	SummarySheet string `json:"summary_sheet"`
	RowStart     int    `json:"row_start"`

	PeriodStart document.Period `json:"period_start"`
	PeriodEnd   document.Period `json:"period_end"`

	// Plausibility window for extracted years; syntactic period matches
	// outside it are discarded as false positives.
	MinYear int `json:"min_year"`
	MaxYear int `json:"max_year"`

	PayrollSubfolders []string `json:"payroll_subfolders"`
	InvoiceSubfolders []string `json:"invoice_subfolders"`

	Contractors []Contractor `json:"contractors"`

	// BaseDir is the site folder the config was loaded from; not part of
	// the JSON document.
	BaseDir string `json:"-"`
}

const siteSchema = `{
  "type": "object",
  "required": ["site_name", "site_registration", "contractors", "period_start", "period_end"],
  "properties": {
    "site_name": {"type": "string", "minLength": 1},
    "site_registration": {"type": "string", "pattern": "^[0-9]+$"},
    "ledger_file": {"type": "string"},
    "ledger_sheet": {"type": "string"},
    "summary_sheet": {"type": "string"},
    "row_start": {"type": "integer", "minimum": 1},
    "period_start": {"type": "string", "pattern": "^[0-9]{2}/[0-9]{4}$"},
    "period_end": {"type": "string", "pattern": "^[0-9]{2}/[0-9]{4}$"},
    "min_year": {"type": "integer"},
    "max_year": {"type": "integer"},
    "payroll_subfolders": {"type": "array", "items": {"type": "string"}},
    "invoice_subfolders": {"type": "array", "items": {"type": "string"}},
    "contractors": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "folder"],
        "properties": {
          "id": {"type": "string", "pattern": "^[0-9]+$"},
          "folder": {"type": "string", "minLength": 1},
          "name": {"type": "string"}
        }
      }
    }
  }
}`

// LoadSiteConfig reads and validates <siteDir>/site.json (looking in the
// state directory first, then the site root) and fills in defaults.
func LoadSiteConfig(siteDir, stateDir string) (*SiteConfig, error) {
	for _, path := range []string{
		filepath.Join(siteDir, stateDir, "site.json"),
		filepath.Join(siteDir, "site.json"),
	} {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read site config: %w", err)
		}
		cfg, err := ParseSiteConfig(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		cfg.BaseDir = siteDir
		return cfg, nil
	}
	return nil, NewAppError("SITE_CONFIG", "site.json not found in "+siteDir, ErrNotFound)
}

// ParseSiteConfig validates raw JSON against the site schema and decodes it.
func ParseSiteConfig(raw []byte) (*SiteConfig, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("site.schema.json", bytes.NewReader([]byte(siteSchema))); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("site.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("unmarshal site config: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("site config does not match schema: %w", err)
	}

	var cfg SiteConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if cfg.PeriodEnd.Before(cfg.PeriodStart) {
		return nil, NewAppError("SITE_CONFIG", "period_end precedes period_start", ErrValidation)
	}
	return &cfg, nil
}

func (c *SiteConfig) applyDefaults() {
	if c.LedgerSheet == "" {
		c.LedgerSheet = "Alocação de colaboradores"
	}
	if c.SummarySheet == "" {
		c.SummarySheet = "RESUMO"
	}
	if c.RowStart == 0 {
		c.RowStart = 5
	}
	if c.MinYear == 0 {
		c.MinYear = 2020
	}
	if c.MaxYear == 0 {
		c.MaxYear = 2030
	}
	if len(c.PayrollSubfolders) == 0 {
		c.PayrollSubfolders = []string{
			"SEFIP", "DOCUMENTOS MENSAIS", "DOCUMENTAÇÕES MENSAIS",
			"ENTREGA DE DOCUMENTOS MENSAIS", "DOMENTAÇÃO MENSAL",
		}
	}
	if len(c.InvoiceSubfolders) == 0 {
		c.InvoiceSubfolders = []string{"NOTA FISCAL", "NOTAS FISCAIS", "NFSE"}
	}
}

// Periods returns every reporting period tracked by this site, in order.
func (c *SiteConfig) Periods() []document.Period {
	return document.PeriodRange(c.PeriodStart, c.PeriodEnd)
}

// YearInWindow reports whether a year is inside the plausibility window.
func (c *SiteConfig) YearInWindow(year int) bool {
	return year >= c.MinYear && year <= c.MaxYear
}

// Row returns the 1-based ledger row for an entity, or 0 when unknown.
// Contractors occupy consecutive rows starting at RowStart, in config order.
func (c *SiteConfig) Row(entityID string) int {
	for i, e := range c.Contractors {
		if e.ID == entityID {
			return c.RowStart + i
		}
	}
	return 0
}

// Column returns the ledger column name ("C", "D", ... ) for a period, or ""
// when the period lies outside the configured range.
func (c *SiteConfig) Column(p document.Period) string {
	if p.Before(c.PeriodStart) || c.PeriodEnd.Before(p) {
		return ""
	}
	idx := firstLedgerColumn
	for q := c.PeriodStart; q.Before(p); q = q.Next() {
		idx++
	}
	name, err := excelize.ColumnNumberToName(idx)
	if err != nil {
		return ""
	}
	return name
}

// Contractor returns the configured entity with the given id.
func (c *SiteConfig) Contractor(entityID string) (Contractor, bool) {
	for _, e := range c.Contractors {
		if e.ID == entityID {
			return e, true
		}
	}
	return Contractor{}, false
}

// EntityIDs returns all configured entity ids in config order.
func (c *SiteConfig) EntityIDs() []string {
	ids := make([]string, 0, len(c.Contractors))
	for _, e := range c.Contractors {
		ids = append(ids, e.ID)
	}
	return ids
}

// LedgerPath returns the absolute path of the ledger workbook.
func (c *SiteConfig) LedgerPath() string {
	name := c.LedgerFile
	if strings.TrimSpace(name) == "" {
		name = "ledger.xlsx"
	}
	return filepath.Join(c.BaseDir, name)
}

package options

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgetfilter/internal/dimension"
)

// SheetsConfig locates the option table in a spreadsheet.
type SheetsConfig struct {
	SpreadsheetID string
	// SheetName holds a Field | Code | Label table with a header row.
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Sheets reads options from a Google Sheets tab.
type Sheets struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewSheets creates a read-only Sheets client from service account credentials.
func NewSheets(ctx context.Context, cfg SheetsConfig) (*Sheets, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Dimensions"
	}

	var credentials []byte
	switch {
	case cfg.CredentialsJSON != "":
		credentials = []byte(cfg.CredentialsJSON)
	case cfg.CredentialsFile != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentials = b
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Sheets{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheetName: sheetName}, nil
}

func (s *Sheets) Options(ctx context.Context, field dimension.Field) ([]dimension.Option, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return catalog[field], nil
}

// Catalog reads the whole table in one call.
func (s *Sheets) Catalog(ctx context.Context) (Catalog, error) {
	rng := fmt.Sprintf("%s!A:C", s.sheetName)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseOptionRows(resp.Values)
}

// parseOptionRows converts a values matrix with a Field/Code/Label header
// into a catalog. Header matching is case-insensitive and column order is
// free; rows with an empty field or code are skipped.
func parseOptionRows(values [][]interface{}) (Catalog, error) {
	catalog := Catalog{}
	if len(values) == 0 {
		return catalog, nil
	}

	headers := toStrings(values[0])
	colField := indexOf(headers, "field")
	colCode := indexOf(headers, "code")
	colLabel := indexOf(headers, "label")
	if colField == -1 || colCode == -1 {
		return nil, fmt.Errorf("unexpected option sheet header: %v", headers)
	}

	for _, raw := range values[1:] {
		row := toStrings(raw)
		field := dimension.Field(strings.ToLower(safeGet(row, colField)))
		code := safeGet(row, colCode)
		if field == "" || code == "" {
			continue
		}
		label := code
		if colLabel != -1 {
			if l := safeGet(row, colLabel); l != "" {
				label = l
			}
		}
		catalog[field] = append(catalog[field], dimension.Option{Code: code, Label: label})
	}
	for field, opts := range catalog {
		catalog[field] = dedupe(opts)
	}
	return catalog, nil
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

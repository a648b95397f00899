package catalog

import (
	"bufio"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/parquet-go/parquet-go"
	"github.com/realmall/storefront/internal/images"
	"github.com/realmall/storefront/internal/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Loader reads the product catalog from a file, or from the built-in
// catalog when no path is configured.
type Loader struct {
	path     string
	validate *validator.Validate
}

// NewLoader creates a new catalog loader
func NewLoader(path string) *Loader {
	return &Loader{
		path:     path,
		validate: validator.New(),
	}
}

// productRow is the flat on-disk shape used for Parquet.
type productRow struct {
	ID          string  `parquet:"id"`
	Name        string  `parquet:"name"`
	Category    string  `parquet:"category"`
	Price       string  `parquet:"price"`
	Description string  `parquet:"description"`
	Image       string  `parquet:"image"`
	Rating      float64 `parquet:"rating"`
}

// Load reads and validates the catalog.
func (l *Loader) Load() ([]models.Product, error) {
	var (
		products []models.Product
		err      error
	)

	if l.path == "" {
		slog.Debug("Using built-in catalog")
		products, err = decodeYAML(defaultCatalog)
	} else {
		products, err = l.loadFile()
	}
	if err != nil {
		return nil, err
	}

	if err := l.check(products); err != nil {
		return nil, err
	}

	slog.Debug("Catalog loaded", "path", l.path, "products", len(products))
	return products, nil
}

func (l *Loader) loadFile() ([]models.Product, error) {
	ext := strings.ToLower(filepath.Ext(l.path))

	switch ext {
	case ".parquet":
		return l.loadParquet()
	case ".jsonl":
		return l.loadJSONL()
	case ".json":
		data, err := os.ReadFile(l.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog file: %w", err)
		}
		var products []models.Product
		if err := json.Unmarshal(data, &products); err != nil {
			return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
		}
		return products, nil
	case ".yaml", ".yml":
		data, err := os.ReadFile(l.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog file: %w", err)
		}
		return decodeYAML(data)
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s (supported: .yaml, .yml, .json, .jsonl, .parquet)", ext)
	}
}

func decodeYAML(data []byte) ([]models.Product, error) {
	var products []models.Product
	if err := yaml.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	return products, nil
}

// loadJSONL loads one product per line
func (l *Loader) loadJSONL() ([]models.Product, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer file.Close()

	var products []models.Product
	scanner := bufio.NewScanner(file)
	const maxCapacity = 10 * 1024 * 1024 // inline images can make long lines
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var p models.Product
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		products = append(products, p)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading catalog: %w", err)
	}
	return products, nil
}

// loadParquet loads products from a Parquet file
func (l *Loader) loadParquet() ([]models.Product, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("Parquet catalog opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[productRow](pf)
	defer reader.Close()

	var products []models.Product
	rows := make([]productRow, 64)
	for {
		n, err := reader.Read(rows)
		for _, row := range rows[:n] {
			p, convErr := row.toProduct()
			if convErr != nil {
				return nil, fmt.Errorf("invalid parquet row %q: %w", row.ID, convErr)
			}
			products = append(products, p)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	return products, nil
}

func (r productRow) toProduct() (models.Product, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return models.Product{}, fmt.Errorf("bad price %q: %w", r.Price, err)
	}
	img, err := images.ParseRef(r.Image)
	if err != nil {
		return models.Product{}, fmt.Errorf("bad image: %w", err)
	}
	return models.Product{
		ID:          r.ID,
		Name:        r.Name,
		Category:    models.Category(r.Category),
		Price:       price,
		Description: r.Description,
		Image:       img,
		Rating:      r.Rating,
	}, nil
}

func rowFromProduct(p models.Product) productRow {
	return productRow{
		ID:          p.ID,
		Name:        p.Name,
		Category:    string(p.Category),
		Price:       p.Price.String(),
		Description: p.Description,
		Image:       p.Image.String(),
		Rating:      p.Rating,
	}
}

// check validates every record and rejects duplicate ids.
func (l *Loader) check(products []models.Product) error {
	if len(products) == 0 {
		return fmt.Errorf("catalog is empty")
	}

	seen := make(map[string]struct{}, len(products))
	for i, p := range products {
		if err := l.validate.Struct(p); err != nil {
			return fmt.Errorf("invalid product at position %d (%q): %w", i, p.ID, err)
		}
		if p.Price.IsNegative() {
			return fmt.Errorf("invalid product %q: price must not be negative", p.ID)
		}
		if p.Image.IsZero() {
			return fmt.Errorf("invalid product %q: image is required", p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate product id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// Export formats accepted by Write.
const (
	FormatYAML    = "yaml"
	FormatJSONL   = "jsonl"
	FormatParquet = "parquet"
)

// Write encodes products to w in the given format.
func Write(w io.Writer, format string, products []models.Product) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(products); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	case FormatJSONL:
		enc := json.NewEncoder(w)
		for _, p := range products {
			if err := enc.Encode(p); err != nil {
				return fmt.Errorf("failed to encode product %q: %w", p.ID, err)
			}
		}
		return nil
	case FormatParquet:
		rows := make([]productRow, len(products))
		for i, p := range products {
			rows[i] = rowFromProduct(p)
		}
		pw := parquet.NewGenericWriter[productRow](w)
		if _, err := pw.Write(rows); err != nil {
			return fmt.Errorf("failed to write parquet rows: %w", err)
		}
		if err := pw.Close(); err != nil {
			return fmt.Errorf("failed to close parquet writer: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// MaxImportRows bounds a single spreadsheet.
const MaxImportRows = 1000

// thousandsOnly matches "1.234" or "12.500.000": dot-grouped digits with no
// decimal comma, which could be either a pt-BR integer or a decimal.
var thousandsOnly = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+$`)

// ImportTemplate returns the CSV a partner fills in for bulk import.
func ImportTemplate() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(domain.ImportColumns)
	_ = w.Write([]string{"FLT-001", "Filtro de óleo", "Filtros", "Bosch", "39,90", "25", "Filtro de óleo para motores 1.0 a 2.0"})
	w.Flush()
	return buf.Bytes()
}

// Import reads a CSV of products. Rows that fail validation are reported
// and skipped; the rest are inserted together as pending, within quota.
func (s *CatalogService) Import(ctx context.Context, session *domain.Session, r io.Reader) (*domain.ImportResult, error) {
	ctx, span := tracer.Start(ctx, "CatalogService.Import")
	defer span.End()

	if err := requireRole(session, domain.RolePartner, "import products"); err != nil {
		return nil, err
	}

	rows, err := readImportRows(r)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("import.rows", len(rows)))

	plan, count, err := s.quota(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	existing, err := s.products.ListProducts(ctx, domain.ProductFilter{PartnerID: session.UserID})
	if err != nil {
		return nil, err
	}
	codes := make(map[string]struct{}, len(existing)+len(rows))
	for i := range existing {
		codes[existing[i].Code] = struct{}{}
	}

	result := &domain.ImportResult{Errors: []domain.ImportRowError{}, Products: []domain.Product{}}
	remaining := plan.RemainingProducts(count)

	var valid []domain.Product
	for _, row := range rows {
		rowNum := row.line

		p, rowErr := parseImportRow(rowNum, row.fields)
		if rowErr == nil {
			if _, dup := codes[p.Code]; dup {
				rowErr = &domain.ImportRowError{Row: rowNum, Field: "code", Message: "Código já cadastrado"}
			} else if remaining != domain.Unlimited && len(valid) >= remaining {
				rowErr = &domain.ImportRowError{Row: rowNum, Field: "code", Message: "Limite de produtos do plano atingido"}
			}
		}
		if rowErr != nil {
			result.Errors = append(result.Errors, *rowErr)
			continue
		}

		codes[p.Code] = struct{}{}
		p.PartnerID = session.UserID
		p.Status = domain.ProductPending
		valid = append(valid, p)
	}
	result.Skipped = len(result.Errors)

	if len(valid) > 0 {
		created, err := s.products.CreateProducts(ctx, valid)
		if err != nil {
			return nil, err
		}
		result.Products = nonNil(created)
		result.Imported = len(created)
		s.syncProductsCount(ctx, session.UserID, count+len(created))
	}

	s.logger.Info("products imported",
		zap.String("partner_id", session.UserID),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// importRow is a data record and the spreadsheet line it came from.
type importRow struct {
	line   int
	fields []string
}

// readImportRows checks the header and returns the data rows.
func readImportRows(r io.Reader) ([]importRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &domain.ErrValidation{Field: "file", Message: "Planilha vazia"}
	}
	if err != nil {
		return nil, &domain.ErrValidation{Field: "file", Message: "Arquivo CSV inválido"}
	}
	if !validHeader(header) {
		return nil, &domain.ErrValidation{
			Field:   "file",
			Message: "Cabeçalho esperado: " + strings.Join(domain.ImportColumns, ","),
		}
	}

	var rows []importRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.ErrValidation{Field: "file", Message: "Arquivo CSV inválido"}
		}
		if blankRecord(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, importRow{line: line, fields: rec})
		if len(rows) > MaxImportRows {
			return nil, &domain.ErrValidation{
				Field:   "file",
				Message: "Máximo de " + strconv.Itoa(MaxImportRows) + " produtos por planilha",
			}
		}
	}
	if len(rows) == 0 {
		return nil, &domain.ErrValidation{Field: "file", Message: "Planilha vazia"}
	}
	return rows, nil
}

func validHeader(header []string) bool {
	if len(header) < len(domain.ImportColumns) {
		return false
	}
	for i, col := range domain.ImportColumns {
		h := strings.ToLower(strings.TrimSpace(header[i]))
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if h != col {
			return false
		}
	}
	return true
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseImportRow maps code,name,category,brand,price,stock,description.
// Prices accept a decimal comma.
func parseImportRow(row int, rec []string) (domain.Product, *domain.ImportRowError) {
	col := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	fail := func(field, msg string) (domain.Product, *domain.ImportRowError) {
		return domain.Product{}, &domain.ImportRowError{Row: row, Field: field, Message: msg}
	}

	p := domain.Product{
		Code:        col(0),
		Name:        col(1),
		Category:    col(2),
		Brand:       col(3),
		Description: col(6),
	}
	switch {
	case p.Code == "":
		return fail("code", "Campo obrigatório")
	case utf8.RuneCountInString(p.Name) < 3:
		return fail("name", "Deve ter pelo menos 3 caracteres")
	case p.Category == "":
		return fail("category", "Campo obrigatório")
	}

	rawPrice := col(4)
	if rawPrice == "" {
		return fail("price", "Campo obrigatório")
	}
	normalized, ok := normalizeDecimal(rawPrice)
	if !ok {
		return fail("price", "Preço ambíguo: use vírgula para centavos (ex.: 1.234,00)")
	}
	price, err := decimal.NewFromString(normalized)
	if err != nil {
		return fail("price", "Preço inválido")
	}
	if price.IsNegative() {
		return fail("price", "Deve ser maior ou igual a 0")
	}
	p.Price = price

	if raw := col(5); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil {
			return fail("stock", "Estoque inválido")
		}
		if stock < 0 {
			return fail("stock", "Deve ser maior ou igual a 0")
		}
		p.Stock = stock
	}
	return p, nil
}

// normalizeDecimal turns "1.234,56" and "39,90" into "1234.56" and "39.90".
// With no comma a dot is the decimal point ("15.5"), except for
// thousands-grouped values such as "1.234", which are refused.
func normalizeDecimal(s string) (string, bool) {
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1), true
	}
	if thousandsOnly.MatchString(s) {
		return "", false
	}
	return s, true
}

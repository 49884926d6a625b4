package dataset

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"tisops-insights-go/internal/logger"
	"tisops-insights-go/internal/metrics"
	"tisops-insights-go/internal/types"
)

var (
	ErrNoSheets         = errors.New("workbook has no sheets")
	ErrMissingRequestID = errors.New("no request id column in header")
	ErrNoHeader         = errors.New("no header row")
)

var (
	rawCells    = excelize.Options{RawCellValue: true}
	foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

const (
	minContainsAliasLen = 4
	unusedColumn        = -1
)

type field int

const (
	fieldParent field = iota
	fieldLinked
	fieldRequestID
	fieldSubject
	fieldTechnician
	fieldPriority
	fieldStatus
	fieldApplication
	fieldCategory
	fieldModule
	fieldRecurrence
	fieldCreated
	fieldCount
)

// Header aliases after folding. Fields are listed most specific first so
// "Parent Ticket ID" is not taken as the request id.
var headerAliases = [fieldCount][]string{
	fieldParent:      {"parent ticket id", "ticket padre", "parent", "padre"},
	fieldLinked:      {"linked tickets", "tickets vinculados", "linked", "vinculad"},
	fieldRequestID:   {"request id", "id de solicitud", "id solicitud", "ticket id", "id"},
	fieldSubject:     {"subject", "asunto", "titulo"},
	fieldTechnician:  {"technician", "tecnico"},
	fieldPriority:    {"priority", "prioridad"},
	fieldStatus:      {"request status", "estado de solicitud", "status", "estado"},
	fieldApplication: {"aplicativos", "aplicativo", "application", "aplicacion"},
	fieldCategory:    {"categorizacion", "categorization", "category", "categoria"},
	fieldModule:      {"modulo", "module"},
	fieldRecurrence:  {"recurrencia", "recurrence", "recurrente"},
	fieldCreated:     {"created time", "fecha de creacion", "created", "creado"},
}

type columns [fieldCount]int

func foldHeader(h string) string {
	s, _, err := transform.String(foldAccents, h)
	if err != nil {
		s = h
	}
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// detectColumns maps header cells to fields. Exact alias matches are taken
// first, then substring matches for aliases long enough to be unambiguous.
func detectColumns(header []string) (columns, error) {
	var cols columns
	for i := range cols {
		cols[i] = unusedColumn
	}
	folded := make([]string, len(header))
	for i, h := range header {
		folded[i] = foldHeader(h)
	}
	taken := make([]bool, len(header))

	assign := func(match func(h, alias string) bool) {
		for f := field(0); f < fieldCount; f++ {
			if cols[f] != unusedColumn {
				continue
			}
		scan:
			for i, h := range folded {
				if taken[i] || h == "" {
					continue
				}
				for _, alias := range headerAliases[f] {
					if match(h, alias) {
						cols[f] = i
						taken[i] = true
						break scan
					}
				}
			}
		}
	}
	assign(func(h, alias string) bool { return h == alias })
	assign(func(h, alias string) bool {
		return len(alias) >= minContainsAliasLen && strings.Contains(h, alias)
	})

	if cols[fieldRequestID] == unusedColumn {
		return cols, ErrMissingRequestID
	}
	return cols, nil
}

func (c columns) cell(row []string, f field) string {
	i := c[f]
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (c columns) record(row []string) types.RawIncident {
	rec := types.RawIncident{
		RequestID:      c.cell(row, fieldRequestID),
		Subject:        c.cell(row, fieldSubject),
		Technician:     c.cell(row, fieldTechnician),
		Priority:       c.cell(row, fieldPriority),
		Status:         c.cell(row, fieldStatus),
		Application:    c.cell(row, fieldApplication),
		Category:       c.cell(row, fieldCategory),
		Module:         c.cell(row, fieldModule),
		Recurrence:     c.cell(row, fieldRecurrence),
		CreatedTime:    c.cell(row, fieldCreated),
		ParentTicketID: c.cell(row, fieldParent),
	}
	// raw numeric cells may come back as "3" or "3.0"
	if v, err := strconv.ParseFloat(c.cell(row, fieldLinked), 64); err == nil && v > 0 {
		rec.LinkedTicketCount = int(v)
	}
	return rec
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Rows streams ticket rows from the first sheet. Cell values are read raw,
// so date cells arrive as Excel serials. Rows without a request id are
// skipped. A read error is yielded once and ends the sequence.
func Rows(f *excelize.File) iter.Seq2[types.RawIncident, error] {
	return func(yield func(types.RawIncident, error) bool) {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			yield(types.RawIncident{}, ErrNoSheets)
			return
		}
		rows, err := f.Rows(sheets[0])
		if err != nil {
			yield(types.RawIncident{}, fmt.Errorf("read rows: %w", err))
			return
		}
		defer rows.Close()

		var cols columns
		haveHeader := false
		for rows.Next() {
			cells, err := rows.Columns(rawCells)
			if err != nil {
				yield(types.RawIncident{}, fmt.Errorf("read row: %w", err))
				return
			}
			if blank(cells) {
				continue
			}
			if !haveHeader {
				if cols, err = detectColumns(cells); err != nil {
					yield(types.RawIncident{}, err)
					return
				}
				haveHeader = true
				continue
			}
			rec := cols.record(cells)
			if rec.RequestID == "" {
				metrics.ImportedRowsTotal.WithLabelValues("skipped").Inc()
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Error(); err != nil {
			yield(types.RawIncident{}, fmt.Errorf("iterate rows: %w", err))
			return
		}
		if !haveHeader {
			yield(types.RawIncident{}, ErrNoHeader)
		}
	}
}

// Load opens a ticket export from disk and reads every row.
func Load(path string) ([]types.RawIncident, error) {
	log := logger.New().WithField("component", "dataset.loader").WithField("path", path)
	f, err := excelize.OpenFile(path, rawCells)
	if err != nil {
		log.WithError(err).Error("open failed")
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	out, err := collect(f)
	if err != nil {
		log.WithError(err).Error("load failed")
		return nil, err
	}
	log.WithField("rows", len(out)).Info("dataset loaded")
	return out, nil
}

// LoadReader reads a ticket export from an upload stream.
func LoadReader(r io.Reader) ([]types.RawIncident, error) {
	f, err := excelize.OpenReader(r, rawCells)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return collect(f)
}

func collect(f *excelize.File) ([]types.RawIncident, error) {
	var out []types.RawIncident
	for rec, err := range Rows(f) {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

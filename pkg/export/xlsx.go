package export

import (
	"context"

	"github.com/xuri/excelize/v2"

	"github.com/logflow/bpmnctx/pkg/serializer"
)

// XLSXExporter writes one worksheet per entity kind.
type XLSXExporter struct{}

// NewXLSXExporter creates an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Format returns "xlsx".
func (e *XLSXExporter) Format() string { return "xlsx" }

// Export writes c to <dir>/<id>.xlsx. Every kind gets a sheet, empty ones
// carry only the header row.
func (e *XLSXExporter) Export(ctx context.Context, c *serializer.Context, dir string) (string, error) {
	path, err := outputPath(c, dir, e.Format())
	if err != nil {
		return "", err
	}
	rows, err := Rows(c)
	if err != nil {
		return "", exportFailed(err, e.Format(), path)
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", exportFailed(err, e.Format(), path)
	}

	grouped := ByKind(rows)
	for i, kind := range Kinds {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if i == 0 {
			err = f.SetSheetName(f.GetSheetName(0), kind)
		} else {
			_, err = f.NewSheet(kind)
		}
		if err != nil {
			return "", exportFailed(err, e.Format(), path)
		}
		if err := writeSheet(f, kind, grouped[kind], header); err != nil {
			return "", exportFailed(err, e.Format(), path)
		}
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return "", exportFailed(err, e.Format(), path)
	}
	return path, nil
}

func writeSheet(f *excelize.File, sheet string, rows []Row, headerStyle int) error {
	if err := setRow(f, sheet, 1, Columns); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row.Values()); err != nil {
			return err
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func setRow(f *excelize.File, sheet string, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

package service

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"club-manager/backend/internal/dto"
)

// ErrExportGenerateFail 生成 Excel 失败
var ErrExportGenerateFail = errors.New("生成 Excel 文件失败")

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// sheetWriter 单个工作表的顺序写入器
type sheetWriter struct {
	f           *excelize.File
	name        string
	row         int
	headerStyle int
	titleStyle  int
}

func newSheetWriter(sheet string) (*sheetWriter, error) {
	f := excelize.NewFile()
	idx, err := f.NewSheet(sheet)
	if err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 13},
	})
	return &sheetWriter{f: f, name: sheet, row: 1, headerStyle: headerStyle, titleStyle: titleStyle}, nil
}

// title 合并单元格的标题行
func (w *sheetWriter) title(text string, width int) {
	first := cell("A", w.row)
	w.f.SetCellValue(w.name, first, text)
	if width > 1 {
		w.f.MergeCell(w.name, first, cell(colName(width-1), w.row))
	}
	w.f.SetCellStyle(w.name, first, first, w.titleStyle)
	w.row++
}

func (w *sheetWriter) header(cols ...string) {
	for i, c := range cols {
		w.f.SetCellValue(w.name, cell(colName(i), w.row), c)
	}
	if len(cols) > 0 {
		w.f.SetCellStyle(w.name, cell("A", w.row), cell(colName(len(cols)-1), w.row), w.headerStyle)
	}
	w.row++
}

func (w *sheetWriter) line(values ...interface{}) {
	for i, v := range values {
		w.f.SetCellValue(w.name, cell(colName(i), w.row), v)
	}
	w.row++
}

func (w *sheetWriter) blank() { w.row++ }

func (w *sheetWriter) widths(widths ...float64) {
	for i, wd := range widths {
		col := colName(i)
		w.f.SetColWidth(w.name, col, col, wd)
	}
}

// finish 写出文件并释放资源
func (w *sheetWriter) finish(filename string) (*dto.FileResult, error) {
	defer w.f.Close()
	buf := new(bytes.Buffer)
	if err := w.f.Write(buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}
	return &dto.FileResult{Filename: filename, ContentType: xlsxContentType, Data: buf.Bytes()}, nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

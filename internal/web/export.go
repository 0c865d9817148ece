// internal/web/export.go
package web

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"plcview/internal/metrics"
	"plcview/internal/supervisor"
	"plcview/internal/tag"
)

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	series, ok := s.fetchSeries(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="history.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"signal", "timestamp", "value", "valid"})
	for _, name := range sortedKeys(series) {
		for _, smp := range series[name] {
			cw.Write([]string{
				name,
				smp.At.UTC().Format(time.RFC3339Nano),
				formatValue(smp.Value),
				strconv.FormatBool(smp.Valid()),
			})
		}
	}
	cw.Flush()
	metrics.IncExport("csv")
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	series, ok := s.fetchSeries(w, r)
	if !ok {
		return
	}

	out, err := buildHistoryXLSX(series)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="history.xlsx"`)
	w.Write(out)
	metrics.IncExport("xlsx")
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	series, err := s.view.Series(nil, 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out, err := buildStatusPDF(s.view.Health(), series, time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="status.pdf"`)
	w.Write(out)
	metrics.IncExport("pdf")
}

func buildHistoryXLSX(series map[string][]tag.Sample) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "History"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{"Signal", "Timestamp", "Value", "Valid"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, name := range sortedKeys(series) {
		for _, smp := range series[name] {
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), name)
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), smp.At.UTC().Format(time.RFC3339))
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), cellValue(smp.Value))
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), smp.Valid())
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildStatusPDF(devices []supervisor.Health, series map[string][]tag.Sample, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, "Device Status")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 5, "Generated "+generated.UTC().Format(time.RFC3339))
	pdf.Ln(8)

	widths := []float64{40, 28, 20, 74, 28}
	cols := []string{"Device", "State", "Attempts", "Last Error", "Updated"}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, c := range cols {
		pdf.CellFormat(widths[i], 7, c, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, h := range devices {
		lastErr := h.LastError
		if len(lastErr) > 60 {
			lastErr = lastErr[:57] + "..."
		}
		pdf.CellFormat(widths[0], 6, h.Device, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, string(h.State), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, strconv.Itoa(h.Attempts), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, lastErr, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[4], 6, h.UpdatedAt.UTC().Format("2006-01-02 15:04:05"), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Signal Summary")
	pdf.Ln(10)

	sWidths := []float64{64, 24, 34, 34, 34}
	sCols := []string{"Signal", "Samples", "Min", "Max", "Last"}

	pdf.SetFont("Helvetica", "B", 10)
	for i, c := range sCols {
		pdf.CellFormat(sWidths[i], 7, c, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, name := range sortedKeys(series) {
		st := summarize(series[name])
		pdf.CellFormat(sWidths[0], 6, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(sWidths[1], 6, strconv.Itoa(st.count), "1", 0, "R", false, 0, "")
		pdf.CellFormat(sWidths[2], 6, st.min, "1", 0, "R", false, 0, "")
		pdf.CellFormat(sWidths[3], 6, st.max, "1", 0, "R", false, 0, "")
		pdf.CellFormat(sWidths[4], 6, st.last, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type signalStats struct {
	count          int
	min, max, last string
}

// summarize folds a window into count/min/max/last over the samples
// that carry a numeric value. Bools count as 0/1.
func summarize(window []tag.Sample) signalStats {
	st := signalStats{min: "-", max: "-", last: "-"}
	var lo, hi float64
	seen := false
	for _, smp := range window {
		f, ok := smp.Value.Float64()
		if !ok {
			continue
		}
		st.count++
		if !seen || f < lo {
			lo = f
		}
		if !seen || f > hi {
			hi = f
		}
		seen = true
		st.last = formatValue(smp.Value)
	}
	if seen {
		st.min = strconv.FormatFloat(lo, 'g', -1, 64)
		st.max = strconv.FormatFloat(hi, 'g', -1, 64)
	}
	return st
}

func cellValue(v tag.Value) any {
	switch v.Kind {
	case tag.ValueBool:
		return v.Bool
	case tag.ValueInt:
		return v.Int
	case tag.ValueFloat:
		return v.Float
	}
	return ""
}

func formatValue(v tag.Value) string {
	switch v.Kind {
	case tag.ValueBool:
		return strconv.FormatBool(v.Bool)
	case tag.ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case tag.ValueFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	}
	return ""
}

func sortedKeys(series map[string][]tag.Sample) []string {
	out := make([]string, 0, len(series))
	for k := range series {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Package report экспортирует итоги пакетного прогона в Excel.
// Формат листа совместим с исторической учётной таблицей копицентра.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mmeshcher/skriptendruck-system/internal/model"
)

const sheetOrders = "Aufträge"

var orderHeaders = []string{
	"Auftrags-ID", "Datum", "Dateiname", "RZ-Kennung", "Name", "Fakultät",
	"Seiten", "Farbmodus", "Bindung", "Bindungsgröße (mm)",
	"Seitenpreis", "Bindungspreis", "Gesamtpreis", "Nach Anzahlung",
	"Status", "Fehlergrund",
}

// FileName возвращает имя файла отчёта для прогона.
func FileName(startedAt time.Time) string {
	return fmt.Sprintf("auftraege_%s.xlsx", startedAt.Format("2006-01-02_15-04"))
}

// WriteOrders пишет список заказов прогона в xlsx-файл. Терминальные
// заказы перечисляются в исходном порядке, под таблицей — строка сумм
// по размещённым заказам.
func WriteOrders(orders []*model.Order, outPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetOrders); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	priceFmt := "#,##0.00 €"
	priceStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &priceFmt})
	if err != nil {
		return fmt.Errorf("price style: %w", err)
	}

	for col, h := range orderHeaders {
		cell := axis(1, col+1)
		if err := f.SetCellValue(sheetOrders, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetOrders, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for i, o := range orders {
		row := i + 2
		if err := writeOrderRow(f, row, o, priceStyle); err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
	}

	totalRow := len(orders) + 3
	if err := f.SetCellValue(sheetOrders, axis(totalRow, 12), "Summe:"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetOrders, axis(totalRow, 12), axis(totalRow, 12), headerStyle); err != nil {
		return err
	}
	var sum float64
	for _, o := range orders {
		if !o.IsRejected() && o.Price != nil {
			sum += o.Price.Total
		}
	}
	if err := f.SetCellValue(sheetOrders, axis(totalRow, 13), sum); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetOrders, axis(totalRow, 13), axis(totalRow, 13), priceStyle); err != nil {
		return err
	}

	widths := []struct {
		from, to string
		width    float64
	}{
		{"A", "A", 12}, {"B", "B", 18}, {"C", "C", 30}, {"D", "F", 18},
		{"G", "G", 8}, {"H", "I", 14}, {"J", "J", 18}, {"K", "N", 15},
		{"O", "O", 20}, {"P", "P", 40},
	}
	for _, w := range widths {
		if err := f.SetColWidth(sheetOrders, w.from, w.to, w.width); err != nil {
			return err
		}
	}

	if len(orders) > 0 {
		ref := fmt.Sprintf("A1:%s", axis(len(orders)+1, len(orderHeaders)))
		if err := f.AutoFilter(sheetOrders, ref, nil); err != nil {
			return fmt.Errorf("autofilter: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func writeOrderRow(f *excelize.File, row int, o *model.Order, priceStyle int) error {
	var name, orgUnit string
	if o.User != nil {
		name = o.User.FullName()
		orgUnit = o.User.OrgUnit
	}

	var diameter interface{} = ""
	if o.Tier != nil && o.Tier.DiameterMM > 0 {
		diameter = o.Tier.DiameterMM
	}

	values := []interface{}{
		o.ID,
		o.CreatedAt.Format("02.01.2006 15:04"),
		o.FileName,
		o.Request.OwnerID,
		name,
		orgUnit,
		o.PageCount,
		colorLabel(o),
		bindingLabel(o),
		diameter,
	}
	for col, v := range values {
		if err := f.SetCellValue(sheetOrders, axis(row, col+1), v); err != nil {
			return err
		}
	}

	var perPage, bindingCost, total, afterDeposit float64
	if o.Price != nil {
		perPage = o.Price.PerPage
		bindingCost = o.Price.Binding
		total = o.Price.Total
		afterDeposit = o.Price.AfterDeposit
	}
	prices := []float64{perPage, bindingCost, total, afterDeposit}
	for i, v := range prices {
		cell := axis(row, 11+i)
		if err := f.SetCellValue(sheetOrders, cell, v); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetOrders, cell, cell, priceStyle); err != nil {
			return err
		}
	}

	if err := f.SetCellValue(sheetOrders, axis(row, 15), statusLabel(o)); err != nil {
		return err
	}
	return f.SetCellValue(sheetOrders, axis(row, 16), o.FailureDetail)
}

func colorLabel(o *model.Order) string {
	switch o.Request.Color {
	case model.ColorColor:
		return "Farbe"
	case model.ColorMono:
		return "Schwarz-Weiß"
	default:
		return ""
	}
}

func bindingLabel(o *model.Order) string {
	switch o.Request.Binding {
	case model.BindingNone:
		return "Ohne Bindung"
	case model.BindingFolder:
		return "Schnellhefter"
	case model.BindingBound:
		if o.Tier != nil && o.Tier.Class == model.CostClassLarge {
			return "Ringbindung (groß)"
		}
		return "Ringbindung (klein)"
	default:
		return ""
	}
}

var reasonLabels = map[model.RejectReason]string{
	model.ReasonMalformedName:       "Fehler: Ungültiger Dateiname",
	model.ReasonUnknownColorToken:   "Fehler: Ungültiger Dateiname",
	model.ReasonUnknownBindingToken: "Fehler: Ungültiger Dateiname",
	model.ReasonInvalidOwnerID:      "Fehler: Ungültiger Dateiname",
	model.ReasonUserNotFound:        "Fehler: Benutzer nicht gefunden",
	model.ReasonUserBlocked:         "Fehler: Benutzer blockiert",
	model.ReasonPasswordProtected:   "Fehler: Passwortgeschützt",
	model.ReasonUnreadableDocument:  "Fehler: Datei nicht lesbar",
	model.ReasonEmptyDocument:       "Fehler: Zu wenig Seiten",
	model.ReasonTooManyPages:        "Fehler: Zu viele Seiten",
	model.ReasonAssemblyFailed:      "Fehler: Unbekannt",
	model.ReasonPlacementFailed:     "Fehler: Unbekannt",
}

func statusLabel(o *model.Order) string {
	if !o.IsRejected() {
		return "Verarbeitet"
	}
	if label, ok := reasonLabels[o.Reason]; ok {
		return label
	}
	return "Fehler: Unbekannt"
}

func axis(row, col int) string {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	return cell
}

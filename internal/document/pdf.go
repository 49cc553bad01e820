package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PDFService — реализация Inspector и Assembler на pdfcpu и fpdf.
type PDFService struct{}

// NewPDFService создаёт сервис обработки PDF.
func NewPDFService() *PDFService {
	return &PDFService{}
}

// Inspect возвращает число страниц и признак парольной защиты.
func (s *PDFService) Inspect(_ context.Context, path string) (Info, error) {
	pages, err := api.PageCountFile(path)
	if err != nil {
		if isEncryptionError(err) {
			return Info{PasswordProtected: true}, nil
		}
		return Info{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return Info{PageCount: pages}, nil
}

// pdfcpu не различает защищённые и битые файлы отдельным типом ошибки,
// поэтому классифицируем по тексту.
func isEncryptionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypt")
}

// Assemble рендерит титульный лист с пустой разделительной страницей,
// ставит на него уменьшенный оттиск первой страницы документа и
// склеивает с исходником в outPath.
func (s *PDFService) Assemble(_ context.Context, data CoverData, sourcePath, outPath string) error {
	workDir, err := os.MkdirTemp("", "skriptendruck-cover-*")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	coverPath := filepath.Join(workDir, "cover.pdf")
	if err := renderCover(data, coverPath); err != nil {
		return fmt.Errorf("render cover: %w", err)
	}

	if err := stampPreview(coverPath, sourcePath); err != nil {
		return fmt.Errorf("stamp first page preview: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := api.MergeCreateFile([]string{coverPath, sourcePath}, outPath, false, nil); err != nil {
		return fmt.Errorf("merge cover and document: %w", err)
	}
	return nil
}

// stampPreview накладывает первую страницу исходника на нижнюю часть
// титульного листа в уменьшенном масштабе.
func stampPreview(coverPath, sourcePath string) error {
	wm, err := api.PDFWatermark(sourcePath+":1", "sc:.3 abs, pos:bc, off:0 40, rot:0", true, false, types.POINTS)
	if err != nil {
		return err
	}
	return api.AddWatermarksFile(coverPath, coverPath, []string{"1"}, wm, nil)
}

// renderCover рисует титульный лист и добавляет пустую разделительную
// страницу вторым листом того же файла.
func renderCover(data CoverData, outPath string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Text(20, 25, tr("Fachschaft - Skriptendruck"))
	pdf.Line(20, 29, 190, 29)

	y := 42.0
	row := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Text(20, y, tr(label))
		pdf.SetFont("Helvetica", "", 12)
		pdf.Text(80, y, tr(value))
		y += 8
	}

	row("Auftrags-ID:", fmt.Sprintf("%d", data.OrderID))
	row("Datum:", data.Date)
	row("Dateiname:", data.FileName)
	y += 4
	row("RZ-Kennung:", data.OwnerID)
	row("Name:", data.OwnerName)
	row("Fakultät:", data.OrgUnit)
	y += 4
	row("Seitenzahl:", fmt.Sprintf("%d", data.PageCount))
	row("Druck:", data.PrintLine)
	row("Bindung:", data.BindingLine)
	y += 4

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(20, y, tr("Gesamtpreis:"))
	pdf.Text(80, y, tr(data.Total))
	y += 8

	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(20, y, tr("Nach Abzug 1 € Anzahlung:"))
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(80, y, tr(data.AfterDeposit))

	pdf.SetFont("Helvetica", "", 8)
	pdf.Text(20, 285, tr("Fachschaft Maschinenbau - Hochschule Regensburg"))

	// Пустая разделительная страница между титульным листом и документом.
	pdf.AddPage()

	return pdf.OutputFileAndClose(outPath)
}

// Package document инкапсулирует работу с PDF: анализ, титульный лист
// и сборку итогового артефакта. Конвейер зависит только от узких
// интерфейсов, реализация на pdfcpu/fpdf подставляется в main.
package document

import (
	"context"
	"errors"
)

// ErrUnreadable возвращается для повреждённого или нечитаемого документа.
var ErrUnreadable = errors.New("unreadable document")

// Info содержит результат анализа входного документа.
type Info struct {
	PageCount         int
	PasswordProtected bool
}

// Inspector анализирует входной документ: число страниц и наличие
// парольной защиты.
type Inspector interface {
	Inspect(ctx context.Context, path string) (Info, error)
}

// CoverData содержит данные титульного листа.
type CoverData struct {
	OrderID      int64
	Date         string
	FileName     string
	OwnerID      string
	OwnerName    string
	OrgUnit      string
	PageCount    int
	PrintLine    string
	BindingLine  string
	Total        string
	AfterDeposit string
}

// Assembler собирает итоговый артефакт: титульный лист, пустая
// разделительная страница, исходный документ.
type Assembler interface {
	Assemble(ctx context.Context, data CoverData, sourcePath, outPath string) error
}

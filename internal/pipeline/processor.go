// Package pipeline реализует конечный автомат заказа и координатор
// пакетной обработки входного каталога.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/mmeshcher/skriptendruck-system/internal/binding"
	"github.com/mmeshcher/skriptendruck-system/internal/document"
	"github.com/mmeshcher/skriptendruck-system/internal/model"
	"github.com/mmeshcher/skriptendruck-system/internal/naming"
	"github.com/mmeshcher/skriptendruck-system/internal/pricing"
	"github.com/mmeshcher/skriptendruck-system/internal/users"
)

// Resolver описывает контракт проверки владельца заказа.
type Resolver interface {
	Resolve(ctx context.Context, ownerID string) (*model.UserRecord, error)
}

// Placer описывает контракт размещения файлов по каталогам.
type Placer interface {
	PlaceFinal(src string, color model.ColorMode, name string) (string, error)
	BackupOriginal(src string) (string, error)
	Quarantine(src string, reason model.RejectReason) (string, error)
}

// Storage описывает приёмник терминальных записей заказов.
type Storage interface {
	SaveOrder(o *model.Order) error
}

// Processor проводит один заказ через все стадии до терминального
// состояния. Стадии внутри заказа строго последовательны; ошибки
// разбора и проверки не покидают границу заказа — они переводят его
// в Rejected с карантином исходника.
type Processor struct {
	resolver  Resolver
	inspector document.Inspector
	assembler document.Assembler
	table     *binding.Table
	calc      *pricing.Calculator
	placer    Placer
	store     Storage
	log       *zap.SugaredLogger

	workDir string
}

// NewProcessor создаёт конечный автомат заказа. workDir — каталог для
// сборки артефактов до размещения.
func NewProcessor(
	resolver Resolver,
	inspector document.Inspector,
	assembler document.Assembler,
	table *binding.Table,
	calc *pricing.Calculator,
	placer Placer,
	store Storage,
	workDir string,
	log *zap.SugaredLogger,
) *Processor {
	return &Processor{
		resolver:  resolver,
		inspector: inspector,
		assembler: assembler,
		table:     table,
		calc:      calc,
		placer:    placer,
		store:     store,
		workDir:   workDir,
		log:       log,
	}
}

// Process доводит один входной файл до терминального состояния.
// Заказ никогда не теряется: любой исход — Placed либо Rejected
// с исходником в карантине причины.
func (p *Processor) Process(ctx context.Context, id int64, path string) *model.Order {
	start := time.Now()

	o := &model.Order{
		ID:        id,
		FileName:  filepath.Base(path),
		Request:   model.OrderRequest{SourcePath: path},
		Status:    model.StatusReceived,
		CreatedAt: start,
	}

	p.advance(ctx, o)

	o.ProcessedAt = time.Now()

	if o.IsRejected() {
		p.quarantine(o)
	}

	if err := p.store.SaveOrder(o); err != nil {
		p.log.Errorw("save order record", "order", o.ID, "error", err)
	}

	if o.IsRejected() {
		p.log.Warnw("order rejected",
			"order", o.ID, "file", o.FileName, "reason", o.Reason, "detail", o.FailureDetail)
	} else {
		p.log.Infow("order placed",
			"order", o.ID, "file", o.FileName, "pages", o.PageCount, "total", o.Price.Total,
			"elapsed", time.Since(start).Round(time.Millisecond))
	}

	return o
}

func (p *Processor) advance(ctx context.Context, o *model.Order) {
	if !p.parseName(o) {
		return
	}
	if !p.resolveUser(ctx, o) {
		return
	}
	if !p.analyze(ctx, o) {
		return
	}
	if !p.price(o) {
		return
	}

	artifact, ok := p.assemble(ctx, o)
	if !ok {
		return
	}
	p.place(o, artifact)
}

// Received -> NameParsed.
func (p *Processor) parseName(o *model.Order) bool {
	req, err := naming.Parse(o.FileName, o.Request.SourcePath)
	if err != nil {
		o.Reject(parseReason(err), err.Error())
		return false
	}
	o.Request = req
	o.Status = model.StatusNameParsed
	return true
}

func parseReason(err error) model.RejectReason {
	switch {
	case errors.Is(err, naming.ErrUnknownColorToken):
		return model.ReasonUnknownColorToken
	case errors.Is(err, naming.ErrUnknownBindingToken):
		return model.ReasonUnknownBindingToken
	case errors.Is(err, naming.ErrInvalidOwnerID):
		return model.ReasonInvalidOwnerID
	default:
		return model.ReasonMalformedName
	}
}

// NameParsed -> UserResolved.
func (p *Processor) resolveUser(ctx context.Context, o *model.Order) bool {
	record, err := p.resolver.Resolve(ctx, o.Request.OwnerID)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrBlocked):
			o.Reject(model.ReasonUserBlocked, fmt.Sprintf("owner %s is blocked", o.Request.OwnerID))
		default:
			o.Reject(model.ReasonUserNotFound, fmt.Sprintf("owner %s: %v", o.Request.OwnerID, err))
		}
		return false
	}
	o.User = record
	o.Status = model.StatusUserResolved
	return true
}

// UserResolved -> Analyzed.
func (p *Processor) analyze(ctx context.Context, o *model.Order) bool {
	info, err := p.inspector.Inspect(ctx, o.Request.SourcePath)
	if err != nil {
		o.Reject(model.ReasonUnreadableDocument, err.Error())
		return false
	}
	if info.PasswordProtected {
		o.PasswordProtected = true
		o.Reject(model.ReasonPasswordProtected, "document is password protected")
		return false
	}
	o.PageCount = info.PageCount
	o.Status = model.StatusAnalyzed
	return true
}

// Analyzed -> Priced.
func (p *Processor) price(o *model.Order) bool {
	tier, err := p.table.Select(o.PageCount, o.Request.Binding)
	if err != nil {
		switch {
		case errors.Is(err, binding.ErrEmptyDocument):
			o.Reject(model.ReasonEmptyDocument, err.Error())
		case errors.Is(err, binding.ErrTooManyPages):
			o.Reject(model.ReasonTooManyPages,
				fmt.Sprintf("%d pages, table maximum %d", o.PageCount, p.table.MaxPages()))
		default:
			o.Reject(model.ReasonTooManyPages, err.Error())
		}
		return false
	}

	price := p.calc.Calculate(o.PageCount, o.Request.Color, o.Request.Binding, tier)
	o.Tier = &tier
	o.Price = &price
	o.Status = model.StatusPriced
	return true
}

// Priced -> Assembled. Сборка зависит от внутреннего состояния
// рендерера, поэтому один повтор перед терминальным отказом.
func (p *Processor) assemble(ctx context.Context, o *model.Order) (string, bool) {
	artifact := filepath.Join(p.workDir, fmt.Sprintf("%04d_%s", o.ID, o.FileName))
	data := p.coverData(o)

	backoff := retry.WithMaxRetries(1, retry.NewConstant(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := p.assembler.Assemble(ctx, data, o.Request.SourcePath, artifact); err != nil {
			os.Remove(artifact)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		o.Reject(model.ReasonAssemblyFailed, err.Error())
		return "", false
	}

	o.Status = model.StatusAssembled
	return artifact, true
}

// Assembled -> Placed. Сбой файловой системы здесь фатален для заказа
// и не повторяется; собранный артефакт сохраняется для ручного
// восстановления.
func (p *Processor) place(o *model.Order, artifact string) {
	final, err := p.placer.PlaceFinal(artifact, o.Request.Color, filepath.Base(artifact))
	if err != nil {
		o.Reject(model.ReasonPlacementFailed, err.Error())
		p.log.Errorw("placement failed, artifact kept for manual recovery",
			"order", o.ID, "artifact", artifact, "error", err)
		return
	}
	o.OutputPath = final

	backupPath, err := p.placer.BackupOriginal(o.Request.SourcePath)
	if err != nil {
		o.Reject(model.ReasonPlacementFailed, err.Error())
		p.log.Errorw("backup of original failed, placed artifact kept",
			"order", o.ID, "output", final, "error", err)
		return
	}
	o.BackupPath = backupPath

	o.Status = model.StatusPlaced
}

// quarantine уводит исходник отклонённого заказа в каталог причины.
// Этот шаг не пропускается ни при каком исходе предыдущих стадий.
func (p *Processor) quarantine(o *model.Order) {
	src := o.Request.SourcePath
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			// Исходник уже перемещён (отказ на стадии размещения после бэкапа).
			return
		}
		p.log.Errorw("quarantine skipped, source not accessible",
			"order", o.ID, "file", o.FileName, "error", err)
		return
	}

	moved, err := p.placer.Quarantine(src, o.Reason)
	if err != nil {
		p.log.Errorw("quarantine failed", "order", o.ID, "file", o.FileName, "error", err)
		return
	}
	o.QuarantinePath = moved
}

func (p *Processor) coverData(o *model.Order) document.CoverData {
	colorLabel := "Schwarz-Weiß"
	if o.Request.Color == model.ColorColor {
		colorLabel = "Farbe"
	}

	var bindingLine string
	switch o.Request.Binding {
	case model.BindingNone:
		bindingLine = "Nein"
	case model.BindingFolder:
		bindingLine = fmt.Sprintf("Schnellhefter (%s)", pricing.FormatEUR(o.Price.Binding))
	default:
		bindingLine = fmt.Sprintf("Ja (%s) - %vmm", pricing.FormatEUR(o.Price.Binding), o.Tier.DiameterMM)
	}

	return document.CoverData{
		OrderID:      o.ID,
		Date:         o.CreatedAt.Format("02.01.2006 15:04"),
		FileName:     o.FileName,
		OwnerID:      o.User.OwnerID,
		OwnerName:    o.User.FullName(),
		OrgUnit:      o.User.OrgUnit,
		PageCount:    o.PageCount,
		PrintLine:    fmt.Sprintf("%s (%s)", colorLabel, pricing.FormatEUR(o.Price.PerPage)),
		BindingLine:  bindingLine,
		Total:        pricing.FormatEUR(o.Price.Total),
		AfterDeposit: pricing.FormatEUR(o.Price.AfterDeposit),
	}
}

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/skriptendruck-system/internal/metrics"
	"github.com/mmeshcher/skriptendruck-system/internal/model"
)

// IDAllocator выдаёт монотонные идентификаторы заказов.
type IDAllocator interface {
	AllocateID() (int64, error)
}

// Runner прогоняет пакет входных файлов через конвейер. Набор файлов
// фиксируется один раз в начале прогона; файлы, появившиеся позже,
// относятся к следующему прогону.
type Runner struct {
	proc    *Processor
	alloc   IDAllocator
	metrics *metrics.Registry
	log     *zap.SugaredLogger

	workers int
}

// NewRunner создаёт координатор пакетного прогона. workers <= 1 даёт
// строго последовательную обработку в порядке имён файлов.
func NewRunner(proc *Processor, alloc IDAllocator, reg *metrics.Registry, workers int, log *zap.SugaredLogger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		proc:    proc,
		alloc:   alloc,
		metrics: reg,
		workers: workers,
		log:     log,
	}
}

// Discover возвращает отсортированный список PDF-файлов каталога.
// Подкаталоги и скрытые файлы не учитываются.
func Discover(inputDir string) ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}
		files = append(files, filepath.Join(inputDir, name))
	}

	sort.Strings(files)
	return files, nil
}

// Run обрабатывает все файлы входного каталога до терминального
// состояния. Отмена контекста останавливает прогон между заказами;
// уже начатые заказы доводятся до конца. Возвращается результат по
// обработанной части пакета и ошибка контекста, если прогон прерван.
func (r *Runner) Run(ctx context.Context, inputDir string) (*Result, error) {
	files, err := Discover(inputDir)
	if err != nil {
		return nil, err
	}

	r.log.Infow("batch started", "dir", inputDir, "files", len(files), "workers", r.workers)
	start := time.Now()

	var (
		orders []*model.Order
		runErr error
	)
	if r.workers == 1 {
		orders, runErr = r.runSequential(ctx, files)
	} else {
		orders, runErr = r.runParallel(ctx, files)
	}

	res := &Result{Orders: orders, Elapsed: time.Since(start)}
	r.log.Infow("batch finished",
		"files", len(files), "processed", len(orders),
		"placed", res.PlacedCount(), "rejected", res.RejectedCount(),
		"elapsed", res.Elapsed.Round(time.Millisecond))

	return res, runErr
}

func (r *Runner) runSequential(ctx context.Context, files []string) ([]*model.Order, error) {
	orders := make([]*model.Order, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return orders, err
		}
		o, err := r.processOne(ctx, path)
		if err != nil {
			return orders, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *Runner) runParallel(ctx context.Context, files []string) ([]*model.Order, error) {
	slots := make([]*model.Order, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, path := range files {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			o, err := r.processOne(gctx, path)
			if err != nil {
				return err
			}
			slots[i] = o
			return nil
		})
	}

	err := g.Wait()

	orders := make([]*model.Order, 0, len(slots))
	for _, o := range slots {
		if o != nil {
			orders = append(orders, o)
		}
	}
	return orders, err
}

// processOne выделяет идентификатор и доводит один файл до терминального
// состояния. Ошибка здесь возможна только инфраструктурная (выдача
// идентификаторов) и прерывает пакет целиком.
func (r *Runner) processOne(ctx context.Context, path string) (*model.Order, error) {
	id, err := r.alloc.AllocateID()
	if err != nil {
		return nil, fmt.Errorf("allocate order id: %w", err)
	}

	start := time.Now()
	// Начатый заказ доводится до конца: остановка пакета учитывается
	// только между заказами, иначе отмена посреди стадий превратилась бы
	// в ложный отказ с карантином исправного исходника.
	o := r.proc.Process(context.WithoutCancel(ctx), id, path)

	if r.metrics != nil {
		r.metrics.ObserveTerminal(o, time.Since(start).Seconds())
	}
	return o, nil
}

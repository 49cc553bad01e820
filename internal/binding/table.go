// Package binding реализует выбор кольцевого переплёта по числу страниц.
package binding

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/mmeshcher/skriptendruck-system/internal/model"
)

// ErrEmptyDocument возвращается для документа без страниц.
var (
	ErrEmptyDocument = errors.New("document has no pages")
	// ErrTooManyPages возвращается, если страниц больше, чем допускает
	// последняя строка таблицы переплётов.
	ErrTooManyPages = errors.New("too many pages for binding")
)

// NoBinding — страж для заказов без переплёта, нулевая стоимость.
var NoBinding = model.BindingTier{Class: model.CostClassNone}

// Table — упорядоченная таблица кольцевых переплётов. Диапазоны строк
// смежны и не пересекаются, покрывая 1..MaxPages; это проверяется при
// загрузке, а не при поиске.
type Table struct {
	tiers []model.BindingTier
}

type tableFile struct {
	BindingSizes []model.BindingTier `json:"binding_sizes"`
}

// Default возвращает встроенную таблицу переплётов. Значения совпадают
// с таблицей поставщика; верхняя граница большого переплёта — 660 страниц.
func Default() *Table {
	t, err := New([]model.BindingTier{
		{MinPages: 1, MaxPages: 80, DiameterMM: 8, Class: model.CostClassSmall},
		{MinPages: 81, MaxPages: 120, DiameterMM: 10, Class: model.CostClassSmall},
		{MinPages: 121, MaxPages: 160, DiameterMM: 12, Class: model.CostClassSmall},
		{MinPages: 161, MaxPages: 200, DiameterMM: 14, Class: model.CostClassSmall},
		{MinPages: 201, MaxPages: 240, DiameterMM: 16, Class: model.CostClassSmall},
		{MinPages: 241, MaxPages: 280, DiameterMM: 19, Class: model.CostClassSmall},
		{MinPages: 281, MaxPages: 320, DiameterMM: 22, Class: model.CostClassSmall},
		{MinPages: 321, MaxPages: 400, DiameterMM: 25, Class: model.CostClassLarge},
		{MinPages: 401, MaxPages: 480, DiameterMM: 28, Class: model.CostClassLarge},
		{MinPages: 481, MaxPages: 660, DiameterMM: 32, Class: model.CostClassLarge},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// Load читает таблицу переплётов из JSON-файла.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read binding table: %w", err)
	}

	var f tableFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode binding table: %w", err)
	}

	return New(f.BindingSizes)
}

// New строит таблицу из строк, проверяя смежность диапазонов.
func New(tiers []model.BindingTier) (*Table, error) {
	if len(tiers) == 0 {
		return nil, errors.New("binding table is empty")
	}

	sorted := make([]model.BindingTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinPages < sorted[j].MinPages })

	if sorted[0].MinPages != 1 {
		return nil, fmt.Errorf("binding table must start at page 1, got %d", sorted[0].MinPages)
	}

	for i, tier := range sorted {
		if tier.MaxPages < tier.MinPages {
			return nil, fmt.Errorf("binding tier %d-%d: inverted range", tier.MinPages, tier.MaxPages)
		}
		if tier.Class != model.CostClassSmall && tier.Class != model.CostClassLarge {
			return nil, fmt.Errorf("binding tier %d-%d: unknown cost class %q", tier.MinPages, tier.MaxPages, tier.Class)
		}
		if i > 0 {
			prev := sorted[i-1]
			if tier.MinPages != prev.MaxPages+1 {
				return nil, fmt.Errorf("binding table gap between %d and %d", prev.MaxPages, tier.MinPages)
			}
			if tier.DiameterMM < prev.DiameterMM {
				return nil, fmt.Errorf("binding diameter must not decrease: %v after %v", tier.DiameterMM, prev.DiameterMM)
			}
		}
	}

	return &Table{tiers: sorted}, nil
}

// MaxPages возвращает верхнюю границу последней строки таблицы.
func (t *Table) MaxPages() int {
	return t.tiers[len(t.tiers)-1].MaxPages
}

// Tiers возвращает копию строк таблицы.
func (t *Table) Tiers() []model.BindingTier {
	out := make([]model.BindingTier, len(t.tiers))
	copy(out, t.tiers)
	return out
}

// Select возвращает строку переплёта для числа страниц и режима.
// Для режима без переплёта возвращается страж NoBinding, для
// скоросшивателя переплёт не подбирается. Ноль страниц и превышение
// таблицы — терминальные ошибки, без округления к ближайшей строке.
func (t *Table) Select(pages int, mode model.BindingMode) (model.BindingTier, error) {
	if pages <= 0 {
		return model.BindingTier{}, ErrEmptyDocument
	}

	if mode == model.BindingNone || mode == model.BindingFolder {
		return NoBinding, nil
	}

	if pages > t.MaxPages() {
		return model.BindingTier{}, ErrTooManyPages
	}

	idx := sort.Search(len(t.tiers), func(i int) bool { return t.tiers[i].MaxPages >= pages })
	return t.tiers[idx], nil
}

// Package pricing реализует расчёт стоимости заказа печати.
package pricing

import (
	"fmt"
	"math"
	"strings"

	"github.com/mmeshcher/skriptendruck-system/internal/model"
)

// Rates содержит тарифные константы в евро. Тарифы — данные конфигурации,
// загружаются один раз на запуск, а не на заказ.
type Rates struct {
	MonoPerPage  float64
	ColorPerPage float64
	BindingSmall float64
	BindingLarge float64
	Folder       float64
	Deposit      float64
}

// DefaultRates возвращает тарифы, действующие в копицентре.
func DefaultRates() Rates {
	return Rates{
		MonoPerPage:  0.04,
		ColorPerPage: 0.10,
		BindingSmall: 1.00,
		BindingLarge: 1.50,
		Folder:       0.50,
		Deposit:      1.00,
	}
}

// Calculator вычисляет стоимость заказа по тарифам.
type Calculator struct {
	rates Rates
}

// NewCalculator создаёт калькулятор с указанными тарифами.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Calculate возвращает раскладку стоимости для числа страниц, режима
// печати и подобранного переплёта. Промежуточные слагаемые не
// округляются; итог округляется до центов один раз (half-up).
func (c *Calculator) Calculate(pages int, color model.ColorMode, mode model.BindingMode, tier model.BindingTier) model.PriceBreakdown {
	rate := c.rates.MonoPerPage
	if color == model.ColorColor {
		rate = c.rates.ColorPerPage
	}
	perPage := float64(pages) * rate

	var bindingCost float64
	switch {
	case mode == model.BindingFolder:
		bindingCost = c.rates.Folder
	case tier.Class == model.CostClassSmall:
		bindingCost = c.rates.BindingSmall
	case tier.Class == model.CostClassLarge:
		bindingCost = c.rates.BindingLarge
	}

	total := roundCents(perPage + bindingCost)

	return model.PriceBreakdown{
		PerPage:      perPage,
		Binding:      bindingCost,
		Total:        total,
		AfterDeposit: math.Max(0, roundCents(total-c.rates.Deposit)),
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatEUR форматирует сумму для титульного листа: "3,00 €".
func FormatEUR(v float64) string {
	return strings.Replace(fmt.Sprintf("%.2f €", v), ".", ",", 1)
}

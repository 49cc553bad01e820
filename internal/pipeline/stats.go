package pipeline

import (
	"time"

	"github.com/mmeshcher/skriptendruck-system/internal/model"
)

// Result содержит итог пакетного прогона.
type Result struct {
	Orders  []*model.Order
	Elapsed time.Duration
}

// Placed возвращает успешно размещённые заказы.
func (r *Result) Placed() []*model.Order {
	var out []*model.Order
	for _, o := range r.Orders {
		if !o.IsRejected() {
			out = append(out, o)
		}
	}
	return out
}

// Rejected возвращает отклонённые заказы.
func (r *Result) Rejected() []*model.Order {
	var out []*model.Order
	for _, o := range r.Orders {
		if o.IsRejected() {
			out = append(out, o)
		}
	}
	return out
}

// PlacedCount возвращает число размещённых заказов.
func (r *Result) PlacedCount() int {
	return len(r.Orders) - r.RejectedCount()
}

// RejectedCount возвращает число отклонённых заказов.
func (r *Result) RejectedCount() int {
	n := 0
	for _, o := range r.Orders {
		if o.IsRejected() {
			n++
		}
	}
	return n
}

// CountByReason возвращает распределение отклонений по причинам.
func (r *Result) CountByReason() map[model.RejectReason]int {
	out := make(map[model.RejectReason]int)
	for _, o := range r.Orders {
		if o.IsRejected() {
			out[o.Reason]++
		}
	}
	return out
}

// TotalRevenue возвращает суммарную стоимость размещённых заказов.
func (r *Result) TotalRevenue() float64 {
	var sum float64
	for _, o := range r.Orders {
		if !o.IsRejected() && o.Price != nil {
			sum += o.Price.Total
		}
	}
	return sum
}

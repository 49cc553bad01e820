// Package storage содержит локальное хранилище терминальных записей
// заказов на базе Pebble.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/mmeshcher/skriptendruck-system/internal/model"
)

const (
	orderPrefix = "order/"
	nextIDKey   = "meta/next_order_id"
)

// OrderStore хранит терминальные записи заказов. Приём записи
// идемпотентен по идентичности заказа: повторная сдача той же
// идентичности не изменяет уже сохранённую запись.
type OrderStore struct {
	db *pebble.DB

	idMu sync.Mutex
}

// NewOrderStore открывает хранилище в указанном каталоге.
func NewOrderStore(dir string) (*OrderStore, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open order store: %w", err)
	}
	return &OrderStore{db: db}, nil
}

// Close закрывает хранилище.
func (s *OrderStore) Close() error {
	return s.db.Close()
}

// AllocateID выдаёт следующий сквозной номер заказа.
func (s *OrderStore) AllocateID() (int64, error) {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	key := []byte(nextIDKey)
	next := int64(1)

	v, closer, err := s.db.Get(key)
	if err == nil {
		next = int64(binary.BigEndian.Uint64(v)) + 1
		if cerr := closer.Close(); cerr != nil {
			return 0, cerr
		}
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return 0, fmt.Errorf("read order counter: %w", err)
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(next))
	if err := s.db.Set(key, buf, pebble.Sync); err != nil {
		return 0, fmt.Errorf("advance order counter: %w", err)
	}

	return next, nil
}

// SaveOrder сохраняет терминальную запись заказа. Уже существующая
// запись той же идентичности остаётся нетронутой.
func (s *OrderStore) SaveOrder(o *model.Order) error {
	key := []byte(orderPrefix + o.Identity())

	_, closer, err := s.db.Get(key)
	if err == nil {
		return closer.Close()
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("check order record: %w", err)
	}

	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode order record: %w", err)
	}
	if err := s.db.Set(key, data, pebble.Sync); err != nil {
		return fmt.Errorf("write order record: %w", err)
	}
	return nil
}

// GetOrder возвращает сохранённую запись по идентичности заказа.
func (s *OrderStore) GetOrder(identity string) (*model.Order, bool, error) {
	v, closer, err := s.db.Get([]byte(orderPrefix + identity))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read order record: %w", err)
	}
	defer closer.Close()

	var o model.Order
	if err := json.Unmarshal(v, &o); err != nil {
		return nil, false, fmt.Errorf("decode order record: %w", err)
	}
	return &o, true, nil
}

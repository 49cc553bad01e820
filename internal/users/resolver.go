// Package users отвечает за проверку владельцев заказов: справочная
// служба, локальная резервная таблица, чёрный список и кэш на время
// одного прогона.
package users

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/mmeshcher/skriptendruck-system/internal/directory"
	"github.com/mmeshcher/skriptendruck-system/internal/model"
)

// ErrNotFound возвращается, если владелец не найден ни в справочной
// службе, ни в резервной таблице.
var (
	ErrNotFound = errors.New("user not found")
	// ErrBlocked возвращается для владельца из чёрного списка.
	ErrBlocked = errors.New("user is blocked")
)

// Directory описывает контракт справочной службы, используемый резолвером.
type Directory interface {
	Resolve(ctx context.Context, ownerID string) (*model.UserRecord, error)
}

// Resolver разрешает владельцев заказов. Безопасен для конкурентного
// использования: одновременные запросы одного владельца схлопываются
// в одно обращение к справочной службе (single-flight), результат
// кэшируется до конца прогона.
type Resolver struct {
	dir       Directory
	fallback  map[string]*model.UserRecord
	blocklist map[string]struct{}

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]*model.UserRecord
}

// NewResolver создаёт резолвер. dir может быть nil, тогда используется
// только резервная таблица.
func NewResolver(dir Directory, fallback map[string]*model.UserRecord, blocklist map[string]struct{}) *Resolver {
	if fallback == nil {
		fallback = map[string]*model.UserRecord{}
	}
	if blocklist == nil {
		blocklist = map[string]struct{}{}
	}
	return &Resolver{
		dir:       dir,
		fallback:  fallback,
		blocklist: blocklist,
		cache:     map[string]*model.UserRecord{},
	}
}

// Resolve возвращает запись владельца либо ErrNotFound/ErrBlocked.
// Чёрный список проверяется после разрешения: заблокированный, но
// существующий владелец отклоняется как заблокированный.
func (r *Resolver) Resolve(ctx context.Context, ownerID string) (*model.UserRecord, error) {
	ownerID = strings.ToLower(ownerID)

	record, err := r.lookup(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if _, blocked := r.blocklist[ownerID]; blocked {
		return nil, ErrBlocked
	}

	return record, nil
}

func (r *Resolver) lookup(ctx context.Context, ownerID string) (*model.UserRecord, error) {
	r.mu.RLock()
	cached, ok := r.cache[ownerID]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := r.group.Do(ownerID, func() (interface{}, error) {
		record, err := r.resolveOnce(ctx, ownerID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[ownerID] = record
		r.mu.Unlock()

		return record, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.UserRecord), nil
}

// resolveOnce опрашивает первичный источник, затем резервную таблицу.
// Сетевые повторы выполняет сам клиент справочной службы; после их
// исчерпания остаётся только резервная таблица.
func (r *Resolver) resolveOnce(ctx context.Context, ownerID string) (*model.UserRecord, error) {
	if r.dir != nil {
		record, err := r.dir.Resolve(ctx, ownerID)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, directory.ErrNotFound) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if record, ok := r.fallback[ownerID]; ok {
		return record, nil
	}

	return nil, ErrNotFound
}

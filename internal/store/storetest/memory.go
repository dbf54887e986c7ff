// Package storetest provides an in-memory Store for unit tests that exercise
// ledger and sweep logic without a database.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/commercekit/popularity/internal/domain"
	"github.com/commercekit/popularity/internal/store"
	"github.com/commercekit/popularity/internal/store/schema"
)

var _ store.Store = (*Memory)(nil)

type entryKey struct {
	ProductID int64
	Year      int
	Month     int
}

// Memory is an in-memory store.Store implementation. It mirrors the
// PostgreSQL store's semantics: unique (product, period) rows, no-FK orphan
// behavior, and denormalized product score refresh on current-period writes.
type Memory struct {
	mu       sync.Mutex
	products map[int64]*schema.Product
	entries  map[entryKey]*schema.PopularityEntry
	nextID   int64

	// Err, when set, is returned by every method to simulate storage failure
	Err error
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		products: make(map[int64]*schema.Product),
		entries:  make(map[entryKey]*schema.PopularityEntry),
		nextID:   1,
	}
}

// Entries returns a snapshot of all ledger entries, ordered by ID
func (m *Memory) Entries() []schema.PopularityEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]schema.PopularityEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) GetProduct(_ context.Context, productID int64) (*schema.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	p, ok := m.products[productID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) ProductExists(_ context.Context, productID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}

	_, ok := m.products[productID]
	return ok, nil
}

func (m *Memory) CreateProduct(_ context.Context, product *schema.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	if product.ID == 0 {
		product.ID = m.nextID
		m.nextID++
	} else if product.ID >= m.nextID {
		m.nextID = product.ID + 1
	}
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *Memory) DeleteProduct(_ context.Context, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	delete(m.products, productID)
	return nil
}

func (m *Memory) CountProducts(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}

	return int64(len(m.products)), nil
}

func (m *Memory) ListProductIDs(_ context.Context, afterID int64, limit int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	var ids []int64
	for id := range m.products {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *Memory) ListPopularProducts(_ context.Context, limit, offset int) ([]schema.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	products := make([]schema.Product, 0, len(m.products))
	for _, p := range m.products {
		products = append(products, *p)
	}
	sort.Slice(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if a.CurrentMonthScore != b.CurrentMonthScore {
			return a.CurrentMonthScore > b.CurrentMonthScore
		}
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		return a.ID < b.ID
	})

	if offset >= len(products) {
		return []schema.Product{}, nil
	}
	products = products[offset:]
	if len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

func (m *Memory) GetEntry(_ context.Context, productID int64, p domain.Period) (*schema.PopularityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	e, ok := m.entries[entryKey{productID, p.Year, int(p.Month)}]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *Memory) ResolveEntry(_ context.Context, productID int64, p domain.Period, createdAt time.Time, current bool) (*schema.PopularityEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, false, m.Err
	}
	if !p.Valid() {
		return nil, false, domain.ErrInvalidPeriod
	}
	if _, ok := m.products[productID]; !ok {
		return nil, false, domain.ErrProductNotFound
	}

	key := entryKey{productID, p.Year, int(p.Month)}
	if e, ok := m.entries[key]; ok {
		cp := *e
		return &cp, false, nil
	}

	e := &schema.PopularityEntry{
		ID:        m.nextID,
		ProductID: productID,
		Score:     0,
		Year:      p.Year,
		Month:     int(p.Month),
		CreatedAt: createdAt,
	}
	m.nextID++
	m.entries[key] = e

	if current {
		m.refreshProductScores(productID, p)
	}

	cp := *e
	return &cp, true, nil
}

func (m *Memory) AddScore(_ context.Context, productID int64, p domain.Period, delta int, createdAt time.Time, current bool) (*schema.PopularityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if !p.Valid() {
		return nil, domain.ErrInvalidPeriod
	}
	if _, ok := m.products[productID]; !ok {
		return nil, domain.ErrProductNotFound
	}

	key := entryKey{productID, p.Year, int(p.Month)}
	e, ok := m.entries[key]
	if !ok {
		e = &schema.PopularityEntry{
			ID:        m.nextID,
			ProductID: productID,
			Year:      p.Year,
			Month:     int(p.Month),
			CreatedAt: createdAt,
		}
		m.nextID++
		m.entries[key] = e
	}
	e.Score += delta

	if current {
		m.refreshProductScores(productID, p)
	}

	cp := *e
	return &cp, nil
}

func (m *Memory) TotalScore(_ context.Context, productID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}

	return m.totalScoreLocked(productID), nil
}

func (m *Memory) DeleteEmptyEntries(_ context.Context, p domain.Period) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	if !p.Valid() {
		return 0, domain.ErrInvalidPeriod
	}

	var deleted int64
	for key, e := range m.entries {
		if e.Score == 0 && e.Year == p.Year && e.Month == int(p.Month) {
			delete(m.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func (m *Memory) DeleteOrphanEntries(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}

	var deleted int64
	for key, e := range m.entries {
		if _, ok := m.products[e.ProductID]; !ok {
			delete(m.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func (m *Memory) totalScoreLocked(productID int64) int {
	total := 0
	for _, e := range m.entries {
		if e.ProductID == productID {
			total += e.Score
		}
	}
	return total
}

func (m *Memory) refreshProductScores(productID int64, p domain.Period) {
	product, ok := m.products[productID]
	if !ok {
		return
	}

	current := 0
	if e, ok := m.entries[entryKey{productID, p.Year, int(p.Month)}]; ok {
		current = e.Score
	}
	product.CurrentMonthScore = current
	product.TotalScore = m.totalScoreLocked(productID)
}

// Package catalog owns the shared catalog of sellable items across all
// stores. All mutation goes through one mutex, so a record's
// find-or-merge-or-append completes before the next one starts regardless
// of how many mailbox watchers or HTTP handlers are running.
package catalog

import (
	"sort"
	"strings"
	"sync"

	"github.com/shopmesh/shopmesh/internal/model"
)

// Service is the catalog store shared by the REST layer and the email
// ingestion pipeline.
type Service struct {
	mu      sync.Mutex
	entries []model.Product
	stores  []model.Store
	seq     Sequence
}

// New creates an empty catalog serving the given stores.
func New(stores []model.Store) *Service {
	return &Service{stores: append([]model.Store(nil), stores...)}
}

// ProductWithStore is a catalog entry joined with its store for API output.
type ProductWithStore struct {
	model.Product
	Store *model.Store `json:"store,omitempty"`
}

// Stores lists all known stores.
func (s *Service) Stores() []model.Store {
	return append([]model.Store(nil), s.stores...)
}

func (s *Service) storeByID(id int64) *model.Store {
	for i := range s.stores {
		if s.stores[i].ID == id {
			st := s.stores[i]
			return &st
		}
	}
	return nil
}

// List returns all in-stock entries joined with store info.
func (s *Service) List() []ProductWithStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ProductWithStore, 0, len(s.entries))
	for _, p := range s.entries {
		if p.Stock <= 0 {
			continue
		}
		out = append(out, ProductWithStore{Product: p, Store: s.storeByID(p.StoreID)})
	}
	return out
}

// Search returns in-stock entries matching the query in name, description
// or drug name, optionally restricted to a category, grouped by drug name
// for pharmacy items and by product name otherwise.
func (s *Service) Search(query, category string) map[string][]ProductWithStore {
	q := strings.ToLower(query)
	s.mu.Lock()
	defer s.mu.Unlock()
	grouped := make(map[string][]ProductWithStore)
	for _, p := range s.entries {
		if p.Stock <= 0 {
			continue
		}
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) &&
			!strings.Contains(strings.ToLower(p.DrugName), q) {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		key := p.Name
		if p.Category == model.CategoryPharmacy && p.DrugName != "" {
			key = p.DrugName
		}
		grouped[key] = append(grouped[key], ProductWithStore{Product: p, Store: s.storeByID(p.StoreID)})
	}
	return grouped
}

// ByStore returns every entry belonging to one store, including
// out-of-stock items, for the seller view.
func (s *Service) ByStore(storeID int64) []ProductWithStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ProductWithStore, 0)
	for _, p := range s.entries {
		if p.StoreID == storeID {
			out = append(out, ProductWithStore{Product: p, Store: s.storeByID(p.StoreID)})
		}
	}
	return out
}

// Get returns the entry with the given id.
func (s *Service) Get(id int64) (model.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.entries {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

// Add appends a new entry with a freshly allocated id.
func (s *Service) Add(p model.Product) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.seq.Next()
	s.entries = append(s.entries, p)
	return p
}

// Update overwrites the entry with the given id, preserving the id. The
// stored store id is kept when the replacement does not carry one.
func (s *Service) Update(id int64, p model.Product) (model.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID != id {
			continue
		}
		p.ID = id
		if p.StoreID == 0 {
			p.StoreID = s.entries[i].StoreID
		}
		s.entries[i] = p
		return p, true
	}
	return model.Product{}, false
}

// Delete removes the entry with the given id.
func (s *Service) Delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of catalog entries.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Snapshot returns a copy of all entries ordered by id.
func (s *Service) Snapshot() []model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]model.Product(nil), s.entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reconcile ingests one sanitized, validated record for a store. The entry
// matching on (name, storeId) is merged in place, keeping its id and store
// id; when no entry matches, a new one is appended with defaults for
// category and delivery options. Reports whether an entry was created.
func (s *Service) Reconcile(storeID int64, rec model.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].Name == rec.Name && s.entries[i].StoreID == storeID {
			merge(&s.entries[i], rec)
			return false
		}
	}
	p := model.Product{
		ID:              s.seq.Next(),
		Name:            rec.Name,
		StoreID:         storeID,
		Category:        model.CategoryGeneral,
		DeliveryOptions: append([]string(nil), model.DefaultDeliveryOptions...),
	}
	merge(&p, rec)
	s.entries = append(s.entries, p)
	return true
}

// merge copies the supplied record fields over the entry. Absent fields
// leave the entry untouched; id and store id are never written here.
func merge(p *model.Product, rec model.Record) {
	if rec.Name != "" {
		p.Name = rec.Name
	}
	if rec.Description != nil {
		p.Description = *rec.Description
	}
	if rec.Price != nil {
		p.Price = *rec.Price
	}
	if rec.Stock != nil {
		p.Stock = *rec.Stock
	}
	if rec.Category != nil {
		p.Category = *rec.Category
	}
	if rec.Image != nil {
		p.Image = *rec.Image
	}
	if rec.DrugName != nil {
		p.DrugName = *rec.DrugName
	}
	if rec.BrandName != nil {
		p.BrandName = *rec.BrandName
	}
	if rec.GenericEquivalent != nil {
		p.GenericEquivalent = *rec.GenericEquivalent
	}
	if rec.DosageForm != nil {
		p.DosageForm = *rec.DosageForm
	}
	if rec.Strength != nil {
		p.Strength = *rec.Strength
	}
	if rec.ActiveIngredients != nil {
		p.ActiveIngredients = *rec.ActiveIngredients
	}
	if rec.Warnings != nil {
		p.Warnings = *rec.Warnings
	}
	if rec.DosesPerPack != nil {
		p.DosesPerPack = *rec.DosesPerPack
	}
	if rec.PrescriptionRequired != nil {
		v := *rec.PrescriptionRequired
		p.PrescriptionRequired = &v
	}
}

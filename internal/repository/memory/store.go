// Package memory implements repository.Store in process memory. It backs
// local runs without PostgreSQL and the service and handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/utafrali/product-catalog/internal/domain"
	"github.com/utafrali/product-catalog/internal/repository"
	apperrors "github.com/utafrali/product-catalog/pkg/errors"
)

// state is one consistent snapshot of every table.
type state struct {
	products        map[string]domain.Product
	variants        map[string]domain.Variant
	productVariants map[string]domain.ProductVariant
	prices          map[string]domain.ProductVariantPrice
	images          map[string]domain.ProductImage
	seq             int64
	order           map[string]int64
}

func newState() *state {
	return &state{
		products:        map[string]domain.Product{},
		variants:        map[string]domain.Variant{},
		productVariants: map[string]domain.ProductVariant{},
		prices:          map[string]domain.ProductVariantPrice{},
		images:          map[string]domain.ProductImage{},
		order:           map[string]int64{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.variants {
		c.variants[k] = v
	}
	for k, v := range s.productVariants {
		c.productVariants[k] = v
	}
	for k, v := range s.prices {
		c.prices[k] = v
	}
	for k, v := range s.images {
		c.images[k] = v
	}
	for k, v := range s.order {
		c.order[k] = v
	}
	c.seq = s.seq
	return c
}

// insertion order breaks ties between rows created in the same instant.
func (s *state) track(id string) {
	s.seq++
	s.order[id] = s.seq
}

// Store implements repository.Store. Transactions work on a copy of the
// data that replaces the original on commit. Writers are serialized.
type Store struct {
	mu sync.RWMutex
	st *state

	writes int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Repositories returns repositories that act directly on the store.
func (s *Store) Repositories() repository.Repositories {
	return s.repos(&direct{store: s})
}

// WithTx runs fn against a private copy that is kept only when fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(r repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txAccess{st: s.st.clone()}
	if err := fn(s.repos(tx)); err != nil {
		return err
	}
	if tx.dirty {
		s.st = tx.st
		s.writes++
	}
	return nil
}

// Writes returns the number of committed write transactions.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) repos(a access) repository.Repositories {
	return repository.Repositories{
		Products:        &productRepo{a: a},
		Variants:        &variantRepo{a: a},
		ProductVariants: &productVariantRepo{a: a},
		Prices:          &priceRepo{a: a},
		Images:          &imageRepo{a: a},
	}
}

// access hides whether a repository reads the live state under the store
// lock or a transaction copy that is already exclusively held.
type access interface {
	read(fn func(st *state))
	write(fn func(st *state) error) error
}

type direct struct{ store *Store }

func (d *direct) read(fn func(st *state)) {
	d.store.mu.RLock()
	defer d.store.mu.RUnlock()
	fn(d.store.st)
}

func (d *direct) write(fn func(st *state) error) error {
	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	next := d.store.st.clone()
	if err := fn(next); err != nil {
		return err
	}
	d.store.st = next
	d.store.writes++
	return nil
}

type txAccess struct {
	st    *state
	dirty bool
}

func (t *txAccess) read(fn func(st *state)) { fn(t.st) }

func (t *txAccess) write(fn func(st *state) error) error {
	if err := fn(t.st); err != nil {
		return err
	}
	t.dirty = true
	return nil
}

// ─── products ───────────────────────────────────────────────────────────────

type productRepo struct{ a access }

func (r *productRepo) Create(_ context.Context, p *domain.Product) error {
	return r.a.write(func(st *state) error {
		for _, other := range st.products {
			if other.SKU == p.SKU {
				return apperrors.Duplicate("product", "sku", p.SKU)
			}
		}
		st.products[p.ID] = *p
		st.track(p.ID)
		return nil
	})
}

func (r *productRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	var (
		p  domain.Product
		ok bool
	)
	r.a.read(func(st *state) { p, ok = st.products[id] })
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return &p, nil
}

func (r *productRepo) SKUExists(_ context.Context, sku, excludeID string) (bool, error) {
	var exists bool
	r.a.read(func(st *state) {
		for _, p := range st.products {
			if p.SKU == sku && p.ID != excludeID {
				exists = true
				return
			}
		}
	})
	return exists, nil
}

func (r *productRepo) Update(_ context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()
	return r.a.write(func(st *state) error {
		cur, ok := st.products[p.ID]
		if !ok {
			return apperrors.NotFound("product", p.ID)
		}
		for _, other := range st.products {
			if other.SKU == p.SKU && other.ID != p.ID {
				return apperrors.Duplicate("product", "sku", p.SKU)
			}
		}
		cur.Title, cur.SKU, cur.Description, cur.UpdatedAt = p.Title, p.SKU, p.Description, p.UpdatedAt
		st.products[p.ID] = cur
		return nil
	})
}

func (r *productRepo) List(_ context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	var matched []domain.Product
	r.a.read(func(st *state) { matched = st.filter(filter) })

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	start := min(max(filter.Offset, 0), len(matched))
	end := min(start+limit, len(matched))
	return append([]domain.Product{}, matched[start:end]...), nil
}

func (r *productRepo) Count(_ context.Context, filter repository.ProductFilter) (int, error) {
	var n int
	r.a.read(func(st *state) { n = len(st.filter(filter)) })
	return n, nil
}

func (st *state) filter(f repository.ProductFilter) []domain.Product {
	title := strings.ToLower(f.Title)
	var out []domain.Product
	for _, p := range st.products {
		if title != "" && !strings.Contains(strings.ToLower(p.Title), title) {
			continue
		}
		if f.CreatedOn != nil {
			day := f.CreatedOn.UTC().Truncate(24 * time.Hour)
			at := p.CreatedAt.UTC()
			if at.Before(day) || !at.Before(day.Add(24*time.Hour)) {
				continue
			}
		}
		if f.HasPriceRange() && !st.hasPriceIn(p.ID, f) {
			continue
		}
		if f.VariantTag != "" && !st.hasTag(p.ID, f.VariantTag) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return st.order[out[i].ID] > st.order[out[j].ID]
	})
	return out
}

func (st *state) hasPriceIn(productID string, f repository.ProductFilter) bool {
	for _, pr := range st.prices {
		if pr.ProductID == productID && pr.Price.GreaterThanOrEqual(*f.PriceFrom) && pr.Price.LessThanOrEqual(*f.PriceTo) {
			return true
		}
	}
	return false
}

func (st *state) hasTag(productID, tag string) bool {
	for _, pr := range st.prices {
		if pr.ProductID != productID {
			continue
		}
		for _, slot := range pr.Slots() {
			if slot == nil {
				continue
			}
			if pv, ok := st.productVariants[*slot]; ok && pv.VariantTitle == tag {
				return true
			}
		}
	}
	return false
}

// ─── variants ───────────────────────────────────────────────────────────────

type variantRepo struct{ a access }

func (r *variantRepo) Create(_ context.Context, v *domain.Variant) error {
	return r.a.write(func(st *state) error {
		for _, other := range st.variants {
			if other.Title == v.Title {
				return apperrors.Duplicate("variant", "title", v.Title)
			}
		}
		st.variants[v.ID] = *v
		st.track(v.ID)
		return nil
	})
}

func (r *variantRepo) GetByID(_ context.Context, id string) (*domain.Variant, error) {
	var (
		v  domain.Variant
		ok bool
	)
	r.a.read(func(st *state) { v, ok = st.variants[id] })
	if !ok {
		return nil, apperrors.NotFound("variant", id)
	}
	return &v, nil
}

func (r *variantRepo) List(_ context.Context, activeOnly bool) ([]domain.Variant, error) {
	out := []domain.Variant{}
	r.a.read(func(st *state) {
		for _, v := range st.variants {
			if activeOnly && !v.Active {
				continue
			}
			out = append(out, v)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ─── product variants ───────────────────────────────────────────────────────

type productVariantRepo struct{ a access }

func (r *productVariantRepo) Create(_ context.Context, pv *domain.ProductVariant) error {
	return r.a.write(func(st *state) error {
		for _, other := range st.productVariants {
			if other.ProductID == pv.ProductID && other.VariantID == pv.VariantID && other.VariantTitle == pv.VariantTitle {
				return apperrors.AlreadyExists("product variant", "variant_title", pv.VariantTitle)
			}
		}
		st.productVariants[pv.ID] = *pv
		st.track(pv.ID)
		return nil
	})
}

func (r *productVariantRepo) Find(_ context.Context, productID, variantID, tag string) (*domain.ProductVariant, error) {
	var (
		found domain.ProductVariant
		ok    bool
	)
	r.a.read(func(st *state) {
		for _, pv := range st.productVariants {
			if pv.ProductID == productID && pv.VariantID == variantID && pv.VariantTitle == tag {
				found, ok = pv, true
				return
			}
		}
	})
	if !ok {
		return nil, apperrors.NotFound("product variant", tag)
	}
	return &found, nil
}

func (r *productVariantRepo) ListByProduct(_ context.Context, productID string) ([]domain.ProductVariant, error) {
	out := []domain.ProductVariant{}
	var order map[string]int64
	r.a.read(func(st *state) {
		order = st.order
		for _, pv := range st.productVariants {
			if pv.ProductID == productID {
				out = append(out, pv)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return order[out[i].ID] < order[out[j].ID] })
	return out, nil
}

func (r *productVariantRepo) DeleteByIDs(_ context.Context, productID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int64
	err := r.a.write(func(st *state) error {
		for _, id := range ids {
			if pv, ok := st.productVariants[id]; ok && pv.ProductID == productID {
				delete(st.productVariants, id)
				st.cascade(id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *productVariantRepo) DistinctTags(context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	r.a.read(func(st *state) {
		for _, pv := range st.productVariants {
			seen[pv.VariantTitle] = struct{}{}
		}
	})
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags, nil
}

// cascade mirrors ON DELETE CASCADE of the price slot foreign keys.
func (st *state) cascade(productVariantID string) {
	for id, p := range st.prices {
		for _, slot := range p.Slots() {
			if slot != nil && *slot == productVariantID {
				delete(st.prices, id)
				break
			}
		}
	}
}

// ─── prices ─────────────────────────────────────────────────────────────────

type priceRepo struct{ a access }

func (r *priceRepo) Create(_ context.Context, p *domain.ProductVariantPrice) error {
	return r.a.write(func(st *state) error {
		st.prices[p.ID] = *p
		st.track(p.ID)
		return nil
	})
}

func (r *priceRepo) GetByID(_ context.Context, id string) (*domain.ProductVariantPrice, error) {
	var (
		p  domain.ProductVariantPrice
		ok bool
	)
	r.a.read(func(st *state) { p, ok = st.prices[id] })
	if !ok {
		return nil, apperrors.NotFound("price row", id)
	}
	return &p, nil
}

func (r *priceRepo) Update(_ context.Context, p *domain.ProductVariantPrice) error {
	p.UpdatedAt = time.Now().UTC()
	return r.a.write(func(st *state) error {
		cur, ok := st.prices[p.ID]
		if !ok || cur.ProductID != p.ProductID {
			return apperrors.NotFound("price row", p.ID)
		}
		p.CreatedAt = cur.CreatedAt
		st.prices[p.ID] = *p
		return nil
	})
}

func (r *priceRepo) FindBySlots(_ context.Context, productID string, slots [domain.MaxSlots]*string) (*domain.ProductVariantPrice, error) {
	key := domain.SlotKey(slots)
	var (
		found domain.ProductVariantPrice
		ok    bool
	)
	r.a.read(func(st *state) {
		best := int64(-1)
		for _, p := range st.prices {
			if p.ProductID == productID && p.SlotKey() == key && (best < 0 || st.order[p.ID] < best) {
				found, ok, best = p, true, st.order[p.ID]
			}
		}
	})
	if !ok {
		return nil, apperrors.NotFound("price row", key)
	}
	return &found, nil
}

func (r *priceRepo) ListByProducts(_ context.Context, productIDs []string) (map[string][]domain.VariantPrice, error) {
	wanted := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = struct{}{}
	}

	out := make(map[string][]domain.VariantPrice, len(productIDs))
	r.a.read(func(st *state) {
		var rows []domain.ProductVariantPrice
		for _, p := range st.prices {
			if _, ok := wanted[p.ProductID]; ok {
				rows = append(rows, p)
			}
		}
		sort.Slice(rows, func(i, j int) bool { return st.order[rows[i].ID] < st.order[rows[j].ID] })

		tag := func(slot *string) string {
			if slot == nil {
				return ""
			}
			return st.productVariants[*slot].VariantTitle
		}
		for _, p := range rows {
			out[p.ProductID] = append(out[p.ProductID], domain.VariantPrice{
				ProductVariantPrice: p,
				TagOne:              tag(p.ProductVariantOne),
				TagTwo:              tag(p.ProductVariantTwo),
				TagThree:            tag(p.ProductVariantThree),
			})
		}
	})
	return out, nil
}

func (r *priceRepo) DeleteByVariantIDs(_ context.Context, productID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	var n int64
	err := r.a.write(func(st *state) error {
		for id, p := range st.prices {
			if p.ProductID != productID {
				continue
			}
			for _, slot := range p.Slots() {
				if slot == nil {
					continue
				}
				if _, ok := drop[*slot]; ok {
					delete(st.prices, id)
					n++
					break
				}
			}
		}
		return nil
	})
	return n, err
}

// ─── images ─────────────────────────────────────────────────────────────────

type imageRepo struct{ a access }

func (r *imageRepo) Create(_ context.Context, img *domain.ProductImage) error {
	return r.a.write(func(st *state) error {
		st.images[img.ID] = *img
		st.track(img.ID)
		return nil
	})
}

func (r *imageRepo) ListByProduct(_ context.Context, productID string) ([]domain.ProductImage, error) {
	out := []domain.ProductImage{}
	var order map[string]int64
	r.a.read(func(st *state) {
		order = st.order
		for _, img := range st.images {
			if img.ProductID == productID {
				out = append(out, img)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return order[out[i].ID] < order[out[j].ID] })
	return out, nil
}

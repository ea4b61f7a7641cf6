// Package memory provides the authoritative in-memory collection store. Every
// mutation runs inside a transaction over a cloned state that is committed
// only after the rules engine accepts it.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"inked/pkg/color"
	"inked/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Pen aliases domain.Pen for in-memory persistence operations.
	Pen = domain.Pen
	// Ink aliases domain.Ink.
	Ink = domain.Ink
	// BrandLogo aliases domain.BrandLogo.
	BrandLogo = domain.BrandLogo
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// Collections keep insertion order; lookups are linear because a personal
// collection stays small.
type memoryState struct {
	pens  []Pen
	inks  []Ink
	logos map[string]BrandLogo
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Pens  []Pen                `json:"pens"`
	Inks  []Ink                `json:"inks"`
	Logos map[string]BrandLogo `json:"brandLogos"`
}

func newMemoryState() memoryState {
	return memoryState{logos: make(map[string]BrandLogo)}
}

func (s memoryState) clone() memoryState {
	cloned := memoryState{
		pens:  make([]Pen, 0, len(s.pens)),
		inks:  make([]Ink, 0, len(s.inks)),
		logos: make(map[string]BrandLogo, len(s.logos)),
	}
	for _, p := range s.pens {
		cloned.pens = append(cloned.pens, clonePen(p))
	}
	cloned.inks = append(cloned.inks, s.inks...)
	for k, v := range s.logos {
		cloned.logos[k] = v
	}
	return cloned
}

func clonePen(p Pen) Pen {
	cp := p
	if p.InkID != nil {
		id := *p.InkID
		cp.InkID = &id
	}
	return cp
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	cloned := state.clone()
	return Snapshot{Pens: cloned.pens, Inks: cloned.inks, Logos: cloned.logos}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := memoryState{pens: s.Pens, inks: s.Inks, logos: s.Logos}
	return state.clone()
}

// migrateSnapshot repairs snapshots written by older or interrupted processes:
// duplicate ids keep their first occurrence and pens pointing at missing inks
// are cleaned.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Logos == nil {
		snapshot.Logos = map[string]BrandLogo{}
	}
	inkIDs := make(map[string]struct{}, len(snapshot.Inks))
	inks := make([]Ink, 0, len(snapshot.Inks))
	for _, ink := range snapshot.Inks {
		if _, dup := inkIDs[ink.ID]; dup || ink.ID == "" {
			continue
		}
		inkIDs[ink.ID] = struct{}{}
		inks = append(inks, ink)
	}
	snapshot.Inks = inks

	penIDs := make(map[string]struct{}, len(snapshot.Pens))
	pens := make([]Pen, 0, len(snapshot.Pens))
	for _, pen := range snapshot.Pens {
		if _, dup := penIDs[pen.ID]; dup || pen.ID == "" {
			continue
		}
		penIDs[pen.ID] = struct{}{}
		if pen.InkID != nil {
			if _, ok := inkIDs[*pen.InkID]; !ok {
				pen.InkID = nil
			}
		}
		pens = append(pens, pen)
	}
	snapshot.Pens = pens
	return snapshot
}

func (s *memoryState) penIndex(id string) int {
	for i := range s.pens {
		if s.pens[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *memoryState) inkIndex(id string) int {
	for i := range s.inks {
		if s.inks[i].ID == id {
			return i
		}
	}
	return -1
}

// Store provides an in-memory transactional store for the collection.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc swaps the transaction clock, mainly for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) transactionView {
	return transactionView{state: state}
}

// ListPens returns all pens in insertion order.
func (v transactionView) ListPens() []Pen {
	out := make([]Pen, 0, len(v.state.pens))
	for _, p := range v.state.pens {
		out = append(out, clonePen(p))
	}
	return out
}

// ListInks returns all inks in insertion order.
func (v transactionView) ListInks() []Ink {
	return append(make([]Ink, 0, len(v.state.inks)), v.state.inks...)
}

// ListBrandLogos returns every logo map entry.
func (v transactionView) ListBrandLogos() []BrandLogo {
	out := make([]BrandLogo, 0, len(v.state.logos))
	for _, l := range v.state.logos {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BrandKey < out[j].BrandKey })
	return out
}

// FindPen retrieves a pen by ID from the snapshot.
func (v transactionView) FindPen(id string) (Pen, bool) {
	i := v.state.penIndex(id)
	if i < 0 {
		return Pen{}, false
	}
	return clonePen(v.state.pens[i]), true
}

// FindInk retrieves an ink by ID from the snapshot.
func (v transactionView) FindInk(id string) (Ink, bool) {
	i := v.state.inkIndex(id)
	if i < 0 {
		return Ink{}, false
	}
	return v.state.inks[i], true
}

// FindBrandLogo looks up the logo entry for a normalized brand key.
func (v transactionView) FindBrandLogo(brandKey string) (BrandLogo, bool) {
	l, ok := v.state.logos[brandKey]
	return l, ok
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindPen exposes pen lookup within the transaction scope.
func (tx *transaction) FindPen(id string) (Pen, bool) {
	return newTransactionView(&tx.state).FindPen(id)
}

// FindInk exposes ink lookup within the transaction scope.
func (tx *transaction) FindInk(id string) (Ink, bool) {
	return newTransactionView(&tx.state).FindInk(id)
}

// CreatePen appends a pen, assigning a fresh id when none is set.
func (tx *transaction) CreatePen(p Pen) (Pen, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if tx.state.penIndex(p.ID) >= 0 {
		return Pen{}, fmt.Errorf("pen %q already exists", p.ID)
	}
	p.Brand = strings.TrimSpace(p.Brand)
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.pens = append(tx.state.pens, clonePen(p))
	tx.recordChange(Change{Entity: domain.EntityPen, Action: domain.ActionCreate, After: clonePen(p)})
	return clonePen(p), nil
}

// UpdatePen mutates a pen in place. The id and creation time are preserved
// whatever the mutator does.
func (tx *transaction) UpdatePen(id string, mutator func(*Pen) error) (Pen, error) {
	i := tx.state.penIndex(id)
	if i < 0 {
		return Pen{}, domain.ErrNotFound{Entity: domain.EntityPen, ID: id}
	}
	before := clonePen(tx.state.pens[i])
	current := clonePen(before)
	if err := mutator(&current); err != nil {
		return Pen{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.Brand = strings.TrimSpace(current.Brand)
	current.UpdatedAt = tx.now
	tx.state.pens[i] = clonePen(current)
	tx.recordChange(Change{Entity: domain.EntityPen, Action: domain.ActionUpdate, Before: before, After: clonePen(current)})
	return clonePen(current), nil
}

// DeletePen removes a pen from the transaction state.
func (tx *transaction) DeletePen(id string) error {
	i := tx.state.penIndex(id)
	if i < 0 {
		return domain.ErrNotFound{Entity: domain.EntityPen, ID: id}
	}
	current := tx.state.pens[i]
	tx.state.pens = append(tx.state.pens[:i:i], tx.state.pens[i+1:]...)
	tx.recordChange(Change{Entity: domain.EntityPen, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateInk appends an ink, assigning a fresh id when none is set.
func (tx *transaction) CreateInk(ink Ink) (Ink, error) {
	if ink.ID == "" {
		ink.ID = tx.store.newID()
	}
	if tx.state.inkIndex(ink.ID) >= 0 {
		return Ink{}, fmt.Errorf("ink %q already exists", ink.ID)
	}
	ink.Brand = strings.TrimSpace(ink.Brand)
	ink.Color = color.Normalize(ink.Color)
	ink.CreatedAt = tx.now
	ink.UpdatedAt = tx.now
	tx.state.inks = append(tx.state.inks, ink)
	tx.recordChange(Change{Entity: domain.EntityInk, Action: domain.ActionCreate, After: ink})
	return ink, nil
}

// UpdateInk mutates an ink in place, preserving its id.
func (tx *transaction) UpdateInk(id string, mutator func(*Ink) error) (Ink, error) {
	i := tx.state.inkIndex(id)
	if i < 0 {
		return Ink{}, domain.ErrNotFound{Entity: domain.EntityInk, ID: id}
	}
	before := tx.state.inks[i]
	current := before
	if err := mutator(&current); err != nil {
		return Ink{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.Brand = strings.TrimSpace(current.Brand)
	current.Color = color.Normalize(current.Color)
	current.UpdatedAt = tx.now
	tx.state.inks[i] = current
	tx.recordChange(Change{Entity: domain.EntityInk, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteInk removes an ink. Pens still pointing at it are left untouched;
// clearing them is the caller's job and must happen in the same transaction.
func (tx *transaction) DeleteInk(id string) error {
	i := tx.state.inkIndex(id)
	if i < 0 {
		return domain.ErrNotFound{Entity: domain.EntityInk, ID: id}
	}
	current := tx.state.inks[i]
	tx.state.inks = append(tx.state.inks[:i:i], tx.state.inks[i+1:]...)
	tx.recordChange(Change{Entity: domain.EntityInk, Action: domain.ActionDelete, Before: current})
	return nil
}

// SetBrandLogo upserts a brand logo map entry.
func (tx *transaction) SetBrandLogo(logo BrandLogo) (BrandLogo, error) {
	if logo.BrandKey == "" {
		return BrandLogo{}, fmt.Errorf("brand logo requires a brand key")
	}
	logo.UpdatedAt = tx.now
	before, existed := tx.state.logos[logo.BrandKey]
	tx.state.logos[logo.BrandKey] = logo
	change := Change{Entity: domain.EntityBrandLogo, Action: domain.ActionCreate, After: logo}
	if existed {
		change.Action = domain.ActionUpdate
		change.Before = before
	}
	tx.recordChange(change)
	return logo, nil
}

// GetPen returns a pen by id.
func (s *Store) GetPen(id string) (Pen, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindPen(id)
}

// GetInk returns an ink by id.
func (s *Store) GetInk(id string) (Ink, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindInk(id)
}

// ListPens returns all pens in insertion order.
func (s *Store) ListPens() []Pen {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListPens()
}

// ListInks returns all inks in insertion order.
func (s *Store) ListInks() []Ink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListInks()
}

// Package core implements the pen/ink relationship controller: validated
// mutations of the collection, each applied in a single store transaction,
// plus the read views built from consistent snapshots.
package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inked/internal/blob"
	"inked/internal/infra/persistence/memory"
	"inked/internal/query"
	"inked/internal/seed"
	"inked/pkg/domain"
)

// ChangePublisher receives every committed change, in commit order.
type ChangePublisher interface {
	PublishChange(ctx context.Context, change Change) error
}

// Clock provides the transaction time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used to stamp entities when the store supports it.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the service logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetricsRecorder installs a metrics recorder.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithBlobStore sets the logo object store. The default is in-memory.
func WithBlobStore(store blob.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.blobs = store
		}
	}
}

// WithPublisher installs a change publisher.
func WithPublisher(publisher ChangePublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// Service exposes the collection operations.
type Service struct {
	store     PersistentStore
	blobs     blob.Store
	publisher ChangePublisher
	logger    zerolog.Logger
	metrics   MetricsRecorder
	tracer    Tracer
	clock     Clock

	// commitMu spans commit and publish so subscribers see changes in commit order.
	commitMu sync.Mutex
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  zerolog.Nop(),
		metrics: noopMetrics{},
		tracer:  noopTracer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.blobs == nil {
		s.blobs = blob.NewMemory()
	}
	if s.clock != nil {
		if settable, ok := store.(interface{ SetNowFunc(func() time.Time) }); ok {
			settable.SetNowFunc(func() time.Time { return s.clock.Now().UTC() })
		}
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// Blobs returns the logo object store.
func (s *Service) Blobs() blob.Store {
	return s.blobs
}

type changeSet []Change

func (c *changeSet) add(entity EntityType, action Action, before, after any) {
	*c = append(*c, Change{Entity: entity, Action: action, Before: before, After: after})
}

// run executes fn in one store transaction and reports the outcome to the
// tracer, metrics, logger and, on commit, the publisher.
func (s *Service) run(ctx context.Context, op string, fn func(tx Transaction, changes *changeSet) error) (Result, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	ctx, span := s.tracer.Start(ctx, op)
	started := time.Now()
	var changes changeSet
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		changes = changes[:0]
		return fn(tx, &changes)
	})
	s.metrics.Observe(ctx, op, err == nil, time.Since(started))
	span.End(err)

	if errors.Is(err, domain.ErrPersist) {
		// Readers already see the change, so subscribers hear about it too.
		s.logger.Error().Err(err).Str("op", op).Msg("committed change not persisted")
		s.afterCommit(ctx, changes)
		return res, err
	}
	if err != nil {
		event := s.logger.Warn()
		if !domain.IsNotFound(err) && !errors.As(err, new(RuleViolationError)) {
			event = s.logger.Error()
		}
		event.Err(err).Str("op", op).Msg("transaction failed")
		return res, err
	}
	for _, v := range res.Violations {
		s.logger.Warn().Str("op", op).Str("rule", v.Rule).Str("entity_id", v.EntityID).Msg(v.Message)
	}
	s.logger.Debug().Str("op", op).Int("changes", len(changes)).Msg("transaction committed")
	s.afterCommit(ctx, changes)
	return res, nil
}

// reject reports a draft that failed validation without touching the store.
func (s *Service) reject(ctx context.Context, op string, res Result) {
	s.metrics.Observe(ctx, op, false, 0)
	s.logger.Debug().Str("op", op).Int("violations", len(res.Violations)).Msg("draft rejected")
}

func (s *Service) afterCommit(ctx context.Context, changes changeSet) {
	if observer, ok := s.metrics.(CollectionObserver); ok {
		observer.ObserveCollection(ctx, s.Stats(ctx))
	}
	if s.publisher == nil {
		return
	}
	for _, change := range changes {
		if err := s.publisher.PublishChange(ctx, change); err != nil {
			s.logger.Warn().Err(err).Str("entity", string(change.Entity)).Msg("publish change")
		}
	}
}

// Stats counts the committed collection.
func (s *Service) Stats(ctx context.Context) CollectionStats {
	var stats CollectionStats
	_ = s.store.View(ctx, func(view TransactionView) error {
		pens := view.ListPens()
		stats.Pens = len(pens)
		stats.Inks = len(view.ListInks())
		for _, p := range pens {
			if p.InkID != nil {
				stats.InkedPens++
			}
		}
		return nil
	})
	return stats
}

// AddPen validates the draft and appends a clean pen. A logo, when given, is
// stored for the pen's brand in the same transaction.
func (s *Service) AddPen(ctx context.Context, draft PenDraft, logo *LogoUpload) (Pen, Result, error) {
	const op = "add_pen"
	if res := draft.Validate(); res.HasBlocking() {
		s.reject(ctx, op, res)
		return Pen{}, res, nil
	}
	staged, err := s.stageLogo(ctx, draft.Brand, logo)
	if err != nil {
		return Pen{}, Result{}, err
	}
	var created Pen
	res, err := s.run(ctx, op, func(tx Transaction, changes *changeSet) error {
		var pen Pen
		draft.apply(&pen)
		var err error
		if created, err = tx.CreatePen(pen); err != nil {
			return err
		}
		changes.add(EntityPen, ActionCreate, nil, created)
		return staged.commit(tx, created.Brand, changes)
	})
	s.finishLogo(ctx, staged, err)
	if err != nil {
		return Pen{}, res, err
	}
	s.logger.Info().Str("pen_id", created.ID).Str("brand", created.Brand).Msg("pen added")
	return created, res, nil
}

// UpdatePen replaces the editable fields of a pen. The loaded ink is kept.
func (s *Service) UpdatePen(ctx context.Context, id string, draft PenDraft, logo *LogoUpload) (Pen, Result, error) {
	const op = "update_pen"
	if res := draft.Validate(); res.HasBlocking() {
		s.reject(ctx, op, res)
		return Pen{}, res, nil
	}
	staged, err := s.stageLogo(ctx, draft.Brand, logo)
	if err != nil {
		return Pen{}, Result{}, err
	}
	var updated Pen
	res, err := s.run(ctx, op, func(tx Transaction, changes *changeSet) error {
		before, ok := tx.FindPen(id)
		if !ok {
			return domain.ErrNotFound{Entity: EntityPen, ID: id}
		}
		var err error
		if updated, err = tx.UpdatePen(id, func(p *Pen) error {
			draft.apply(p)
			return nil
		}); err != nil {
			return err
		}
		changes.add(EntityPen, ActionUpdate, before, updated)
		return staged.commit(tx, updated.Brand, changes)
	})
	s.finishLogo(ctx, staged, err)
	if err != nil {
		return Pen{}, res, err
	}
	return updated, res, nil
}

// AddInk validates the draft and appends an ink.
func (s *Service) AddInk(ctx context.Context, draft InkDraft, logo *LogoUpload) (Ink, Result, error) {
	const op = "add_ink"
	if res := draft.Validate(); res.HasBlocking() {
		s.reject(ctx, op, res)
		return Ink{}, res, nil
	}
	staged, err := s.stageLogo(ctx, draft.Brand, logo)
	if err != nil {
		return Ink{}, Result{}, err
	}
	var created Ink
	res, err := s.run(ctx, op, func(tx Transaction, changes *changeSet) error {
		var ink Ink
		draft.apply(&ink)
		var err error
		if created, err = tx.CreateInk(ink); err != nil {
			return err
		}
		changes.add(EntityInk, ActionCreate, nil, created)
		return staged.commit(tx, created.Brand, changes)
	})
	s.finishLogo(ctx, staged, err)
	if err != nil {
		return Ink{}, res, err
	}
	s.logger.Info().Str("ink_id", created.ID).Str("brand", created.Brand).Msg("ink added")
	return created, res, nil
}

// UpdateInk replaces the editable fields of an ink. Pens keep referencing it.
func (s *Service) UpdateInk(ctx context.Context, id string, draft InkDraft, logo *LogoUpload) (Ink, Result, error) {
	const op = "update_ink"
	if res := draft.Validate(); res.HasBlocking() {
		s.reject(ctx, op, res)
		return Ink{}, res, nil
	}
	staged, err := s.stageLogo(ctx, draft.Brand, logo)
	if err != nil {
		return Ink{}, Result{}, err
	}
	var updated Ink
	res, err := s.run(ctx, op, func(tx Transaction, changes *changeSet) error {
		before, ok := tx.FindInk(id)
		if !ok {
			return domain.ErrNotFound{Entity: EntityInk, ID: id}
		}
		var err error
		if updated, err = tx.UpdateInk(id, func(ink *Ink) error {
			draft.apply(ink)
			return nil
		}); err != nil {
			return err
		}
		changes.add(EntityInk, ActionUpdate, before, updated)
		return staged.commit(tx, updated.Brand, changes)
	})
	s.finishLogo(ctx, staged, err)
	if err != nil {
		return Ink{}, res, err
	}
	return updated, res, nil
}

// InkPen loads an ink into a pen, replacing whatever it held.
func (s *Service) InkPen(ctx context.Context, penID, inkID string) (Pen, Result, error) {
	var updated Pen
	res, err := s.run(ctx, "ink_pen", func(tx Transaction, changes *changeSet) error {
		before, ok := tx.FindPen(penID)
		if !ok {
			return domain.ErrNotFound{Entity: EntityPen, ID: penID}
		}
		if _, ok := tx.FindInk(inkID); !ok {
			return domain.ErrNotFound{Entity: EntityInk, ID: inkID}
		}
		ref := inkID
		var err error
		if updated, err = tx.UpdatePen(penID, func(p *Pen) error {
			p.InkID = &ref
			return nil
		}); err != nil {
			return err
		}
		changes.add(EntityPen, ActionUpdate, before, updated)
		return nil
	})
	if err != nil {
		return Pen{}, res, err
	}
	s.logger.Debug().Str("pen_id", penID).Str("ink_id", inkID).Msg("pen inked")
	return updated, res, nil
}

// CleanPen empties a pen. Cleaning a clean pen is a no-op.
func (s *Service) CleanPen(ctx context.Context, penID string) (Pen, Result, error) {
	var updated Pen
	res, err := s.run(ctx, "clean_pen", func(tx Transaction, changes *changeSet) error {
		before, ok := tx.FindPen(penID)
		if !ok {
			return domain.ErrNotFound{Entity: EntityPen, ID: penID}
		}
		if before.InkID == nil {
			updated = before
			return nil
		}
		var err error
		if updated, err = tx.UpdatePen(penID, func(p *Pen) error {
			p.InkID = nil
			return nil
		}); err != nil {
			return err
		}
		changes.add(EntityPen, ActionUpdate, before, updated)
		return nil
	})
	if err != nil {
		return Pen{}, res, err
	}
	return updated, res, nil
}

// DeletePen asks for confirmation and removes the pen when confirmed.
func (s *Service) DeletePen(ctx context.Context, penID string, confirmer Confirmer) (Deletion, Result, error) {
	if _, ok := s.store.GetPen(penID); !ok {
		return Deletion{}, Result{}, domain.ErrNotFound{Entity: EntityPen, ID: penID}
	}
	prompt := penPrompt(penID)
	confirmed, err := confirm(ctx, confirmer, prompt)
	if err != nil || !confirmed {
		return Deletion{Prompt: prompt}, Result{}, err
	}
	res, err := s.run(ctx, "delete_pen", func(tx Transaction, changes *changeSet) error {
		before, ok := tx.FindPen(penID)
		if !ok {
			return domain.ErrNotFound{Entity: EntityPen, ID: penID}
		}
		if err := tx.DeletePen(penID); err != nil {
			return err
		}
		changes.add(EntityPen, ActionDelete, before, nil)
		return nil
	})
	if err != nil {
		return Deletion{Prompt: prompt}, res, err
	}
	s.logger.Info().Str("pen_id", penID).Msg("pen deleted")
	return Deletion{Confirmed: true, Prompt: prompt}, res, nil
}

// DeleteInk asks for confirmation, warning when pens hold the ink, and on
// confirmation cleans those pens and removes the ink in one transaction.
func (s *Service) DeleteInk(ctx context.Context, inkID string, confirmer Confirmer) (Deletion, Result, error) {
	usage, err := s.InkUsage(ctx, inkID)
	if err != nil {
		return Deletion{}, Result{}, err
	}
	prompt := inkPrompt(inkID, usage.PenIDs)
	confirmed, err := confirm(ctx, confirmer, prompt)
	if err != nil || !confirmed {
		return Deletion{Prompt: prompt}, Result{}, err
	}

	var cleared []string
	res, err := s.run(ctx, "delete_ink", func(tx Transaction, changes *changeSet) error {
		before, ok := tx.FindInk(inkID)
		if !ok {
			return domain.ErrNotFound{Entity: EntityInk, ID: inkID}
		}
		// Pens may have been inked since the prompt was shown.
		cleared = query.PensUsingInk(tx.Snapshot().ListPens(), inkID)
		for _, penID := range cleared {
			penBefore, _ := tx.FindPen(penID)
			penAfter, err := tx.UpdatePen(penID, func(p *Pen) error {
				p.InkID = nil
				return nil
			})
			if err != nil {
				return err
			}
			changes.add(EntityPen, ActionUpdate, penBefore, penAfter)
		}
		if err := tx.DeleteInk(inkID); err != nil {
			return err
		}
		changes.add(EntityInk, ActionDelete, before, nil)
		return nil
	})
	if err != nil {
		return Deletion{Prompt: prompt}, res, err
	}
	s.logger.Info().Str("ink_id", inkID).Strs("cleared_pen_ids", cleared).Msg("ink deleted")
	return Deletion{Confirmed: true, Prompt: prompt, ClearedPenIDs: cleared}, res, nil
}

func confirm(ctx context.Context, confirmer Confirmer, prompt Prompt) (bool, error) {
	if confirmer == nil {
		return false, nil
	}
	ok, err := confirmer.Confirm(ctx, prompt)
	if err != nil {
		return false, fmt.Errorf("confirm %s: %w", prompt.Kind, err)
	}
	return ok, nil
}

// InkUsage reports which pens currently hold the ink.
func (s *Service) InkUsage(ctx context.Context, inkID string) (Usage, error) {
	usage := Usage{InkID: inkID, PenIDs: []string{}}
	err := s.store.View(ctx, func(view TransactionView) error {
		if _, ok := view.FindInk(inkID); !ok {
			return domain.ErrNotFound{Entity: EntityInk, ID: inkID}
		}
		if ids := query.PensUsingInk(view.ListPens(), inkID); ids != nil {
			usage.PenIDs = ids
		}
		return nil
	})
	if err != nil {
		return Usage{}, err
	}
	usage.InUse = len(usage.PenIDs) > 0
	return usage, nil
}

// Collection returns a consistent snapshot of pens, inks and logos.
func (s *Service) Collection(ctx context.Context) (query.Collection, error) {
	var c query.Collection
	err := s.store.View(ctx, func(view TransactionView) error {
		c.Pens = view.ListPens()
		c.Inks = view.ListInks()
		logos := view.ListBrandLogos()
		c.Logos = make(map[string]BrandLogo, len(logos))
		for _, l := range logos {
			c.Logos[l.BrandKey] = l
		}
		return nil
	})
	return c, err
}

// Pens returns the filtered, sorted pen views.
func (s *Service) Pens(ctx context.Context, q query.PenQuery) ([]query.PenView, error) {
	c, err := s.Collection(ctx)
	if err != nil {
		return nil, err
	}
	return query.PenViews(c, q), nil
}

// Inks returns the filtered ink views.
func (s *Service) Inks(ctx context.Context, q query.InkQuery) ([]query.InkView, error) {
	c, err := s.Collection(ctx)
	if err != nil {
		return nil, err
	}
	return query.InkViews(c, q), nil
}

// ListPens returns every pen in insertion order.
func (s *Service) ListPens() []Pen {
	return s.store.ListPens()
}

// ListInks returns every ink in insertion order.
func (s *Service) ListInks() []Ink {
	return s.store.ListInks()
}

// BrandLogo resolves a brand's logo entry and image. ok is false when the
// brand has none.
func (s *Service) BrandLogo(ctx context.Context, brand string) (LogoImage, bool, error) {
	logo, ok, err := s.findLogo(ctx, brand)
	if err != nil || !ok {
		return LogoImage{}, false, err
	}
	_, rc, err := s.blobs.Get(ctx, logo.ObjectKey)
	if err != nil {
		return LogoImage{}, false, fmt.Errorf("get logo %s: %w", logo.ObjectKey, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return LogoImage{}, false, fmt.Errorf("read logo %s: %w", logo.ObjectKey, err)
	}
	return LogoImage{Logo: logo, Data: data}, true, nil
}

// LogoURL presigns a download URL for a brand's logo. Drivers without
// presigning return blob.ErrUnsupported.
func (s *Service) LogoURL(ctx context.Context, brand string, expiry time.Duration) (string, error) {
	logo, ok, err := s.findLogo(ctx, brand)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoLogo
	}
	return s.blobs.PresignURL(ctx, logo.ObjectKey, blob.SignedURLOptions{Method: "GET", Expiry: expiry})
}

func (s *Service) findLogo(ctx context.Context, brand string) (BrandLogo, bool, error) {
	var (
		logo BrandLogo
		ok   bool
	)
	err := s.store.View(ctx, func(view TransactionView) error {
		logo, ok = view.FindBrandLogo(domain.NormalizeBrand(brand))
		return nil
	})
	return logo, ok, err
}

// Import inserts a fixture collection in one transaction, inks first so pen
// references resolve. Fixture ids are kept.
func (s *Service) Import(ctx context.Context, c seed.Collection) (Result, error) {
	const op = "import"
	var invalid Result
	for _, ink := range c.Inks {
		invalid.Merge(InkDraftFrom(ink).Validate())
	}
	for _, pen := range c.Pens {
		invalid.Merge(PenDraftFrom(pen).Validate())
	}
	if invalid.HasBlocking() {
		s.reject(ctx, op, invalid)
		return invalid, nil
	}
	return s.run(ctx, op, func(tx Transaction, changes *changeSet) error {
		for _, fixture := range c.Inks {
			ink := Ink{Base: Base{ID: fixture.ID}}
			InkDraftFrom(fixture).apply(&ink)
			created, err := tx.CreateInk(ink)
			if err != nil {
				return err
			}
			changes.add(EntityInk, ActionCreate, nil, created)
		}
		for _, fixture := range c.Pens {
			pen := Pen{Base: Base{ID: fixture.ID}}
			PenDraftFrom(fixture).apply(&pen)
			if fixture.InkID != nil {
				ref := *fixture.InkID
				pen.InkID = &ref
			}
			created, err := tx.CreatePen(pen)
			if err != nil {
				return err
			}
			changes.add(EntityPen, ActionCreate, nil, created)
		}
		return nil
	})
}

// stagedLogo is an uploaded object waiting for its map entry to commit.
type stagedLogo struct {
	upload    *LogoUpload
	objectKey string
	size      int64
	replaced  string
}

// stageLogo writes the image to the blob store ahead of the transaction.
func (s *Service) stageLogo(ctx context.Context, brand string, upload *LogoUpload) (*stagedLogo, error) {
	if upload == nil {
		return nil, nil
	}
	if err := upload.Validate(); err != nil {
		return nil, err
	}
	key := logoObjectKey(domain.NormalizeBrand(brand))
	info, err := s.blobs.Put(ctx, key, bytes.NewReader(upload.Data), blob.PutOptions{
		ContentType: upload.ContentType,
		Metadata:    map[string]string{"brand": domain.NormalizeBrand(brand)},
	})
	if err != nil {
		return nil, fmt.Errorf("put logo: %w", err)
	}
	return &stagedLogo{upload: upload, objectKey: key, size: info.Size}, nil
}

// commit upserts the brand logo entry for the brand of the entity just
// written.
func (l *stagedLogo) commit(tx Transaction, brand string, changes *changeSet) error {
	if l == nil {
		return nil
	}
	key := domain.NormalizeBrand(brand)
	before, existed := tx.Snapshot().FindBrandLogo(key)
	l.replaced = ""
	if existed {
		l.replaced = before.ObjectKey
	}
	logo, err := tx.SetBrandLogo(BrandLogo{
		BrandKey:    key,
		ObjectKey:   l.objectKey,
		ContentType: l.upload.ContentType,
		Size:        l.size,
	})
	if err != nil {
		return err
	}
	if existed {
		changes.add(EntityBrandLogo, ActionUpdate, before, logo)
	} else {
		changes.add(EntityBrandLogo, ActionCreate, nil, logo)
	}
	return nil
}

// finishLogo removes whichever object lost: the replaced one after a
// commit, or the staged one after a rejected transaction. When only the
// durable snapshot failed, memory references the staged object and storage
// still references the replaced one, so both are kept.
func (s *Service) finishLogo(ctx context.Context, l *stagedLogo, txErr error) {
	if l == nil || errors.Is(txErr, domain.ErrPersist) {
		return
	}
	stale := l.replaced
	if txErr != nil {
		stale = l.objectKey
	}
	if stale == "" || (txErr == nil && stale == l.objectKey) {
		return
	}
	if _, err := s.blobs.Delete(ctx, stale); err != nil {
		s.logger.Warn().Err(err).Str("object_key", stale).Msg("delete stale logo")
	}
}

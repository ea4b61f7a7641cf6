package domain

import "context"

// Transaction exposes the collection operations that a persistence
// implementation must support within an atomic scope. Implementations trust
// their caller: drafts are validated before they reach a transaction.
type Transaction interface {
	Snapshot() TransactionView
	CreatePen(Pen) (Pen, error)
	UpdatePen(id string, mutator func(*Pen) error) (Pen, error)
	DeletePen(id string) error
	CreateInk(Ink) (Ink, error)
	UpdateInk(id string, mutator func(*Ink) error) (Ink, error)
	DeleteInk(id string) error
	SetBrandLogo(BrandLogo) (BrandLogo, error)
	FindPen(id string) (Pen, bool)
	FindInk(id string) (Ink, bool)
}

// TransactionView provides read-only access to snapshot data.
type TransactionView interface {
	ListPens() []Pen
	ListInks() []Ink
	ListBrandLogos() []BrandLogo
	FindPen(id string) (Pen, bool)
	FindInk(id string) (Ink, bool)
	FindBrandLogo(brandKey string) (BrandLogo, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetPen(id string) (Pen, bool)
	GetInk(id string) (Ink, bool)
	ListPens() []Pen
	ListInks() []Ink
}

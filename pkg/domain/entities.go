// Package domain defines the persistent collection entities, value types and
// rule evaluation primitives used by inked.
package domain

import (
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the collection.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityPen identifies a fountain pen record.
	EntityPen EntityType = "pen"
	// EntityInk identifies a bottled ink record.
	EntityInk EntityType = "ink"
	// EntityBrandLogo identifies a brand logo map entry.
	EntityBrandLogo EntityType = "brand_logo"
)

// PenStatus is the ink-loading state of a pen.
type PenStatus string

// A pen is either clean or inked with exactly one ink.
const (
	PenClean PenStatus = "clean"
	PenInked PenStatus = "inked"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base holds common fields for all collection entities.
type Base struct {
	ID        string    `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
}

// Nib describes the writing tip of a pen.
type Nib struct {
	Size        string `json:"size" yaml:"size"`
	Material    string `json:"material" yaml:"material"`
	Features    string `json:"features" yaml:"features"`
	WritingFeel string `json:"writingFeel" yaml:"writingFeel"`
}

// Pen is a fountain pen in the collection. InkID is a weak reference to the
// ink currently loaded; nil means the pen is clean.
type Pen struct {
	Base  `yaml:",inline"`
	Brand string  `json:"brand" yaml:"brand"`
	Model string  `json:"model" yaml:"model"`
	Nib   Nib     `json:"nib" yaml:"nib"`
	InkID *string `json:"inkId" yaml:"inkId"`
}

// Status reports whether the pen is clean or inked.
func (p Pen) Status() PenStatus {
	if p.InkID == nil {
		return PenClean
	}
	return PenInked
}

// HasInk reports whether the pen is loaded with the given ink.
func (p Pen) HasInk(inkID string) bool {
	return p.InkID != nil && *p.InkID == inkID
}

// Ink is a bottled ink. Color is stored as #rrggbb when it parses.
type Ink struct {
	Base  `yaml:",inline"`
	Brand string `json:"brand" yaml:"brand"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"`
}

// BrandLogo is an entry of the brand logo map. The image bytes live in object
// storage under ObjectKey.
type BrandLogo struct {
	BrandKey    string    `json:"brandKey"`
	ObjectKey   string    `json:"objectKey"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NormalizeBrand derives the brand key shared by pens and inks of the same
// brand. It is the only place brand keys are computed.
func NormalizeBrand(brand string) string {
	return strings.ToLower(strings.TrimSpace(brand))
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entityId,omitempty"`
	Field    string     `json:"field,omitempty"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation `json:"violations"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}

package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"inked/pkg/domain"
)

// DefaultInkColor is used when an ink is added without a color.
const DefaultInkColor = "#000000"

var draftValidate = newDraftValidator()

func newDraftValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("register notblank validation: %v", err))
	}
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// PenDraft carries the user-editable pen fields.
type PenDraft struct {
	Brand string   `json:"brand" validate:"notblank"`
	Model string   `json:"model" validate:"notblank"`
	Nib   NibDraft `json:"nib"`
}

// NibDraft carries the user-editable nib fields.
type NibDraft struct {
	Size        string `json:"size" validate:"notblank"`
	Material    string `json:"material" validate:"notblank"`
	Features    string `json:"features"`
	WritingFeel string `json:"writingFeel"`
}

// InkDraft carries the user-editable ink fields. An empty Color becomes
// DefaultInkColor.
type InkDraft struct {
	Brand string `json:"brand" validate:"notblank"`
	Name  string `json:"name" validate:"notblank"`
	Color string `json:"color"`
}

// PenDraftFrom extracts the editable fields of an existing pen.
func PenDraftFrom(p domain.Pen) PenDraft {
	return PenDraft{
		Brand: p.Brand,
		Model: p.Model,
		Nib: NibDraft{
			Size:        p.Nib.Size,
			Material:    p.Nib.Material,
			Features:    p.Nib.Features,
			WritingFeel: p.Nib.WritingFeel,
		},
	}
}

// InkDraftFrom extracts the editable fields of an existing ink.
func InkDraftFrom(ink domain.Ink) InkDraft {
	return InkDraft{Brand: ink.Brand, Name: ink.Name, Color: ink.Color}
}

// Validate reports missing required fields as blocking violations.
func (d PenDraft) Validate() Result {
	return validateDraft(domain.EntityPen, d)
}

// Validate reports missing required fields as blocking violations.
func (d InkDraft) Validate() Result {
	return validateDraft(domain.EntityInk, d)
}

func (d PenDraft) apply(p *domain.Pen) {
	p.Brand = strings.TrimSpace(d.Brand)
	p.Model = d.Model
	p.Nib = domain.Nib{
		Size:        d.Nib.Size,
		Material:    d.Nib.Material,
		Features:    d.Nib.Features,
		WritingFeel: d.Nib.WritingFeel,
	}
}

func (d InkDraft) apply(ink *domain.Ink) {
	ink.Brand = strings.TrimSpace(d.Brand)
	ink.Name = d.Name
	ink.Color = d.Color
	if strings.TrimSpace(ink.Color) == "" {
		ink.Color = DefaultInkColor
	}
}

func validateDraft(entity domain.EntityType, draft any) Result {
	err := draftValidate.Struct(draft)
	if err == nil {
		return Result{}
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Result{Violations: []Violation{{
			Rule:     RuleRequiredFields,
			Severity: domain.SeverityBlock,
			Message:  err.Error(),
			Entity:   entity,
		}}}
	}
	res := Result{}
	for _, fe := range fieldErrs {
		field := fieldPath(fe.Namespace())
		res.Violations = append(res.Violations, Violation{
			Rule:     RuleRequiredFields,
			Severity: domain.SeverityBlock,
			Message:  field + " is required",
			Entity:   entity,
			Field:    field,
		})
	}
	return res
}

// fieldPath drops the struct name from a validator namespace such as
// "PenDraft.nib.size".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

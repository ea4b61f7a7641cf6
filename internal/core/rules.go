package core

import (
	"context"
	"fmt"
	"sort"

	"inked/pkg/domain"
)

// Rule names reported in violations.
const (
	RuleInkReference     = "ink_reference"
	RuleUniqueLogoObject = "unique_brand_logo_object"
	RuleRequiredFields   = "required_fields"
)

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(InkReferenceRule())
	engine.Register(UniqueLogoObjectRule())
	return engine
}

// InkReferenceRule blocks any commit that leaves a pen pointing at an ink
// that is not in the collection.
func InkReferenceRule() domain.Rule {
	return inkReferenceRule{}
}

type inkReferenceRule struct{}

func (inkReferenceRule) Name() string { return RuleInkReference }

func (inkReferenceRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, pen := range view.ListPens() {
		if pen.InkID == nil {
			continue
		}
		if _, ok := view.FindInk(*pen.InkID); ok {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     RuleInkReference,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("pen %s references missing ink %s", pen.ID, *pen.InkID),
			Entity:   domain.EntityPen,
			EntityID: pen.ID,
			Field:    "inkId",
		})
	}
	return res, nil
}

// UniqueLogoObjectRule warns when two brand keys share one stored object.
func UniqueLogoObjectRule() domain.Rule {
	return uniqueLogoObjectRule{}
}

type uniqueLogoObjectRule struct{}

func (uniqueLogoObjectRule) Name() string { return RuleUniqueLogoObject }

func (uniqueLogoObjectRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	touched := false
	for _, change := range changes {
		if change.Entity == domain.EntityBrandLogo {
			touched = true
			break
		}
	}
	if !touched {
		return res, nil
	}

	owners := make(map[string][]string)
	for _, logo := range view.ListBrandLogos() {
		if logo.ObjectKey == "" {
			continue
		}
		owners[logo.ObjectKey] = append(owners[logo.ObjectKey], logo.BrandKey)
	}
	objectKeys := make([]string, 0, len(owners))
	for key := range owners {
		objectKeys = append(objectKeys, key)
	}
	sort.Strings(objectKeys)
	for _, key := range objectKeys {
		brands := owners[key]
		if len(brands) < 2 {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     RuleUniqueLogoObject,
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("object %s is shared by brands %v", key, brands),
			Entity:   domain.EntityBrandLogo,
			EntityID: brands[0],
			Field:    "objectKey",
		})
	}
	return res, nil
}

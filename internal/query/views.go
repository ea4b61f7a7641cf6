package query

import "inked/pkg/domain"

// Collection is a consistent snapshot of everything the views are built from.
type Collection struct {
	Pens  []domain.Pen
	Inks  []domain.Ink
	Logos map[string]domain.BrandLogo
}

// PenView is a pen with its loaded ink and brand logo resolved.
type PenView struct {
	domain.Pen
	Status domain.PenStatus  `json:"status"`
	Ink    *domain.Ink       `json:"ink,omitempty"`
	Logo   *domain.BrandLogo `json:"logo,omitempty"`
}

// InkView is an ink with its brand logo and the pens currently using it.
type InkView struct {
	domain.Ink
	Logo   *domain.BrandLogo `json:"logo,omitempty"`
	PenIDs []string          `json:"penIds"`
	InUse  bool              `json:"inUse"`
}

// LogoFor resolves the logo entry for a brand through the canonical brand key.
func (c Collection) LogoFor(brand string) *domain.BrandLogo {
	logo, ok := c.Logos[domain.NormalizeBrand(brand)]
	if !ok {
		return nil
	}
	return &logo
}

func (c Collection) inkByID() map[string]domain.Ink {
	out := make(map[string]domain.Ink, len(c.Inks))
	for _, ink := range c.Inks {
		out[ink.ID] = ink
	}
	return out
}

// PenViews filters and sorts the pens, then resolves each pen's ink and logo.
func PenViews(c Collection, q PenQuery) []PenView {
	inks := c.inkByID()
	pens := FilterPens(c.Pens, q)
	out := make([]PenView, 0, len(pens))
	for _, p := range pens {
		view := PenView{Pen: p, Status: p.Status(), Logo: c.LogoFor(p.Brand)}
		if p.InkID != nil {
			if ink, ok := inks[*p.InkID]; ok {
				view.Ink = &ink
			}
		}
		out = append(out, view)
	}
	return out
}

// InkViews filters the inks and resolves each ink's logo and users.
func InkViews(c Collection, q InkQuery) []InkView {
	inks := FilterInks(c.Inks, q)
	out := make([]InkView, 0, len(inks))
	for _, ink := range inks {
		ids := PensUsingInk(c.Pens, ink.ID)
		if ids == nil {
			ids = []string{}
		}
		out = append(out, InkView{Ink: ink, Logo: c.LogoFor(ink.Brand), PenIDs: ids, InUse: len(ids) > 0})
	}
	return out
}

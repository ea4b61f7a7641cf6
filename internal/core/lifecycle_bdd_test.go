package core

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"inked/pkg/domain"
)

type lifecycleContext struct {
	svc      *Service
	pens     map[string]string
	inks     map[string]string
	prompt   Prompt
	rejected Result
}

func (c *lifecycleContext) reset() {
	c.svc = NewInMemoryService(NewDefaultRulesEngine())
	c.pens = map[string]string{}
	c.inks = map[string]string{}
	c.prompt = Prompt{}
	c.rejected = Result{}
}

func (c *lifecycleContext) addPen(name string) error {
	brand, model, _ := strings.Cut(name, " ")
	pen, res, err := c.svc.AddPen(context.Background(), PenDraft{Brand: brand, Model: model, Nib: NibDraft{Size: "Fine", Material: "Steel"}}, nil)
	if err != nil {
		return err
	}
	if res.HasBlocking() {
		return fmt.Errorf("pen %q rejected: %+v", name, res.Violations)
	}
	c.pens[name] = pen.ID
	return nil
}

func (c *lifecycleContext) aCollectionWithPenAndInk(pen, ink, color string) error {
	if err := c.addPen(pen); err != nil {
		return err
	}
	brand, name, _ := strings.Cut(ink, " ")
	created, _, err := c.svc.AddInk(context.Background(), InkDraft{Brand: brand, Name: name, Color: color}, nil)
	if err != nil {
		return err
	}
	c.inks[ink] = created.ID
	return nil
}

func (c *lifecycleContext) iInk(pen, ink string) error {
	_, _, err := c.svc.InkPen(context.Background(), c.pens[pen], c.inks[ink])
	return err
}

func (c *lifecycleContext) iClean(pen string) error {
	_, _, err := c.svc.CleanPen(context.Background(), c.pens[pen])
	return err
}

func (c *lifecycleContext) deleteInk(ink string, answer bool) error {
	_, _, err := c.svc.DeleteInk(context.Background(), c.inks[ink], ConfirmFunc(func(_ context.Context, p Prompt) (bool, error) {
		c.prompt = p
		return answer, nil
	}))
	return err
}

func (c *lifecycleContext) iDeleteInkAndConfirm(ink string) error { return c.deleteInk(ink, true) }

func (c *lifecycleContext) iDeleteInkAndDecline(ink string) error { return c.deleteInk(ink, false) }

func (c *lifecycleContext) iAddAPenWithoutModel(brand string) error {
	_, res, err := c.svc.AddPen(context.Background(), PenDraft{Brand: brand, Nib: NibDraft{Size: "Broad", Material: "Steel"}}, nil)
	c.rejected = res
	return err
}

func (c *lifecycleContext) penIsInkedWith(pen, ink string) error {
	stored, ok := c.svc.Store().GetPen(c.pens[pen])
	if !ok {
		return domain.ErrNotFound{Entity: EntityPen, ID: c.pens[pen]}
	}
	if !stored.HasInk(c.inks[ink]) {
		return fmt.Errorf("expected %s inked with %s, got %v", pen, ink, stored.InkID)
	}
	return nil
}

func (c *lifecycleContext) penIsClean(pen string) error {
	stored, ok := c.svc.Store().GetPen(c.pens[pen])
	if !ok {
		return domain.ErrNotFound{Entity: EntityPen, ID: c.pens[pen]}
	}
	if stored.Status() != domain.PenClean {
		return fmt.Errorf("expected %s clean, holds %s", pen, *stored.InkID)
	}
	return nil
}

func (c *lifecycleContext) inkIsInUseBy(ink string, count int) error {
	usage, err := c.svc.InkUsage(context.Background(), c.inks[ink])
	if err != nil {
		return err
	}
	if len(usage.PenIDs) != count {
		return fmt.Errorf("expected %d pens using %s, got %v", count, ink, usage.PenIDs)
	}
	return nil
}

func (c *lifecycleContext) iWasWarnedInkInUse() error {
	if !c.prompt.InUse || c.prompt.Message != messageDeleteInkInUse {
		return fmt.Errorf("expected in-use warning, got %+v", c.prompt)
	}
	return nil
}

func (c *lifecycleContext) collectionHasInks(count int) error {
	if got := len(c.svc.ListInks()); got != count {
		return fmt.Errorf("expected %d inks, got %d", count, got)
	}
	return nil
}

func (c *lifecycleContext) collectionHasPens(count int) error {
	if got := len(c.svc.ListPens()); got != count {
		return fmt.Errorf("expected %d pens, got %d", count, got)
	}
	return nil
}

func (c *lifecycleContext) penRejectedFor(field string) error {
	for _, v := range c.rejected.Violations {
		if v.Field == field && v.Severity == domain.SeverityBlock {
			return nil
		}
	}
	return fmt.Errorf("expected violation on %s, got %+v", field, c.rejected.Violations)
}

// InitializeLifecycleScenario wires the pen ink lifecycle steps.
func InitializeLifecycleScenario(ctx *godog.ScenarioContext) {
	lc := &lifecycleContext{}

	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		lc.reset()
		return ctx, nil
	})

	ctx.Step(`^a collection with pen "([^"]*)" and ink "([^"]*)" coloured "([^"]*)"$`, lc.aCollectionWithPenAndInk)
	ctx.Step(`^a pen "([^"]*)"$`, lc.addPen)
	ctx.Step(`^I ink "([^"]*)" with "([^"]*)"$`, lc.iInk)
	ctx.Step(`^I clean "([^"]*)"$`, lc.iClean)
	ctx.Step(`^I delete ink "([^"]*)" and confirm$`, lc.iDeleteInkAndConfirm)
	ctx.Step(`^I delete ink "([^"]*)" and decline$`, lc.iDeleteInkAndDecline)
	ctx.Step(`^I add a pen with brand "([^"]*)" and no model$`, lc.iAddAPenWithoutModel)
	ctx.Step(`^"([^"]*)" has been inked with "([^"]*)"$`, lc.iInk)
	ctx.Step(`^"([^"]*)" is inked with "([^"]*)"$`, lc.penIsInkedWith)
	ctx.Step(`^"([^"]*)" is clean$`, lc.penIsClean)
	ctx.Step(`^"([^"]*)" is in use by (\d+) pens?$`, lc.inkIsInUseBy)
	ctx.Step(`^I was warned that the ink is in use$`, lc.iWasWarnedInkInUse)
	ctx.Step(`^the collection has (\d+) inks?$`, lc.collectionHasInks)
	ctx.Step(`^the collection has (\d+) pens?$`, lc.collectionHasPens)
	ctx.Step(`^the pen is rejected for "([^"]*)"$`, lc.penRejectedFor)
}

func TestPenInkLifecycle(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeLifecycleScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/pen_ink_lifecycle.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"inked/internal/infra/persistence/postgres/testutil"
	"inked/pkg/domain"
)

func openStub(t *testing.T) (*testutil.StubConn, func()) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	return conn, restore
}

func TestNewStoreCreatesTableAndLoadsSnapshot(t *testing.T) {
	conn, restore := openStub(t)
	defer restore()
	conn.Buckets["pens"] = []byte(`[{"id":"1","brand":"Lamy","model":"Safari","nib":{"size":"Fine"},"inkId":"101"}]`)
	conn.Buckets["inks"] = []byte(`[{"id":"101","brand":"Diamine","name":"Oxford Blue","color":"#002147"}]`)
	conn.Buckets["brand_logos"] = []byte(`{"lamy":{"brandKey":"lamy","objectKey":"brand-logos/bGFteQ"}}`)

	store, err := NewStore(context.Background(), "", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	pens := store.ListPens()
	if len(pens) != 1 || !pens[0].HasInk("101") {
		t.Fatalf("expected pen loaded with ink, got %+v", pens)
	}
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS STATE") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got execs: %v", conn.Execs)
	}
	err = store.View(context.Background(), func(v domain.TransactionView) error {
		if _, ok := v.FindBrandLogo("lamy"); !ok {
			t.Fatalf("expected logo entry")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestNewStoreDropsDanglingInkReferences(t *testing.T) {
	conn, restore := openStub(t)
	defer restore()
	conn.Buckets["pens"] = []byte(`[{"id":"1","brand":"Lamy","model":"Safari","inkId":"gone"}]`)

	store, err := NewStore(context.Background(), "ignored", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if pen, _ := store.GetPen("1"); pen.InkID != nil {
		t.Fatalf("expected dangling ink reference cleared")
	}
}

func TestRunInTransactionPersistsBuckets(t *testing.T) {
	conn, restore := openStub(t)
	defer restore()

	store, err := NewStore(context.Background(), "ignored", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateInk(domain.Ink{Brand: "Iroshizuku", Name: "Kon-peki", Color: "#009bce"})
		return err
	})
	if err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}
	for _, bucket := range postgresBuckets {
		if _, ok := conn.Buckets[bucket]; !ok {
			t.Fatalf("expected bucket %s written", bucket)
		}
	}
	var inks []domain.Ink
	if err := json.Unmarshal(conn.Buckets["inks"], &inks); err != nil {
		t.Fatalf("decode inks: %v", err)
	}
	if len(inks) != 1 || inks[0].Name != "Kon-peki" {
		t.Fatalf("unexpected persisted inks: %+v", inks)
	}
	if conn.Commits != 1 {
		t.Fatalf("expected one commit, got %d", conn.Commits)
	}
}

func TestRunInTransactionSurfacesPersistFailures(t *testing.T) {
	conn, restore := openStub(t)
	defer restore()
	store, err := NewStore(context.Background(), "ignored", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	create := func(tx domain.Transaction) error {
		_, err := tx.CreatePen(domain.Pen{Brand: "TWSBI", Model: "Eco"})
		return err
	}

	conn.FailBegin = true
	if _, err := store.RunInTransaction(context.Background(), create); err == nil || !strings.Contains(err.Error(), "begin tx") {
		t.Fatalf("expected begin failure, got %v", err)
	}
	conn.FailBegin = false
	conn.FailCommit = true
	if _, err := store.RunInTransaction(context.Background(), create); err == nil || !strings.Contains(err.Error(), "commit") {
		t.Fatalf("expected commit failure, got %v", err)
	}
}

func TestRunInTransactionSkipsPersistOnRuleViolation(t *testing.T) {
	conn, restore := openStub(t)
	defer restore()
	engine := domain.NewRulesEngine()
	engine.Register(blockAll{})
	store, err := NewStore(context.Background(), "ignored", engine)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreatePen(domain.Pen{Brand: "Pilot", Model: "Custom 823"})
		return e
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if conn.Commits != 0 {
		t.Fatalf("blocked transaction must not be persisted")
	}
}

func TestNewStoreErrors(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("boom") })
		defer restore()
		if _, err := NewStore(context.Background(), "", nil); err == nil || !strings.Contains(err.Error(), "open postgres") {
			t.Fatalf("expected open error, got %v", err)
		}
	})
	t.Run("ping", func(t *testing.T) {
		conn, restore := openStub(t)
		defer restore()
		conn.FailPing = true
		if _, err := NewStore(context.Background(), "", nil); err == nil || !strings.Contains(err.Error(), "ping postgres") {
			t.Fatalf("expected ping error, got %v", err)
		}
	})
	t.Run("ddl", func(t *testing.T) {
		conn, restore := openStub(t)
		defer restore()
		conn.FailExec = true
		if _, err := NewStore(context.Background(), "", nil); err == nil || !strings.Contains(err.Error(), "ensure state table") {
			t.Fatalf("expected ddl error, got %v", err)
		}
	})
	t.Run("decode", func(t *testing.T) {
		conn, restore := openStub(t)
		defer restore()
		conn.Buckets["inks"] = []byte(`{oops`)
		if _, err := NewStore(context.Background(), "", nil); err == nil || !strings.Contains(err.Error(), "decode inks") {
			t.Fatalf("expected decode error, got %v", err)
		}
	})
	t.Run("query", func(t *testing.T) {
		conn, restore := openStub(t)
		defer restore()
		conn.FailQuery = true
		if _, err := NewStore(context.Background(), "", nil); err == nil || !strings.Contains(err.Error(), "select state") {
			t.Fatalf("expected query error, got %v", err)
		}
	})
}

type blockAll struct{}

func (blockAll) Name() string { return "block_all" }

func (blockAll) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "block_all", Severity: domain.SeverityBlock}}}, nil
}

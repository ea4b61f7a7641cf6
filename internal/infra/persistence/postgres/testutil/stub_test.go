package testutil

import (
	"context"
	"database/sql/driver"
	"testing"
)

func TestStubDBStoresAndQueriesBuckets(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	upsert := "INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload"
	for _, payload := range []string{`[1]`, `[2]`} {
		if _, err := conn.ExecContext(ctx, upsert, []driver.NamedValue{{Value: "pens"}, {Value: []byte(payload)}}); err != nil {
			t.Fatalf("ExecContext: %v", err)
		}
	}
	if string(conn.Buckets["pens"]) != `[2]` {
		t.Fatalf("expected upsert to replace payload, got %s", conn.Buckets["pens"])
	}

	rows, err := conn.QueryContext(ctx, "SELECT bucket, payload FROM state", nil)
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer func() { _ = rows.Close() }()
	dest := make([]driver.Value, 2)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if dest[0] != "pens" || string(dest[1].([]byte)) != `[2]` {
		t.Fatalf("unexpected row values: %v", dest)
	}
}

func TestStubDBRejectsMalformedUpsert(t *testing.T) {
	_, conn := NewStubDB()
	if _, err := conn.ExecContext(context.Background(), "INSERT INTO state(bucket,payload) VALUES($1,$2)", []driver.NamedValue{{Value: "pens"}}); err == nil {
		t.Fatalf("expected arg count error")
	}
}

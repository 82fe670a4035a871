package telemetry

import (
	"testing"
	"time"
)

func TestDeduplicatorWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	d := NewDeduplicator(10*time.Second, "test")
	d.now = func() time.Time { return now }

	sig := Signature("finalize_sale", "/rpc/finalize_sale", "XX000", 500, "boom")

	if !d.ShouldReport(sig) {
		t.Fatal("first occurrence should report")
	}
	if d.ShouldReport(sig) {
		t.Fatal("second occurrence inside window should be suppressed")
	}

	now = now.Add(9 * time.Second)
	if d.ShouldReport(sig) {
		t.Fatal("occurrence at 9s should still be suppressed")
	}

	now = now.Add(2 * time.Second)
	if !d.ShouldReport(sig) {
		t.Fatal("occurrence after the window should report exactly once more")
	}
	if d.ShouldReport(sig) {
		t.Fatal("window should have restarted after the last report")
	}
}

func TestDeduplicatorDistinctSignatures(t *testing.T) {
	d := NewDeduplicator(10*time.Second, "test")

	a := Signature("finalize_sale", "/rpc/finalize_sale", "XX000", 500, "boom")
	b := Signature("finalize_sale", "/rpc/finalize_sale", "XX000", 503, "boom")

	if !d.ShouldReport(a) || !d.ShouldReport(b) {
		t.Fatal("distinct signatures must not suppress each other")
	}
}

func TestDeduplicatorIndependentInstances(t *testing.T) {
	denied := NewDeduplicator(10*time.Second, "access_denied")
	app := NewDeduplicator(10*time.Second, "app_error")

	sig := Signature("list_sales", "/rpc/list_sales", "42501", 403, "denied")

	if !denied.ShouldReport(sig) {
		t.Fatal("denied channel should report")
	}
	// Same signature on the other channel is a different key space.
	if !app.ShouldReport(sig) {
		t.Fatal("channels must not share suppression state")
	}
}

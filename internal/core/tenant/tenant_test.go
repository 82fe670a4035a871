package tenant

import "testing"

func TestContextLifecycle(t *testing.T) {
	c := NewContext()

	if id, ok := c.Get(); ok || id != "" {
		t.Fatalf("new context should be empty, got %q ok=%v", id, ok)
	}

	c.Set("org-42")
	if id, ok := c.Get(); !ok || id != "org-42" {
		t.Fatalf("Get() = %q, %v; want org-42, true", id, ok)
	}

	// Switching tenants overwrites, never merges.
	c.Set("org-7")
	if id, _ := c.Get(); id != "org-7" {
		t.Fatalf("Get() after switch = %q, want org-7", id)
	}

	c.Clear()
	if _, ok := c.Get(); ok {
		t.Fatal("Get() after Clear should report no tenant")
	}
}

package mysql

import "testing"

func TestReadOnlyGuard(t *testing.T) {
	g := New().ReadOnlyGuard()
	if !g.TxOptions.ReadOnly {
		t.Error("mysql transactions should be opened read-only")
	}
	if len(g.Session) != 1 || g.Session[0] != "SET SESSION TRANSACTION READ ONLY" {
		t.Errorf("Session = %v", g.Session)
	}
	if len(g.Reset) != 1 || g.Reset[0] != "SET SESSION TRANSACTION READ WRITE" {
		t.Errorf("Reset = %v", g.Reset)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	c := New()
	if got := c.QuoteIdentifier("stock"); got != "`stock`" {
		t.Errorf("got %s", got)
	}
	if got := c.QuoteIdentifier("we`ird"); got != "`we``ird`" {
		t.Errorf("got %s", got)
	}
}

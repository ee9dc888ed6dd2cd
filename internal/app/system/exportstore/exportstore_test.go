package exportstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLocalPut(t *testing.T) {
	dir := t.TempDir()
	st := NewLocal(dir)

	obj, err := st.Put(context.Background(), "reports/org/a.csv", strings.NewReader("a,b\n1,2\n"), "text/csv")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if obj.Size != 8 {
		t.Errorf("size = %d, want 8", obj.Size)
	}
	got, err := os.ReadFile(filepath.Join(dir, "reports", "org", "a.csv"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "a,b\n1,2\n" {
		t.Errorf("content = %q", got)
	}
}

func TestLocalPut_RejectsEscapingKeys(t *testing.T) {
	st := NewLocal(t.TempDir())
	for _, key := range []string{"../x.csv", "/etc/x.csv"} {
		if _, err := st.Put(context.Background(), key, strings.NewReader("x"), "text/csv"); err == nil {
			t.Errorf("key %q accepted", key)
		}
	}
}

func TestKey(t *testing.T) {
	from := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 10, 31, 0, 0, 0, 0, time.UTC)
	k := Key("", "revenue", from, to, "csv")
	if !strings.HasPrefix(k, "reports/all/revenue_2024-10-01_2024-10-31_") || !strings.HasSuffix(k, ".csv") {
		t.Errorf("key = %q", k)
	}
	if Key("org", "revenue", from, to, "csv") == Key("org", "revenue", from, to, "csv") {
		t.Error("keys must be unique")
	}
}

func TestNew(t *testing.T) {
	st, err := New(context.Background(), Config{Type: "local", LocalPath: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("New local: %v", err)
	}
	if _, ok := st.(*Local); !ok {
		t.Errorf("got %T, want *Local", st)
	}
	if _, err := New(context.Background(), Config{Type: "s3"}, nil); err != ErrNoBucket {
		t.Errorf("s3 without bucket: err = %v", err)
	}
	if _, err := New(context.Background(), Config{Type: "ftp"}, nil); err == nil {
		t.Error("unknown type accepted")
	}
}

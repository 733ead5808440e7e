package passphrase

import "testing"

func TestSourceReadsEnvironment(t *testing.T) {
	t.Setenv("RENTACAR_TEST_PASS", "s3cret")
	src := NewSource("RENTACAR_TEST_PASS", "admin")
	got, err := src.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "s3cret" {
		t.Fatalf("passphrase = %q", got)
	}
	t.Setenv("RENTACAR_TEST_PASS", "changed")
	if again, _ := src.Get(); again != "s3cret" {
		t.Fatalf("value not cached: %q", again)
	}
}

func TestSourceRejectsBlankEnvironment(t *testing.T) {
	t.Setenv("RENTACAR_TEST_PASS", "   ")
	if _, err := NewSource("RENTACAR_TEST_PASS", "").Get(); err == nil {
		t.Fatalf("expected error for blank passphrase")
	}
}

package order

import "testing"

func TestField_IsValid(t *testing.T) {
	valid := []Field{Relevance, CreatedAt, ViewCount, Title}
	for _, f := range valid {
		if !f.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", f)
		}
	}

	invalid := []Field{"", "score", "RELEVANCE", "bookmarks"}
	for _, f := range invalid {
		if f.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", f)
		}
	}
}

func TestField_DefaultDirection(t *testing.T) {
	if Title.DefaultDirection() != Asc {
		t.Errorf("Title default = %q, want asc", Title.DefaultDirection())
	}
	for _, f := range []Field{Relevance, CreatedAt, ViewCount} {
		if f.DefaultDirection() != Desc {
			t.Errorf("%q default = %q, want desc", f, f.DefaultDirection())
		}
	}
}

func TestDirection_IsValid(t *testing.T) {
	if !Asc.IsValid() || !Desc.IsValid() {
		t.Error("asc/desc must be valid")
	}
	if Direction("up").IsValid() {
		t.Error("unexpected valid direction")
	}
}

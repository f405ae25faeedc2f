package overlay

import (
	"strconv"
	"testing"
)

func testOverlay(id string) Overlay {
	return Overlay{
		ID:       id,
		Kind:     KindText,
		Content:  "hello",
		Position: Position{X: 10, Y: 20},
		Size:     Size{Width: 30, Height: 15},
		Timing:   Timing{Start: 0, End: 5},
	}
}

func TestStore_AddBecomesActive(t *testing.T) {
	s := NewStore()
	s.Add(testOverlay("a"))
	s.Add(testOverlay("b"))

	if s.ActiveID() != "b" {
		t.Fatalf("ActiveID() = %q, want b", s.ActiveID())
	}

	list := s.List()
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Fatalf("List() order = %+v, want [a b]", list)
	}
}

func TestStore_DeleteActiveClearsSelection(t *testing.T) {
	s := NewStore()
	s.Add(testOverlay("a"))

	if !s.Delete("a") {
		t.Fatal("Delete(a) = false, want true")
	}
	if s.ActiveID() != "" {
		t.Fatalf("ActiveID() = %q, want empty", s.ActiveID())
	}
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", s.Len())
	}
}

func TestStore_DeleteInactiveKeepsSelection(t *testing.T) {
	s := NewStore()
	s.Add(testOverlay("a"))
	s.Add(testOverlay("b"))

	if !s.Delete("a") {
		t.Fatal("Delete(a) = false, want true")
	}
	if s.ActiveID() != "b" {
		t.Fatalf("ActiveID() = %q, want b", s.ActiveID())
	}
}

func TestStore_UnknownIDIsNoOp(t *testing.T) {
	s := NewStore()
	s.Add(testOverlay("a"))

	if s.Delete("missing") {
		t.Error("Delete(missing) = true, want false")
	}
	if s.SetActive("missing") {
		t.Error("SetActive(missing) = true, want false")
	}
	text := "changed"
	if s.Edit("missing", Changes{Content: &text}) {
		t.Error("Edit(missing) = true, want false")
	}
	if s.ActiveID() != "a" {
		t.Errorf("ActiveID() = %q, want a", s.ActiveID())
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestStore_SetActiveEmptyClears(t *testing.T) {
	s := NewStore()
	s.Add(testOverlay("a"))

	if !s.SetActive("") {
		t.Fatal("SetActive(\"\") = false, want true")
	}
	if s.ActiveID() != "" {
		t.Fatalf("ActiveID() = %q, want empty", s.ActiveID())
	}
}

func TestStore_EditMergesOnlyProvidedFields(t *testing.T) {
	s := NewStore()
	s.Add(testOverlay("a"))

	pos := Position{X: 40, Y: 60}
	if !s.Edit("a", Changes{Position: &pos}) {
		t.Fatal("Edit(a) = false, want true")
	}

	got, ok := s.Get("a")
	if !ok {
		t.Fatal("Get(a) not found")
	}
	if got.Position != pos {
		t.Errorf("Position = %+v, want %+v", got.Position, pos)
	}
	if got.Content != "hello" {
		t.Errorf("Content = %q, want hello", got.Content)
	}
	if got.Timing != (Timing{Start: 0, End: 5}) {
		t.Errorf("Timing = %+v, want unchanged", got.Timing)
	}
}

func TestStore_ListIsCopy(t *testing.T) {
	s := NewStore()
	s.Add(testOverlay("a"))

	list := s.List()
	list[0].Content = "mutated"

	got, _ := s.Get("a")
	if got.Content != "hello" {
		t.Fatalf("store mutated through List() copy: %q", got.Content)
	}
}

func TestNewID_StrictlyIncreasing(t *testing.T) {
	prev := int64(-1)
	for i := 0; i < 100; i++ {
		n, err := strconv.ParseInt(NewID(), 10, 64)
		if err != nil {
			t.Fatalf("NewID() not numeric: %v", err)
		}
		if n <= prev {
			t.Fatalf("NewID() = %d, not greater than %d", n, prev)
		}
		prev = n
	}
}

func TestKind_HasAsset(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindText, false},
		{KindSticker, false},
		{KindImage, true},
		{KindVideo, true},
	}
	for _, tc := range tests {
		if got := tc.kind.HasAsset(); got != tc.want {
			t.Errorf("%s.HasAsset() = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

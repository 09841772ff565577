package graph

import (
	"reflect"
	"testing"
)

func TestDetectCycles(t *testing.T) {
	s := NewStore()
	active(s, "a", "b", "c", "d")
	s.LinkParent("a", "b", Stated)
	s.LinkParent("b", "c", Stated)
	s.LinkParent("c", "a", Stated)
	s.LinkParent("d", "a", Stated)

	cycles := s.DetectCycles(Stated)
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d: %v", len(cycles), cycles)
	}
	if want := []string{"a", "b", "c", "a"}; !reflect.DeepEqual(cycles[0], want) {
		t.Fatalf("expected %v, got %v", want, cycles[0])
	}
	if got := s.DetectCycles(Inferred); len(got) != 0 {
		t.Fatalf("expected no inferred cycles, got %v", got)
	}
}

func TestIsAPath(t *testing.T) {
	s := diamond()

	path, ok := s.IsAPath("5", "1", Inferred)
	if !ok {
		t.Fatal("expected a path from 5 to 1")
	}
	if want := []string{"5", "4", "2", "1"}; !reflect.DeepEqual(path, want) {
		t.Fatalf("expected %v, got %v", want, path)
	}
	if _, ok := s.IsAPath("1", "5", Inferred); ok {
		t.Fatal("expected no path against edge direction")
	}
	if path, ok := s.IsAPath("3", "3", Inferred); !ok || len(path) != 1 {
		t.Fatalf("expected trivial path, got %v", path)
	}
	if _, ok := s.IsAPath("5", "missing", Inferred); ok {
		t.Fatal("expected no path to unknown concept")
	}
}

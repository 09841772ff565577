package util

import (
	"reflect"
	"testing"
)

func TestSortedKeys(t *testing.T) {
	t.Parallel()

	got := SortedKeys(map[string]int{"b": 2, "a": 1, "c": 3})
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got := SortedKeys(map[string]bool{}); len(got) != 0 {
		t.Fatalf("expected no keys, got %v", got)
	}
}

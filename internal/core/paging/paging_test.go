package paging

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	limit, offset, err := Normalize(0, "")
	if err != nil || limit != DefaultPageSize || offset != 0 {
		t.Fatalf("unexpected defaults: %d %d %v", limit, offset, err)
	}

	limit, offset, err = Normalize(20, "40")
	if err != nil || limit != 20 || offset != 40 {
		t.Fatalf("unexpected values: %d %d %v", limit, offset, err)
	}

	if _, _, err := Normalize(MaxPageSize+1, ""); !errors.Is(err, ErrInvalidPageSize) {
		t.Fatalf("expected ErrInvalidPageSize, got %v", err)
	}

	if _, _, err := Normalize(10, "abc"); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}

	if _, _, err := Normalize(10, "-1"); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken for negative offset, got %v", err)
	}
}

func TestTrim(t *testing.T) {
	t.Parallel()

	page, next := Trim([]int{1, 2, 3}, 2, 4)
	if len(page) != 2 || next != "6" {
		t.Fatalf("unexpected trim: %v %q", page, next)
	}

	page, next = Trim([]int{1, 2}, 2, 0)
	if len(page) != 2 || next != "" {
		t.Fatalf("unexpected trim without extra row: %v %q", page, next)
	}
}

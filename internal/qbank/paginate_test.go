package qbank

import (
	"reflect"
	"testing"
)

func TestPaginateWindow(t *testing.T) {
	items := []int{10, 20, 30, 40, 50}

	p := Paginate(items, 2, 2)
	if !reflect.DeepEqual(p.Items, []int{30, 40}) {
		t.Errorf("page 2 items = %v", p.Items)
	}
	if p.StartIndex != 2 || p.EndIndex != 4 {
		t.Errorf("page 2 window = [%d,%d)", p.StartIndex, p.EndIndex)
	}

	// Last partial page: EndIndex may exceed the list length.
	p = Paginate(items, 3, 2)
	if !reflect.DeepEqual(p.Items, []int{50}) {
		t.Errorf("page 3 items = %v", p.Items)
	}
	if p.EndIndex != 6 {
		t.Errorf("page 3 end = %d, want 6", p.EndIndex)
	}
	if p.HasNext(len(items)) {
		t.Error("last page reports HasNext")
	}
	if !p.HasPrev() {
		t.Error("page 3 reports no HasPrev")
	}
}

func TestPaginateBeyondEnd(t *testing.T) {
	p := Paginate([]int{1, 2}, 5, 10)
	if len(p.Items) != 0 {
		t.Fatalf("out-of-range page returned items: %v", p.Items)
	}
}

// Concatenating all pages must reproduce the original list in order.
func TestPaginateRoundTrip(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}
	for _, pageSize := range []int{1, 4, 7, 23, 50} {
		var rebuilt []int
		for page := 1; page <= TotalPages(len(items), pageSize); page++ {
			rebuilt = append(rebuilt, Paginate(items, page, pageSize).Items...)
		}
		if !reflect.DeepEqual(rebuilt, items) {
			t.Errorf("pageSize %d: round trip = %v", pageSize, rebuilt)
		}
	}
}

func TestClampPage(t *testing.T) {
	cases := []struct {
		page, pageSize, total int
		wantPage, wantSize    int
	}{
		{0, 10, 25, 1, 10},   // page floor
		{-3, 0, 25, 1, 1},    // both floors
		{9, 10, 25, 3, 10},   // past the last page
		{2, 10, 0, 1, 10},    // empty list
		{2, 10, 25, 2, 10},   // in range untouched
	}
	for _, tc := range cases {
		page, size := ClampPage(tc.page, tc.pageSize, tc.total)
		if page != tc.wantPage || size != tc.wantSize {
			t.Errorf("ClampPage(%d,%d,%d) = (%d,%d), want (%d,%d)",
				tc.page, tc.pageSize, tc.total, page, size, tc.wantPage, tc.wantSize)
		}
	}
}

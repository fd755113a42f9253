package prometheus

import (
	"errors"
	"testing"
)

func intPtr(i int) *int { return &i }

func identity(s string) string { return s }

func TestPaginateAndFilter(t *testing.T) {
	metrics := []string{"compute_cpu", "memory_total", "storage_free", "storage_reads", "storage_writes"}

	tests := []struct {
		name         string
		items        []string
		filter       FilterSpec
		page         PageRequest
		wantItems    []string
		wantTotal    int
		wantReturned int
		wantHasMore  bool
	}{
		{
			name:         "no bounds returns everything",
			items:        metrics,
			wantItems:    metrics,
			wantTotal:    5,
			wantReturned: 5,
			wantHasMore:  false,
		},
		{
			name:         "limit truncates and reports more",
			items:        metrics,
			page:         PageRequest{Limit: intPtr(2)},
			wantItems:    []string{"compute_cpu", "memory_total"},
			wantTotal:    5,
			wantReturned: 2,
			wantHasMore:  true,
		},
		{
			name:         "offset skips",
			items:        metrics,
			page:         PageRequest{Offset: intPtr(3)},
			wantItems:    []string{"storage_reads", "storage_writes"},
			wantTotal:    5,
			wantReturned: 2,
			wantHasMore:  false,
		},
		{
			name:         "limit and offset combine",
			items:        metrics,
			page:         PageRequest{Limit: intPtr(2), Offset: intPtr(2)},
			wantItems:    []string{"storage_free", "storage_reads"},
			wantTotal:    5,
			wantReturned: 2,
			wantHasMore:  true,
		},
		{
			name:         "offset beyond length clamps to empty",
			items:        metrics,
			page:         PageRequest{Offset: intPtr(50)},
			wantItems:    []string{},
			wantTotal:    5,
			wantReturned: 0,
			wantHasMore:  false,
		},
		{
			name:         "prefix filter",
			items:        metrics,
			filter:       FilterSpec{Prefix: "storage_"},
			page:         PageRequest{Limit: intPtr(20)},
			wantItems:    []string{"storage_free", "storage_reads", "storage_writes"},
			wantTotal:    3,
			wantReturned: 3,
			wantHasMore:  false,
		},
		{
			name:         "pattern filter matches anywhere",
			items:        metrics,
			filter:       FilterSpec{Pattern: "_total$"},
			wantItems:    []string{"memory_total"},
			wantTotal:    1,
			wantReturned: 1,
			wantHasMore:  false,
		},
		{
			name:         "prefix and pattern combine conjunctively",
			items:        metrics,
			filter:       FilterSpec{Prefix: "storage_", Pattern: "(reads|free)"},
			wantItems:    []string{"storage_free", "storage_reads"},
			wantTotal:    2,
			wantReturned: 2,
			wantHasMore:  false,
		},
		{
			name:         "total reflects the filtered collection, not the page",
			items:        metrics,
			filter:       FilterSpec{Prefix: "storage_"},
			page:         PageRequest{Limit: intPtr(1), Offset: intPtr(1)},
			wantItems:    []string{"storage_reads"},
			wantTotal:    3,
			wantReturned: 1,
			wantHasMore:  true,
		},
		{
			name:         "empty input",
			items:        []string{},
			page:         PageRequest{Limit: intPtr(10)},
			wantItems:    []string{},
			wantTotal:    0,
			wantReturned: 0,
			wantHasMore:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := paginateAndFilter(tt.items, tt.filter, tt.page, identity)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got.Items) != len(tt.wantItems) {
				t.Fatalf("items = %v, want %v", got.Items, tt.wantItems)
			}
			for i := range got.Items {
				if got.Items[i] != tt.wantItems[i] {
					t.Errorf("items[%d] = %q, want %q", i, got.Items[i], tt.wantItems[i])
				}
			}
			if got.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", got.Total, tt.wantTotal)
			}
			if got.Returned != tt.wantReturned {
				t.Errorf("returned = %d, want %d", got.Returned, tt.wantReturned)
			}
			if got.HasMore != tt.wantHasMore {
				t.Errorf("hasMore = %v, want %v", got.HasMore, tt.wantHasMore)
			}
			if got.Offset+got.Returned > got.Total {
				t.Errorf("offset(%d) + returned(%d) exceeds total(%d)", got.Offset, got.Returned, got.Total)
			}
		})
	}
}

func TestPaginateAndFilterValidation(t *testing.T) {
	items := []string{"a", "b", "c"}

	tests := []struct {
		name      string
		filter    FilterSpec
		page      PageRequest
		wantParam string
	}{
		{name: "negative offset", page: PageRequest{Offset: intPtr(-1)}, wantParam: "offset"},
		{name: "zero limit", page: PageRequest{Limit: intPtr(0)}, wantParam: "limit"},
		{name: "negative limit", page: PageRequest{Limit: intPtr(-5)}, wantParam: "limit"},
		{name: "invalid regex", filter: FilterSpec{Pattern: "("}, wantParam: "filter_pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := paginateAndFilter(items, tt.filter, tt.page, identity)
			if err == nil {
				t.Fatal("expected error, got none")
			}
			var te *ToolError
			if !errors.As(err, &te) {
				t.Fatalf("expected *ToolError, got %T", err)
			}
			if te.Code != ErrValidation {
				t.Errorf("error code = %s, want %s", te.Code, ErrValidation)
			}
			if te.Parameter != tt.wantParam {
				t.Errorf("offending parameter = %q, want %q", te.Parameter, tt.wantParam)
			}
		})
	}
}

package prometheus

import (
	"regexp"
	"strings"
)

// PageRequest carries optional pagination bounds. An unset limit means no
// cap; an unset offset means 0.
type PageRequest struct {
	Limit  *int
	Offset *int
}

// FilterSpec narrows a listing before pagination. Prefix and Pattern combine
// conjunctively when both are given. An invalid Pattern is a validation
// error, never a silent no-match.
type FilterSpec struct {
	Prefix  string
	Pattern string
}

// compile builds the pattern matcher, nil when no pattern is set. An invalid
// pattern is a validation error naming filter_pattern; handlers compile
// before calling the backend so bad arguments never trigger a query.
func (f FilterSpec) compile() (*regexp.Regexp, error) {
	if f.Pattern == "" {
		return nil, nil
	}
	pattern, err := regexp.Compile(f.Pattern)
	if err != nil {
		return nil, validationError("filter_pattern", "invalid regex: %v", err)
	}
	return pattern, nil
}

// PageMetadata describes one page of a filtered collection. Total always
// counts the filtered collection, independent of limit/offset.
type PageMetadata struct {
	Total    int  `json:"total"`
	Offset   int  `json:"offset"`
	Limit    *int `json:"limit,omitempty"`
	Returned int  `json:"returned"`
	HasMore  bool `json:"hasMore"`
}

// PageResult is one page of items plus its metadata.
type PageResult[T any] struct {
	Items []T
	PageMetadata
}

// paginateAndFilter slices an ordered collection: prefix filter, then
// pattern filter, then offset (clamped), then limit. Pure function, no I/O.
// keyFn extracts the string the filters match against.
func paginateAndFilter[T any](items []T, filter FilterSpec, page PageRequest, keyFn func(T) string) (PageResult[T], error) {
	var zero PageResult[T]

	offset := 0
	if page.Offset != nil {
		if *page.Offset < 0 {
			return zero, validationError("offset", "offset must be non-negative, got %d", *page.Offset)
		}
		offset = *page.Offset
	}
	if page.Limit != nil && *page.Limit <= 0 {
		return zero, validationError("limit", "limit must be a positive integer, got %d", *page.Limit)
	}

	pattern, err := filter.compile()
	if err != nil {
		return zero, err
	}

	filtered := items
	if filter.Prefix != "" || pattern != nil {
		filtered = make([]T, 0, len(items))
		for _, item := range items {
			key := keyFn(item)
			if filter.Prefix != "" && !strings.HasPrefix(key, filter.Prefix) {
				continue
			}
			if pattern != nil && !pattern.MatchString(key) {
				continue
			}
			filtered = append(filtered, item)
		}
	}

	total := len(filtered)
	start := offset
	if start > total {
		start = total
	}
	end := total
	if page.Limit != nil && start+*page.Limit < end {
		end = start + *page.Limit
	}

	pageItems := filtered[start:end]
	returned := len(pageItems)

	return PageResult[T]{
		Items: pageItems,
		PageMetadata: PageMetadata{
			Total:    total,
			Offset:   offset,
			Limit:    page.Limit,
			Returned: returned,
			HasMore:  offset+returned < total,
		},
	}, nil
}

// Package search runs case-insensitive substring queries over the cached
// message dataset.
//
// # Matching
//
// A message matches when the lowercased query is contained in the lowercased
// message text or in the lowercased author name. There is no tokenization, no
// stemming and no ranking: matches are returned in dataset order.
//
// # Pagination
//
// Pages are 1-based. Page p with size n covers matches[(p-1)*n : p*n], clipped
// to the available matches; a page past the end is empty rather than an
// error. Total always counts every match, not just the ones on the page.
//
// Non-positive page numbers are treated as page 1 and non-positive page sizes
// as DefaultPageSize, so the echoed values in a Page may differ from the
// request. An Engine can also cap the page size with WithMaxPageSize.
//
// # Usage
//
//	engine := search.NewEngine(dataset)
//	page, err := engine.Search("alice", 1, 10)
//	if errors.Is(err, search.ErrInvalidQuery) {
//		// empty query
//	}
//
// Parsing HTTP query strings:
//
//	params := search.ParseParams(r.URL.Query())
//	page, err := engine.Search(params.Query, params.Page, params.PageSize)
//
// # Concurrency
//
// Search reads one snapshot reference at the start and works only on it, so
// a refresh that lands mid-search never mixes datasets. Engines are safe for
// concurrent use.
package search

package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/GTDGit/elit_catalog/pkg/elit"
)

// fakeFetcher serves a fixed upstream catalog page by page.
type fakeFetcher struct {
	mu       sync.Mutex
	items    []elit.Product
	total    *int
	failAt   map[int]error // offset -> error
	offsets  []int
	names    []string
	byName   []elit.Product
	nameErr  error
	override func(offset int) (*elit.PageResponse, error)

	// validToken, when set, rejects any other token like ELIT does.
	validToken string
	seen       []elit.Credentials
}

func (f *fakeFetcher) FetchPage(ctx context.Context, creds elit.Credentials, limit, offset int) (*elit.PageResponse, error) {
	f.mu.Lock()
	f.offsets = append(f.offsets, offset)
	f.seen = append(f.seen, creds)
	override := f.override
	validToken := f.validToken
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if validToken != "" && creds.Token != validToken {
		return nil, &elit.AuthenticationError{Err: &elit.TransportError{StatusCode: 401, Body: "token invalido"}}
	}
	if override != nil {
		return override(offset)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failAt[offset]; ok {
		return nil, err
	}

	start := offset - 1
	end := min(start+limit, len(f.items))
	resp := &elit.PageResponse{Items: []elit.Product{}}
	if start < end {
		resp.Items = append(resp.Items, f.items[start:end]...)
	}
	if f.total != nil {
		resp.Pagination = &elit.Pagination{Total: elit.FlexInt(*f.total), Limit: elit.FlexInt(limit)}
	}
	return resp, nil
}

func (f *fakeFetcher) FetchByName(_ context.Context, _ elit.Credentials, _ int, name string) (*elit.PageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	if f.nameErr != nil {
		return nil, f.nameErr
	}
	return &elit.PageResponse{Items: f.byName}, nil
}

func (f *fakeFetcher) seenCreds() []elit.Credentials {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]elit.Credentials(nil), f.seen...)
}

func (f *fakeFetcher) calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.offsets...)
}

// makeItems builds n upstream products with ids p1..pn and stock i%7.
func makeItems(n int) []elit.Product {
	items := make([]elit.Product, n)
	for i := range items {
		items[i] = elit.Product{
			ID:         elit.FlexString(fmt.Sprintf("p%d", i+1)),
			Name:       fmt.Sprintf("Product %d", i+1),
			TotalStock: elit.FlexInt(i % 7),
			StockLevel: "alto",
		}
	}
	return items
}

func intPtr(n int) *int { return &n }

var testCreds = elit.Credentials{UserID: 30440, Token: "token"}

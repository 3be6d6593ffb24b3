package inventory

import (
	"context"
	"strconv"

	"github.com/bazrganidrwst/warehouse-client/apiclient"
	"github.com/bazrganidrwst/warehouse-client/endpoint"
)

// Branches manages branches.
type Branches struct {
	*State[Branch]
	res    resource[Branch]
	report *State[BranchStockItem]
}

func newBranches(c conn) *Branches {
	res := newResource[Branch](c, endpoint.Branches, "Branch", "warehouses", "location")
	return &Branches{State: res.state, res: res, report: &State[BranchStockItem]{}}
}

func (s *Branches) Fetch(ctx context.Context, q ListQuery) error { return s.res.list(ctx, q) }

func (s *Branches) Search(ctx context.Context, query string) ([]Branch, error) {
	return s.res.search(ctx, ListQuery{Search: query})
}

func (s *Branches) Get(ctx context.Context, id int64) (*Branch, error) { return s.res.get(ctx, id) }

func (s *Branches) Create(ctx context.Context, p BranchPayload) (*Branch, error) {
	if p.Name == "" {
		return nil, invalid(s.res.conn, s.State, "Branches.Create", "Branch name is required")
	}
	return s.res.create(ctx, p)
}

func (s *Branches) Update(ctx context.Context, id int64, p BranchPayload) (*Branch, error) {
	return s.res.update(ctx, id, p)
}

// ToggleActive flips the active flag and mirrors it on the listed branch.
func (s *Branches) ToggleActive(ctx context.Context, id int64) error {
	_, err := call[Branch](ctx, s.res.conn, s.State, apiclient.Put(endpoint.BranchToggleActive(id), nil), "Branch status updated successfully")
	if err != nil {
		return err
	}
	s.update(func(items []Branch) {
		for i := range items {
			if items[i].ID == id {
				items[i].IsActive = !items[i].IsActive
			}
		}
	})
	return nil
}

// StockReport lists the items held across the branch's warehouses.
func (s *Branches) StockReport(ctx context.Context, branchID int64, q ListQuery, categoryID int64) ([]BranchStockItem, error) {
	if categoryID > 0 {
		q = q.filter("category_id", strconv.FormatInt(categoryID, 10))
	}
	env, err := call[[]BranchStockItem](ctx, s.res.conn, s.report, apiclient.Get(endpoint.BranchReport(branchID), q.values()), "")
	if err != nil {
		return nil, err
	}
	s.report.setItems(env.Data, env.Pagination, q)
	return env.Data, nil
}

func (s *Branches) Report() *State[BranchStockItem] { return s.report }

type Locations struct {
	*State[Location]
	res resource[Location]
}

func newLocations(c conn) *Locations {
	res := newResource[Location](c, endpoint.Locations, "Location")
	return &Locations{State: res.state, res: res}
}

func (s *Locations) Fetch(ctx context.Context, q ListQuery) error { return s.res.list(ctx, q) }

func (s *Locations) Get(ctx context.Context, id int64) (*Location, error) { return s.res.get(ctx, id) }

func (s *Locations) Create(ctx context.Context, l Location) (*Location, error) {
	return s.res.create(ctx, l)
}

func (s *Locations) Update(ctx context.Context, id int64, l Location) (*Location, error) {
	return s.res.update(ctx, id, l)
}

// ItemCategories manages the categories items are filed under.
type ItemCategories struct {
	*State[Category]
	res resource[Category]
}

func newItemCategories(c conn) *ItemCategories {
	res := newResource[Category](c, endpoint.ItemCategories, "Category")
	return &ItemCategories{State: res.state, res: res}
}

func (s *ItemCategories) Fetch(ctx context.Context, q ListQuery) error { return s.res.list(ctx, q) }

func (s *ItemCategories) Search(ctx context.Context, query string) ([]Category, error) {
	return s.res.search(ctx, ListQuery{Search: query})
}

func (s *ItemCategories) Get(ctx context.Context, id int64) (*Category, error) {
	return s.res.get(ctx, id)
}

func (s *ItemCategories) Create(ctx context.Context, p CategoryPayload) (*Category, error) {
	if p.Name == "" {
		return nil, invalid(s.res.conn, s.State, "ItemCategories.Create", "Category name is required")
	}
	return s.res.create(ctx, p)
}

func (s *ItemCategories) Update(ctx context.Context, id int64, p CategoryPayload) (*Category, error) {
	return s.res.update(ctx, id, p)
}

func (s *ItemCategories) ToggleStatus(ctx context.Context, id int64) error {
	_, err := call[Category](ctx, s.res.conn, s.State, apiclient.Put(endpoint.CategoryToggleStatus(id), nil), "Category status updated successfully")
	if err != nil {
		return err
	}
	s.update(func(items []Category) {
		for i := range items {
			if items[i].ID == id {
				items[i].IsActive = !items[i].IsActive
			}
		}
	})
	return nil
}

package inventory

import (
	"context"
	"strconv"

	"github.com/bazrganidrwst/warehouse-client/apiclient"
	"github.com/bazrganidrwst/warehouse-client/endpoint"
)

// Warehouses manages warehouses and the items stocked in them.
type Warehouses struct {
	*State[Warehouse]
	res    resource[Warehouse]
	stock  *State[WarehouseItem]
	branch *State[BranchWarehouses]
}

func newWarehouses(c conn) *Warehouses {
	res := newResource[Warehouse](c, endpoint.Warehouses, "Warehouse", endpoint.WarehouseListRelations)
	return &Warehouses{
		State:  res.state,
		res:    res,
		stock:  &State[WarehouseItem]{},
		branch: &State[BranchWarehouses]{},
	}
}

func (s *Warehouses) Fetch(ctx context.Context, q ListQuery) error { return s.res.list(ctx, q) }

func (s *Warehouses) Get(ctx context.Context, id int64) (*Warehouse, error) {
	return s.res.get(ctx, id)
}

func (s *Warehouses) Create(ctx context.Context, p WarehousePayload) (*Warehouse, error) {
	if p.BranchID <= 0 || p.Name == "" {
		return nil, invalid(s.res.conn, s.State, "Warehouses.Create", "Branch and warehouse name are required")
	}
	return s.res.create(ctx, p)
}

func (s *Warehouses) Update(ctx context.Context, id int64, p WarehousePayload) (*Warehouse, error) {
	return s.res.update(ctx, id, p)
}

func (s *Warehouses) ToggleActive(ctx context.Context, id int64) error {
	_, err := call[Warehouse](ctx, s.res.conn, s.State, apiclient.Put(endpoint.WarehouseToggleActive(id), nil), "Warehouse status updated successfully")
	if err != nil {
		return err
	}
	s.update(func(items []Warehouse) {
		for i := range items {
			if items[i].ID == id {
				items[i].IsActive = !items[i].IsActive
			}
		}
	})
	return nil
}

// ForBranch loads a branch with its warehouses.
func (s *Warehouses) ForBranch(ctx context.Context, branchID int64) (*BranchWarehouses, error) {
	env, err := call[BranchWarehouses](ctx, s.res.conn, s.branch, apiclient.Get(endpoint.BranchWarehouses(branchID), nil), "")
	if err != nil {
		return nil, err
	}
	s.branch.setCurrent(&env.Data)
	return &env.Data, nil
}

// LoadStock lists the stock of one warehouse. A categoryID of zero lists
// every category.
func (s *Warehouses) LoadStock(ctx context.Context, warehouseID int64, q ListQuery, categoryID int64) ([]WarehouseItem, error) {
	if categoryID > 0 {
		q = q.filter("category_id", strconv.FormatInt(categoryID, 10))
	}
	if q.Page == 0 {
		q.Page = 1
	}
	env, err := call[[]WarehouseItem](ctx, s.res.conn, s.stock, apiclient.Get(endpoint.WarehouseItemsOverview(warehouseID), q.values()), "")
	if err != nil {
		return nil, err
	}
	s.stock.setItems(env.Data, env.Pagination, q)
	return env.Data, nil
}

func (s *Warehouses) Stock() *State[WarehouseItem] { return s.stock }

// Items manages the item catalogue.
type Items struct {
	*State[Item]
	res resource[Item]
}

func newItems(c conn) *Items {
	res := newResource[Item](c, endpoint.Items, "Item", "category")
	return &Items{State: res.state, res: res}
}

// Fetch lists items, optionally for one category.
func (s *Items) Fetch(ctx context.Context, q ListQuery, categoryID int64) error {
	if categoryID > 0 {
		q = q.filter("category_id", strconv.FormatInt(categoryID, 10))
	}
	return s.res.list(ctx, q)
}

func (s *Items) Search(ctx context.Context, query string, categoryID int64) ([]Item, error) {
	q := ListQuery{Search: query}
	if categoryID > 0 {
		q = q.filter("category_id", strconv.FormatInt(categoryID, 10))
	}
	return s.res.search(ctx, q)
}

func (s *Items) Get(ctx context.Context, id int64) (*Item, error) { return s.res.get(ctx, id, "category") }

func (s *Items) Create(ctx context.Context, p ItemPayload) (*Item, error) {
	if p.SKU == "" || p.Name == "" {
		return nil, invalid(s.res.conn, s.State, "Items.Create", "SKU and name are required")
	}
	return s.res.create(ctx, p)
}

func (s *Items) Update(ctx context.Context, id int64, p ItemPayload) (*Item, error) {
	return s.res.update(ctx, id, p)
}

func (s *Items) Delete(ctx context.Context, id int64) error {
	if err := s.res.remove(ctx, id); err != nil {
		return err
	}
	s.dropLocal(id)
	return nil
}

func (s *Items) dropLocal(id int64) {
	s.State.mu.Lock()
	defer s.State.mu.Unlock()
	kept := s.items[:0]
	for _, it := range s.items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	s.items = kept
}

// InWarehouse lists the items stocked in a warehouse.
func (s *Items) InWarehouse(ctx context.Context, warehouseID, categoryID int64, query string) error {
	q := ListQuery{Search: query, Paginate: All().Paginate}
	if categoryID > 0 {
		q = q.filter("category_id", strconv.FormatInt(categoryID, 10))
	}
	env, err := call[[]Item](ctx, s.res.conn, s.State, apiclient.Get(endpoint.WarehouseItemsOverview(warehouseID), q.values()), "")
	if err != nil {
		return err
	}
	s.setItems(env.Data, env.Pagination, q)
	return nil
}

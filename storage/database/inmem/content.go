package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/educa/core/content"
)

type contentRepository struct {
	db *DB
}

var _ content.Repository = (*contentRepository)(nil) // interface compliance check

func NewContentRepository(db *DB) content.Repository {
	return &contentRepository{db: db}
}

// copyItem returns a copy of item, so that callers never share the stored value.
func copyItem(item content.Item) content.Item {
	switch it := item.(type) {
	case *content.Text:
		c := *it
		return &c
	case *content.Video:
		c := *it
		return &c
	case *content.Image:
		c := *it
		return &c
	case *content.File:
		c := *it
		return &c
	}
	return nil
}

// Items

func (repo *contentRepository) CreateItem(ctx context.Context, item content.Item) (content.Item, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if copyItem(item) == nil {
		return nil, content.ErrUnknownItemType
	}
	repo.db.items[item.Base().ID] = copyItem(item)
	return item, nil
}

func (repo *contentRepository) GetItem(ctx context.Context, t content.ItemType, id string) (content.Item, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.getItem(t, id)
}

func (repo *contentRepository) getItem(t content.ItemType, id string) (content.Item, error) {
	item, ok := repo.db.items[id]
	if !ok || item.Type() != t {
		return nil, content.ErrItemNotFound
	}
	return copyItem(item), nil
}

func (repo *contentRepository) UpdateItem(ctx context.Context, item content.Item) (content.Item, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	id := item.Base().ID
	orig, ok := repo.db.items[id]
	if !ok || orig.Type() != item.Type() {
		return nil, content.ErrItemNotFound
	}
	repo.db.items[id] = copyItem(item)
	return item, nil
}

// Contents

func (repo *contentRepository) CreateContent(ctx context.Context, cnt content.Content) (content.Content, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.modules[cnt.ModuleID]; !ok {
		return content.Content{}, content.ErrNotFound
	}
	if _, err := repo.getItem(cnt.ItemType, cnt.ItemID); err != nil {
		return content.Content{}, err
	}
	if cnt.Order == content.AutoOrder {
		cnt.Order = 0
		for _, c := range repo.db.contents {
			if c.ModuleID == cnt.ModuleID && c.Order >= cnt.Order {
				cnt.Order = c.Order + 1
			}
		}
	}

	c := cnt
	c.Item = nil
	repo.db.contents[cnt.ID] = &c
	return cnt, nil
}

func (repo *contentRepository) ownsModule(ownerID, moduleID string) bool {
	mod, ok := repo.db.modules[moduleID]
	if !ok {
		return false
	}
	crs, ok := repo.db.courses[mod.CourseID]
	return ok && crs.OwnerID == ownerID
}

// withItem returns a copy of cnt along with its item.
func (repo *contentRepository) withItem(cnt *content.Content) (content.Content, bool) {
	item, err := repo.getItem(cnt.ItemType, cnt.ItemID)
	if err != nil {
		return content.Content{}, false
	}
	c := *cnt
	c.Item = item
	return c, true
}

func (repo *contentRepository) GetContent(ctx context.Context, filter content.Filter) (content.Content, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter == (content.Filter{}) {
		return content.Content{}, content.ErrNotFound
	}
	for _, cnt := range repo.db.contents {
		if filter.ID != "" && cnt.ID != filter.ID {
			continue
		}
		if filter.ModuleID != "" && cnt.ModuleID != filter.ModuleID {
			continue
		}
		if filter.ItemType != "" && cnt.ItemType != filter.ItemType {
			continue
		}
		if filter.ItemID != "" && cnt.ItemID != filter.ItemID {
			continue
		}
		if filter.OwnerID != "" && !repo.ownsModule(filter.OwnerID, cnt.ModuleID) {
			continue
		}
		if c, ok := repo.withItem(cnt); ok {
			return c, nil
		}
	}
	return content.Content{}, content.ErrNotFound
}

func (repo *contentRepository) QueryContents(ctx context.Context, moduleID string) ([]content.Content, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	contents := make([]content.Content, 0)
	for _, cnt := range repo.db.contents {
		if cnt.ModuleID != moduleID {
			continue
		}
		if c, ok := repo.withItem(cnt); ok {
			contents = append(contents, c)
		}
	}
	sort.Slice(contents, func(i, j int) bool {
		if contents[i].Order != contents[j].Order {
			return contents[i].Order < contents[j].Order
		}
		return contents[i].ID < contents[j].ID
	})
	return contents, nil
}

func (repo *contentRepository) DeleteContent(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.contents[id]; !ok {
		return content.ErrNotFound
	}
	repo.db.deleteContent(id)
	return nil
}

func (repo *contentRepository) SetContentOrders(ctx context.Context, ownerID string, orders map[string]int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, order := range orders {
		if cnt, ok := repo.db.contents[id]; ok && repo.ownsModule(ownerID, cnt.ModuleID) {
			cnt.Order = order
		}
	}
	return nil
}

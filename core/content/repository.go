package content

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/educa/core"
)

// AutoOrder makes CreateContent place the content after the last content of its module.
const AutoOrder = -1

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("content not found")
	ErrItemNotFound    = core.NewNotFoundError("item not found")
	ErrUnknownItemType = core.NewNotFoundError("unknown content type")
	ErrFormMismatch    = errors.New("form does not match the content type")
)

// Filter applies AND operation on its set fields.
// OwnerID matches the owner of the course the content's module belongs to.
type Filter struct {
	ID       string
	ModuleID string
	ItemType ItemType
	ItemID   string
	OwnerID  string
}

type Repository interface {
	// CreateItem stores a new item of any type.
	CreateItem(ctx context.Context, item Item) (Item, error)
	GetItem(ctx context.Context, t ItemType, id string) (Item, error)
	UpdateItem(ctx context.Context, item Item) (Item, error)

	// CreateContent creates a content; an AutoOrder order is replaced by the next order within the module.
	CreateContent(ctx context.Context, cnt Content) (Content, error)
	// GetContent returns a single content with its item.
	GetContent(ctx context.Context, filter Filter) (Content, error)
	// QueryContents returns the contents of a module, with their items, by order.
	QueryContents(ctx context.Context, moduleID string) ([]Content, error)
	// DeleteContent deletes a content along with its item.
	DeleteContent(ctx context.Context, id string) error
	// SetContentOrders sets the order of the given contents, skipping those whose course is not owned by ownerID.
	SetContentOrders(ctx context.Context, ownerID string, orders map[string]int) error
}

package content

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/educa/core"
	"github.com/trezcool/educa/core/course"
)

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// ModuleContents is a module along with its contents, by order.
type ModuleContents struct {
	course.Module
	Contents []Content `json:"contents"`
}

// CourseContents is a course along with the contents of each of its modules.
type CourseContents struct {
	course.Course
	Modules []ModuleContents `json:"modules"`
}

// EnrolledModule is the view of an enrolled course focused on a module, along with the module contents.
type EnrolledModule struct {
	course.EnrolledCourse
	Contents []Content `json:"contents"`
}

type Service struct {
	repo    Repository
	courses *course.Service
	tx      core.Transactor
	storage core.FileStorage
	logger  core.Logger
}

func NewService(
	repo Repository,
	courses *course.Service,
	tx core.Transactor,
	storage core.FileStorage,
	logger core.Logger,
) *Service {
	return &Service{
		repo:    repo,
		courses: courses,
		tx:      tx,
		storage: storage,
		logger:  logger,
	}
}

// CreateItem creates an item of the type named typeName, owned by ownerID,
// and appends it to the contents of the module moduleID.
// The module's course must be owned by ownerID.
func (svc *Service) CreateItem(ctx context.Context, ownerID, moduleID, typeName string, form Form) (Content, error) {
	t, ok := LookupItemType(typeName)
	if !ok {
		return Content{}, ErrUnknownItemType
	}
	if form == nil || !form.fits(t) {
		return Content{}, ErrFormMismatch
	}
	mod, err := svc.courses.GetOwnedModule(ctx, ownerID, moduleID)
	if err != nil {
		return Content{}, err
	}

	now := time.Now().UTC()
	item := t.newItem()
	form.apply(item)
	base := item.Base()
	base.ID = uuid.New().String()
	base.OwnerID = ownerID
	base.CreatedAt = now
	base.UpdatedAt = now

	if err := svc.storeUpload(ctx, item, form); err != nil {
		return Content{}, err
	}

	var cnt Content
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		created, err := svc.repo.CreateItem(ctx, item)
		if err != nil {
			return errors.Wrap(err, "creating item")
		}
		cnt, err = svc.repo.CreateContent(ctx, Content{
			ID:       uuid.New().String(),
			ModuleID: mod.ID,
			Order:    AutoOrder,
			ItemType: t,
			ItemID:   created.Base().ID,
			Item:     created,
		})
		return errors.Wrap(err, "creating content")
	})
	if err != nil {
		svc.deleteFile(ctx, storedFile(item))
		return Content{}, err
	}
	return cnt, nil
}

// GetItem returns the content wrapping the item itemID of type typeName in the module moduleID.
// Both the item and the module's course must be owned by ownerID.
func (svc *Service) GetItem(ctx context.Context, ownerID, moduleID, typeName, itemID string) (Content, error) {
	t, ok := LookupItemType(typeName)
	if !ok {
		return Content{}, ErrUnknownItemType
	}
	if !isUUID(itemID) {
		return Content{}, ErrItemNotFound
	}
	mod, err := svc.courses.GetOwnedModule(ctx, ownerID, moduleID)
	if err != nil {
		return Content{}, err
	}

	cnt, err := svc.repo.GetContent(ctx, Filter{ModuleID: mod.ID, ItemType: t, ItemID: itemID})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Content{}, ErrItemNotFound
		}
		return Content{}, err
	}
	if cnt.Item.Base().OwnerID != ownerID {
		return Content{}, ErrItemNotFound
	}
	return cnt, nil
}

// UpdateItem updates the item itemID of type typeName in the module moduleID. See GetItem.
// Image and file items keep their current file when the form carries no upload.
func (svc *Service) UpdateItem(ctx context.Context, ownerID, moduleID, typeName, itemID string, form Form) (Content, error) {
	cnt, err := svc.GetItem(ctx, ownerID, moduleID, typeName, itemID)
	if err != nil {
		return Content{}, err
	}
	if form == nil || !form.fits(cnt.ItemType) {
		return Content{}, ErrFormMismatch
	}

	item := cnt.Item
	oldFile := storedFile(item)
	form.apply(item)
	item.Base().UpdatedAt = time.Now().UTC()
	if err := svc.storeUpload(ctx, item, form); err != nil {
		return Content{}, err
	}

	updated, err := svc.repo.UpdateItem(ctx, item)
	if err != nil {
		if newFile := storedFile(item); newFile != oldFile {
			svc.deleteFile(ctx, newFile)
		}
		return Content{}, errors.Wrap(err, "updating item")
	}
	if newFile := storedFile(updated); newFile != oldFile {
		svc.deleteFile(ctx, oldFile)
	}
	cnt.Item = updated
	return cnt, nil
}

// DeleteContent deletes the content along with its item and stored file.
// The content's module's course must be owned by ownerID.
func (svc *Service) DeleteContent(ctx context.Context, ownerID, contentID string) error {
	if !isUUID(contentID) || ownerID == "" {
		return ErrNotFound
	}
	cnt, err := svc.repo.GetContent(ctx, Filter{ID: contentID, OwnerID: ownerID})
	if err != nil {
		return err
	}

	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		return svc.repo.DeleteContent(ctx, cnt.ID)
	})
	if err != nil {
		return errors.Wrap(err, "deleting content")
	}
	svc.deleteFile(ctx, storedFile(cnt.Item))
	return nil
}

// ModuleContents returns the module moduleID with its contents. The module's course must be owned by ownerID.
func (svc *Service) ModuleContents(ctx context.Context, ownerID, moduleID string) (ModuleContents, error) {
	mod, err := svc.courses.GetOwnedModule(ctx, ownerID, moduleID)
	if err != nil {
		return ModuleContents{}, err
	}
	contents, err := svc.repo.QueryContents(ctx, mod.ID)
	if err != nil {
		return ModuleContents{}, errors.Wrap(err, "querying contents")
	}
	return ModuleContents{Module: mod, Contents: contents}, nil
}

// ReorderContents sets the order of the given contents. Contents of courses not owned by ownerID are skipped.
func (svc *Service) ReorderContents(ctx context.Context, ownerID string, orders map[string]int) error {
	if err := course.ValidateOrders(orders); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.SetContentOrders(ctx, ownerID, orders), "setting content orders")
}

// EnrolledModuleContents returns a course the student is enrolled in, focused on the module moduleID
// (the first module when empty), along with the contents of that module.
func (svc *Service) EnrolledModuleContents(ctx context.Context, studentID, courseID, moduleID string) (EnrolledModule, error) {
	ec, err := svc.courses.GetEnrolled(ctx, studentID, courseID, moduleID)
	if err != nil {
		return EnrolledModule{}, err
	}

	em := EnrolledModule{EnrolledCourse: ec, Contents: []Content{}}
	if ec.Module != nil {
		if em.Contents, err = svc.repo.QueryContents(ctx, ec.Module.ID); err != nil {
			return EnrolledModule{}, errors.Wrap(err, "querying contents")
		}
	}
	return em, nil
}

// EnrolledCourseContents returns a course the student is enrolled in, with the contents of all its modules.
func (svc *Service) EnrolledCourseContents(ctx context.Context, studentID, courseID string) (CourseContents, error) {
	ec, err := svc.courses.GetEnrolled(ctx, studentID, courseID, "")
	if err != nil {
		return CourseContents{}, err
	}

	cc := CourseContents{Course: ec.Course, Modules: make([]ModuleContents, 0, len(ec.Course.Modules))}
	for _, mod := range ec.Course.Modules {
		contents, err := svc.repo.QueryContents(ctx, mod.ID)
		if err != nil {
			return CourseContents{}, errors.Wrap(err, "querying contents")
		}
		cc.Modules = append(cc.Modules, ModuleContents{Module: mod, Contents: contents})
	}
	cc.Course.Modules = nil
	return cc, nil
}

// storeUpload saves the upload of a file form and points the item to it.
func (svc *Service) storeUpload(ctx context.Context, item Item, form Form) error {
	ff, ok := form.(*FileForm)
	if !ok || ff.Upload == nil {
		return nil
	}

	loc, err := svc.storage.Save(ctx, item.Type().uploadDir(), ff.Upload.Filename, ff.Upload.ContentType, ff.Upload.Reader)
	if err != nil {
		return errors.Wrap(err, "storing upload")
	}
	switch it := item.(type) {
	case *Image:
		it.File = loc
	case *File:
		it.File = loc
	}
	return nil
}

func (svc *Service) deleteFile(ctx context.Context, location string) {
	if location == "" {
		return
	}
	if err := svc.storage.Delete(ctx, location); err != nil {
		svc.logger.Warn(fmt.Sprintf("deleting file %q: %v", location, err), err)
	}
}

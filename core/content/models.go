package content

import (
	"encoding/json"
	"io"
	"time"
)

// ItemType names a kind of content item.
type ItemType string

const (
	TypeText  ItemType = "text"
	TypeVideo ItemType = "video"
	TypeImage ItemType = "image"
	TypeFile  ItemType = "file"
)

// ItemTypes lists the content item kinds, in display order.
var ItemTypes = []ItemType{TypeText, TypeVideo, TypeImage, TypeFile}

// ItemBase holds the fields shared by every content item.
type ItemBase struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created"` // UTC
	UpdatedAt time.Time `json:"updated"` // UTC
}

func (b *ItemBase) Base() *ItemBase { return b }

// Item is one of *Text, *Video, *Image or *File.
type Item interface {
	Type() ItemType
	Base() *ItemBase
}

type Text struct {
	ItemBase
	Content string `json:"content"`
}

func (*Text) Type() ItemType { return TypeText }

type Video struct {
	ItemBase
	URL string `json:"url"`
}

func (*Video) Type() ItemType { return TypeVideo }

type Image struct {
	ItemBase
	File string `json:"file"`
}

func (*Image) Type() ItemType { return TypeImage }

type File struct {
	ItemBase
	File string `json:"file"`
}

func (*File) Type() ItemType { return TypeFile }

// storedFile returns the stored file location of image and file items.
func storedFile(item Item) string {
	switch it := item.(type) {
	case *Image:
		return it.File
	case *File:
		return it.File
	}
	return ""
}

// Content places an item in a module.
type Content struct {
	ID       string   `json:"id"`
	ModuleID string   `json:"module"`
	Order    int      `json:"order"`
	ItemType ItemType `json:"type"`
	ItemID   string   `json:"-"`
	Item     Item     `json:"item"`
}

// UnmarshalJSON decodes the item into the concrete type named by "type".
func (c *Content) UnmarshalJSON(data []byte) error {
	type alias Content
	aux := struct {
		*alias
		Item json.RawMessage `json:"item"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if item := c.ItemType.newItem(); item != nil && len(aux.Item) > 0 && string(aux.Item) != "null" {
		if err := json.Unmarshal(aux.Item, item); err != nil {
			return err
		}
		c.Item = item
		c.ItemID = item.Base().ID
	}
	return nil
}

// ContentOrder is the payload of a content/module reorder request: {id: order}.
type ContentOrder map[string]int

// Upload is a file sent along an image or file form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Form holds the user editable fields of an item: all but the owner, order and timestamps.
type Form interface {
	// fits reports whether the form fills items of type t.
	fits(t ItemType) bool
	// apply copies the form values onto item.
	apply(item Item)
}

type TextForm struct {
	Title   string `json:"title" form:"title" validate:"notblank,max=250"`
	Content string `json:"content" form:"content" validate:"notblank"`
}

func (f *TextForm) fits(t ItemType) bool { return f != nil && t == TypeText }

func (f *TextForm) apply(item Item) {
	it := item.(*Text)
	it.Title = f.Title
	it.Content = f.Content
}

type VideoForm struct {
	Title string `json:"title" form:"title" validate:"notblank,max=250"`
	URL   string `json:"url" form:"url" validate:"required,url,max=200"`
}

func (f *VideoForm) fits(t ItemType) bool { return f != nil && t == TypeVideo }

func (f *VideoForm) apply(item Item) {
	it := item.(*Video)
	it.Title = f.Title
	it.URL = f.URL
}

// FileForm is the form of both image and file items.
// Upload is required on creation only: updates keep the current file when it is nil.
type FileForm struct {
	Title  string  `json:"title" form:"title" validate:"notblank,max=250"`
	Upload *Upload `json:"-" form:"-"`
}

func (f *FileForm) fits(t ItemType) bool { return f != nil && t.HasUpload() }

// apply only copies the title: the upload is stored by the service.
func (f *FileForm) apply(item Item) {
	item.Base().Title = f.Title
}

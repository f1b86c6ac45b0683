package content

// LookupItemType resolves a content type name. Only "text", "video", "image" and "file" resolve.
func LookupItemType(name string) (ItemType, bool) {
	for _, t := range ItemTypes {
		if string(t) == name {
			return t, true
		}
	}
	return "", false
}

// newItem returns a zero item of type t, or nil for unknown types.
func (t ItemType) newItem() Item {
	switch t {
	case TypeText:
		return new(Text)
	case TypeVideo:
		return new(Video)
	case TypeImage:
		return new(Image)
	case TypeFile:
		return new(File)
	}
	return nil
}

// NewItem returns a zero item of type t, or nil for unknown types.
func NewItem(t ItemType) Item {
	return t.newItem()
}

// NewForm returns the empty form used to create or update items of type t, or nil for unknown types.
func (t ItemType) NewForm() Form {
	switch t {
	case TypeText:
		return new(TextForm)
	case TypeVideo:
		return new(VideoForm)
	case TypeImage, TypeFile:
		return new(FileForm)
	}
	return nil
}

// HasUpload reports whether items of type t carry an uploaded file.
func (t ItemType) HasUpload() bool {
	return t == TypeImage || t == TypeFile
}

// uploadDir is where uploads of type t are stored.
func (t ItemType) uploadDir() string {
	switch t {
	case TypeImage:
		return "images"
	case TypeFile:
		return "files"
	}
	return ""
}

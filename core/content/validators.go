package content

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/educa/core"
)

var (
	urlTag  = "url"
	urlText = "enter a valid URL"

	fileRequiredText = "no file was submitted"
	invalidImageText = "upload a valid image, the file you uploaded was either not an image or a corrupted image"
	emptyFileText    = "the submitted file is empty"
)

// InitValidators registers the content translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterCustomTranslation(validate, translator, urlTag, urlText, true)
}

// ValidateForm validates a form of items of type t. On creation, image and file forms need an upload.
func ValidateForm(validate *validator.Validate, t ItemType, form Form, creating bool) error {
	if err := validate.Struct(form); err != nil {
		return err
	}

	ff, ok := form.(*FileForm)
	if !ok {
		return nil
	}
	switch {
	case ff.Upload == nil:
		if creating {
			return core.NewValidationError(nil, core.FieldError{Field: "file", Error: fileRequiredText})
		}
	case ff.Upload.Size == 0:
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: emptyFileText})
	case t == TypeImage:
		ct, err := ff.Upload.sniff()
		if err != nil {
			return err
		}
		if !strings.HasPrefix(ct, "image/") {
			return core.NewValidationError(nil, core.FieldError{Field: "file", Error: invalidImageText})
		}
		ff.Upload.ContentType = ct
	}
	return nil
}

// sniffLen is the number of bytes http.DetectContentType considers.
const sniffLen = 512

// sniff detects the content type of the upload from its first bytes, which stay readable.
func (u *Upload) sniff() (string, error) {
	if u.Reader == nil {
		return "", nil
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(u.Reader, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", errors.Wrap(err, "reading upload")
	}
	head = head[:n]
	u.Reader = io.MultiReader(bytes.NewReader(head), u.Reader)
	return http.DetectContentType(head), nil
}

package echoapi

import (
	"encoding/json"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educa/core"
	"github.com/trezcool/educa/core/content"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

// bindOrders decodes a {id: order} JSON body.
// echo's binder only fills structs, so the body is decoded directly.
func bindOrders(ctx echo.Context) (content.ContentOrder, error) {
	var orders content.ContentOrder
	if err := json.NewDecoder(ctx.Request().Body).Decode(&orders); err != nil {
		return nil, core.NewValidationError(errors.New("expected a JSON object of {id: order}"))
	}
	return orders, nil
}

// bindForm binds the request to form, along with the multipart `file` of image and file forms.
// The returned func closes the uploaded file.
func bindForm(ctx echo.Context, form content.Form) (func(), error) {
	noop := func() {}
	if err := ctx.Bind(form); err != nil {
		return noop, errors.Wrap(err, "binding to content form")
	}

	ff, ok := form.(*content.FileForm)
	if !ok {
		return noop, nil
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		// missing file, or not a multipart request
		return noop, nil
	}
	f, err := fh.Open()
	if err != nil {
		return noop, errors.Wrap(err, "opening uploaded file")
	}
	ff.Upload = &content.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Reader:      f,
	}
	return func() { _ = f.Close() }, nil
}

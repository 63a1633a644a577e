package okusno

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ambrozic/okusno/content"
	"github.com/ambrozic/okusno/markdown"
)

// entityHandler serves the JSON CRUD API for one configured entity type.
type entityHandler struct {
	app    *App
	cfg    EntityConfig
	engine *content.Engine
	cache  *ListCache
}

// updateResponse is an entity plus the rename-cascade outcome. The caller
// uses idChanged/newId to redirect to the entity's new canonical location.
type updateResponse struct {
	content.Record
	IDChanged bool   `json:"idChanged,omitempty"`
	NewID     string `json:"newId,omitempty"`
}

func (h *entityHandler) handleList(c echo.Context) error {
	recs, err := h.cache.List()
	if err != nil {
		return err
	}
	if recs == nil {
		recs = []content.Record{}
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *entityHandler) handleGet(c echo.Context) error {
	rec, err := h.engine.Get(c.Param("id"))
	if err != nil {
		return mapContentError(err)
	}
	if c.QueryParam("render") == "html" {
		return Render(c, markdown.Component(rec.Content))
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *entityHandler) handleCreate(c echo.Context) error {
	if !IsAdmin(c) {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	in, err := h.parseForm(c)
	if err != nil {
		return err
	}
	rec, err := h.engine.Create(in)
	if err != nil {
		return mapContentError(err)
	}
	h.cache.Invalidate()
	return c.JSON(http.StatusCreated, rec)
}

func (h *entityHandler) handleUpdate(c echo.Context) error {
	if !IsAdmin(c) {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	in, err := h.parseForm(c)
	if err != nil {
		return err
	}
	res, err := h.engine.Update(c.Param("id"), in)
	if err != nil {
		return mapContentError(err)
	}
	h.cache.Invalidate()
	resp := updateResponse{Record: res.Record}
	if res.IDChanged {
		resp.IDChanged = true
		resp.NewID = res.Record.ID
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *entityHandler) handleDelete(c echo.Context) error {
	if !IsAdmin(c) {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id := c.Param("id")
	if err := h.engine.Delete(id); err != nil {
		return mapContentError(err)
	}
	h.cache.Invalidate()
	return c.JSON(http.StatusOK, map[string]string{"deleted": id})
}

// parseForm builds a content.Input from the multipart edit form. Uploaded
// images are decoded, resized, and re-encoded before they reach the engine.
func (h *entityHandler) parseForm(c echo.Context) (content.Input, error) {
	in := content.Input{
		Title:   strings.TrimSpace(c.FormValue("title")),
		Excerpt: strings.TrimSpace(c.FormValue("excerpt")),
		Content: c.FormValue("content"),
	}
	if date := strings.TrimSpace(c.FormValue("date")); date != "" {
		if _, err := content.ParseDate(date); err != nil {
			return in, echo.NewHTTPError(http.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
		}
		in.CreatedAt = date
	}
	tags := strings.Split(c.FormValue("tags"), ",")
	for i := range tags {
		tags[i] = strings.TrimSpace(tags[i])
	}
	in.Tags = FilterEmpty(tags)

	for _, f := range h.cfg.ExtraFields {
		if v := strings.TrimSpace(c.FormValue(f)); v != "" {
			if in.Fields == nil {
				in.Fields = make(map[string]string)
			}
			in.Fields[f] = v
		}
	}

	if file, err := c.FormFile("image"); err == nil {
		up, err := processUpload(file)
		if err != nil {
			return in, echo.NewHTTPError(http.StatusBadRequest, "invalid image: "+err.Error())
		}
		in.MainUpload = &up
	}

	if h.cfg.Gallery {
		if v := c.FormValue("existingGallery"); v != "" {
			var keep []string
			if err := json.Unmarshal([]byte(v), &keep); err != nil {
				return in, echo.NewHTTPError(http.StatusBadRequest, "existingGallery must be a JSON array of paths")
			}
			in.ReconcileGallery = true
			in.KeepGallery = keep
		}
		count, _ := strconv.Atoi(c.FormValue("galleryCount"))
		for n := 0; n < count; n++ {
			file, err := c.FormFile(fmt.Sprintf("gallery_%d", n))
			if err != nil {
				continue
			}
			up, err := processUpload(file)
			if err != nil {
				return in, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid gallery image %d: %v", n, err))
			}
			in.GalleryUploads = append(in.GalleryUploads, up)
		}
	}

	return in, nil
}

// mapContentError translates engine errors into HTTP responses: validation
// failures are 400s, missing entities 404s, anything else bubbles up as a
// 500 from the error handler.
func mapContentError(err error) error {
	var ve *content.ValidationError
	if errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	}
	if errors.Is(err, content.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return err
}

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

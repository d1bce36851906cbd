package adapthttp

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"foodtracker/internal/app"
	"foodtracker/internal/domain"
)

const (
	flashProductAdded   = "Product added successfully!"
	flashProductDeleted = "Product deleted successfully!"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	products, err := s.catalog.ListProducts(r.Context())
	if err != nil {
		s.requestLog(r).Error("list products", zap.Error(err))
		s.renderError(w, r, http.StatusInternalServerError, "Could not load products.")
		return
	}
	summary, err := s.totals.Today(r.Context())
	if err != nil {
		s.requestLog(r).Error("compute totals", zap.Error(err))
		s.renderError(w, r, http.StatusInternalServerError, "Could not compute totals.")
		return
	}

	s.render(w, r, http.StatusOK, "index.html", indexPage{
		User:     userFromContext(r.Context()),
		Date:     summary.Date,
		Products: products,
		Totals:   summary.Totals,
		Flash:    s.popFlash(w, r),
	})
}

func (s *Server) handleSearchForm(w http.ResponseWriter, r *http.Request) {
	query := r.PostFormValue("search")
	results, err := s.search.Search(r.Context(), query, 0)
	if err != nil {
		s.requestLog(r).Error("search", zap.String("query", query), zap.Error(err))
		s.renderError(w, r, http.StatusInternalServerError, "Search failed.")
		return
	}
	s.render(w, r, http.StatusOK, "search.html", searchPage{Query: query, Results: results})
}

func (s *Server) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxUpload {
		s.renderError(w, r, http.StatusRequestEntityTooLarge, "The upload is too large.")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		if isTooLarge(err) {
			s.renderError(w, r, http.StatusRequestEntityTooLarge, "The upload is too large.")
			return
		}
		s.renderError(w, r, http.StatusBadRequest, "Could not read the form.")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll() //nolint:errcheck
	}

	in, verr := productInputFromForm(r)
	if verr != nil {
		s.renderError(w, r, http.StatusBadRequest, verr.Error())
		return
	}

	file, header, err := r.FormFile("product_image")
	switch {
	case err == nil:
		defer file.Close() //nolint:errcheck
		in.Image = imageUpload(file, header)
	case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
		s.renderError(w, r, http.StatusBadRequest, "Could not read the image.")
		return
	}

	if _, err := s.catalog.AddProduct(r.Context(), in); err != nil {
		var ve *app.ValidationError
		if errors.As(err, &ve) {
			s.renderError(w, r, http.StatusBadRequest, ve.Error())
			return
		}
		s.requestLog(r).Error("add product", zap.Error(err))
		s.renderError(w, r, http.StatusInternalServerError, "Could not save the product.")
		return
	}

	s.setFlash(w, flashProductAdded)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "Product not found.")
		return
	}
	if err := s.catalog.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			s.renderError(w, r, http.StatusNotFound, "Product not found.")
			return
		}
		s.requestLog(r).Error("delete product", zap.Int64("id", id), zap.Error(err))
		s.renderError(w, r, http.StatusInternalServerError, "Could not delete the product.")
		return
	}

	s.setFlash(w, flashProductDeleted)
	http.Redirect(w, r, "/", http.StatusFound)
}

// productInputFromForm reads the add-product fields. Weight is required;
// an empty macronutrient field counts as zero.
func productInputFromForm(r *http.Request) (app.AddProductInput, *app.ValidationError) {
	in := app.AddProductInput{Name: r.FormValue("product_name")}
	verr := &app.ValidationError{}

	number := func(field string, required bool) float64 {
		raw := strings.TrimSpace(r.FormValue(field))
		if raw == "" {
			if required {
				verr.Fields = append(verr.Fields, app.FieldError{Field: field, Message: "This field is required"})
			}
			return 0
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			verr.Fields = append(verr.Fields, app.FieldError{Field: field, Message: "Must be a number"})
			return 0
		}
		return f
	}

	in.Weight = number("weight", true)
	in.ProteinsPer100g = number("proteiner", false)
	in.FatPer100g = number("fett", false)
	in.CarbohydratesPer100g = number("karbohydrater", false)

	if len(verr.Fields) > 0 {
		return in, verr
	}
	return in, nil
}

func imageUpload(f multipart.File, h *multipart.FileHeader) *app.ImageUpload {
	if h.Filename == "" {
		return nil
	}
	return &app.ImageUpload{
		Filename:    h.Filename,
		ContentType: h.Header.Get("Content-Type"),
		Body:        f,
	}
}

// JSON API

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.catalog.ListProducts(r.Context())
	if err != nil {
		s.requestLog(r).Error("list products", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": products})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrProductNotFound)
		return
	}
	p, err := s.catalog.GetProduct(r.Context(), id)
	if errors.Is(err, domain.ErrProductNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.requestLog(r).Error("get product", zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProductAPI(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrProductNotFound)
		return
	}
	err := s.catalog.DeleteProduct(r.Context(), id)
	if errors.Is(err, domain.ErrProductNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.requestLog(r).Error("delete product", zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}

func (s *Server) handleSearchAPI(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results, err := s.search.Search(r.Context(), query, intQuery(r, "page_size", 0))
	if err != nil {
		s.requestLog(r).Error("search", zap.String("query", query), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "items": results})
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	summary, err := s.totals.Today(r.Context())
	if err != nil {
		s.requestLog(r).Error("compute totals", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

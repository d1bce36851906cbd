package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"foodtracker/internal/domain"
	"foodtracker/internal/metrics"
)

// Image extensions accepted on upload, compared case-insensitively.
var allowedImageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// ImageUpload is an image file attached to a new product.
type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// AddProductInput is what a user enters for a new product. Macronutrients
// are per 100 g.
type AddProductInput struct {
	Name                 string  `field:"product_name" validate:"required,max=100"`
	Weight               float64 `field:"weight" validate:"finite,gt=0"`
	ProteinsPer100g      float64 `field:"proteiner" validate:"finite,gte=0"`
	FatPer100g           float64 `field:"fett" validate:"finite,gte=0"`
	CarbohydratesPer100g float64 `field:"karbohydrater" validate:"finite,gte=0"`
	Image                *ImageUpload
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when user input is rejected.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// CatalogService encapsulates the product catalog use cases.
type CatalogService struct {
	repo     domain.ProductRepository
	images   domain.ImageStore
	validate *validator.Validate
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// NewCatalogService creates a CatalogService. images may be nil, in which
// case uploads are ignored.
func NewCatalogService(repo domain.ProductRepository, images domain.ImageStore, log *zap.Logger, m *metrics.Metrics) *CatalogService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogService{
		repo:     repo,
		images:   images,
		validate: newValidator(),
		log:      log.Named("catalog"),
		metrics:  m,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("field"); name != "" {
			return name
		}
		return fld.Name
	})
	if err := v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	}); err != nil {
		panic(fmt.Sprintf("register finite validation: %v", err))
	}
	return v
}

// ListProducts returns every saved product ordered by id.
func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

// GetProduct returns one product or domain.ErrProductNotFound.
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// AddProduct validates in, converts its per-100 g macros into totals for
// the entered weight, stores the optional image, and saves the product.
func (s *CatalogService) AddProduct(ctx context.Context, in AddProductInput) (*domain.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, toValidationError(err)
	}

	totals := domain.NutrientsFromPer100g(domain.Macros{
		Proteins:      in.ProteinsPer100g,
		Fat:           in.FatPer100g,
		Carbohydrates: in.CarbohydratesPer100g,
	}, in.Weight)

	p := &domain.Product{
		Name:          in.Name,
		Weight:        in.Weight,
		Calories:      totals.Calories,
		Proteins:      totals.Proteins,
		Fat:           totals.Fat,
		Carbohydrates: totals.Carbohydrates,
	}

	ref, err := s.saveImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}
	if ref != "" {
		p.Image = &ref
	}

	id, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		if ref != "" {
			s.discardImage(ctx, ref)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	p.ID = id

	s.metrics.CatalogChanged("add")
	s.log.Info("product added",
		zap.Int64("id", id),
		zap.String("name", p.Name),
		zap.Float64("weight", p.Weight),
		zap.Bool("image", p.Image != nil),
	)
	return p, nil
}

func (s *CatalogService) saveImage(ctx context.Context, img *ImageUpload) (string, error) {
	if img == nil || img.Body == nil || img.Filename == "" || s.images == nil {
		return "", nil
	}
	ext := strings.ToLower(filepath.Ext(img.Filename))
	if !allowedImageExtensions[ext] {
		s.log.Debug("ignoring upload with unsupported extension", zap.String("filename", img.Filename))
		return "", nil
	}

	ref, err := s.images.Save(ctx, img.Filename, img.Body, img.ContentType)
	if errors.Is(err, domain.ErrInvalidFilename) {
		s.log.Debug("ignoring upload with unusable filename", zap.String("filename", img.Filename))
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return ref, nil
}

// discardImage removes an image whose product was never stored, unless an
// existing product still points at the same reference.
func (s *CatalogService) discardImage(ctx context.Context, ref string) {
	if products, err := s.repo.ListProducts(ctx); err == nil {
		for _, p := range products {
			if p.Image != nil && *p.Image == ref {
				return
			}
		}
	}
	if err := s.images.Delete(ctx, ref); err != nil {
		s.log.Warn("remove orphaned image", zap.String("ref", ref), zap.Error(err))
	}
}

// DeleteProduct removes a product; domain.ErrProductNotFound passes through.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.metrics.CatalogChanged("delete")
	s.log.Info("product deleted", zap.Int64("id", id))
	return nil
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, e := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: e.Field(), Message: validationMessage(e)})
	}
	return out
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "max":
		return "Must be at most " + e.Param() + " characters"
	case "gt":
		return "Must be greater than " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "finite":
		return "Must be a number"
	default:
		return "Invalid value"
	}
}

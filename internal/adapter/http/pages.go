package adapthttp

import (
	"html/template"
	"strings"

	"foodtracker/internal/domain"
)

var pageFuncs = template.FuncMap{
	"value":  domain.FormatValue,
	"weight": domain.FormatWeight,
	"src":    imageSrc,
}

func parsePages() *template.Template {
	return template.Must(template.New("pages").Funcs(pageFuncs).ParseFS(embedded, "templates/*.html"))
}

// imageSrc turns a stored image reference into something a browser can
// load: relative disk paths become root-relative.
func imageSrc(ref string) string {
	if ref == "" {
		return domain.DefaultImageURL
	}
	if strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return "/" + ref
}

type indexPage struct {
	User     *domain.User
	Date     string
	Products []domain.Product
	Totals   domain.NutrientTotals
	Flash    string
}

type searchPage struct {
	Query   string
	Results []domain.SearchResult
}

type loginPage struct {
	Error      string
	SSOEnabled bool
}

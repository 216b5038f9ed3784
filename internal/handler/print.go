package handler

import (
	"log/slog"
	"net/http"
	"text/template"
	"time"

	"github.com/dukerupert/aisle/internal/listsort"
	"github.com/dukerupert/aisle/internal/model"
	"github.com/dukerupert/aisle/internal/session"
)

var textTemplates = template.Must(template.New("").Parse(`
{{- define "print" -}}
Shopping list, week of {{.Week}}
{{range .Sections}}
{{if .Title}}{{.Title}}
{{end}}{{range .Items}}[{{.Mark}}] {{.Quantity}} x {{.Name}}{{if .MaxPrice}} (max {{.MaxPrice}}){{end}}
{{end}}{{end}}{{end}}

{{- define "share" -}}
Shopping list, week of {{.Week}}
{{range .Sections}}{{range .Items}}- {{.Name}}{{if gt .Quantity 1}} x{{.Quantity}}{{end}}
{{end}}{{end}}{{end}}
`))

type textLine struct {
	Mark     string
	Quantity int
	Name     string
	MaxPrice string
}

type textSection struct {
	Title string
	Items []textLine
}

type textPage struct {
	Week     string
	Sections []textSection
}

// PrintHandler renders the current list as plain text for printing or
// pasting into a message.
type PrintHandler struct {
	session *session.Manager
	logger  *slog.Logger
}

func NewPrintHandler(sess *session.Manager, logger *slog.Logger) *PrintHandler {
	return &PrintHandler{session: sess, logger: logger}
}

// Print renders every item with its status. In shop mode (the default) items
// are grouped under their location.
func (h *PrintHandler) Print(w http.ResponseWriter, r *http.Request) {
	mode := listsort.ModeShop
	if r.URL.Query().Get("mode") == string(listsort.ModeList) {
		mode = listsort.ModeList
	}
	h.render(w, "print", mode, func(model.WeeklyShopItem) bool { return true })
}

// Share renders only what is still to buy, in walking order.
func (h *PrintHandler) Share(w http.ResponseWriter, r *http.Request) {
	h.render(w, "share", listsort.ModeShop, func(it model.WeeklyShopItem) bool {
		return it.Status == model.StatusRequired
	})
}

func (h *PrintHandler) render(w http.ResponseWriter, name string, mode listsort.Mode, keep func(model.WeeklyShopItem) bool) {
	shop := h.session.Current()
	if shop == nil {
		http.Error(w, "no shopping list for this week", http.StatusNotFound)
		return
	}

	page := textPage{Week: shop.ShopDate.Format(time.DateOnly)}
	page.Sections = sections(h.session.Items(mode), mode, keep)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := textTemplates.ExecuteTemplate(w, name, page); err != nil {
		h.logger.Error("render text", "template", name, "error", err)
	}
}

// sections splits sorted items into location runs in shop mode, or one
// untitled section in list mode.
func sections(items []model.WeeklyShopItem, mode listsort.Mode, keep func(model.WeeklyShopItem) bool) []textSection {
	var out []textSection
	for _, it := range items {
		if !keep(it) {
			continue
		}
		title := ""
		if mode == listsort.ModeShop {
			title = "Other"
			if it.Product != nil && it.Product.Location != nil {
				title = it.Product.Location.Name
			}
		}
		if len(out) == 0 || out[len(out)-1].Title != title {
			out = append(out, textSection{Title: title})
		}
		last := &out[len(out)-1]
		last.Items = append(last.Items, line(it))
	}
	return out
}

func line(it model.WeeklyShopItem) textLine {
	l := textLine{Mark: " ", Quantity: it.Quantity, Name: it.ProductID}
	switch it.Status {
	case model.StatusBought:
		l.Mark = "x"
	case model.StatusUnavailable:
		l.Mark = "-"
	}
	if it.Product != nil {
		l.Name = it.Product.Name
	}
	if it.MaxPrice.Valid {
		l.MaxPrice = it.MaxPrice.Decimal.StringFixed(2)
	}
	return l
}

// Package navigation provides the permission-aware menu tree and the
// breadcrumbs of the active page.
package navigation

// BreadcrumbItem represents a single breadcrumb link.
type BreadcrumbItem struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

// Context represents the navigation context for a page.
type Context struct {
	ActiveSection string           `json:"active_section"`
	ActivePage    string           `json:"active_page"`
	Breadcrumbs   []BreadcrumbItem `json:"breadcrumbs"`
	PageTitle     string           `json:"page_title"`
}

// NewContext builds the context of the page at path inside the (already
// filtered) menu. The first item of the menu is the home crumb. A path that is
// not part of the menu yields a context with only the home crumb.
func NewContext(menu []MenuItem, path string) *Context {
	ctx := &Context{
		ActivePage:  path,
		Breadcrumbs: make([]BreadcrumbItem, 0),
	}

	if len(menu) > 0 && menu[0].Path != path {
		ctx.AddBreadcrumb(menu[0].Label, menu[0].Path, false)
	}

	trail := Trail(menu, path)
	if len(trail) == 0 {
		return ctx
	}

	ctx.ActiveSection = trail[0].Path
	ctx.PageTitle = trail[len(trail)-1].Label

	for i, item := range trail {
		last := i == len(trail)-1

		// group entries without own page get no link
		url := item.Path
		if !last && !item.IsLeaf() && !item.AlwaysVisible && item.RequiredResource == "" {
			url = ""
		}

		ctx.AddBreadcrumb(item.Label, url, last)
	}

	return ctx
}

// AddBreadcrumb adds a breadcrumb item to the context.
func (c *Context) AddBreadcrumb(title, url string, active bool) *Context {
	c.Breadcrumbs = append(c.Breadcrumbs, BreadcrumbItem{
		Title:  title,
		URL:    url,
		Active: active,
	})

	return c
}

package routes

import (
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SupportedMethods lists the methods registered for routes matching path,
// ignoring middleware and the implicit HEAD twin of every GET.
func SupportedMethods(app *fiber.App, path string) []string {
	seen := map[string]bool{}
	for _, r := range app.GetRoutes(true) {
		if r.Method == fiber.MethodHead || !matchPath(r.Path, path) {
			continue
		}
		seen[r.Method] = true
	}
	methods := make([]string, 0, len(seen))
	for m := range seen {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

// matchPath compares segment by segment; ":param" segments match anything
// non-empty.
func matchPath(pattern, path string) bool {
	ps := strings.Split(strings.Trim(pattern, "/"), "/")
	xs := strings.Split(strings.Trim(path, "/"), "/")
	if len(ps) != len(xs) {
		return false
	}
	for i, p := range ps {
		if strings.HasPrefix(p, ":") {
			if xs[i] == "" {
				return false
			}
			continue
		}
		if p != xs[i] {
			return false
		}
	}
	return true
}

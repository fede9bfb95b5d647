package heroku

import (
	"net/url"
	"strings"
)

// DefaultDashboardURL is the base URL of the Heroku web dashboard.
const DefaultDashboardURL = "https://dashboard.heroku.com"

// ActivityURL links to an app's activity page on the dashboard at base.
func ActivityURL(base, app string) string {
	if base == "" {
		base = DefaultDashboardURL
	}
	return strings.TrimRight(base, "/") + "/apps/" + url.PathEscape(app) + "/activity"
}

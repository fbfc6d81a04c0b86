package panel

import (
	_ "embed"
)

// The template content provider: literal configuration skeletons compiled
// into the binary. Rendering substitutes the {{KEY}} placeholders; the
// bytes themselves are not interesting engineering and live out of the way
// under templates/.
var (
	//go:embed templates/nginx.conf.tmpl
	nginxConfTemplate string

	//go:embed templates/site.conf.tmpl
	siteConfTemplate string

	//go:embed templates/prometheus.yml.tmpl
	prometheusTemplate string
)

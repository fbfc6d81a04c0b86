/*
Package render turns configuration templates into live, validated
service configuration.

A rendered config that a service cannot parse is worse than no change at
all: nginx stops answering on every site, not just the new one. The
renderer therefore never writes the live path directly. Every apply runs
the same cycle:

	render -> stage -> validate -> swap -> reload

The staged artifact lives in the live path's own directory (LivePath +
".staged"), which keeps the final rename on one filesystem and therefore
atomic. Validation runs the target service's own syntax checker against
the staged file. Only a passing validation swaps the artifact into place
and signals the service; a failing one discards the staged file, leaves
the live path byte-for-byte untouched, and returns the validator's
diagnostics verbatim.

The live configuration is always either the previous good version or the
new good version, even if the process dies mid-apply.

# Templates

Placeholders are {{KEY}} tokens substituted by exact string replacement;
there is no conditional logic, no escaping, no loops. A token that
survives rendering fails the apply. Validator and reload commands are
plain argv slices; for services running in containers they exec through
the engine, with the in-container staged path baked in by the module
that owns the template:

	tmpl := &render.Template{
	    Name:     "proxy-site",
	    Source:   siteTemplate,
	    Values:   map[string]string{"DOMAIN": site.Domain, "UPSTREAM": site.Upstream},
	    LivePath: "/srv/quayside/proxy/conf/sites/" + site.Domain + ".conf",
	    Validate: []string{"docker", "exec", "quayside-proxy", "nginx", "-t"},
	    Reload:   []string{"docker", "exec", "quayside-proxy", "nginx", "-s", "reload"},
	}
	result, err := renderer.Apply(ctx, tmpl)
	if err == nil && result.Rejected() {
	    fmt.Println(result.ValidatorOutput)
	}

# Outcomes

Apply distinguishes three outcomes. Applied: validated and live.
Unchanged: the live path already held exactly the rendered content, so
nothing ran, not even the validator. Rejected: the validator refused the
staged artifact; ValidatorOutput carries its diagnostics. Rejection is a
result, not an error; errors are reserved for the machinery itself
failing (unrenderable template, unwritable directory, missing validator
binary).

# Integration Points

  - pkg/command: executes validators and reload signals
  - pkg/module: each module owns its templates and apply calls
  - pkg/vault: credential values flow into template contexts
  - pkg/metrics: apply outcomes per template

# Thread Safety

The renderer holds no state. Applies against distinct live paths are
safe concurrently; the sequencer serializes applies within a module run.
*/
package render

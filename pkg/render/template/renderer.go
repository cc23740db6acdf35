package template

// TemplateRenderer renders a named template with a data context.
type TemplateRenderer interface {
	RenderTemplate(name string, data map[string]any) (string, error)
}

// Package template defines the engine seam used to render built-in markup
// such as the default error view shown when a host page provides no error
// template of its own. Engines live in subpackages; gotemplate is the pongo2
// implementation.
package template

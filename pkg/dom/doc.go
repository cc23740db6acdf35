// Package dom binds controllers to an in-memory host page. A Page owns the
// parsed document, the page location, the listeners attached to nodes, the
// focused node and the Loop every mutation runs on. It plays the part a
// browser window plays for a web component: the controller never touches the
// tree except from a loop task.
package dom

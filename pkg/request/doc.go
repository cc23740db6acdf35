// Package request builds the descriptors a sequence step sends to the
// retrieval service. A step starts either from a plain URL (the origin link)
// or from a rendered form whose controls are encoded in document order the
// way a browser builds its form data set. GET submissions fold the encoded
// body into the query string and carry no body.
package request

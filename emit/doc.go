// Package emit renders a resolved definition into output documents. The
// model is first turned into a Document, which every Emitter serializes in
// its own format.
package emit

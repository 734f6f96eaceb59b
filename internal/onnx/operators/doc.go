// Package operators maps ONNX operator types onto the closed set of operator
// variants the LaTeX engine knows how to describe.
//
// Each variant supplies the default symbol kind of its nodes, the display
// symbol pattern and the attribute strings substituted into the catalog
// templates. Operators the registry does not know map to the Undefined
// variant and still flow through the engine.
package operators

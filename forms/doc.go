// Package forms edits layer editing forms in a web map.
//
// Two mutators are provided:
//
//   - [Updater] adds or updates one field element on every layer that has the
//     field, wiring it to a named value expression and placing it in a group.
//   - [Propagator] copies field elements from a source layer's form to other
//     layers that share the fields.
//
// # Form Source Resolution
//
// A layer's effective form is resolved once when the document is parsed (see
// [webmap.FormSource]). When the web map defines a form for the layer, that
// form is edited. When only the layer item defines one, the whole item form is
// copied into the web map before the edit is applied; this promotion happens
// at most once per layer per run because the layer's source becomes the web
// map as soon as it is written. A layer with no form at all gets a new empty
// form.
//
// # Expressions
//
// Field elements reference expressions by name. Both mutators make sure the
// system true/false expressions exist in the document, and the Updater adds
// its value expression with a title derived from the name:
//
//	expr/set-project-number -> "Set Project Number"
//
// In [mutation.DryRun] mode neither forms nor expressions are written.
package forms

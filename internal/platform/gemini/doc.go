// Package gemini implements the enrichment.Invoker interface against
// Google's Gemini API. It owns prompt construction, the preferred-model
// fallback list, response cleanup, and classification of API failures into
// the enrichment error taxonomy.
package gemini

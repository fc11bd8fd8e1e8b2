// Package material defines the elastic material models a job graph can bind
// as shared inputs.
//
// Each model is its own Go type carrying only the constants it needs. On the
// wire a model is a flat JSON object with a "type" discriminant:
//
//	{"type": "isotropic", "young_modulus": 210e9, "poisson_ratio": 0.3}
//
// Decode reverses that mapping and rejects unknown discriminants.
package material

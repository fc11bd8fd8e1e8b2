// Package hclgraph loads job graphs from HCL files.
//
// # File Format
//
//	material "epoxy" {
//	  type          = "isotropic"
//	  young_modulus = 3.5e9
//	  poisson_ratio = 0.35
//	}
//
//	node "ud_ply" {
//	  kind   = "micromechanics"
//	  params = { fiber_volume_fraction = 0.6 }
//	  inputs = {
//	    matrix = material.epoxy
//	    fiber  = material.carbon
//	  }
//	}
//
//	node "laminate" {
//	  kind   = "layer"
//	  inputs = { ply = node.ud_ply }
//	}
//
//	terminal = "laminate"
//
// Inputs are plain references, never strings, so a typo is reported with
// its source position. Materials are validated against the models in package
// material. Nodes are added in declaration order, files in lexical order, so
// a node may only reference nodes declared before it.
package hclgraph

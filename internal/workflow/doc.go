// Package workflow loads pipeline declarations written in HCL.
//
// A workflow is one or more .hcl files holding, at the top level:
//
//	source = "reads"
//
//	params {
//	  assembler = "spades"
//	}
//
//	label "assembly" {
//	  concurrency = 2
//	}
//
//	stage "Assembly" {
//	  label   = "assembly"
//	  enabled = params.assembler != ""
//	  env     = { DEPTH = params.depth }
//
//	  input "trimmed" {
//	    filter {
//	      min_size = 10000
//	    }
//	  }
//	  output "assembly" {
//	    pattern = "*.fasta"
//	  }
//	}
//
// Parameters are resolved first (compiled defaults, then the params block,
// then an optional YAML params file) and exposed to stage expressions as the
// `params` object. The `enabled` expression is not evaluated here: it
// becomes the stage's activation and is evaluated once by the graph
// builder.
package workflow

// Package harness provides conformance testing for rule programs.
//
// The harness loads a YAML scenario, compiles the rule program it names,
// runs it over the scenario's inline inputs, and checks the produced
// output and per-rule hit counts.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	program: programs/count-errors.yaml
//	inputs:
//	  - name: app.log
//	    text: |
//	      ERROR boom
//	      fine
//	expect:
//	  output: |
//	    errors=1
//	  rule_hits:
//	    has-error: 1
//
// The program path resolves relative to the scenario file. Inputs are
// inline so a scenario is self-contained and byte-deterministic.
//
// # Deterministic Testing
//
// Everything a scenario consumes is in the scenario file or the program it
// names. Record order, rule order and range state are deterministic, so
// the same scenario produces the same bytes on every run; golden snapshots
// compare those bytes directly.
package harness

// Package harness provides conformance testing for reactor programs.
//
// The harness runs built-in programs under fixed parameters and options,
// stores the run, and validates the stored trace and outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: delay_forwards_value
//	description: "A value scheduled with a 5ms delay arrives at (T0 + 5ms, 0)"
//	program: delay
//	params: { delay: "5 msec", value: 7 }
//	options: { workers: 2 }
//	assertions:
//	  - type: trace_contains
//	    kind: set
//	    trigger: main.out
//	    value: 7
//	    at: "(T0 + 5ms, 0)"
//	  - type: trace_order
//	    events:
//	      - { kind: reaction, reaction: main/0@A }
//	      - { kind: reaction, reaction: main/1@B }
//	  - type: reason
//	    reason: exhausted
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - trace_contains: Verifies some event matches kind, reaction, trigger, value and at
//   - trace_order: Verifies matching events appear in the specified order
//   - trace_count: Verifies exactly N events match
//   - reason: Verifies how the run ended
//   - final_tag: Verifies the tag the run ended at
//
// # Deterministic Testing
//
// Scenarios run in simulation mode unless their options say otherwise.
// The harness uses:
//   - A manual clock at testutil.Epoch, except for programs with physical actions
//   - Fixed run ids (from scenario.run_id or "test-run-default")
//   - In-memory SQLite database (isolated per scenario)
//
// Assertions see the trace as read back from the store, and a run whose
// stored trace digest differs from the recorded one fails.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/delay.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness

// Package harness checks migration chains against the schema catalog.
//
// A scenario creates a store fixed at a starting version straight from the
// catalog, seeds it with rows shaped for that version, runs the registry's
// chain to a target version and then checks two things: the store validates
// against the target definition, and the declared data assertions hold.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: leaderboard_rekey
//	description: "Rekeying the leaderboard purges old tallies"
//	from: 2
//	to: 3
//	driver: sqlite        # optional: sqlite3 (default) or sqlite
//	seed:
//	  - INSERT INTO network_leaderboard (networkName, domainVisited) VALUES ('Network2', 'example.com')
//	assertions:
//	  - type: empty
//	    table: network_leaderboard
//	  - type: final_state
//	    table: tabs
//	    where: { tabId: tabid1 }
//	    expect: { position: 0, viewed: true }
//	golden: true
//
// # Assertion Types
//
//   - row_count: the table holds exactly count rows
//   - final_state: exactly one row matches where and carries every expect value
//   - empty: the table holds no rows
//   - column_order: the table's columns appear in exactly the given order
//
// # Golden Snapshots
//
// With golden: true the introspected schema is rendered as canonical JSON
// and compared with testdata/golden/{name}.golden through goldie.
//
// # Determinism
//
// Each run uses its own store file and a deterministic clock, so step
// reports and snapshots are reproducible. Independent scenarios may run in
// parallel with RunAll.
package harness

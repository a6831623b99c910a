// Package harness runs scripted user sessions against an in-memory remote.
//
// A scenario is a YAML list of user actions (unlock, add a customer, open
// it, record entries, go back ...) followed by assertions on the resulting
// ledger and screen. Every step is recorded in a trace; traces are
// deterministic because the remote hands out c-N/t-N ids and a fixed clock,
// so they can be compared against golden files.
//
// # Scenario Format
//
//	name: rahul_sharma
//	description: "Balance follows entries"
//	pin: "1234"
//	flow:
//	  - do: unlock
//	    args: { pin: "1234" }
//	  - do: add_customer
//	    args: { name: Rahul Sharma, city: Pune }
//	    as: rahul
//	  - do: open
//	    args: { customer: $rahul }
//	  - do: gave
//	    args: { customer: $rahul, amount: "500" }
//	  - do: got
//	    args: { customer: $rahul, amount: "200" }
//	    expect: { error: "" }
//	assertions:
//	  - type: balance
//	    customer: $rahul
//	    equals: "to receive, ₹300"
//
// Arguments starting with $ refer to the result of an earlier step that
// named itself with as.
//
// # Actions
//
//	unlock {pin}            lock
//	add_customer {name, father_name, city, mobile}
//	edit_customer {customer, name, father_name, city, mobile}
//	delete_customer {customer, confirm}
//	open {customer}         show {customer}       search {term}
//	overlay {kind}          close_overlay         back     home
//	gave/got {customer, amount, description}
//	delete_transaction {customer, transaction, confirm}
//	refresh                 fail_next {op, message}
//
// confirm defaults to "yes"; "no" declines the deletion prompt.
//
// # Assertions
//
//	balance {customer, equals}   badge {customer, equals}
//	screen {equals}              customers {count}
//	history {customer, count}    trace_count {action, outcome, count}
package harness

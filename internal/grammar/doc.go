// Package grammar defines the restricted SQL dialect the generation
// service is allowed to emit, and validates candidate statements against
// it.
//
// The grammar is the security boundary of the whole system. The language
// it defines admits exactly one table, a closed set of seven columns,
// five aggregate functions, WHERE conditions over integer literals or a
// single relative-date expression shape, and optional ORDER BY / LIMIT
// clauses. By construction an accepted string cannot reference another
// table, cannot write, cannot carry a string literal, and cannot nest a
// subquery. There is no denylist to bypass: anything outside the language
// simply does not parse.
//
// Two consumers share one Spec instance:
//
//   - The constrained generator ships Spec.Lark() to the generation
//     service as a hard output constraint.
//   - The validator re-checks every candidate independently with
//     Spec.Validate, because the upstream constraint is cooperative, not
//     guaranteed.
//
// Validation is a single left-to-right pass (hand lexer plus recursive
// descent over an LL(1) shape), so it runs in time linear in the
// candidate length with no backtracking. A Spec is immutable after New
// and safe to share across concurrent requests.
package grammar

// Package wizard implements the multi-step form controller shared by the
// marketplace's upload, competition, checkout and profile forms.
//
// A [Flow] is an ordered list of [Step]s, each carrying [Rule]s. The [Controller]
// owns the form state, the current step index and per-step validity:
//
//   - GoNext validates the current step and advances only when it passes
//   - GoBack always moves back and never validates
//   - GoTo allows backward jumps and forward jumps over validated steps only
//   - Submit runs every blocking rule, then hands the payload to a [Submitter]
//
// Rules are scoped. Step rules gate navigation, submit rules (criteria weights
// summing to 100) block only submission, and advisory rules (prize shares) are
// reported without blocking.
package wizard

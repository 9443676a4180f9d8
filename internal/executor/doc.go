// Package executor implements a breadth-first GraphQL executor whose field
// values may be pending, settling them one depth at a time so that batched
// loads collected by a depth run once.
//
// # Preparation
//
// Before execution, the executor:
//  1. Chooses the operation, by name or by uniqueness when unnamed.
//  2. Coerces variables against the operation's variable definitions. Errors
//     here stop execution.
//  3. Determines the root object type from the operation and collects the
//     root selection set.
//
// # Execution Model
//
// Every field is resolved through Runtime.ResolveField. A plain result is
// completed immediately and its subfields are expanded in the same pass. A
// result implementing Pending is queued together with its response path, and
// a placeholder is written where its value will go.
//
// Once a pass has drained, the queue of that depth is settled with
// Runtime.Settle in discovery order. Every value of the depth is settled
// before any of them is completed, so the first settlement is where a shared
// batch buffer loads everything the depth asked for. Completing the settled
// values expands their subfields, which may queue the next depth:
//
//	depth 0: resolve Query.a, Query.b (pending)
//	settle:  Query.b
//	depth 1: resolve B.x, B.y (pending), B.z (pending)
//	settle:  B.y, B.z
//
// A settled value may itself be pending; it is queued again for the next
// depth.
//
// # Value Completion
//
//   - Non-Null: complete the inner type; a null result records a located
//     error and propagates.
//   - List: complete each element with an index-aware path. Elements may be
//     pending independently. A null element of a Non-Null item type nulls the
//     list.
//   - Leaf: Runtime.SerializeLeafValue.
//   - Abstract: Runtime.ResolveType names the concrete type, which must be an
//     object type and a possible type of the abstract one.
//   - Object: collect subfields, matching fragments on interfaces and unions
//     through the schema's possible types.
//
// # Errors and Partial Success
//
// Errors are accumulated as located GraphQL errors. During the synchronous
// pass a Non-Null violation nulls the parent object and tombstones its path;
// pending values under a tombstone are dropped without being settled. A
// violation found while completing a settled value nulls the top-level field
// that contains it.
package executor

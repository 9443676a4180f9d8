// Package resolve dispatches schema fields to resolver functions.
//
// A Registry maps (type, field) pairs and abstract types to resolvers and
// falls back to structural defaults when nothing is registered. A Builder
// assembles field resolvers out of small steps: reading the parent value,
// an argument, a context slot or a property path, invoking a producer, and
// chaining steps with Compose. Any step may return a *deferred.Value;
// composition suspends at that point and resumes once the value settles.
//
// A Context is shared by all resolvers of one operation. It holds
// path-scoped named slots and the cache metadata accumulated while
// resolving.
package resolve

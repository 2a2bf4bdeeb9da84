// Package record defines the immutable descriptor registered for every
// audited value.
//
// A Record carries its id, an optional label, a display template with "{}"
// placeholders, up to MaxParents parent ids with the values those parents
// had at registration, and the call site that produced it.
//
// Records are value-like: New builds one, a store publishes a pointer to it,
// and nothing writes to it afterwards. Updating a value means registering a
// new record under a new id.
package record

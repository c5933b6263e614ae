// Package tickets holds the client-side ticket rules: input sanitizing,
// finalize validation and the describe/contact/submit flow for a draft.
package tickets

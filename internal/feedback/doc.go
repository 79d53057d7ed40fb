// Package feedback implements the feedback submission schema and the service
// that connects HTTP handlers to the store.
//
// A submission is a JSON object:
//
//	{"rating": 5, "name": "Ada", "email": "ada@example.com", "comment": "Great!"}
//
// rating is required and must be 1 to 5. name, email and comment are optional;
// blank name and email are stored as DefaultName and DefaultEmail. Unknown
// fields are rejected. Comments are stored verbatim, including newlines and
// markup; escaping is the renderer's job.
package feedback

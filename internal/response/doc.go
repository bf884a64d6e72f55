// Package response turns a completed search into what the client receives:
// an optional page window, page links, and a JSON or CSV body.
package response

// Package fences loads the startup fence list.
//
// The FileRepository reads a JSON file in the provider payload format and
// validates it, so a file accepted here is also a valid provider payload.
package fences

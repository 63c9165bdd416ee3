// Package errors provides structured, coded errors for throwdown.
//
// Every error kind the runtime can surface has a unique code that maps to a
// short message, a longer explanation and a category:
//   - registry: identifier allocation and registration (E100-E109)
//   - lifecycle: mutation batch processing and callbacks (E110-E129)
//   - render: render functions and the patcher (E130-E149)
//   - config: configuration loading and validation (E150-E159)
//
// # Usage
//
//	err := errors.New("E101").WithID("a42")
//	if errors.Is(err, registry.ErrDuplicateID) { ... }
//
//	fmt.Println(err.Format())
//	// ERROR E101: Duplicate identifier
//	//
//	//   id a42
//	//
//	//   An entry with this identifier is already live. ...
//
// Two errors with the same code match under errors.Is, so package-level
// sentinels built with New can be compared against errors carrying extra
// context.
package errors

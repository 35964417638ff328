// Package widgets provides the built-in widget builders.
//
// Every builder records its construction on the run, so widgets that are built but never
// placed with Use or UseIn show up in the developer report at the end of the run.
//
//	name, err := widgets.TextInput(run, "Your name").Key("name").Use()
package widgets

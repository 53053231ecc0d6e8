// Package subsystems contains interfaces for the pluggable components of the tracker.
//
// Most applications will not need to refer to these types. You will use them if you are supplying
// your own configuration source, encryption scheme, delegate, or live-tagging transport, or if you
// are writing a test fixture. They are also used as the return types of the configuration builders
// in atcomponents, so that custom components can be used interchangeably with the built-in ones.
package subsystems

package sapi

// Version is the semantic version of the sapi module.  Embed it in your
// own commands to surface the build version.
var Version = "v1.0.0"

package svcrun

// Version is the current version of the go-svcrun library
const Version = "0.1.0"

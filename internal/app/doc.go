// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary lifecycle of loading a
// definition and building its execution graph, decoupled from any specific
// entrypoint like a CLI.
package app

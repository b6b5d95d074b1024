// Package main hosts the transcripter CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the slog logger
// from it and hands off to the internal packages: `run` drives the workflow
// manager, while `jobs`, `proxies` and `history` inspect the input tree, the
// proxy cache and the attempt journal without starting a browser.
package main

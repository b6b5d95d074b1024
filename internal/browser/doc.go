// Package browser adapts a Chrome instance driven over the DevTools protocol
// to the upload.Opener and upload.Session interfaces.
//
// Every session owns its own browser process so the egress proxy can be set
// per session with --proxy-server. Closing the session terminates the
// process.
package browser

// Package testsupport provides config builders and file fixtures shared by
// package tests. It never touches the network or launches a browser.
package testsupport

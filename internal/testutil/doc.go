// Package testutil holds helpers shared by package tests: a thread-safe log
// buffer, a recording stage executor and file fixtures.
package testutil

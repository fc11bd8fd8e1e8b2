// Package testutil holds helpers shared by package tests: a thread-safe log
// buffer, temporary file trees and an in-process fake of the simulation
// service.
package testutil

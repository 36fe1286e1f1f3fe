// Package common contains path, validation, error and metrics helpers shared
// by the filesystem packages.
package common

// Package version reports the build version of a metatrack binary.
//
// Version and commit are set at link time and fall back to the VCS
// stamp recorded by the Go toolchain:
//
//	go build -ldflags "-X github.com/kbukum/metatrack/version.Version=1.4.0" ./cmd/metatrack
package version

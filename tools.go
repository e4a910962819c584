//go:build tools
// +build tools

// Package tools pins the versions of the linter and the ginkgo test runner
// used to check pktgen. It is never built.
package tools

import (
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
	_ "github.com/onsi/ginkgo/ginkgo"
)

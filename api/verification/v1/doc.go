// Package verificationv1 holds the verification.v1 wire surface: the proto
// definition and hand-maintained Go bindings for it. The messages carry
// protobuf struct tags understood by the protobuf runtime, so they marshal
// identically to protoc output without a codegen step in the build.
package verificationv1

import _ "embed"

// Schema contains the proto definition this package's bindings mirror. It
// is embedded so the binary can serve its own schema for tooling.
//
//go:embed verification.proto
var Schema []byte

//go:build !debug

package api

// debugBuild is compiled false unless the binary is built with `-tags debug`.
// Combined with MAPFLOW_TEST_MODE, this gates the reset endpoint (spec §4.6
// "Debug-only").
const debugBuild = false

package common

// Version is set at build time with -ldflags "-X github.com/ruteri/secret-sharing-service/common.Version=..."
var Version = "dev"

// PackageName prefixes metric names and tags logs of the service binaries.
const PackageName = "secret-sharing-service"

package types

// Version is the service version, overridden at build time via
// -ldflags "-X github.com/smartreview-app/smartreview/pkg/domain/types.Version=..."
var Version = "dev"

// ServiceName is used in health responses and log attributes
const ServiceName = "smartreview"

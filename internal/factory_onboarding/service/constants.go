package service

import "time"

const (
	// DefaultExtractTimeout bounds one call to the text understanding service
	DefaultExtractTimeout = 30 * time.Second

	// DefaultProbeSpec runs the upstream health probe every 30 seconds
	DefaultProbeSpec = "*/30 * * * * *"

	// probeTimeout bounds a single health probe
	probeTimeout = 5 * time.Second
)

// Operation names used in log records.
const (
	opOnboard  = "onboard"
	opExtract  = "extract"
	opPublish  = "publish_decision"
	opProbe    = "upstream_probe"
	opDecision = "onboarding_decision"
)

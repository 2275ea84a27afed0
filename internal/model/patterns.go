package model

// Cross-tool pattern tags. Adapters attach these to issues so the correlator
// can relate findings that different tools describe in different vocabularies.
// The set is open: adapters may invent tags; the core only compares them.
// These constants cover the tags the built-in adapters emit.
const (
	PatternCredentialExposure      = "credential_exposure"
	PatternInjectionVulnerability  = "injection_vulnerability"
	PatternCommandExecution        = "command_execution"
	PatternMemorySafety            = "memory_safety"
	PatternDependencyVulnerability = "dependency_vulnerability"
	PatternLicenseCompliance       = "license_compliance"
	PatternUnusedDependency        = "unused_dependency"
	PatternDeadCode                = "dead_code"
	PatternTypeConfusion           = "type_confusion"
	PatternResourceLeak            = "resource_leak"
	PatternSlowEndpoint            = "slow_endpoint"
	PatternErrorRate               = "error_rate"
	PatternAssertionFailure        = "assertion_failure"
)

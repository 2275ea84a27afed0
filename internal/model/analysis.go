package model

// AnalysisType identifies the kind of signal an issue carries. The set is
// closed: adapters must pick one of these, and the correlator and city mapper
// bucket on them.
type AnalysisType string

const (
	AnalysisQuality         AnalysisType = "quality"
	AnalysisSecurity        AnalysisType = "security"
	AnalysisPerformance     AnalysisType = "performance"
	AnalysisStyle           AnalysisType = "style"
	AnalysisComplexity      AnalysisType = "complexity"
	AnalysisSemantic        AnalysisType = "semantic"
	AnalysisAIPowered       AnalysisType = "ai_powered"
	AnalysisAPMPerformance  AnalysisType = "apm_performance"
	AnalysisDepSecurity     AnalysisType = "dependency_security"
	AnalysisDepLicensing    AnalysisType = "dependency_licensing"
	AnalysisDepUsage        AnalysisType = "dependency_usage"
	AnalysisArchDesign      AnalysisType = "architecture_design"
	AnalysisArchDebt        AnalysisType = "architecture_debt"
	AnalysisBundleOptimize  AnalysisType = "bundle_optimization"
	AnalysisLighthouseAudit AnalysisType = "lighthouse_audit"
)

var analysisTypes = map[AnalysisType]struct{}{
	AnalysisQuality:         {},
	AnalysisSecurity:        {},
	AnalysisPerformance:     {},
	AnalysisStyle:           {},
	AnalysisComplexity:      {},
	AnalysisSemantic:        {},
	AnalysisAIPowered:       {},
	AnalysisAPMPerformance:  {},
	AnalysisDepSecurity:     {},
	AnalysisDepLicensing:    {},
	AnalysisDepUsage:        {},
	AnalysisArchDesign:      {},
	AnalysisArchDebt:        {},
	AnalysisBundleOptimize:  {},
	AnalysisLighthouseAudit: {},
}

func ValidAnalysisType(t AnalysisType) bool {
	_, ok := analysisTypes[t]
	return ok
}

package adapters

import (
	"errors"
	"fmt"
	"path"

	"go.uber.org/zap"

	"github.com/cordlesssteve/topolop/internal/model"
	"github.com/cordlesssteve/topolop/internal/pathnorm"
)

// Converter turns adapter drafts into validated unified issues: path
// normalization, entity resolution, severity mapping, then the builder.
// One converter serves a whole run and is owned by the ingestion goroutine;
// Begin/Finish bracket each adapter's batch.
type Converter struct {
	norm     *pathnorm.Normalizer
	registry *model.EntityRegistry
	builder  *model.IssueBuilder
	log      *zap.SugaredLogger

	adapter  string
	table    model.SeverityTable
	issues   []model.Issue
	rejected []model.RejectedIssue
	raw      int
}

func NewConverter(norm *pathnorm.Normalizer, registry *model.EntityRegistry, builder *model.IssueBuilder, log *zap.SugaredLogger) *Converter {
	return &Converter{norm: norm, registry: registry, builder: builder, log: log}
}

// Begin resets the per-adapter accumulation for the named adapter.
func (cv *Converter) Begin(desc Descriptor) {
	cv.adapter = desc.Name
	cv.table = desc.Severities
	cv.issues = nil
	cv.rejected = nil
	cv.raw = 0
}

// Emit converts one draft. Invalid drafts land on the rejected list instead of
// aborting the batch.
func (cv *Converter) Emit(spec model.IssueSpec) {
	cv.raw++

	md := make(map[string]any, len(spec.Metadata)+2)
	for k, v := range spec.Metadata {
		md[k] = v
	}

	var (
		res      pathnorm.Result
		original string
	)
	if spec.PathRef != nil {
		res = cv.norm.ResolveRef(cv.adapter, *spec.PathRef, spec.FileTable)
		original = fmt.Sprintf("#%d", *spec.PathRef)
		if *spec.PathRef >= 0 && *spec.PathRef < len(spec.FileTable) {
			original = spec.FileTable[*spec.PathRef]
		}
	} else {
		var err error
		res, err = cv.norm.Normalize(spec.Path)
		if err != nil {
			cv.reject(spec, fmt.Sprintf("path: %v", err))
			return
		}
		original = spec.Path
	}
	if res.Unresolved {
		md["unresolvedPath"] = true
	}
	if res.ExternalToProject {
		md["externalToProject"] = true
	}

	typ := spec.EntityType
	if typ == "" {
		typ = model.EntityTypeFile
	}
	name := spec.EntityName
	if name == "" {
		name = path.Base(res.CanonicalPath)
	}
	ent := cv.registry.GetOrCreate(res.CanonicalPath, typ, name, original, cv.adapter, res.Confidence)

	sev, known := cv.table.Map(spec.RawSeverity)
	if !known {
		md["severityUnmapped"] = spec.RawSeverity
	}

	issue, err := cv.builder.Build(model.Issue{
		ID:            spec.ID,
		EntityID:      ent.ID,
		CanonicalPath: res.CanonicalPath,
		Severity:      sev,
		AnalysisType:  spec.Type,
		Title:         spec.Title,
		Description:   spec.Description,
		RuleID:        spec.RuleID,
		Line:          spec.Line,
		Column:        spec.Column,
		EndLine:       spec.EndLine,
		EndColumn:     spec.EndColumn,
		ToolName:      cv.adapter,
		Patterns:      spec.Patterns,
		Metadata:      md,
	})
	if err != nil {
		var inv *model.InvalidIssueError
		if errors.As(err, &inv) {
			cv.rejected = append(cv.rejected, model.RejectedIssue{
				RuleID:  spec.RuleID,
				Title:   spec.Title,
				Reasons: inv.Reasons,
			})
		} else {
			cv.reject(spec, err.Error())
		}
		cv.log.Debugw("issue rejected", "adapter", cv.adapter, "rule", spec.RuleID, "err", err)
		return
	}
	cv.issues = append(cv.issues, issue)
}

func (cv *Converter) reject(spec model.IssueSpec, reason string) {
	cv.rejected = append(cv.rejected, model.RejectedIssue{
		RuleID:  spec.RuleID,
		Title:   spec.Title,
		Reasons: []string{reason},
	})
}

// Finish returns the batch: accepted issues, rejections, and the raw count.
func (cv *Converter) Finish() ([]model.Issue, []model.RejectedIssue, int) {
	return cv.issues, cv.rejected, cv.raw
}

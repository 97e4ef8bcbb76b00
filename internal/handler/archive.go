package handler

import (
	"context"
	"fmt"

	"github.com/younsl/lifecycled/internal/archive"
	"github.com/younsl/lifecycled/internal/models"
	"go.uber.org/zap"
)

// ArchiveResult is the task output returned to the state machine
type ArchiveResult struct {
	InstanceID     string `json:"instanceId"`
	MetricsEmitted int    `json:"metricsEmitted"`
	MetricErrors   int    `json:"metricErrors"`
	Archived       bool   `json:"archived"`
}

// ArchiveHandler runs the archival pipeline for a state machine task
type ArchiveHandler struct {
	pipeline *archive.Pipeline
	logger   *zap.Logger
}

// NewArchiveHandler creates an ArchiveHandler
func NewArchiveHandler(pipeline *archive.Pipeline, logger *zap.Logger) *ArchiveHandler {
	return &ArchiveHandler{pipeline: pipeline, logger: logger}
}

// Handle archives task.Instance. A sink failure fails the task so the
// state machine can retry it.
func (h *ArchiveHandler) Handle(ctx context.Context, task models.ArchivalTask) (ArchiveResult, error) {
	if task.Instance.InstanceID == "" {
		return ArchiveResult{}, fmt.Errorf("task has no instance")
	}

	report, err := h.pipeline.Run(ctx, task.Instance)
	result := ArchiveResult{
		InstanceID:     report.InstanceID,
		MetricsEmitted: report.MetricsEmitted,
		MetricErrors:   len(report.MetricErrors),
		Archived:       report.Archived,
	}
	if err != nil {
		h.logger.Error("archive_failed", zap.String("instance_id", task.Instance.InstanceID), zap.Error(err))
		return result, err
	}
	return result, nil
}

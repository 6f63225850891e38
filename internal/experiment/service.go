// Package experiment orchestrates one protocol run end to end: intake,
// registration, graph construction, scheduling and execution.
package experiment

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/labwise-dev/labwise-go/internal/domain"
	"github.com/labwise-dev/labwise-go/internal/execution/drive"
	"github.com/labwise-dev/labwise-go/internal/execution/graph"
	"github.com/labwise-dev/labwise-go/internal/execution/schedule"
	"github.com/labwise-dev/labwise-go/internal/logserver"
	"github.com/labwise-dev/labwise-go/internal/operator"
	"github.com/labwise-dev/labwise-go/internal/protocol"
	"github.com/labwise-dev/labwise-go/internal/storage"
)

type Service struct {
	log     logserver.Client
	store   storage.Writer
	logger  *slog.Logger
	builder *graph.Builder
	driver  *drive.Driver
}

func New(log logserver.Client, store storage.Writer, logger *slog.Logger, builder *graph.Builder, driver *drive.Driver) (*Service, error) {
	if log == nil || store == nil || logger == nil || builder == nil || driver == nil {
		return nil, errors.New("all collaborators are required")
	}
	return &Service{
		log:     log,
		store:   store,
		logger:  logger,
		builder: builder,
		driver:  driver,
	}, nil
}

type RunRequest struct {
	ProjectID      string
	ProtocolName   string
	UserID         string
	ProtocolYAML   []byte
	ManipulateYAML []byte
}

func (r RunRequest) Validate() error {
	if strings.TrimSpace(r.ProjectID) == "" {
		return errors.New("project id is required")
	}
	if strings.TrimSpace(r.ProtocolName) == "" {
		return errors.New("protocol name is required")
	}
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user id is required")
	}
	if len(r.ProtocolYAML) == 0 {
		return errors.New("protocol document is required")
	}
	if len(r.ManipulateYAML) == 0 {
		return errors.New("manipulate document is required")
	}
	return nil
}

type RunResult struct {
	RunID          string
	StorageAddress string
	Status         domain.RunStatus
}

// RunExperiment performs one full protocol execution. Construction-time
// failures (bad input, no matching operator, cyclic dependencies) abort
// before any execution state reaches the log server. Execution-time failures
// leave completed operations intact and settle the run as failed; the result
// then still carries the run id alongside the error.
func (s *Service) RunExperiment(ctx context.Context, req RunRequest) (RunResult, error) {
	if err := req.Validate(); err != nil {
		return RunResult{}, err
	}

	doc, err := protocol.Decode(req.ProtocolYAML)
	if err != nil {
		return RunResult{}, err
	}
	manipulates, err := protocol.DecodeManipulate(req.ManipulateYAML)
	if err != nil {
		return RunResult{}, err
	}

	runID, err := s.log.CreateRun(ctx, logserver.CreateRunInput{
		ProjectID: req.ProjectID,
		FileName:  req.ProtocolName,
		Checksum:  protocol.Checksum(req.ProtocolYAML),
		UserID:    req.UserID,
	})
	if err != nil {
		return RunResult{}, err
	}

	run := domain.Run{
		ID:           runID,
		ProjectID:    req.ProjectID,
		UserID:       req.UserID,
		ProtocolName: req.ProtocolName,
		Checksum:     protocol.Checksum(req.ProtocolYAML),
		Status:       domain.RunNotStarted,
		StorageMode:  s.store.Mode(),
	}
	run.StorageAddress = run.StoragePrefix()

	if err := s.log.PatchAttribute(ctx, logserver.KindRun, runID, logserver.AttrStorageAddress, run.StorageAddress); err != nil {
		s.logger.Warn("failed to record run storage address", "run_id", runID, "error", err)
	}
	if err := s.log.PatchAttribute(ctx, logserver.KindRun, runID, logserver.AttrStorageMode, run.StorageMode); err != nil {
		s.logger.Warn("failed to record run storage mode", "run_id", runID, "error", err)
	}

	s.logger.Info("uploading protocol documents", "run_id", runID, "prefix", run.StorageAddress)
	if err := s.store.Save(ctx, run.StorageAddress+"protocol.yaml", req.ProtocolYAML, "application/x-yaml"); err != nil {
		return RunResult{RunID: runID}, err
	}
	if err := s.store.Save(ctx, run.StorageAddress+"manipulate.yaml", req.ManipulateYAML, "application/x-yaml"); err != nil {
		return RunResult{RunID: runID}, err
	}

	pool := operator.DefaultPool(manipulates, run.StoragePrefix())

	built, err := s.builder.Build(ctx, run, doc, pool)
	if err != nil {
		return RunResult{RunID: runID}, err
	}

	plan, err := schedule.Plan(built.Edges, built.OperationNames())
	if err != nil {
		return RunResult{RunID: runID}, err
	}
	s.logger.Info("execution plan ready",
		"run_id", runID,
		"processes", len(built.Processes),
		"operations", len(built.Operations),
		"edges", len(built.Edges),
	)

	result := RunResult{RunID: runID, StorageAddress: run.StorageAddress}
	if err := s.driver.Execute(ctx, &run, plan, drive.NewOperationSet(built.Operations), built.Edges); err != nil {
		result.Status = domain.RunFailed
		return result, err
	}
	result.Status = domain.RunCompleted
	return result, nil
}

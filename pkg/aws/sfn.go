package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-sdk-go-v2/service/sfn/types"
	"github.com/younsl/lifecycled/internal/lifecycle"
	"github.com/younsl/lifecycled/internal/models"
)

// SFNAPI is the subset of the Step Functions client used by StepFunctionsStarter
type SFNAPI interface {
	StartExecution(ctx context.Context, params *sfn.StartExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error)
}

// StepFunctionsStarter starts the archival state machine. The execution
// name is derived from the dedupe key, so a second start of the same key
// is rejected by Step Functions and treated as already started.
type StepFunctionsStarter struct {
	client          SFNAPI
	stateMachineARN string
}

// NewStepFunctionsStarter creates a StepFunctionsStarter
func NewStepFunctionsStarter(client SFNAPI, stateMachineARN string) *StepFunctionsStarter {
	return &StepFunctionsStarter{client: client, stateMachineARN: stateMachineARN}
}

// NewStepFunctionsStarterFromConfig creates a StepFunctionsStarter with a new client
func NewStepFunctionsStarterFromConfig(cfg aws.Config, stateMachineARN string) *StepFunctionsStarter {
	return NewStepFunctionsStarter(sfn.NewFromConfig(cfg), stateMachineARN)
}

// StartArchival starts one execution for key and returns its ARN, or the
// execution name when it already exists
func (s *StepFunctionsStarter) StartArchival(ctx context.Context, key lifecycle.DedupeKey, rec models.InstanceRecord) (string, error) {
	input, err := json.Marshal(models.ArchivalTask{Instance: rec})
	if err != nil {
		return "", fmt.Errorf("error encoding execution input: %w", err)
	}

	name := key.ExecutionName()
	out, err := s.client.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(s.stateMachineARN),
		Name:            aws.String(name),
		Input:           aws.String(string(input)),
	})
	if err != nil {
		var exists *types.ExecutionAlreadyExists
		if errors.As(err, &exists) {
			return name, nil
		}
		return "", fmt.Errorf("error starting execution %s: %w", name, err)
	}
	return aws.ToString(out.ExecutionArn), nil
}

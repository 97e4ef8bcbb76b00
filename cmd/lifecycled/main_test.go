package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/younsl/lifecycled/internal/models"
)

const replayEvents = `# one spot instance, launched then terminated
{"id":"1","source":"aws.ec2","detail-type":"EC2 Spot Instance Request Fulfillment","region":"us-east-1","time":"2024-03-01T10:00:00Z","detail":{"instance-id":"i-1","spot-instance-request-id":"sir-1"}}
{"id":"2","source":"aws.ec2","detail-type":"EC2 Instance State-change Notification","region":"us-east-1","time":"2024-03-01T10:01:00Z","detail":{"instance-id":"i-1","state":"running"}}

{"id":"3","source":"aws.ec2","detail-type":"EC2 Instance State-change Notification","region":"us-east-1","time":"2024-03-01T11:00:00Z","detail":{"instance-id":"i-1","state":"terminated"}}
{"id":"4","source":"aws.s3","detail-type":"Object Created","region":"us-east-1","time":"2024-03-01T11:00:00Z","detail":{}}
`

const replayInstances = `[{"InstanceId":"i-1","InstanceType":"m5.large","InstanceLifecycle":"spot","AvailabilityZone":"us-east-1a","Tags":[{"Key":"Name","Value":"worker"}]}]`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestReplayCommand(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()
	eventsPath := writeFile(t, dir, "events.jsonl", replayEvents)
	instancesPath := writeFile(t, dir, "instances.json", replayInstances)
	archivePath := filepath.Join(dir, "archive.jsonl")
	metricsPath := filepath.Join(dir, "metrics.jsonl")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"replay", "-q",
		"--file", eventsPath,
		"--instances", instancesPath,
		"--archive-out", archivePath,
		"--metrics-out", metricsPath,
		"--max-redeliveries", "1",
	})
	require.NoError(t, cmd.Execute())

	archived := readLines(t, archivePath)
	require.Len(t, archived, 2)
	var last models.InstanceRecord
	require.NoError(t, json.Unmarshal([]byte(archived[1]), &last))
	assert.Equal(t, "i-1", last.InstanceID)
	assert.Equal(t, models.StateTerminated, last.State)
	assert.Equal(t, "m5.large", last.InstanceType)
	assert.Equal(t, "sir-1", last.SpotInstanceRequestID)

	assert.Len(t, readLines(t, metricsPath), 4)

	assert.Contains(t, out.String(), "worker")
	assert.Contains(t, out.String(), "ARCHIVABLE")
	assert.Regexp(t, `Dispatched\s+2`, out.String())
	assert.Regexp(t, `Rejected\s+1`, out.String())
	assert.NotContains(t, out.String(), "Warning:")
}

func TestReplayCommandRequiresFile(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"replay"})
	assert.Error(t, cmd.Execute())
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "lifecycled dev"))
}

func TestLambdaCommandRejectsInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("ARCHIVE_SINK", "kinesis")
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"lambda", "archive"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARCHIVE_SINK")
}

package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

type emfMetric struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

type emfDirective struct {
	Namespace  string      `json:"Namespace"`
	Dimensions [][]string  `json:"Dimensions"`
	Metrics    []emfMetric `json:"Metrics"`
}

type emfMetadata struct {
	Timestamp         int64          `json:"Timestamp"`
	CloudWatchMetrics []emfDirective `json:"CloudWatchMetrics"`
}

// EncodeEMF renders one counter data point as a CloudWatch embedded
// metric format document. Properties never override dimensions or the
// metric value.
func EncodeEMF(at time.Time, namespace string, dims map[string]string, name string, value float64, props map[string]string) ([]byte, error) {
	doc := make(map[string]any, len(props)+len(dims)+2)
	for k, v := range props {
		doc[k] = v
	}

	keys := make([]string, 0, len(dims))
	for k, v := range dims {
		keys = append(keys, k)
		doc[k] = v
	}
	sort.Strings(keys)

	doc[name] = value
	doc["_aws"] = emfMetadata{
		Timestamp: at.UnixMilli(),
		CloudWatchMetrics: []emfDirective{{
			Namespace:  namespace,
			Dimensions: [][]string{keys},
			Metrics:    []emfMetric{{Name: name, Unit: "Count"}},
		}},
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("error encoding EMF document: %w", err)
	}
	return out, nil
}

// EMFWriter writes EMF documents as log lines. In Lambda, stdout lines
// are ingested by CloudWatch Logs and extracted as metrics.
type EMFWriter struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewEMFWriter creates an EMFWriter over w
func NewEMFWriter(w io.Writer) *EMFWriter {
	return &EMFWriter{w: w, now: time.Now}
}

// EmitCounter writes one EMF line
func (e *EMFWriter) EmitCounter(_ context.Context, namespace string, dims map[string]string, name string, value float64, props map[string]string) error {
	doc, err := EncodeEMF(e.now(), namespace, dims, name, value, props)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(append(doc, '\n')); err != nil {
		return fmt.Errorf("error writing EMF document: %w", err)
	}
	return nil
}

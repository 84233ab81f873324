// Package awstask builds task.ActionTask instances backed by an AWS
// SSM Parameter Store value, grounded on pkg/graft/operators/op_aws.go's
// getAwsParam (cached ssm.GetParameter lookup, WithDecryption: true) and
// engine.go's ssmiface.SSMAPI field — generalized from "fetch a
// parameter at evaluation time" to "fetch and write a parameter as a
// reconciliation Action", using aws-sdk-go-v2's ssm client rather than
// the teacher's aws-sdk-go v1 client.
package awstask

import (
	"context"
	"fmt"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/wayneeseguin/reconcile/internal/lens"
	"github.com/wayneeseguin/reconcile/internal/task"
	"github.com/wayneeseguin/reconcile/internal/view"
)

// API is the subset of the SSM client awstask depends on, mirroring the
// teacher's ssmiface.SSMAPI narrowing for testability.
type API interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// NewClient loads the default AWS config (environment, shared config
// file, or instance role, in that order) and constructs an SSM client.
func NewClient(ctx context.Context) (API, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("awstask: loading AWS config: %w", err)
	}
	return ssm.NewFromConfig(cfg), nil
}

// paramCache deduplicates repeated GetParameter calls for the same name
// within a single process lifetime, mirroring op_aws.go's awsParamsCache.
type paramCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newParamCache() *paramCache { return &paramCache{values: map[string]string{}} }

// NewCache constructs a cache shared across multiple read tasks, so
// repeated reconciliation passes over the same parameter don't re-fetch
// it from SSM every time.
func NewCache() *paramCache { return newParamCache() }

func (c *paramCache) get(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[name]
	return v, ok
}

func (c *paramCache) set(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = value
}

// NewReadTask builds an ActionTask whose Action fetches the named SSM
// parameter (with decryption, per getAwsParam) and writes its string
// value at l. Planning's Effect is a no-op: fetching a live parameter
// value has no pure projection.
func NewReadTask(client API, cache *paramCache, l lens.Lens, name string) *task.ActionTask {
	if cache == nil {
		cache = newParamCache()
	}
	label := fmt.Sprintf("aws:ssm:read:%s", name)
	return task.NewActionTask(l, task.Update, label, nil,
		func(v view.View, a task.Args) error { return nil },
		func(ctx context.Context, v view.View, a task.Args) error {
			if cached, ok := cache.get(name); ok {
				return v.Write(cached)
			}
			out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
				Name:           &name,
				WithDecryption: boolPtr(true),
			})
			if err != nil {
				return fmt.Errorf("awstask: GetParameter %s: %w", name, err)
			}
			value := stringVal(out.Parameter.Value)
			cache.set(name, value)
			return v.Write(value)
		},
	)
}

// NewWriteTask builds an ActionTask that writes a.Target's string value
// into the named SSM parameter as a SecureString, reconciling AWS SSM
// itself toward a desired target.
func NewWriteTask(client API, l lens.Lens, name string) *task.ActionTask {
	label := fmt.Sprintf("aws:ssm:write:%s", name)
	return task.NewActionTask(l, task.Update, label, nil,
		func(v view.View, a task.Args) error {
			if a.Target == nil {
				return fmt.Errorf("awstask: write requires a target value")
			}
			return v.Write(a.Target.ToInterface())
		},
		func(ctx context.Context, v view.View, a task.Args) error {
			if a.Target == nil {
				return fmt.Errorf("awstask: write requires a target value")
			}
			value := fmt.Sprintf("%v", a.Target.ToInterface())
			_, err := client.PutParameter(ctx, &ssm.PutParameterInput{
				Name:      &name,
				Value:     &value,
				Type:      types.ParameterTypeSecureString,
				Overwrite: boolPtr(true),
			})
			if err != nil {
				return fmt.Errorf("awstask: PutParameter %s: %w", name, err)
			}
			return v.Write(value)
		},
	)
}

func boolPtr(b bool) *bool { return &b }

func stringVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

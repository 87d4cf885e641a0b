package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stepRecorder struct {
	steps []string
	err   error
}

func (r *stepRecorder) Shutdown(context.Context) error {
	r.steps = append(r.steps, "http")
	return r.err
}

type drainRecorder struct{ rec *stepRecorder }

func (d drainRecorder) Drain(context.Context) error {
	d.rec.steps = append(d.rec.steps, "drain")
	return nil
}

func TestGracefulStop_ServerBeforeDrain(t *testing.T) {
	rec := &stepRecorder{}
	gracefulStop(context.Background(), zap.NewNop(), rec, drainRecorder{rec})
	assert.Equal(t, []string{"http", "drain"}, rec.steps)
}

func TestGracefulStop_DrainsEvenWhenServerFails(t *testing.T) {
	rec := &stepRecorder{err: errors.New("timeout")}
	gracefulStop(context.Background(), zap.NewNop(), rec, drainRecorder{rec})
	assert.Equal(t, []string{"http", "drain"}, rec.steps)
}

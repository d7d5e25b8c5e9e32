package main

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/plus3/luminara/app"
)

func newStressApp(t *testing.T, churn int) *app.App {
	t.Helper()
	a := app.New(app.WithLogger(zap.NewNop()), app.WithConfig(app.Config{Workers: 2}))
	a.AddPlugin(&Workload{Churn: churn})
	require.NoError(t, a.Err())
	return a
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(7))
}

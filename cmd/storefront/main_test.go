package main

import (
	"context"
	"testing"

	"github.com/deppfellow/storefront/internal/errs"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunFailsWithoutMongoURI(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	logger := zerolog.Nop()

	err := run(context.Background(), &logger)

	require.Error(t, err)
	assert.True(t, errors.Is(err, &errs.HTTPError{Kind: errs.KindConfiguration}))
	assert.Contains(t, err.Error(), "MONGO_URI")
}

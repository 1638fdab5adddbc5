package burrow_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowdb/burrow"
	"github.com/burrowdb/burrow/graph"
	"github.com/burrowdb/burrow/query"
	"github.com/burrowdb/burrow/schema"
)

func TestNotFoundError(t *testing.T) {
	err := burrow.NewNotFoundError("Car")
	assert.EqualError(t, err, "burrow: Car not found")
	assert.Equal(t, "Car", err.Label())
	assert.True(t, errors.Is(err, burrow.ErrNotFound))
	assert.True(t, burrow.IsNotFound(err))
	assert.True(t, burrow.IsNotFound(fmt.Errorf("query: %w", err)))
	assert.False(t, burrow.IsNotFound(nil))
	assert.False(t, burrow.IsNotFound(errors.New("boom")))

	withKey := burrow.NewNotFoundErrorWithKey("Car", "c1")
	assert.EqualError(t, withKey, `burrow: Car not found (key=c1)`)
}

func TestKeyUniquenessError(t *testing.T) {
	err := &burrow.KeyUniquenessError{Type: "Car", Key: "c1"}
	assert.EqualError(t, err, `burrow: Car: duplicate key "c1"`)
	assert.True(t, burrow.IsKeyUniqueness(err))
	assert.True(t, burrow.IsKeyUniqueness(errors.Join(errors.New("other"), err)))
	assert.False(t, burrow.IsKeyUniqueness(errors.New("other")))
}

func TestValidationError(t *testing.T) {
	err := &burrow.ValidationError{
		Type:     "Car",
		Key:      "c1",
		Messages: []string{"price must not be negative", "model is required"},
	}
	assert.EqualError(t, err, "burrow: Car(c1): validation failed: price must not be negative; model is required")
	assert.True(t, burrow.IsValidation(err))
	assert.True(t, burrow.IsValidation(errors.Join(err, &burrow.KeyUniquenessError{Type: "Car", Key: "c2"})))
	assert.False(t, burrow.IsValidation(errors.New("other")))
}

func TestErrorClassifiers(t *testing.T) {
	cycle := &graph.CycleError{Path: []string{"A", "B", "A"}}
	assert.True(t, burrow.IsCycle(fmt.Errorf("save: %w", cycle)))
	assert.False(t, burrow.IsCycle(errors.New("other")))

	var schemaErr error = func() error {
		_, err := schema.NewRegistry(schema.NewType("Broken", nil))
		return err
	}()
	require.Error(t, schemaErr)
	assert.True(t, burrow.IsSchema(schemaErr))

	opErr := &query.UnsupportedOperatorError{Op: "~="}
	assert.True(t, burrow.IsUnsupportedOperator(opErr))
	assert.False(t, burrow.IsUnsupportedOperator(errors.New("other")))
}

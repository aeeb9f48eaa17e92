package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(NewValidation("bad")))
	assert.Equal(t, KindNotFound, KindOf(NewNotFound("thing")))
	assert.Equal(t, KindConflict, KindOf(NewConflict("taken")))
	assert.Equal(t, KindInternal, KindOf(fmt.Errorf("plain")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("loading appointment: %w", NewNotFound("appointment"))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(nil, KindNotFound))
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "appointment not found", NewNotFound("appointment").Error())
	assert.Equal(t, "duration must be 15", NewValidationf("duration must be %d", 15).Error())

	wrapped := NewInternal(fmt.Errorf("pq: boom"))
	assert.Contains(t, wrapped.Error(), "internal error")
	assert.Contains(t, wrapped.Error(), "pq: boom")
}

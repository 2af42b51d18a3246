package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCountersUsableBeforeRegister(t *testing.T) {
	assert.NotPanics(t, func() {
		IncBookingCreated("none")
		IncBookingCancelled()
		IncBookingConflict()
		IncHTTP("create_booking")
	})
}

package toolerr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type upstreamErr struct{}

func (upstreamErr) Error() string { return "boom" }
func (upstreamErr) Kind() Kind    { return KindUpstream }

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "validation", err: Validationf("Missing required argument: %s", "x"), want: KindValidation},
		{name: "wrapped kinded", err: fmt.Errorf("fetch: %w", upstreamErr{}), want: KindUpstream},
		{name: "bare cancel", err: context.Canceled, want: KindCancelled},
		{name: "bare deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), want: KindNetwork},
		{name: "plain", err: errors.New("plain"), want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := Wrap(KindConfig, "", cause)

	assert.Equal(t, "cause", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(err, KindConfig))
	assert.False(t, Is(nil, KindConfig))
}
